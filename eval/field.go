package eval

import (
	"math/big"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/pkg/errors"

	"addchain.mleku.dev"
)

// FieldElement is an element of the secp256k1 base field. Multiplication and
// squaring are btcec's; every fixed exponentiation (inversion, square root,
// quadratic residuosity) runs along a searched addition chain.
type FieldElement struct {
	n btcec.FieldVal
}

// Exponent chains for p-2, (p+1)/4 and (p-1)/2, searched once on first use
var (
	inverseSteps []addchain.Step
	sqrtSteps    []addchain.Step
	eulerSteps   []addchain.Step
	fieldOnce    sync.Once
)

func initFieldSteps() {
	one := big.NewInt(1)
	pMinus2 := new(big.Int).Sub(fieldPrime, big.NewInt(2))
	pPlus1Over4 := new(big.Int).Add(fieldPrime, one)
	pPlus1Over4.Rsh(pPlus1Over4, 2)
	pMinus1Over2 := new(big.Int).Sub(fieldPrime, one)
	pMinus1Over2.Rsh(pMinus1Over2, 1)

	inverseSteps = mustSteps(pMinus2)
	sqrtSteps = mustSteps(pPlus1Over4)
	eulerSteps = mustSteps(pMinus1Over2)
}

// setB32 sets a field element from a 32-byte big-endian array, reduced mod p
func (r *FieldElement) setB32(b []byte) error {
	if len(b) != 32 {
		return errors.New("field element byte array must be 32 bytes")
	}
	r.n.SetByteSlice(b)
	r.n.Normalize()
	return nil
}

// getB32 writes the normalized element as a 32-byte big-endian array
func (r *FieldElement) getB32(b []byte) {
	if len(b) != 32 {
		panic("field element byte array must be 32 bytes")
	}
	var n btcec.FieldVal
	n.Set(&r.n).Normalize()
	n.PutBytesUnchecked(b)
}

func (r *FieldElement) setInt(a uint16) {
	r.n.SetInt(a)
}

func (r *FieldElement) normalize() {
	r.n.Normalize()
}

func (r *FieldElement) isZero() bool {
	var n btcec.FieldVal
	return n.Set(&r.n).Normalize().IsZero()
}

func (r *FieldElement) equal(a *FieldElement) bool {
	var x, y btcec.FieldVal
	x.Set(&r.n).Normalize()
	y.Set(&a.n).Normalize()
	return x.Equals(&y)
}

// negate sets r = -a, where m is the magnitude of a
func (r *FieldElement) negate(a *FieldElement, m uint32) {
	r.n.NegateVal(&a.n, m)
}

func (r *FieldElement) mul(a, b *FieldElement) {
	r.n.Mul2(&a.n, &b.n)
}

func (r *FieldElement) sqr(a *FieldElement) {
	r.n.SquareVal(&a.n)
}

// pow sets r = a^e where steps is a decomposed chain for e >= 1
func (r *FieldElement) pow(a *FieldElement, steps []addchain.Step) {
	var base btcec.FieldVal
	base.Set(&a.n).Normalize()
	r.n = Run[btcec.FieldVal](FieldGroup{}, base, steps)
	r.n.Normalize()
}

// inv computes the modular inverse as a^(p-2). The inverse of zero is zero.
func (r *FieldElement) inv(a *FieldElement) {
	fieldOnce.Do(initFieldSteps)
	r.pow(a, inverseSteps)
}

// sqrt sets r = a^((p+1)/4), a square root of a when one exists, which is
// the case p = 3 mod 4 allows. As (p+1)/4 is even r is the same for a and
// -a, and only one of them is a square; the result reports whether it was a.
func (r *FieldElement) sqrt(a *FieldElement) bool {
	fieldOnce.Do(initFieldSteps)
	var aNorm FieldElement
	aNorm.n.Set(&a.n).Normalize()
	r.pow(&aNorm, sqrtSteps)

	var check FieldElement
	check.sqr(r)
	return check.equal(&aNorm)
}

// isSquare reports whether a is a quadratic residue by Euler's criterion,
// a^((p-1)/2) = 1. Zero counts as a square.
func (a *FieldElement) isSquare() bool {
	if a.isZero() {
		return true
	}
	fieldOnce.Do(initFieldSteps)
	var result, one FieldElement
	result.pow(a, eulerSteps)
	one.setInt(1)
	return result.equal(&one)
}

// batchInverse computes the inverses of a slice of field elements with a
// single chain inversion (Montgomery's trick). Every element must be non-zero.
func batchInverse(out []FieldElement, a []FieldElement) {
	n := len(a)
	if n == 0 {
		return
	}

	// s_i = a_0 * a_1 * ... * a_{i-1}
	s := make([]FieldElement, n)
	s[0].setInt(1)
	for i := 1; i < n; i++ {
		s[i].mul(&s[i-1], &a[i-1])
	}

	// u = (a_0 * a_1 * ... * a_{n-1})^-1
	var u FieldElement
	u.mul(&s[n-1], &a[n-1])
	u.inv(&u)

	// out_i = (a_0 * ... * a_{i-1}) * (a_0 * ... * a_i)^-1, backwards so out
	// may alias a
	for i := n - 1; i >= 0; i-- {
		var t FieldElement
		t.mul(&u, &s[i])
		u.mul(&u, &a[i])
		out[i] = t
		out[i].normalize()
	}
}

// FieldInverse returns a^-1 as a^(p-2). The inverse of zero is zero.
func FieldInverse(a *btcec.FieldVal) btcec.FieldVal {
	var x, r FieldElement
	x.n.Set(a)
	r.inv(&x)
	return r.n
}

// FieldSqrt returns a square root of a as a^((p+1)/4), valid because
// p = 3 mod 4. ok is false when a is not a square; r is then the root of -a.
func FieldSqrt(a *btcec.FieldVal) (r btcec.FieldVal, ok bool) {
	var x, root FieldElement
	x.n.Set(a)
	ok = root.sqrt(&x)
	return root.n, ok
}

// FieldIsSquare reports whether a is a quadratic residue mod p
func FieldIsSquare(a *btcec.FieldVal) bool {
	var x FieldElement
	x.n.Set(a)
	return x.isSquare()
}

// FieldBatchInverse inverts every element of a with one exponentiation. It
// returns an error if any element is zero.
func FieldBatchInverse(a []btcec.FieldVal) ([]btcec.FieldVal, error) {
	elems := make([]FieldElement, len(a))
	for i := range a {
		elems[i].n.Set(&a[i])
		if elems[i].isZero() {
			return nil, errors.New("cannot invert zero")
		}
	}
	batchInverse(elems, elems)

	out := make([]btcec.FieldVal, len(a))
	for i := range elems {
		out[i] = elems[i].n
	}
	return out, nil
}

// FieldSteps returns the decomposed chains used for inversion and square
// roots
func FieldSteps() (inverse, sqrt []addchain.Step) {
	fieldOnce.Do(initFieldSteps)
	return inverseSteps, sqrtSteps
}
