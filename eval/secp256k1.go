package eval

import (
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"

	"addchain.mleku.dev"
)

var (
	// fieldPrime is p = 2^256 - 2^32 - 977
	fieldPrime, _ = new(big.Int).SetString(
		"FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F", 16)

	// groupOrder is the order n of the secp256k1 generator
	groupOrder, _ = new(big.Int).SetString(
		"FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)
)

// FieldGroup is the multiplicative group of the secp256k1 base field
type FieldGroup struct{}

func (FieldGroup) Double(x btcec.FieldVal) btcec.FieldVal {
	var r btcec.FieldVal
	r.SquareVal(&x)
	return r
}

func (FieldGroup) Add(x, y btcec.FieldVal) btcec.FieldVal {
	var r btcec.FieldVal
	r.Mul2(&x, &y)
	return r
}

// FieldPow returns a^e where steps is a decomposed chain for e >= 1
func FieldPow(a *btcec.FieldVal, steps []addchain.Step) btcec.FieldVal {
	var x, r FieldElement
	x.n.Set(a)
	r.pow(&x, steps)
	return r.n
}

// PointGroup is the secp256k1 curve group in Jacobian coordinates
type PointGroup struct{}

func (PointGroup) Double(p btcec.JacobianPoint) btcec.JacobianPoint {
	var r btcec.JacobianPoint
	btcec.DoubleNonConst(&p, &r)
	return r
}

func (PointGroup) Add(p, q btcec.JacobianPoint) btcec.JacobianPoint {
	var r btcec.JacobianPoint
	btcec.AddNonConst(&p, &q, &r)
	return r
}

// ScalarMult returns k*P along the shortest chain found for k mod n. The
// result is in affine form (Z = 1), or the point at infinity for k = 0 mod n.
// Variable time: only for public scalars.
func ScalarMult(k *big.Int, p *btcec.JacobianPoint) btcec.JacobianPoint {
	e := new(big.Int).Mod(k, groupOrder)
	if e.Sign() == 0 {
		return btcec.JacobianPoint{}
	}
	return ScalarMultSteps(mustSteps(e), p)
}

// ScalarMultSteps returns e*P where steps is a decomposed chain for e
func ScalarMultSteps(steps []addchain.Step, p *btcec.JacobianPoint) btcec.JacobianPoint {
	r := Run[btcec.JacobianPoint](PointGroup{}, *p, steps)
	var z btcec.FieldVal
	if z.Set(&r.Z).Normalize().IsZero() {
		return btcec.JacobianPoint{}
	}
	r.ToAffine()
	return r
}
