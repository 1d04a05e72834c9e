// Package addchain finds short addition chains for arbitrary-precision positive
// integers and decomposes them into double/add steps.
//
// An addition chain for n is a sequence 1 = c[0] < c[1] < ... < c[L] = n where
// every c[i] is the sum of two (possibly equal) earlier elements. Evaluating x^n
// along the chain costs exactly L multiplications, so shorter chains mean faster
// field inversions, square roots and fixed-exponent scalar multiplications.
package addchain

import (
	"math/big"
	"strings"
)

var bigOne = big.NewInt(1)

// Chain is an addition chain. Index 0 is always 1 and the last element is the
// target.
type Chain []*big.Int

// NewChain returns the trivial chain {1}
func NewChain() Chain {
	return Chain{big.NewInt(1)}
}

// Uint64s builds a chain from machine words
func Uint64s(xs ...uint64) Chain {
	c := make(Chain, len(xs))
	for i, x := range xs {
		c[i] = new(big.Int).SetUint64(x)
	}
	return c
}

// Length returns the number of addition/doubling steps, len(c) - 1
func (c Chain) Length() int {
	return len(c) - 1
}

// Last returns the final element of the chain
func (c Chain) Last() *big.Int {
	return c[len(c)-1]
}

// Clone returns a deep copy of the chain
func (c Chain) Clone() Chain {
	out := make(Chain, len(c))
	for i, x := range c {
		out[i] = new(big.Int).Set(x)
	}
	return out
}

// Contains reports whether x is an element of the chain
func (c Chain) Contains(x *big.Int) bool {
	for _, y := range c {
		if y.Cmp(x) == 0 {
			return true
		}
	}
	return false
}

// IsAscending reports whether c starts at 1 and is strictly increasing
func (c Chain) IsAscending() bool {
	if len(c) == 0 || c[0].Cmp(bigOne) != 0 {
		return false
	}
	for i := 1; i < len(c); i++ {
		if c[i-1].Cmp(c[i]) >= 0 {
			return false
		}
	}
	return true
}

// Validate checks that c is a well formed addition chain
func (c Chain) Validate() error {
	_, err := BuildSteps(c)
	return err
}

// Uint64s returns the elements as machine words. ok is false if any element
// overflows.
func (c Chain) Uint64s() (xs []uint64, ok bool) {
	xs = make([]uint64, len(c))
	for i, x := range c {
		if !x.IsUint64() {
			return nil, false
		}
		xs[i] = x.Uint64()
	}
	return xs, true
}

func (c Chain) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range c {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(x.String())
	}
	b.WriteByte(']')
	return b.String()
}

// Product composes a and b: the chain for a followed by last(a)*b[i] for every
// i >= 1. The result ends at last(a)*last(b) and has length
// a.Length() + b.Length(). Every element of a is kept, so anything a contains
// is still available for a later Plus.
func Product(a, b Chain) Chain {
	out := make(Chain, len(a), len(a)+len(b)-1)
	copy(out, a)
	last := a.Last()
	for _, x := range b[1:] {
		out = append(out, new(big.Int).Mul(last, x))
	}
	return out
}

// Plus extends a by last(a)+x. x must already be an element of a for the
// result to be a valid chain.
func Plus(a Chain, x *big.Int) Chain {
	out := make(Chain, len(a), len(a)+1)
	copy(out, a)
	return append(out, new(big.Int).Add(a.Last(), x))
}

// binaryChain is the left-to-right double-and-add chain for n. It exists for
// every n >= 1 and serves as the fallback upper bound.
func binaryChain(n *big.Int) Chain {
	c := NewChain()
	for i := n.BitLen() - 2; i >= 0; i-- {
		c = append(c, new(big.Int).Lsh(c.Last(), 1))
		if n.Bit(i) == 1 {
			c = append(c, new(big.Int).Add(c.Last(), bigOne))
		}
	}
	return c
}
