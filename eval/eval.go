// Package eval executes addition-chain steps over concrete groups: modular
// exponentiation with math/big, and the secp256k1 field and curve through
// btcec.
//
// Groups are written additively. In a multiplicative group Double is a
// squaring and Add a multiplication, so Run computes x^n; on a curve it
// computes n*P.
package eval

import (
	"math/big"

	"addchain.mleku.dev"
)

// Group is the pair of operations a chain needs
type Group[T any] interface {
	// Double returns x + x
	Double(x T) T
	// Add returns x + y for distinct positions x and y
	Add(x, y T) T
}

// Run evaluates steps with base at position 0 and returns the value at the
// last position. Every intermediate value is kept because any later step may
// refer to it.
func Run[T any](g Group[T], base T, steps []addchain.Step) T {
	vals := make([]T, 1, len(steps)+1)
	vals[0] = base
	for _, s := range steps {
		if s.IsDouble() {
			vals = append(vals, g.Double(vals[s.Left]))
		} else {
			vals = append(vals, g.Add(vals[s.Left], vals[s.Right]))
		}
	}
	return vals[len(vals)-1]
}

// Cost counts the group operations Run performs for steps
type Cost struct {
	Doubles int
	Adds    int
}

// CostOf returns the operation counts of steps
func CostOf(steps []addchain.Step) Cost {
	d := addchain.Doublings(steps)
	return Cost{Doubles: d, Adds: len(steps) - d}
}

// mustSteps searches and decomposes a chain for e >= 1. Search only returns
// valid chains, so a decomposition failure is a bug.
func mustSteps(e *big.Int) []addchain.Step {
	steps, err := addchain.BuildSteps(addchain.FindShortestChain(e))
	if err != nil {
		panic(err)
	}
	return steps
}
