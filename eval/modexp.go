package eval

import (
	"math/big"

	"addchain.mleku.dev"
)

// ModGroup is the multiplicative group of integers modulo M
type ModGroup struct {
	M *big.Int
}

func (g ModGroup) Double(x *big.Int) *big.Int {
	r := new(big.Int).Mul(x, x)
	return r.Mod(r, g.M)
}

func (g ModGroup) Add(x, y *big.Int) *big.Int {
	r := new(big.Int).Mul(x, y)
	return r.Mod(r, g.M)
}

// ModExp returns x^e mod m along the shortest chain found for e. e must be
// non-negative and m positive.
func ModExp(x, e, m *big.Int) *big.Int {
	if m.Cmp(big.NewInt(1)) == 0 {
		return new(big.Int)
	}
	if e.Sign() == 0 {
		return big.NewInt(1)
	}
	return ModExpSteps(x, mustSteps(e), m)
}

// ModExpSteps returns x^e mod m where steps is a decomposed chain for e
func ModExpSteps(x *big.Int, steps []addchain.Step, m *big.Int) *big.Int {
	base := new(big.Int).Mod(x, m)
	return Run[*big.Int](ModGroup{M: m}, base, steps)
}
