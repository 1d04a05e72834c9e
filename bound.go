package addchain

import (
	"math"
	"math/big"
	"math/bits"
)

// schonhageSlack is the additive constant of Schönhage's bound
// l(n) >= log2(n) + log2(v(n)) - 2.13
const schonhageSlack = 2.13

// roundingSlack keeps float rounding from pushing the bound past an integer
const roundingSlack = 1e-9

// LowerBound returns L such that no addition chain for n is shorter than L.
// It combines the trivial bound lambda(n) = floor(log2 n), the small Hamming
// weight refinements and Schönhage's bound. n must be positive; 0 is returned
// otherwise.
func LowerBound(n *big.Int) int {
	if n.Sign() <= 0 {
		return 0
	}
	lambda := n.BitLen() - 1
	nu := popCount(n)
	return max(lambda+hammingBonus(nu), schonhage(log2(n), nu))
}

// LowerBoundUint64 is LowerBound for machine words
func LowerBoundUint64(n uint64) int {
	if n == 0 {
		return 0
	}
	lambda := bits.Len64(n) - 1
	nu := bits.OnesCount64(n)
	return max(lambda+hammingBonus(nu), schonhage(math.Log2(float64(n)), nu))
}

// hammingBonus is the number of steps beyond lambda(n) forced by the binary
// weight alone: v(n) >= 2 needs one non-doubling step, v(n) >= 3 needs two and
// v(n) >= 5 needs three.
func hammingBonus(nu int) int {
	switch {
	case nu >= 5:
		return 3
	case nu >= 3:
		return 2
	case nu >= 2:
		return 1
	}
	return 0
}

func schonhage(log2n float64, nu int) int {
	x := log2n + math.Log2(float64(nu)) - schonhageSlack
	if x <= 0 {
		return 0
	}
	return int(math.Ceil(x - roundingSlack))
}

// popCount returns the binary weight of a non-negative n
func popCount(n *big.Int) int {
	c := 0
	for _, w := range n.Bits() {
		c += bits.OnesCount(uint(w))
	}
	return c
}

// log2 approximates log2(n) from the leading 64 bits. Dropping the low bits
// only ever underestimates.
func log2(n *big.Int) float64 {
	shift := n.BitLen() - 64
	if shift <= 0 {
		return math.Log2(float64(n.Uint64()))
	}
	top := new(big.Int).Rsh(n, uint(shift)).Uint64()
	return float64(shift) + math.Log2(float64(top))
}
