package addchain

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidChain is returned for a structurally malformed chain: a first
	// element other than 1, or an element that is not the sum of two earlier
	// ones.
	ErrInvalidChain = errors.New("invalid addition chain")

	// ErrNonPositive is returned when a chain is requested for n < 1
	ErrNonPositive = errors.New("target must be a positive integer")
)

// Step describes how one chain element is derived from two earlier positions.
// Left == Right is a doubling (square in multiplicative notation). For an
// addition Left > Right.
type Step struct {
	Left, Right int
}

// Double returns the step that doubles position i
func Double(i int) Step {
	return Step{Left: i, Right: i}
}

// Add returns the step that adds positions j and k
func Add(j, k int) Step {
	return Step{Left: j, Right: k}
}

// IsDouble reports whether both operands are the same position
func (s Step) IsDouble() bool {
	return s.Left == s.Right
}

func (s Step) String() string {
	if s.IsDouble() {
		return fmt.Sprintf("Double(%d)", s.Left)
	}
	return fmt.Sprintf("Add(%d,%d)", s.Left, s.Right)
}

// BuildSteps recovers, for every element after the first, the pair of earlier
// positions that produced it. Pairs (j, k) with 0 <= k <= j < i are tried in
// increasing j then increasing k and the first match wins. Either every
// element is explained or ErrInvalidChain is returned with no steps.
func BuildSteps(c Chain) ([]Step, error) {
	if len(c) == 0 {
		return nil, errors.Wrap(ErrInvalidChain, "empty chain")
	}
	if c[0].Cmp(bigOne) != 0 {
		return nil, errors.Wrapf(ErrInvalidChain, "first element is %s, want 1", c[0])
	}

	explain := explainScan
	if c.IsAscending() {
		explain = explainAscending
	}

	steps := make([]Step, 0, len(c)-1)
	for i := 1; i < len(c); i++ {
		j, k, ok := explain(c, i)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidChain,
				"element %d (%s) is not the sum of two earlier elements", i, c[i])
		}
		steps = append(steps, Step{Left: j, Right: k})
	}

	if len(steps) != len(c)-1 {
		return nil, errors.Wrapf(ErrInvalidChain,
			"recovered %d steps for %d elements", len(steps), len(c)-1)
	}
	return steps, nil
}

// explainScan returns the first pair (j, k), 0 <= k <= j < i, in increasing
// j then increasing k with c[j] + c[k] == c[i]
func explainScan(c Chain, i int) (int, int, bool) {
	sum := new(big.Int)
	for j := 0; j < i; j++ {
		for k := 0; k <= j; k++ {
			if sum.Add(c[j], c[k]).Cmp(c[i]) == 0 {
				return j, k, true
			}
		}
	}
	return 0, 0, false
}

// explainAscending returns the same pair as explainScan for a strictly
// increasing chain in O(i log i). Only positions j with 2*c[j] >= c[i] can
// pair with some k <= j, and each such j has at most one partner.
func explainAscending(c Chain, i int) (int, int, bool) {
	target := c[i]
	tmp := new(big.Int)
	start := sort.Search(i, func(j int) bool {
		return tmp.Lsh(c[j], 1).Cmp(target) >= 0
	})
	diff := new(big.Int)
	for j := start; j < i; j++ {
		diff.Sub(target, c[j])
		k := sort.Search(j+1, func(k int) bool {
			return c[k].Cmp(diff) >= 0
		})
		if k <= j && c[k].Cmp(diff) == 0 {
			return j, k, true
		}
	}
	return 0, 0, false
}

// Replay executes steps starting from {1} and returns the chain they produce.
// Operands must refer to positions that already exist.
func Replay(steps []Step) (Chain, error) {
	c := make(Chain, 1, len(steps)+1)
	c[0] = big.NewInt(1)
	for i, s := range steps {
		if s.Left < 0 || s.Right < 0 || s.Left >= len(c) || s.Right >= len(c) {
			return nil, errors.Wrapf(ErrInvalidChain,
				"step %d (%s) refers to a position that does not exist yet", i, s)
		}
		c = append(c, new(big.Int).Add(c[s.Left], c[s.Right]))
	}
	return c, nil
}

// Doublings counts the doubling steps
func Doublings(steps []Step) int {
	n := 0
	for _, s := range steps {
		if s.IsDouble() {
			n++
		}
	}
	return n
}
