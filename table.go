package addchain

import (
	"math/big"
	"math/bits"
	"slices"
	"sync"
)

const (
	// TableLimit bounds the precomputed small-case table: every 1 <= n <
	// TableLimit has a proven shortest chain
	TableLimit = 128

	// Node budgets for the exhaustive search. The table entries finish far
	// below tableBudget; fallbackBudget only matters if one did not.
	tableBudget    = 1 << 20
	fallbackBudget = 1 << 24
)

var (
	// Shortest chains for 1 <= n < TableLimit, built once on first use
	smallTable     [TableLimit]Chain
	smallTableOnce sync.Once
)

func initSmallTable() {
	for n := uint64(1); n < TableLimit; n++ {
		if c, ok := ExhaustiveChain(n, tableBudget); ok {
			smallTable[n] = c
		}
	}
}

// SmallChain returns a shortest chain for 1 <= n < TableLimit. ok is false
// outside that range or if the entry could not be proven within budget.
func SmallChain(n uint64) (c Chain, ok bool) {
	if n == 0 || n >= TableLimit {
		return nil, false
	}
	smallTableOnce.Do(initSmallTable)
	if smallTable[n] == nil {
		return nil, false
	}
	return smallTable[n].Clone(), true
}

// smallChain is the engine's base case. It shares the table's elements, which
// are never modified.
func smallChain(n uint64) Chain {
	smallTableOnce.Do(initSmallTable)
	if n < TableLimit && smallTable[n] != nil {
		return smallTable[n]
	}
	if c, ok := ExhaustiveChain(n, fallbackBudget); ok {
		return c
	}
	return binaryChain(new(big.Int).SetUint64(n))
}

// smallLength is the exact shortest length for a table entry, or -1
func smallLength(n uint64) int {
	smallTableOnce.Do(initSmallTable)
	if n == 0 || n >= TableLimit || smallTable[n] == nil {
		return -1
	}
	return smallTable[n].Length()
}

// ExhaustiveChain finds a provably shortest chain for n by iterative deepening
// over ascending chains. At most budget nodes are expanded in total; ok is
// false if the budget ran out first.
func ExhaustiveChain(n uint64, budget int) (c Chain, ok bool) {
	if n == 0 {
		return nil, false
	}
	if n == 1 {
		return NewChain(), true
	}
	s := &exhaustiveSearch{target: n, budget: budget}
	for limit := LowerBoundUint64(n); ; limit++ {
		s.reset(limit)
		if s.extend(0) {
			return Uint64s(s.chain...), true
		}
		if s.budget <= 0 {
			return nil, false
		}
	}
}

type exhaustiveSearch struct {
	target  uint64
	limit   int
	budget  int
	chain   []uint64
	scratch [][]uint64
}

func (s *exhaustiveSearch) reset(limit int) {
	s.limit = limit
	s.chain = make([]uint64, limit+1)
	s.chain[0] = 1
	s.scratch = make([][]uint64, limit)
}

// extend tries every continuation of chain[:depth+1] that can still reach the
// target within limit steps, largest sums first
func (s *exhaustiveSearch) extend(depth int) bool {
	last := s.chain[depth]
	if last == s.target {
		s.chain = s.chain[:depth+1]
		return true
	}
	if depth == s.limit || s.budget <= 0 {
		return false
	}
	s.budget--

	// Each remaining step at most doubles the largest element, so the next
	// element must still be able to reach the target in rem-1 steps
	rem := s.limit - depth
	floor := uint64(0)
	if shift := rem - 1; bits.Len64(s.target) > shift {
		floor = (s.target - 1) >> shift
	}

	cands := s.scratch[depth][:0]
	for i := depth; i >= 0; i-- {
		for j := i; j >= 0; j-- {
			if s.chain[i] > s.target-s.chain[j] {
				continue
			}
			sum := s.chain[i] + s.chain[j]
			if sum <= last || sum <= floor {
				break
			}
			cands = append(cands, sum)
		}
	}
	slices.Sort(cands)
	cands = slices.Compact(cands)
	s.scratch[depth] = cands

	for k := len(cands) - 1; k >= 0; k-- {
		s.chain[depth+1] = cands[k]
		if s.extend(depth + 1) {
			return true
		}
	}
	return false
}
