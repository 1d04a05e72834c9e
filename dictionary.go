package addchain

import (
	"math/big"
	"slices"
)

// Dictionary constructions write n as a sum of digits d * 2^shift and build
// one chain holding every digit, followed by a left-to-right Horner pass that
// doubles up to each digit's shift and adds the digit. The digits are built
// once and shared across the whole target, where a BBBD candidate rebuilds its
// remainder at every level.

// term is one digit of a dictionary decomposition of n
type term struct {
	digit *big.Int
	shift uint
}

// normalize turns a set of elements into a chain. Every element other than 1
// must be the sum of two members of the set; both summands are then smaller,
// so the sorted set is an ascending chain.
func normalize(elems Chain) Chain {
	slices.SortFunc(elems, func(a, b *big.Int) int { return a.Cmp(b) })
	return slices.CompactFunc(elems, func(a, b *big.Int) bool { return a.Cmp(b) == 0 })
}

// horner extends dict, which must contain every digit, with the Horner pass
// over terms. terms are ordered by decreasing shift.
func horner(terms []term, dict Chain) Chain {
	elems := slices.Clone(dict)
	acc := terms[0].digit
	shift := terms[0].shift
	double := func(times uint) {
		for ; times > 0; times-- {
			acc = new(big.Int).Lsh(acc, 1)
			elems = append(elems, acc)
		}
	}
	for _, t := range terms[1:] {
		double(shift - t.shift)
		acc = new(big.Int).Add(acc, t.digit)
		elems = append(elems, acc)
		shift = t.shift
	}
	double(shift)
	return normalize(elems)
}

// windowTerms is the left-to-right sliding window recoding of n: odd digits
// below 2^w separated by runs of zeros
func windowTerms(n *big.Int, w int) []term {
	var terms []term
	for i := n.BitLen() - 1; i >= 0; {
		if n.Bit(i) == 0 {
			i--
			continue
		}
		lo := max(i-w+1, 0)
		for n.Bit(lo) == 0 {
			lo++
		}
		var d uint64
		for j := i; j >= lo; j-- {
			d = d<<1 | uint64(n.Bit(j))
		}
		terms = append(terms, term{digit: new(big.Int).SetUint64(d), shift: uint(lo)})
		i = lo - 1
	}
	return terms
}

// slidingWindowChain builds n from its width-w window digits. The digit
// dictionary is the union of the table chains of the digits that occur.
// Requires 1 <= w <= maxWindow.
func slidingWindowChain(n *big.Int, w int) Chain {
	terms := windowTerms(n, w)
	var dict Chain
	seen := make(map[uint64]bool)
	for _, t := range terms {
		d := t.digit.Uint64()
		if seen[d] {
			continue
		}
		seen[d] = true
		dict = append(dict, smallChain(d)...)
	}
	return horner(terms, normalize(dict))
}

// run is a maximal block of ones in the binary form of n
type run struct {
	length uint64
	shift  uint
}

func runsOf(n *big.Int) []run {
	var runs []run
	for i := n.BitLen() - 1; i >= 0; {
		if n.Bit(i) == 0 {
			i--
			continue
		}
		lo := i
		for lo > 0 && n.Bit(lo-1) == 1 {
			lo--
		}
		runs = append(runs, run{length: uint64(i - lo + 1), shift: uint(lo)})
		i = lo - 1
	}
	return runs
}

// runLengthChain builds n from its blocks of ones. Each block of length s is
// the repunit 2^s - 1, and the repunits follow an addition chain over the
// block lengths: 2^(a+b) - 1 = (2^a - 1) * 2^b + (2^b - 1). Field exponents
// such as p-2 are a few long blocks, so this is close to the lower bound for
// them.
func runLengthChain(n *big.Int) Chain {
	runs := runsOf(n)
	var lengths []uint64
	for _, r := range runs {
		lengths = append(lengths, r.length)
	}
	slices.Sort(lengths)
	lengths = slices.Compact(lengths)

	var best Chain
	for _, lc := range lengthChains(lengths) {
		elems, repunit := repunits(lc)
		terms := make([]term, len(runs))
		for i, r := range runs {
			terms[i] = term{digit: repunit[r.length], shift: r.shift}
		}
		if c := horner(terms, elems); best == nil || c.Length() < best.Length() {
			best = c
		}
	}
	return best
}

// lengthChains returns chains over the block lengths that contain every
// length: one grown from a chain for the longest block, and one from the
// continued-fraction split of the longest block by the second longest, which
// passes through it. lengths is sorted and distinct.
func lengthChains(lengths []uint64) [][]uint64 {
	top := lengths[len(lengths)-1]
	out := [][]uint64{withLengths(uint64Chain(top), lengths)}

	if len(lengths) > 1 && lengths[len(lengths)-2] > 1 {
		cand := newCandidate(new(big.Int).SetUint64(top), new(big.Int).SetUint64(lengths[len(lengths)-2]))
		d := make(dichotomicMemo)
		subs := make([]Chain, len(cand.parts))
		for i, p := range cand.parts {
			subs[i] = d.chain(p)
		}
		c, _ := cand.build(subs).Uint64s()
		out = append(out, withLengths(c, lengths))
	}
	return out
}

func uint64Chain(n uint64) []uint64 {
	c, _ := dichotomicChain(new(big.Int).SetUint64(n)).Uint64s()
	return c
}

// withLengths adds the missing lengths to chain c: with one addition when a
// length is the sum of two members, otherwise with the members of its own
// chain. The result is sorted and distinct.
func withLengths(c, lengths []uint64) []uint64 {
	have := make(map[uint64]bool, len(c))
	for _, x := range c {
		have[x] = true
	}
	sumOf := func(s uint64) bool {
		for x := range have {
			if x < s && have[s-x] {
				return true
			}
		}
		return false
	}
	for _, s := range lengths {
		switch {
		case have[s]:
		case sumOf(s):
			have[s] = true
		default:
			for _, x := range uint64Chain(s) {
				have[x] = true
			}
		}
	}

	out := make([]uint64, 0, len(have))
	for x := range have {
		out = append(out, x)
	}
	slices.Sort(out)
	return out
}

// repunits evaluates 2^s - 1 for every s of the length chain lc. Each one is
// the larger repunit of a pair shifted by the smaller length, so a step
// a + b costs min(a, b) doublings and one addition. It returns the elements
// used and the repunits by length.
func repunits(lc []uint64) (Chain, map[uint64]*big.Int) {
	elems := NewChain()
	repunit := map[uint64]*big.Int{1: elems[0]}
	for i := 1; i < len(lc); i++ {
		s := lc[i]
		// Largest a first keeps the shift b = s - a small
		var a, b uint64
		for j := i - 1; j >= 0; j-- {
			if lc[j] < s-lc[j] {
				break
			}
			if _, ok := repunit[s-lc[j]]; ok {
				a, b = lc[j], s-lc[j]
				break
			}
		}
		if a == 0 {
			panic("addchain: length chain is not an addition chain")
		}

		x := repunit[a]
		for k := uint64(0); k < b; k++ {
			x = new(big.Int).Lsh(x, 1)
			elems = append(elems, x)
		}
		x = new(big.Int).Add(x, repunit[b])
		elems = append(elems, x)
		repunit[s] = x
	}
	return elems, repunit
}

// constructions returns the direct chains for n that bound the
// branch-and-bound phase from above
func constructions(n *big.Int, opts Options) []Chain {
	var out []Chain
	if opts.Dichotomic {
		out = append(out, dichotomicChain(n))
	}
	for w := 2; w <= opts.MaxWindow; w++ {
		out = append(out, slidingWindowChain(n, w))
	}
	return append(out, runLengthChain(n))
}
