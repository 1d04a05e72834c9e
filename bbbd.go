package addchain

import (
	"math/big"
)

// Candidate generation follows the continued-fraction construction of
// Bergeron, Berstel, Brlek and Duboc. For a target n and a divisor 2 <= k < n
// with q, r = n / k, n % k:
//
//	r == 0: Product(H(k), H(q))
//	r == 1: Plus(Product(H(k), H(q)), 1)
//	else:   Plus(Product(chain(k, r), H(q)), r)
//
// chain(k, r) recurses along the Euclidean sequence of (n, k), so a candidate
// needs a sub-chain H for the final divisor and for every quotient, plus one
// addition per non-zero remainder. The strategies differ only in how k is
// picked.

// strategySet selects which choices of k are generated
type strategySet struct {
	window     int // odd n: k = 2^s for 1 <= s <= window
	dichotomic bool
	factors    bool
}

// candidate is chain(n, k) unrolled along the Euclidean sequence of (n, k)
type candidate struct {
	k *big.Int

	// parts[0] is the final divisor, followed by the quotients from the
	// innermost level outwards
	parts []*big.Int

	// adds[i] is added after the product with parts[i+1]; nil when the
	// remainder at that level was zero
	adds []*big.Int

	// overhead is the number of non-nil adds
	overhead int
}

// newCandidate unrolls chain(n, k). Requires 2 <= k < n.
func newCandidate(n, k *big.Int) *candidate {
	var quotients, remainders []*big.Int
	a, b := n, k
	var last *big.Int
	for {
		q, r := new(big.Int).QuoRem(a, b, new(big.Int))
		quotients = append(quotients, q)
		if r.Cmp(bigOne) <= 0 {
			remainders = append(remainders, r)
			last = b
			break
		}
		remainders = append(remainders, r)
		a, b = b, r
	}

	c := &candidate{k: k}
	c.parts = make([]*big.Int, 0, len(quotients)+1)
	c.parts = append(c.parts, last)
	c.adds = make([]*big.Int, 0, len(quotients))
	for i := len(quotients) - 1; i >= 0; i-- {
		c.parts = append(c.parts, quotients[i])
		if remainders[i].Sign() == 0 {
			c.adds = append(c.adds, nil)
			continue
		}
		c.adds = append(c.adds, remainders[i])
		c.overhead++
	}
	return c
}

// build assembles the candidate chain from one sub-chain per part
func (c *candidate) build(subs []Chain) Chain {
	out := subs[0]
	for i, x := range c.adds {
		out = Product(out, subs[i+1])
		if x != nil {
			out = Plus(out, x)
		}
	}
	return out
}

// smallPrimes are the odd primes below TableLimit, tried by factor composition
var smallPrimes = oddPrimesBelow(TableLimit)

func oddPrimesBelow(limit int) []*big.Int {
	composite := make([]bool, limit)
	var out []*big.Int
	for p := 3; p < limit; p += 2 {
		if composite[p] {
			continue
		}
		out = append(out, big.NewInt(int64(p)))
		for m := p * p; m < limit; m += 2 * p {
			composite[m] = true
		}
	}
	return out
}

// candidates lists the decompositions of n (n >= TableLimit) in exploration
// order: dichotomic, halving, windows, factors. The dichotomic split comes
// first so the budget reaches it at every level before it runs out.
func candidates(n *big.Int, set strategySet) []*candidate {
	var ks []*big.Int
	seen := func(k *big.Int) bool {
		for _, x := range ks {
			if x.Cmp(k) == 0 {
				return true
			}
		}
		return false
	}
	push := func(k *big.Int) {
		if k.Cmp(bigOne) > 0 && k.Cmp(n) < 0 && !seen(k) {
			ks = append(ks, k)
		}
	}

	odd := n.Bit(0) == 1
	if set.dichotomic && odd {
		lambda := uint(n.BitLen() - 1)
		push(new(big.Int).Rsh(n, lambda/2))
		push(new(big.Int).Rsh(n, (lambda+1)/2))
	}

	if !odd {
		push(big.NewInt(2))
	} else {
		for s := 1; s <= set.window; s++ {
			push(new(big.Int).Lsh(bigOne, uint(s)))
		}
	}

	if set.factors {
		r := new(big.Int)
		for _, p := range smallPrimes {
			if r.Mod(n, p).Sign() == 0 {
				push(p)
			}
		}
	}

	out := make([]*candidate, len(ks))
	for i, k := range ks {
		out[i] = newCandidate(n, k)
	}
	return out
}

// dichotomicChain is the plain construction with k = n >> (log2(n)/2) at
// every level and no choice between strategies. Search never returns a chain
// longer than this one when the dichotomic strategy is enabled.
func dichotomicChain(n *big.Int) Chain {
	return make(dichotomicMemo).chain(n)
}

type dichotomicMemo map[string]Chain

func (d dichotomicMemo) chain(n *big.Int) Chain {
	if n.IsUint64() && n.Uint64() < TableLimit {
		return smallChain(n.Uint64())
	}
	key := string(n.Bytes())
	if c, ok := d[key]; ok {
		return c
	}

	lambda := uint(n.BitLen() - 1)
	cand := newCandidate(n, new(big.Int).Rsh(n, lambda/2))
	subs := make([]Chain, len(cand.parts))
	for i, p := range cand.parts {
		subs[i] = d.chain(p)
	}
	c := cand.build(subs)
	d[key] = c
	return c
}
