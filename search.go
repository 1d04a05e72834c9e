package addchain

import (
	"context"
	"math"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("addchain")

// Stats describes the work done by one Search call
type Stats struct {
	Nodes     int // subproblems expanded
	MemoHits  int // subproblems answered from the memo
	TableHits int // subproblems answered from the small-case table
	Pruned    int // branches abandoned by the lower bound

	GreedyLength int // length after the greedy phase and direct constructions
	Length       int // length of the returned chain
	LowerBound   int // proven lower bound for the target

	// Truncated is set when the node budget or the context stopped the
	// branch-and-bound phase early
	Truncated bool

	Elapsed time.Duration
}

func (st *Stats) merge(o Stats) {
	st.Nodes += o.Nodes
	st.MemoHits += o.MemoHits
	st.TableHits += o.TableHits
	st.Pruned += o.Pruned
	st.Truncated = st.Truncated || o.Truncated
}

// FindShortestChain returns the shortest addition chain for n that the
// default search finds. n must be positive.
func FindShortestChain(n *big.Int) Chain {
	c, _, err := Search(context.Background(), n, DefaultOptions())
	if err != nil {
		panic(err)
	}
	return c
}

// Search returns a short addition chain for n. The only errors are a
// non-positive n and invalid options: running out of node budget or context
// time yields the best chain found so far, with Stats.Truncated set.
func Search(ctx context.Context, n *big.Int, opts Options) (Chain, Stats, error) {
	if n == nil || n.Sign() <= 0 {
		return nil, Stats{}, errors.Wrapf(ErrNonPositive, "got %v", n)
	}
	if err := opts.Validate(); err != nil {
		return nil, Stats{}, err
	}
	opts = opts.withDefaults()

	ctx, span := tracer.Start(ctx, "addchain.Search",
		trace.WithAttributes(attribute.Int("bits", n.BitLen())))
	defer span.End()

	start := time.Now()
	st := Stats{LowerBound: LowerBound(n)}

	var c Chain
	if n.IsUint64() && n.Uint64() < TableLimit {
		c = smallChain(n.Uint64())
		st.TableHits++
		st.GreedyLength = c.Length()
	} else {
		// The greedy phase is linear in the bit length and never cut short,
		// so there is always a chain to return. The direct constructions
		// then tighten the bound the branch-and-bound phase has to beat.
		g := newSearcher(context.Background(), opts.greedyStrategies(), 0)
		c = g.best(n, math.MaxInt)
		st.merge(g.stats)
		for _, alt := range constructions(n, opts) {
			if alt.Length() < c.Length() {
				c = alt
			}
		}
		st.GreedyLength = c.Length()

		if opts.MaxNodes > 0 {
			if opts.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
				defer cancel()
			}
			var better Chain
			var bst Stats
			if opts.Workers > 1 {
				better, bst = searchParallel(ctx, n, opts, c.Length())
			} else {
				s := newSearcher(ctx, opts.strategies(), opts.MaxNodes)
				better = s.best(n, c.Length())
				bst = s.stats
			}
			st.merge(bst)
			if better != nil {
				c = better
			}
		}
	}

	st.Length = c.Length()
	st.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.Int("length", st.Length),
		attribute.Int("nodes", st.Nodes),
		attribute.Bool("truncated", st.Truncated),
	)
	opts.Metrics.observe(st)
	if st.Truncated {
		opts.Logger.Info("search truncated",
			zap.Int("bits", n.BitLen()),
			zap.Int("nodes", st.Nodes),
			zap.Int("length", st.Length))
	}
	opts.Logger.Debug("search finished",
		zap.Int("bits", n.BitLen()),
		zap.Int("lower_bound", st.LowerBound),
		zap.Int("greedy_length", st.GreedyLength),
		zap.Int("length", st.Length),
		zap.Int("nodes", st.Nodes),
		zap.Int("memo_hits", st.MemoHits),
		zap.Int("pruned", st.Pruned),
		zap.Bool("truncated", st.Truncated),
		zap.Duration("elapsed", st.Elapsed))

	return c.Clone(), st, nil
}

// searchParallel explores the top-level candidates of n concurrently. Every
// branch owns its memo and node budget; the best length is shared so a
// branch stops as soon as it cannot beat what another branch found.
func searchParallel(ctx context.Context, n *big.Int, opts Options, upper int) (Chain, Stats) {
	cands := candidates(n, opts.strategies())
	results := make([]Chain, len(cands))
	stats := make([]Stats, len(cands))

	var shared atomic.Int64
	shared.Store(int64(upper))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, cand := range cands {
		i, cand := i, cand
		g.Go(func() error {
			s := newSearcher(gctx, opts.strategies(), opts.MaxNodes)
			s.shared = &shared
			c := s.solve(cand, int(shared.Load()))
			if c != nil {
				publish(&shared, c.Length())
			}
			results[i] = c
			stats[i] = s.stats
			return nil
		})
	}
	_ = g.Wait()

	var best Chain
	var st Stats
	for i, c := range results {
		st.merge(stats[i])
		if c != nil && (best == nil || c.Length() < best.Length()) {
			best = c
		}
	}
	return best, st
}

// publish lowers the shared bound to length unless it is already lower
func publish(shared *atomic.Int64, length int) {
	for {
		cur := shared.Load()
		if int64(length) >= cur || shared.CompareAndSwap(cur, int64(length)) {
			return
		}
	}
}

// memoEntry caches what is known about one subproblem. A chain is the best
// the strategy set can build for the value, whatever limit it was found
// under. failed records the largest limit below which nothing was found.
type memoEntry struct {
	chain  Chain
	failed int
}

// searcher is the state of one branch-and-bound run. It is not safe for
// concurrent use.
type searcher struct {
	ctx    context.Context
	set    strategySet
	budget int // 0 means unlimited
	memo   map[string]*memoEntry
	stats  Stats

	// stopped is set once the budget or the context runs out; every call
	// then unwinds with nil
	stopped bool

	// shared is the best length for the top-level target in parallel mode
	shared *atomic.Int64
}

func newSearcher(ctx context.Context, set strategySet, budget int) *searcher {
	return &searcher{
		ctx:    ctx,
		set:    set,
		budget: budget,
		memo:   make(map[string]*memoEntry),
	}
}

// best returns the shortest chain for m that the strategy set can build,
// provided it is shorter than limit. Otherwise it returns nil.
func (s *searcher) best(m *big.Int, limit int) Chain {
	if limit <= 0 {
		return nil
	}
	if m.IsUint64() && m.Uint64() < TableLimit {
		s.stats.TableHits++
		if c := smallChain(m.Uint64()); c.Length() < limit {
			return c
		}
		return nil
	}

	key := string(m.Bytes())
	e := s.memo[key]
	if e != nil {
		if e.chain != nil {
			s.stats.MemoHits++
			if e.chain.Length() < limit {
				return e.chain
			}
			return nil
		}
		if limit <= e.failed {
			s.stats.MemoHits++
			return nil
		}
	}
	if LowerBound(m) >= limit {
		s.stats.Pruned++
		return nil
	}
	if s.halt() {
		return nil
	}
	s.stats.Nodes++

	var found Chain
	cur := limit
	for _, cand := range candidates(m, s.set) {
		if c := s.solve(cand, cur); c != nil {
			found, cur = c, c.Length()
		}
	}
	if s.stopped {
		// Results below a cut are incomplete and must not be remembered
		return found
	}

	if e == nil {
		e = &memoEntry{}
		s.memo[key] = e
	}
	if found != nil {
		e.chain = found
	} else {
		e.failed = max(e.failed, limit)
	}
	return found
}

// solve builds the candidate if its chain can be shorter than limit. Parts
// are solved in order; each gets whatever the limit leaves after the
// overhead, the parts already solved and the lower bounds of the rest.
func (s *searcher) solve(c *candidate, limit int) Chain {
	bounds := make([]int, len(c.parts))
	total := c.overhead
	for i, p := range c.parts {
		bounds[i] = s.bound(p)
		total += bounds[i]
	}
	if total >= limit {
		s.stats.Pruned++
		return nil
	}

	subs := make([]Chain, len(c.parts))
	for i, p := range c.parts {
		if s.shared != nil {
			limit = min(limit, int(s.shared.Load()))
		}
		total -= bounds[i]
		sub := s.best(p, limit-total)
		if sub == nil {
			return nil
		}
		subs[i] = sub
		total += sub.Length()
	}
	return c.build(subs)
}

// bound is the exact length for table entries and LowerBound otherwise
func (s *searcher) bound(m *big.Int) int {
	if m.IsUint64() {
		if l := smallLength(m.Uint64()); l >= 0 {
			return l
		}
	}
	return LowerBound(m)
}

// halt reports whether the search must stop
func (s *searcher) halt() bool {
	if s.stopped {
		return true
	}
	if s.budget > 0 && s.stats.Nodes >= s.budget {
		s.stopped = true
	} else if s.stats.Nodes%64 == 0 && s.ctx.Err() != nil {
		s.stopped = true
	}
	if s.stopped {
		s.stats.Truncated = true
	}
	return s.stopped
}
