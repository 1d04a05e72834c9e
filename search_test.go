package addchain

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func mustInt(t testing.TB, s string) *big.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		t.Fatalf("bad literal %s", s)
	}
	return n
}

// Targets used across the search tests: the exponents behind secp256k1
// inversion and square roots, curve25519 inversion, and a few odd shapes
var searchTargets = map[string]string{
	"secp256k1 p-2":     "0xfffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2d",
	"secp256k1 (p+1)/4": "0x3fffffffffffffffffffffffffffffffffffffffffffffffffffffffbfffff0c",
	"curve25519 p-2":    "0x7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffeb",
	"secp256k1 n":       "0xfffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141",
	"power of two":      "0x10000000000000000000000000000000000000000000000000000000000000000",
	"mersenne 127":      "0x7fffffffffffffffffffffffffffffff",
	"word":              "0xdeadbeefcafebabe",
	"small":             "1000",
}

func checkChain(t *testing.T, n *big.Int, c Chain) {
	t.Helper()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if !c.IsAscending() {
		t.Fatalf("chain for %s is not ascending", n)
	}
	if c.Last().Cmp(n) != 0 {
		t.Fatalf("chain ends at %s, want %s", c.Last(), n)
	}
}

func TestSearchTargets(t *testing.T) {
	for name, lit := range searchTargets {
		t.Run(name, func(t *testing.T) {
			n := mustInt(t, lit)
			c, st, err := Search(context.Background(), n, DefaultOptions())
			if err != nil {
				t.Fatal(err)
			}
			checkChain(t, n, c)

			if lb := LowerBound(n); c.Length() < lb || st.LowerBound != lb {
				t.Errorf("length %d, stats bound %d, lower bound %d", c.Length(), st.LowerBound, lb)
			}
			if plain := minChain(n).Length(); c.Length() > plain {
				t.Errorf("length %d longer than the plain dichotomic chain %d", c.Length(), plain)
			}
			if bin := binaryChain(n).Length(); c.Length() > bin {
				t.Errorf("length %d longer than double-and-add %d", c.Length(), bin)
			}
			if st.Length != c.Length() || st.Length > st.GreedyLength {
				t.Errorf("stats length %d, greedy %d, chain %d", st.Length, st.GreedyLength, c.Length())
			}
		})
	}
}

func TestSearchFieldExponents(t *testing.T) {
	// Within a handful of steps of the lower bound and of the hand-written
	// chains libsecp256k1 and ref10 ship (270 and 265 for the inversions)
	testCases := []struct {
		name string
		max  int
	}{
		{"secp256k1 p-2", 271},
		{"secp256k1 (p+1)/4", 267},
		{"curve25519 p-2", 266},
		{"mersenne 127", 136},
	}
	for _, tc := range testCases {
		n := mustInt(t, searchTargets[tc.name])
		c := FindShortestChain(n)
		checkChain(t, n, c)
		if c.Length() > tc.max {
			t.Errorf("%s: length %d, want at most %d (lower bound %d)", tc.name, c.Length(), tc.max, LowerBound(n))
		}
	}
}

func TestSearchRange(t *testing.T) {
	for v := int64(1); v < 1200; v++ {
		n := big.NewInt(v)
		c, _, err := Search(context.Background(), n, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		checkChain(t, n, c)
		if v < TableLimit {
			if small, _ := SmallChain(uint64(v)); small.Length() != c.Length() {
				t.Errorf("n=%d: length %d, table %d", v, c.Length(), small.Length())
			}
		} else if plain := minChain(n).Length(); c.Length() > plain {
			t.Errorf("n=%d: length %d, plain dichotomic %d", v, c.Length(), plain)
		}
	}
}

func TestSearchKnownLengths(t *testing.T) {
	testCases := []struct {
		n    string
		want int
	}{
		// 2^k needs exactly k doublings
		{"0x10000000000000000000000000000000000000000", 160},
		// 2^k + 1 needs k + 1 steps
		{"0x10000000000000001", 65},
	}
	for _, tc := range testCases {
		n := mustInt(t, tc.n)
		c := FindShortestChain(n)
		checkChain(t, n, c)
		if c.Length() != tc.want {
			t.Errorf("n=%s: length %d, want %d", tc.n, c.Length(), tc.want)
		}
	}
}

func TestSearchIsDeterministic(t *testing.T) {
	n := mustInt(t, searchTargets["secp256k1 p-2"])
	a := FindShortestChain(n)
	b := FindShortestChain(n)
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("two searches for the same target returned different chains")
	}
}

func TestSearchParallelMatchesSequential(t *testing.T) {
	for _, lit := range []string{"0x7fffffff", "1000003", "0x1f3b5a7c9"} {
		n := mustInt(t, lit)

		// A budget this size is never reached for targets this small, so
		// both modes explore the whole strategy tree
		opts := DefaultOptions()
		opts.MaxNodes = 1 << 24
		seq, sst, err := Search(context.Background(), n, opts)
		if err != nil || sst.Truncated {
			t.Fatalf("sequential: err %v truncated %t", err, sst.Truncated)
		}

		opts.Workers = 4
		par, pst, err := Search(context.Background(), n, opts)
		if err != nil || pst.Truncated {
			t.Fatalf("parallel: err %v truncated %t", err, pst.Truncated)
		}

		checkChain(t, n, par)
		if seq.Length() != par.Length() {
			t.Errorf("n=%s: sequential %d, parallel %d", lit, seq.Length(), par.Length())
		}
	}
}

func TestSearchTruncated(t *testing.T) {
	n := mustInt(t, searchTargets["secp256k1 n"])

	t.Run("node budget", func(t *testing.T) {
		opts := DefaultOptions()
		opts.MaxNodes = 3
		c, st, err := Search(context.Background(), n, opts)
		if err != nil {
			t.Fatal(err)
		}
		checkChain(t, n, c)
		if !st.Truncated || c.Length() > st.GreedyLength {
			t.Errorf("truncated %t, length %d, greedy %d", st.Truncated, c.Length(), st.GreedyLength)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c, st, err := Search(ctx, n, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		checkChain(t, n, c)
		if !st.Truncated || c.Length() != st.GreedyLength {
			t.Errorf("truncated %t, length %d, greedy %d", st.Truncated, c.Length(), st.GreedyLength)
		}
	})

	t.Run("parallel cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		opts := DefaultOptions()
		opts.Workers = 3
		c, _, err := Search(ctx, n, opts)
		if err != nil {
			t.Fatal(err)
		}
		checkChain(t, n, c)
	})

	t.Run("timeout", func(t *testing.T) {
		opts := DefaultOptions()
		opts.MaxNodes = 1 << 30
		opts.Timeout = time.Nanosecond
		c, _, err := Search(context.Background(), n, opts)
		if err != nil {
			t.Fatal(err)
		}
		checkChain(t, n, c)
	})

	t.Run("greedy only", func(t *testing.T) {
		opts := DefaultOptions()
		opts.MaxNodes = 0
		c, st, err := Search(context.Background(), n, opts)
		if err != nil {
			t.Fatal(err)
		}
		checkChain(t, n, c)
		if st.Truncated || c.Length() != st.GreedyLength {
			t.Errorf("truncated %t, length %d, greedy %d", st.Truncated, c.Length(), st.GreedyLength)
		}
		if plain := minChain(n).Length(); c.Length() > plain {
			t.Errorf("length %d, plain dichotomic %d", c.Length(), plain)
		}
	})
}

func TestSearchErrors(t *testing.T) {
	for _, n := range []*big.Int{nil, big.NewInt(0), big.NewInt(-7)} {
		if _, _, err := Search(context.Background(), n, DefaultOptions()); !errors.Is(err, ErrNonPositive) {
			t.Errorf("n=%v: got %v, want ErrNonPositive", n, err)
		}
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("FindShortestChain(0) did not panic")
			}
		}()
		FindShortestChain(big.NewInt(0))
	}()

	bad := []Options{
		{MaxWindow: 7},
		{MaxWindow: -1},
		{MaxWindow: 4, MaxNodes: -1},
		{MaxWindow: 4, Workers: -2},
		{MaxWindow: 4, Timeout: -time.Second},
	}
	for _, opts := range bad {
		if _, _, err := Search(context.Background(), big.NewInt(1000), opts); !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("%+v: got %v, want ErrInvalidOptions", opts, err)
		}
	}
}

func TestSearchZeroOptions(t *testing.T) {
	var opts Options
	if err := opts.Validate(); err != nil {
		t.Fatalf("zero options rejected: %v", err)
	}

	n := mustInt(t, searchTargets["secp256k1 p-2"])
	c, st, err := Search(context.Background(), n, opts)
	if err != nil {
		t.Fatal(err)
	}
	checkChain(t, n, c)
	if st.Truncated {
		t.Error("zero options should skip the branch-and-bound phase")
	}
	if c.Length() > runLengthChain(n).Length() {
		t.Errorf("length %d, run-length construction %d", c.Length(), runLengthChain(n).Length())
	}
}

func TestSearchOptionsVariants(t *testing.T) {
	n := mustInt(t, searchTargets["curve25519 p-2"])
	for window := 1; window <= maxWindow; window++ {
		for _, dich := range []bool{false, true} {
			for _, fact := range []bool{false, true} {
				opts := Options{MaxWindow: window, Dichotomic: dich, Factors: fact, MaxNodes: 256}
				c, _, err := Search(context.Background(), n, opts)
				if err != nil {
					t.Fatalf("%+v: %v", opts, err)
				}
				checkChain(t, n, c)
			}
		}
	}
}

func TestSearchReturnsFreshChain(t *testing.T) {
	n := big.NewInt(77)
	c := FindShortestChain(n)
	c[len(c)-1].SetInt64(0)

	again := FindShortestChain(n)
	checkChain(t, n, again)
}

func TestSearchMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	opts := DefaultOptions()
	opts.Metrics = NewMetrics(reg)

	if _, _, err := Search(context.Background(), big.NewInt(1000), opts); err != nil {
		t.Fatal(err)
	}

	opts.MaxNodes = 1
	if _, _, err := Search(context.Background(), mustInt(t, searchTargets["secp256k1 n"]), opts); err != nil {
		t.Fatal(err)
	}

	if v := testutil.ToFloat64(opts.Metrics.searches.WithLabelValues("complete")); v != 1 {
		t.Errorf("complete searches %v, want 1", v)
	}
	if v := testutil.ToFloat64(opts.Metrics.searches.WithLabelValues("truncated")); v != 1 {
		t.Errorf("truncated searches %v, want 1", v)
	}
	count, err := testutil.GatherAndCount(reg, "addchain_search_nodes", "addchain_chain_length_excess")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("gathered %d series, want 2", count)
	}
}

func TestSearchLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	opts := DefaultOptions()
	opts.Logger = zap.New(core)
	opts.MaxNodes = 1

	n := mustInt(t, searchTargets["secp256k1 n"])
	_, st, err := Search(context.Background(), n, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Truncated {
		t.Fatal("expected the single-node budget to truncate")
	}

	if got := logs.FilterMessage("search truncated").Len(); got != 1 {
		t.Errorf("%d truncation entries, want 1", got)
	}
	finished := logs.FilterMessage("search finished").All()
	if len(finished) != 1 {
		t.Fatalf("%d finish entries, want 1", len(finished))
	}
	if got := finished[0].ContextMap()["length"]; got != int64(st.Length) {
		t.Errorf("logged length %v, want %d", got, st.Length)
	}
}

func BenchmarkSearch256(b *testing.B) {
	n, _ := new(big.Int).SetString(searchTargets["secp256k1 p-2"], 0)
	opts := DefaultOptions()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := Search(context.Background(), n, opts); err != nil {
			b.Fatal(err)
		}
	}
}
