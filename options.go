package addchain

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrInvalidOptions is returned by Search for an unusable Options value
var ErrInvalidOptions = errors.New("invalid search options")

// maxWindow keeps every window power 2^s inside the small-case table
const maxWindow = 6

// Options configures the chain-search engine
type Options struct {
	// MaxWindow is the widest window 2^s tried when reducing an odd target.
	// Must be between 1 (plain double-and-add) and 6; zero means 5.
	MaxWindow int

	// Dichotomic enables the continued-fraction split k = n >> (log2(n)/2)
	Dichotomic bool

	// Factors enables factor composition over the odd primes below TableLimit
	Factors bool

	// MaxNodes caps the node expansions of the branch-and-bound phase. Zero
	// skips that phase and returns the greedy chain.
	MaxNodes int

	// Workers > 1 explores the top-level candidates concurrently
	Workers int

	// Timeout bounds the wall-clock time of the branch-and-bound phase.
	// Zero means no limit beyond the caller's context.
	Timeout time.Duration

	// Logger receives search diagnostics. Nil disables logging.
	Logger *zap.Logger

	// Metrics records search statistics. Nil disables metrics.
	Metrics *Metrics
}

// DefaultOptions returns the options used by FindShortestChain
func DefaultOptions() Options {
	return Options{
		MaxWindow:  5,
		Dichotomic: true,
		Factors:    true,
		MaxNodes:   1 << 12,
		Workers:    1,
	}
}

// Validate reports whether o can be used for a search. A zero MaxWindow
// selects the default window.
func (o Options) Validate() error {
	if o.MaxWindow == 0 {
		o.MaxWindow = DefaultOptions().MaxWindow
	}
	switch {
	case o.MaxWindow < 1 || o.MaxWindow > maxWindow:
		return errors.Wrapf(ErrInvalidOptions, "max window %d outside [1, %d]", o.MaxWindow, maxWindow)
	case o.MaxNodes < 0:
		return errors.Wrapf(ErrInvalidOptions, "negative node budget %d", o.MaxNodes)
	case o.Workers < 0:
		return errors.Wrapf(ErrInvalidOptions, "negative worker count %d", o.Workers)
	case o.Timeout < 0:
		return errors.Wrapf(ErrInvalidOptions, "negative timeout %s", o.Timeout)
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.MaxWindow == 0 {
		o.MaxWindow = DefaultOptions().MaxWindow
	}
	if o.Workers == 0 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// strategies returns the strategy set for the branch-and-bound phase
func (o Options) strategies() strategySet {
	set := strategySet{window: o.MaxWindow}
	set.dichotomic = o.Dichotomic
	set.factors = o.Factors
	return set
}

// greedyStrategies returns the strategy set for the greedy phase: halving and
// windows only, which keeps the subproblems on the shifts of the target
func (o Options) greedyStrategies() strategySet {
	return strategySet{window: o.MaxWindow}
}
