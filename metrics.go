package addchain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors fed by Search
type Metrics struct {
	searches *prometheus.CounterVec
	nodes    prometheus.Histogram
	duration prometheus.Histogram
	memoHits prometheus.Counter
	pruned   prometheus.Counter
	excess   prometheus.Histogram
}

// NewMetrics creates the search collectors and registers them with reg. A nil
// reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		searches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "addchain_searches_total",
			Help: "Chain searches by result",
		}, []string{"result"}),
		nodes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "addchain_search_nodes",
			Help:    "Node expansions per search",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10), // 1 to ~260k
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "addchain_search_duration_seconds",
			Help:    "Search duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
		}),
		memoHits: f.NewCounter(prometheus.CounterOpts{
			Name: "addchain_memo_hits_total",
			Help: "Subproblems answered from the per-search memo",
		}),
		pruned: f.NewCounter(prometheus.CounterOpts{
			Name: "addchain_pruned_total",
			Help: "Branches abandoned by the lower bound",
		}),
		excess: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "addchain_chain_length_excess",
			Help:    "Chain length minus the proven lower bound",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
	}
}

func (m *Metrics) observe(st Stats) {
	if m == nil {
		return
	}
	result := "complete"
	if st.Truncated {
		result = "truncated"
	}
	m.searches.WithLabelValues(result).Inc()
	m.nodes.Observe(float64(st.Nodes))
	m.duration.Observe(st.Elapsed.Seconds())
	m.memoHits.Add(float64(st.MemoHits))
	m.pruned.Add(float64(st.Pruned))
	m.excess.Observe(float64(st.Length - st.LowerBound))
}
