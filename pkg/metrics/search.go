package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SearchMetrics. progress of one local search run. observability only, the search never reads them back.
type SearchMetrics struct {
	Expansions       prometheus.Counter
	Duplicates       prometheus.Counter
	Successors       prometheus.Counter
	BestScore        prometheus.Gauge
	Depth            prometheus.Gauge
	Frontier         prometheus.Gauge
	SuccessorLatency prometheus.Histogram
}

// NewSearchMetrics registers the search metrics on reg. pass prometheus.NewRegistry() to keep runs isolated.
func NewSearchMetrics(reg prometheus.Registerer) *SearchMetrics {
	f := promauto.With(reg)
	return &SearchMetrics{
		Expansions: f.NewCounter(prometheus.CounterOpts{
			Name: "districtx_search_expansions_total",
			Help: "States expanded by the search",
		}),
		Duplicates: f.NewCounter(prometheus.CounterOpts{
			Name: "districtx_search_duplicates_total",
			Help: "States skipped because they were already visited",
		}),
		Successors: f.NewCounter(prometheus.CounterOpts{
			Name: "districtx_search_successors_total",
			Help: "Successor states generated",
		}),
		BestScore: f.NewGauge(prometheus.GaugeOpts{
			Name: "districtx_search_best_score",
			Help: "Best objective score seen so far",
		}),
		Depth: f.NewGauge(prometheus.GaugeOpts{
			Name: "districtx_search_depth",
			Help: "Depth of the state being expanded",
		}),
		Frontier: f.NewGauge(prometheus.GaugeOpts{
			Name: "districtx_search_frontier_size",
			Help: "Number of states waiting in the exploration list",
		}),
		SuccessorLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "districtx_search_successor_duration_seconds",
			Help:    "Time to generate and score the successors of one state",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		}),
	}
}
