package align

import "github.com/prometheus/client_golang/prometheus"

var (
	alignedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ls2fonduer_aligned_total",
		Help: "Entities aligned to exactly one downstream sentence.",
	})

	failuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ls2fonduer_alignment_failures_total",
		Help: "Alignment failures by taxonomy kind.",
	}, []string{"kind"})

	relationsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ls2fonduer_relations_dropped_total",
		Help: "Relations dropped because an endpoint failed to align.",
	})

	alignDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ls2fonduer_alignment_duration_seconds",
		Help:    "Wall time spent aligning one document.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(alignedTotal, failuresTotal, relationsDropped, alignDuration)
}
