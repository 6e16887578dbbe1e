package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	RecognitionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "travellens",
			Name:      "recognition_requests_total",
			Help:      "Total number of recognition service requests",
		},
		[]string{"status"}, // "success" / "error"
	)

	RecognitionRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "travellens",
			Name:      "recognition_request_duration_seconds",
			Help:      "Recognition service request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
	)

	EnrichmentLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "travellens",
			Name:      "enrichment_lookups_total",
			Help:      "Total encyclopedia enrichment lookups by outcome",
		},
		[]string{"result"}, // "ok" / "degraded" / "skipped"
	)

	HistoryLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "travellens",
			Name:      "history_lookups_total",
			Help:      "Total recorded history lookups by path",
		},
		[]string{"path"}, // "created" / "touched"
	)

	HistoryEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "travellens",
			Name:      "history_evictions_total",
			Help:      "Total history entries evicted by retention capping",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers the pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(RecognitionRequestsTotal)
	prometheus.MustRegister(RecognitionRequestDuration)
	prometheus.MustRegister(EnrichmentLookupsTotal)
	prometheus.MustRegister(HistoryLookupsTotal)
	prometheus.MustRegister(HistoryEvictionsTotal)
	pipelineMetricsRegistered = true
}
