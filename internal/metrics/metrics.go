// Package metrics exposes Prometheus collectors for generation and storage.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeEmpty     = "empty"
	OutcomeService   = "service_error"
	OutcomeQuota     = "quota"
	OutcomeTransport = "transport"
)

var (
	// VideoSearchesTotal counts video searches by outcome.
	VideoSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillpath_video_searches_total",
			Help: "Total number of video searches issued during enrichment",
		},
		[]string{"outcome"},
	)

	// LLMRequestsTotal counts completion requests by status.
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillpath_llm_requests_total",
			Help: "Total number of LLM completion requests",
		},
		[]string{"status"},
	)

	// GenerationDuration tracks end-to-end course generation latency.
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skillpath_generation_duration_seconds",
			Help:    "Duration of course generation calls in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		},
	)

	// StorageLocalMode is 1 while the local fallback store is active.
	StorageLocalMode = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skillpath_storage_local_mode",
			Help: "1 when courses are persisted to the local fallback store",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
