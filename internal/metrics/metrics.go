package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus series for the ROI projector.
type Metrics struct {
	ProjectionsTotal  *prometheus.CounterVec
	InvalidInputTotal prometheus.Counter
	PatternsFolded    *prometheus.CounterVec
	InsightRunsTotal  prometheus.Counter
	ReportsBuilt      prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	once   sync.Once
	shared *Metrics
)

// New creates and registers the metrics on the default registry. The
// instance is shared; repeated calls return the same set.
func New() *Metrics {
	once.Do(func() {
		shared = &Metrics{
			ProjectionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "roi_projections_total",
					Help: "Completed ROI projections by risk level",
				},
				[]string{"risk_level"},
			),
			InvalidInputTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "roi_invalid_input_total",
					Help: "Projection requests rejected for failing preconditions",
				},
			),
			PatternsFolded: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "roi_patterns_folded_total",
					Help: "Pattern observations merged, by pattern type",
				},
				[]string{"pattern_type"},
			),
			InsightRunsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "roi_insight_runs_total",
					Help: "Insight analysis passes executed (triggered or scheduled)",
				},
			),
			ReportsBuilt: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "roi_reports_built_total",
					Help: "Monthly intelligence reports assembled",
				},
			),
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "roi_http_requests_total",
					Help: "HTTP requests by route and status code",
				},
				[]string{"route", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "roi_http_request_duration_seconds",
					Help:    "HTTP request latency by route",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"route"},
			),
		}
	})
	return shared
}
