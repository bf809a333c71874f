package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arix_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arix_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Chat metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "arix_sessions_active",
			Help: "Chat sessions currently open",
		},
	)

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arix_submissions_total",
			Help: "Chat submissions by outcome",
		},
		[]string{"outcome"}, // "accepted", "empty" or "busy"
	)

	CompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arix_completions_total",
			Help: "Remote completions by outcome",
		},
		[]string{"outcome"}, // "ok" or "error"
	)

	CompletionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arix_completion_duration_seconds",
			Help:    "Remote completion latency",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 16, 32, 64},
		},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arix_events_dropped_total",
			Help: "Events dropped because a listener fell behind",
		},
	)
)
