// Package metrics declares the Prometheus collectors for analysis runs,
// the LLM client, queue processing, and HTTP routes.
//
// Collectors register with the default registry on package init and are
// exposed by Handler.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JaimeStill/mention-analyzer/pkg/middleware"
)

var (
	// AnalysisAttemptsTotal counts LLM calls by outcome (success, retryable, fatal, schema).
	AnalysisAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentions_analysis_attempts_total",
			Help: "Total number of LLM analysis attempts",
		},
		[]string{"outcome"},
	)

	// AnalysisAttemptDuration observes the latency of a single LLM call.
	AnalysisAttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mentions_analysis_attempt_duration_seconds",
			Help:    "Duration of LLM analysis attempts in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"outcome"},
	)

	// RunsTotal counts orchestration runs by terminal outcome.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentions_analysis_runs_total",
			Help: "Total number of orchestration runs by outcome",
		},
		[]string{"outcome"},
	)

	// RunsInFlight tracks orchestration runs currently executing in this process.
	RunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mentions_analysis_runs_in_flight",
			Help: "Number of orchestration runs in progress",
		},
	)

	// DispatchTotal counts dispatch attempts by mode and result.
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentions_dispatch_total",
			Help: "Total number of analysis dispatches",
		},
		[]string{"mode", "result"},
	)

	// QueueMessagesTotal counts queue messages handled by the worker by action.
	QueueMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentions_queue_messages_total",
			Help: "Total number of queue messages by action (ack, requeue, dlq, reclaim)",
		},
		[]string{"action"},
	)

	// QueuePromotedTotal counts delayed retries moved back onto the stream.
	QueuePromotedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mentions_queue_promoted_total",
			Help: "Total number of delayed retries promoted to the stream",
		},
	)

	// SweepRedispatchedTotal counts stale mentions re-dispatched by the sweeper.
	SweepRedispatchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mentions_sweep_redispatched_total",
			Help: "Total number of stale mentions re-dispatched",
		},
	)

	// HTTPRequestsTotal counts API requests by route pattern and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentions_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code"},
	)

	// HTTPRequestDuration observes API request latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mentions_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Route wraps a route handler with request count and latency collection
// labelled by its registered pattern. It satisfies routes.Wrapper.
func Route(pattern string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := middleware.NewStatusRecorder(w)

		next(rec, r)

		HTTPRequestDuration.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(pattern, strconv.Itoa(rec.Status)).Inc()
	}
}
