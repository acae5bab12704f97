// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is the outcome label attached to query samples.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Metric names exposed to Prometheus. The aib_ prefix is kept for
// dashboards built against the original exporter.
const (
	QueriesTotalName  = "aib_queries_total"
	QueryDurationName = "aib_query_duration_seconds"
)

// Recorder owns every instrument the bridge exposes. It is built once at
// startup and handed to the components that record into it; there is no
// package-level registry.
type Recorder struct {
	gatherer prometheus.Gatherer

	// Query pipeline
	QueriesTotal  *prometheus.CounterVec
	QueryDuration prometheus.Histogram

	// Identity provider
	TokenRequests *prometheus.CounterVec

	// Circuit breaker
	CircuitBreakerState       *prometheus.GaugeVec
	CircuitBreakerRequests    *prometheus.CounterVec
	CircuitBreakerTransitions *prometheus.CounterVec

	// Inbound API
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIActiveRequests  prometheus.Gauge

	// Events websocket
	EventsReceived *prometheus.CounterVec
}

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewRecorder registers all instruments on reg. Registering two recorders on
// the same registry panics, as with any duplicate Prometheus registration.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		gatherer: reg,

		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: QueriesTotalName,
				Help: "Total number of gateway queries by outcome",
			},
			[]string{"status"}, // success, failure
		),

		QueryDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    QueryDurationName,
				Help:    "Duration of gateway queries in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		TokenRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vms_idp_token_requests_total",
				Help: "Total number of identity provider token requests",
			},
			[]string{"flow", "outcome"},
		),

		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),

		CircuitBreakerRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circuit_breaker_requests_total",
				Help: "Total number of requests through circuit breaker",
			},
			[]string{"name", "result"}, // success, failure, rejected
		),

		CircuitBreakerTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circuit_breaker_state_transitions_total",
				Help: "Total number of circuit breaker state transitions",
			},
			[]string{"name", "from_state", "to_state"},
		),

		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "endpoint"},
		),

		APIActiveRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "api_active_requests",
				Help: "Current number of active API requests",
			},
		),

		EventsReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vms_events_received_total",
				Help: "Total number of analytics events received over the events websocket",
			},
			[]string{"type"},
		),
	}
}

// Record stores one query sample: the outcome counter is incremented and the
// duration observed. Negative durations are clamped to zero.
func (r *Recorder) Record(status Status, seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	r.QueriesTotal.WithLabelValues(string(status)).Inc()
	r.QueryDuration.Observe(seconds)
}

// RecordTokenRequest counts an identity provider exchange for the given flow.
func (r *Recorder) RecordTokenRequest(flow string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.TokenRequests.WithLabelValues(flow, outcome).Inc()
}

// RecordAPIRequest records an inbound API request.
func (r *Recorder) RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	r.APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	r.APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func (r *Recorder) TrackActiveRequest(inc bool) {
	if inc {
		r.APIActiveRequests.Inc()
	} else {
		r.APIActiveRequests.Dec()
	}
}

// RecordEvent counts a received analytics event.
func (r *Recorder) RecordEvent(eventType string) {
	r.EventsReceived.WithLabelValues(eventType).Inc()
}

// Handler serves the registry in the Prometheus text exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry, mostly for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.gatherer
}
