// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

/*
Package metrics provides Prometheus instrumentation for the bridge.

All instruments live on a Recorder that is constructed explicitly and injected
into the components that use it:

	reg := metrics.NewRegistry()
	rec := metrics.NewRecorder(reg)
	exec := gateway.NewExecutor(rec, gateway.Options{})

# Available Metrics

Query pipeline:
  - aib_queries_total: Gateway queries by outcome (counter)
    Labels: status (success, failure)
  - aib_query_duration_seconds: Query latency (histogram, default buckets)

Identity provider:
  - vms_idp_token_requests_total: Token exchanges (counter)
    Labels: flow, outcome

Circuit breaker:
  - circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge)
  - circuit_breaker_requests_total: Labels name, result
  - circuit_breaker_state_transitions_total: Labels name, from_state, to_state

HTTP API:
  - api_requests_total, api_request_duration_seconds, api_active_requests

Events:
  - vms_events_received_total: Labels type

# Metrics Endpoint

Metrics are pulled from /metrics in the Prometheus text format:

	curl http://localhost:9090/metrics

# Thread Safety

All Recorder methods are safe for concurrent use; the client_golang
instruments are lock-free.
*/
package metrics
