// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

/*
Package middleware provides the HTTP middleware shared by the bridge API.

  - RequestID: reuses or generates X-Request-ID and stores it for logging.Ctx
  - PrometheusMetrics: records request counts, durations and in-flight
    requests on an injected recorder, labelled by chi route pattern
  - Compression: gzip for clients that accept it

All three use the func(http.Handler) http.Handler form so they plug into
chi's Use directly:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics(recorder))
	r.Use(middleware.Compression)
*/
package middleware
