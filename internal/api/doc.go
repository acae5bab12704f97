// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

/*
Package api provides the HTTP surface of the bridge.

The router is built on chi with the middleware stack used across the
service: request ids with logging context, real client IP, panic recovery,
CORS via go-chi/cors, rate limiting via go-chi/httprate and per-route
Prometheus request metrics.

# Endpoints

Exporter endpoints keep the flat date/status bodies scraped by existing
dashboards:

	GET /api/get-server-status
	GET /api/configuration-info
	GET /api/vms-info
	GET /api/cameras-info

Everything under /api/v1 uses the models.APIResponse envelope:

	GET    /api/v1/health/live
	GET    /api/v1/health/ready
	GET    /api/v1/gateway/well-known
	GET    /api/v1/cameras
	GET    /api/v1/analytic-event-types
	GET    /api/v1/user-defined-events
	POST   /api/v1/user-defined-events
	GET    /api/v1/user-defined-events/{id}
	PUT    /api/v1/user-defined-events/{id}
	DELETE /api/v1/user-defined-events/{id}
	GET    /api/v1/events?page=1&size=100
	POST   /api/v1/events
	GET    /api/v1/events/{id}
	GET    /api/v1/ws

GET /metrics serves the Prometheus exposition.

# Errors

Gateway failures are mapped onto HTTP statuses by respondServiceError:
transport errors and an open circuit breaker become 503, a gateway 404
stays 404 and every other gateway failure becomes 502 with the failure
kind and upstream status in the error details.
*/
package api
