// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tomtom215/vmsbridge/internal/middleware"
)

// MetricsRecorder records inbound requests and serves the exposition.
// *metrics.Recorder implements it.
type MetricsRecorder interface {
	middleware.APIRecorder
	Handler() http.Handler
}

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	metrics       MetricsRecorder
}

// NewRouter creates a Router. mw may be nil for the default middleware
// configuration.
func NewRouter(handler *Handler, mw *ChiMiddleware, metrics MetricsRecorder) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: mw,
		metrics:       metrics,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)        // X-Request-ID plus logging context
	r.Use(chimiddleware.RealIP)        // Extract real IP from X-Forwarded-For
	r.Use(chimiddleware.Recoverer)     // Recover from panics
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight
	if router.metrics != nil {
		r.Use(middleware.PrometheusMetrics(router.metrics))
	}
	r.Use(middleware.Compression)

	// ========================
	// Exporter Endpoints
	// ========================
	// A group rather than a /api subrouter so /api/v1 can be mounted below.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitExporter())
		r.Use(APISecurityHeaders())

		r.Get("/api/get-server-status", router.handler.GetServerStatus)
		r.Get("/api/configuration-info", router.handler.ConfigurationInfo)
		r.Get("/api/vms-info", router.handler.VMSInfo)
		r.Get("/api/cameras-info", router.handler.CamerasInfo)
	})

	// ========================
	// Health Endpoints
	// ========================
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())

		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// ========================
	// VMS Endpoints
	// ========================
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())

		r.Get("/gateway/well-known", router.handler.WellKnownURIs)
		r.Get("/cameras", router.handler.EnabledCameras)
		r.Get("/analytic-event-types", router.handler.AnalyticEventTypes)

		r.Route("/user-defined-events", func(r chi.Router) {
			r.Get("/", router.handler.ListUserDefinedEvents)
			r.Get("/{id}", router.handler.GetUserDefinedEvent)

			r.Group(func(r chi.Router) {
				r.Use(router.chiMiddleware.RateLimitWrite())
				r.Post("/", router.handler.CreateUserDefinedEvent)
				r.Put("/{id}", router.handler.UpdateUserDefinedEvent)
				r.Delete("/{id}", router.handler.DeleteUserDefinedEvent)
			})
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", router.handler.ListEvents)
			r.Get("/{id}", router.handler.GetEvent)
			r.With(router.chiMiddleware.RateLimitWrite()).Post("/", router.handler.TriggerEvent)
		})

		r.With(router.chiMiddleware.RateLimitWebSocket()).Get("/ws", router.handler.WebSocket)
	})

	// ========================
	// Prometheus Metrics
	// ========================
	if router.metrics != nil {
		r.Handle("/metrics", router.metrics.Handler())
	}

	return r
}
