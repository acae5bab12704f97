// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/vmsbridge/internal/models"
)

// readinessTokenTimeout bounds the token check of the readiness probe.
const readinessTokenTimeout = 5 * time.Second

// HealthLive handles liveness probe requests. It returns 200 whenever the
// process can serve HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]any{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: metadata(r, time.Time{}),
	})
}

// HealthReady handles readiness probe requests. The bridge is ready when a
// token can be obtained, or when no identity provider is configured, and
// the gateway breaker is not open.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	health := models.HealthStatus{
		WebSocketClients: h.clientCount(),
		Uptime:           time.Since(h.startTime).Seconds(),
	}

	ready := true
	if h.tokens != nil && h.tokens.Configured() {
		health.IdentityConfigured = true
		ctx, cancel := context.WithTimeout(r.Context(), readinessTokenTimeout)
		_, err := h.tokens.Token(ctx)
		cancel()
		health.TokenAvailable = err == nil
		ready = health.TokenAvailable
	}

	if h.breaker != nil {
		health.CircuitBreakerState = h.breaker.BreakerState()
		if health.CircuitBreakerState == "open" {
			ready = false
		}
	}

	if h.relay != nil {
		health.EventsRelayEnabled = true
		health.EventsRelayConnected = h.relay.Connected()
	}

	statusCode := http.StatusOK
	health.Status = "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		health.Status = "not_ready"
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status:   health.Status,
		Data:     health,
		Metadata: metadata(r, time.Time{}),
	})
}

func (h *Handler) clientCount() int {
	if h.wsHub == nil {
		return 0
	}
	return h.wsHub.GetClientCount()
}
