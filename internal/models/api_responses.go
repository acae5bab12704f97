// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package models

import "time"

// APIResponse wraps every /api/v1 response.
//
// Status is "success" or "error"; on error Data is null and Error is set.
//
//	{
//	  "status": "success",
//	  "data": {...},
//	  "metadata": {"timestamp": "2026-01-01T12:00:00Z", "request_id": "..."}
//	}
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata is attached to every APIResponse.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	// GatewayTimeMS is how long the upstream gateway call took.
	GatewayTimeMS int64 `json:"gateway_time_ms,omitempty"`
}

// APIError is the error body of an APIResponse.
//
// Codes used by the bridge:
//   - VALIDATION_ERROR: bad path parameter or request body
//   - GATEWAY_ERROR: the gateway answered with an error
//   - GATEWAY_UNAVAILABLE: transport failure or open circuit breaker
//   - AUTHENTICATION_ERROR: no token could be obtained from the IDP
//   - NOT_FOUND: the gateway has no such resource
//   - SERVICE_UNAVAILABLE: a required component is not configured
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ServerStatus is returned by /api/get-server-status.
type ServerStatus struct {
	Msg       string `json:"msg"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ConfigurationInfo is returned by /api/configuration-info. Only
// non-secret settings are listed.
type ConfigurationInfo struct {
	Date         string            `json:"date"`
	Status       string            `json:"status"`
	EnvVariables map[string]string `json:"env_variables"`
}

// VMSInfo is returned by /api/vms-info.
type VMSInfo struct {
	Date    string `json:"date"`
	Status  string `json:"status"`
	VMSInfo any    `json:"vms_info"`
}

// CamerasInfo is returned by /api/cameras-info.
type CamerasInfo struct {
	Date        string `json:"date"`
	Status      string `json:"status"`
	CamerasInfo any    `json:"cameras_info"`
}

// ExporterError is the body of a failed exporter endpoint.
type ExporterError struct {
	Detail string `json:"detail"`
}

// HealthStatus is returned by /api/v1/health/ready.
type HealthStatus struct {
	Status               string  `json:"status"`
	IdentityConfigured   bool    `json:"identity_configured"`
	TokenAvailable       bool    `json:"token_available"`
	CircuitBreakerState  string  `json:"circuit_breaker_state,omitempty"`
	EventsRelayEnabled   bool    `json:"events_relay_enabled"`
	EventsRelayConnected bool    `json:"events_relay_connected"`
	WebSocketClients     int     `json:"websocket_clients"`
	Uptime               float64 `json:"uptime"`
}
