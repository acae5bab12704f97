// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/vmsbridge/internal/gateway"
	"github.com/tomtom215/vmsbridge/internal/identity"
	"github.com/tomtom215/vmsbridge/internal/logging"
	"github.com/tomtom215/vmsbridge/internal/middleware"
	"github.com/tomtom215/vmsbridge/internal/models"
	"github.com/tomtom215/vmsbridge/internal/session"
	"github.com/tomtom215/vmsbridge/internal/validation"
)

// maxRequestBodyBytes caps JSON request bodies.
const maxRequestBodyBytes = 1 << 20

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// writeJSON marshals v with status. Gateway data is live, so responses are
// never cached.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("ETag", generateETag(data))

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondJSON sends an APIResponse.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	writeJSON(w, status, response)
}

// generateETag creates a simple ETag from data using FNV-1a hash
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return `"` + strconv.FormatUint(uint64(hash), 16) + `"`
}

// metadata builds the response metadata for r.
func metadata(r *http.Request, start time.Time) models.Metadata {
	m := models.Metadata{
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(r.Context()),
	}
	if !start.IsZero() {
		m.GatewayTimeMS = time.Since(start).Milliseconds()
	}
	return m
}

// respondSuccess sends data in a success envelope.
func respondSuccess(w http.ResponseWriter, r *http.Request, status int, data any, start time.Time) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: metadata(r, start),
	})
}

// respondError sends an error response
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	respondErrorDetails(w, r, status, code, message, nil, err)
}

func respondErrorDetails(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any, err error) {
	if err != nil {
		logging.Ctx(r.Context()).Error().
			Str("code", sanitizeLogValue(code)).
			Str("error", sanitizeLogValue(err.Error())).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Msg("API Error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Data:     nil,
		Metadata: metadata(r, time.Time{}),
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondServiceError maps an error from the session service onto a status
// and error code.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		failure    *gateway.Failure
		acquireErr *identity.AcquireError
		statusErr  *session.UnexpectedStatusError
		validErr   *validation.Error
	)

	switch {
	case errors.As(err, &validErr):
		respondErrorDetails(w, r, http.StatusBadRequest, "VALIDATION_ERROR", validErr.Error(), validErr.Details(), nil)
	case errors.Is(err, session.ErrNoRESTGateway):
		respondError(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "REST gateway is not configured", err)
	case errors.Is(err, session.ErrRenewThrottled), errors.As(err, &acquireErr):
		respondError(w, r, http.StatusBadGateway, "AUTHENTICATION_ERROR", "Failed to obtain an access token", err)
	case errors.As(err, &failure):
		respondGatewayFailure(w, r, failure)
	case errors.As(err, &statusErr):
		respondErrorDetails(w, r, http.StatusBadGateway, "GATEWAY_ERROR", "Gateway answered with an unexpected status",
			map[string]any{"status_code": statusErr.Got, "expected_status": statusErr.Want}, err)
	default:
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", err)
	}
}

func respondGatewayFailure(w http.ResponseWriter, r *http.Request, f *gateway.Failure) {
	details := map[string]any{"kind": string(f.Kind)}
	if f.StatusCode != 0 {
		details["status_code"] = f.StatusCode
	}
	if len(f.Errors) > 0 {
		details["errors"] = f.Errors
	}

	switch {
	case f.Kind == gateway.KindTransport:
		respondErrorDetails(w, r, http.StatusServiceUnavailable, "GATEWAY_UNAVAILABLE", "Gateway is unavailable", details, f)
	case f.Kind == gateway.KindHTTP && f.StatusCode == http.StatusNotFound:
		respondErrorDetails(w, r, http.StatusNotFound, "NOT_FOUND", f.Message, details, nil)
	default:
		respondErrorDetails(w, r, http.StatusBadGateway, "GATEWAY_ERROR", f.Message, details, f)
	}
}

// decodeJSON reads a JSON body into v and validates it.
func decodeJSON(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return &validation.Error{Fields: []validation.FieldError{{
			Field:   "body",
			Tag:     "json",
			Message: "request body must be a valid JSON object",
		}}}
	}
	return validation.Struct(v)
}

// resourceIDParam returns the validated {id} path parameter.
func resourceIDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if err := validation.ResourceID("id", id); err != nil {
		return "", err
	}
	return id, nil
}

// getIntParam extracts an integer query parameter with a default value. A
// value that is not an integer is a validation error.
func getIntParam(r *http.Request, key string, defaultValue int) (int, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, &validation.Error{Fields: []validation.FieldError{{
			Field:   key,
			Tag:     "number",
			Message: key + " must be an integer",
		}}}
	}

	return intValue, nil
}
