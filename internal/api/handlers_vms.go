// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/vmsbridge/internal/validation"
)

// WellKnownURIs returns the discovery document of the gateway host.
func (h *Handler) WellKnownURIs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	uris, err := h.svc.Discover(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, uris, start)
}

// EnabledCameras lists cameras through the REST API.
func (h *Handler) EnabledCameras(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	cameras, err := h.svc.EnabledCameras(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, cameras, start)
}

// AnalyticEventTypes lists the analytics event definitions.
func (h *Handler) AnalyticEventTypes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	types, err := h.svc.AnalyticEventTypes(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, types, start)
}

// ListUserDefinedEvents lists user-defined event types without the
// built-in ones.
func (h *Handler) ListUserDefinedEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	list, err := h.svc.ListUserDefinedEvents(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, list, start)
}

// CreateUserDefinedEvent creates a user-defined event type.
func (h *Handler) CreateUserDefinedEvent(w http.ResponseWriter, r *http.Request) {
	var req UserDefinedEventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	start := time.Now()
	created, err := h.svc.CreateUserDefinedEvent(r.Context(), req.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusCreated, created, start)
}

// GetUserDefinedEvent returns one user-defined event type.
func (h *Handler) GetUserDefinedEvent(w http.ResponseWriter, r *http.Request) {
	id, err := resourceIDParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	start := time.Now()
	ev, err := h.svc.GetUserDefinedEvent(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, ev, start)
}

// UpdateUserDefinedEvent renames a user-defined event type.
func (h *Handler) UpdateUserDefinedEvent(w http.ResponseWriter, r *http.Request) {
	id, err := resourceIDParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	var req UserDefinedEventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	start := time.Now()
	updated, err := h.svc.UpdateUserDefinedEvent(r.Context(), id, req.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, updated, start)
}

// DeleteUserDefinedEvent deletes a user-defined event type.
func (h *Handler) DeleteUserDefinedEvent(w http.ResponseWriter, r *http.Request) {
	id, err := resourceIDParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	start := time.Now()
	result, err := h.svc.DeleteUserDefinedEvent(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, result, start)
}

// TriggerEvent raises an event. The gateway accepts it asynchronously, so
// 202 is returned.
func (h *Handler) TriggerEvent(w http.ResponseWriter, r *http.Request) {
	var req TriggerEventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	start := time.Now()
	ev, err := h.svc.TriggerEvent(r.Context(), req.Type)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusAccepted, ev, start)
}

// ListEvents returns one page of stored events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	page, err := getIntParam(r, "page", defaultEventsPage)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	size, err := getIntParam(r, "size", defaultEventsSize)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	req := EventsPageRequest{Page: page, Size: size}
	if err := validation.Struct(&req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	start := time.Now()
	list, err := h.svc.ListEvents(r.Context(), req.Page, req.Size)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, list, start)
}

// GetEvent returns one stored event.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := resourceIDParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	start := time.Now()
	ev, err := h.svc.GetEvent(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, ev, start)
}
