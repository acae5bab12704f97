// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package api

// UserDefinedEventRequest creates or renames a user-defined event type.
type UserDefinedEventRequest struct {
	Name string `json:"name" validate:"required,min=1,max=256"`
}

// TriggerEventRequest raises an event of the given type.
type TriggerEventRequest struct {
	Type string `json:"type" validate:"required,resourceid"`
}

// EventsPageRequest is the paging of GET /api/v1/events.
type EventsPageRequest struct {
	Page int `json:"page" validate:"gte=1"`
	Size int `json:"size" validate:"gte=1,lte=1000"`
}

const (
	defaultEventsPage = 1
	defaultEventsSize = 100
)
