// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package events

import "github.com/goccy/go-json"

// Commands understood by the events endpoint.
const (
	CommandStartSession    = "startSession"
	CommandAddSubscription = "addSubscription"
)

// Session statuses returned by startSession.
const (
	StatusSessionResumed = 200
	StatusSessionCreated = 201
)

// CommandRequest is sent to the events endpoint.
type CommandRequest struct {
	Command   string   `json:"command"`
	CommandID int64    `json:"commandId"`
	SessionID string   `json:"sessionId"`
	EventID   string   `json:"eventId"`
	Filters   []Filter `json:"filters,omitempty"`
}

// CommandResponse answers a CommandRequest.
type CommandResponse struct {
	SessionID string       `json:"sessionId"`
	CommandID int64        `json:"commandId"`
	Status    int          `json:"status"`
	Error     CommandError `json:"error"`
}

// CommandError carries the server's reason for a failed command.
type CommandError struct {
	ErrorText string `json:"errorText"`
}

// Filter selects which events a subscription delivers.
type Filter struct {
	Modifier      string   `json:"modifier"`
	ResourceTypes []string `json:"resourceTypes"`
	SourceIDs     []string `json:"sourceIds"`
	EventTypes    []string `json:"eventTypes"`
}

// CameraFilter includes events of eventTypeID raised by cameraID.
func CameraFilter(cameraID, eventTypeID string) Filter {
	return Filter{
		Modifier:      "include",
		ResourceTypes: []string{"cameras"},
		SourceIDs:     []string{cameraID},
		EventTypes:    []string{eventTypeID},
	}
}

// Event is one event pushed by the server.
type Event struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Source   string `json:"source"`
	Time     string `json:"time"`
	Datatype string `json:"datatype"`
}

// Batch is one events frame.
type Batch struct {
	Events []Event `json:"events"`
}

// frame is used to tell command responses from event batches.
type frame struct {
	Events    json.RawMessage `json:"events"`
	CommandID *int64          `json:"commandId"`
}
