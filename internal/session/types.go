// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package session

// Resource is a REST resource as returned by the gateway. The gateway
// schema is large and version dependent, so resources are kept generic.
type Resource = map[string]any

// Camera is an enabled camera as listed by the REST API.
type Camera struct {
	ID           string `json:"id"`
	Name         string `json:"displayName"`
	Description  string `json:"description"`
	Enabled      bool   `json:"enabled"`
	LastModified string `json:"lastModified"`
	Channel      int    `json:"channel"`
}

// AnalyticEventType is an analytics event definition.
type AnalyticEventType struct {
	ID           string   `json:"id"`
	Name         string   `json:"displayName"`
	Description  string   `json:"description"`
	LastModified string   `json:"lastModified"`
	Sources      []string `json:"sourceArray"`
}

// BuiltInUserDefinedEventIDs are shipped with every installation and are
// excluded from user-defined event listings.
var BuiltInUserDefinedEventIDs = map[string]struct{}{
	"85867627-b287-4439-9e55-a63701e1715b": {},
	"77b1e70d-ba8d-4bb8-9ee8-43b09746d82a": {},
	"7605f8b0-7f5f-4432-b223-0bb2dc3f1f5c": {},
}

// REST resource names.
const (
	ResourceUserDefinedEvents = "userDefinedEvents"
	ResourceEvents            = "events"
	ResourceCameras           = "cameras"
	ResourceAnalyticsEvents   = "analyticsEvents"
)
