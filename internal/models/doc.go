// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

// Package models holds the JSON bodies served by the bridge API.
//
// The /api/v1 endpoints wrap their payload in APIResponse. The exporter
// endpoints under /api keep their flat date/status layout so existing
// dashboards keep working.
package models
