// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

// Package events is a client for the API Gateway events websocket.
//
// A Session speaks the command protocol: startSession opens or resumes a
// session, addSubscription registers a camera and event type filter, and the
// server then pushes event batches. Commands carry increasing ids and each
// waits for the response with the same id.
//
// Relay runs a Session under a supervisor. It reconnects with exponential
// backoff that restarts after every session that got connected, resumes
// from the last event id it saw, and forwards every batch to a Broadcaster.
package events
