// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

// Package services adapts long-running components to suture.Service.
//
// HTTPServerService turns http.Server's ListenAndServe/Shutdown pair into a
// context-driven Serve. WebSocketHubService names the hub for supervisor
// logs. The events relay implements suture.Service itself and is added to
// the tree directly.
package services
