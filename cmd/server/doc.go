// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

/*
Package main is the entry point for the VMSBridge server.

VMSBridge sits between dashboards and a VMS API Gateway. It obtains access
tokens from the VMS identity provider, runs GraphQL and REST calls against
the gateway, records one Prometheus sample per call and exposes the results
over HTTP. Optionally it keeps an events websocket open to the gateway and
fans analytics events out to browser clients.

# Application Architecture

Long-lived components run under a Suture v4 supervisor tree:

	RootSupervisor ("vmsbridge")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket Hub (browser fan-out)
	│   └── Events Relay (optional, EVENTS_ENABLED=true)
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Command line flags: --host, --port and --aib-url override the above
 3. Logging: zerolog with JSON/console output modes
 4. Metrics: Prometheus registry and recorder
 5. Identity: token acquirer and the cached token source
 6. Gateway: query executor with circuit breaker
 7. Events: websocket hub and, when enabled, the events relay
 8. HTTP Server: Chi router with middleware stack
 9. Supervisor Tree: Suture v4 process supervision

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest priority wins):

	Priority: Flags > Environment variables > Config file > Defaults

Core environment variables:

	# Gateway
	AIB_URL=http://aibridge-webservice.processing-server:4000/api/bridge/graphql
	GATEWAY_REST_URL=https://mgmt.example   # defaults to the management server

	# Identity (leave both unset to call the gateway without a token)
	SYSTEM_IDENTITY_PROVIDER=https://mgmt.example
	LEGACY_MANAGEMENT_SERVER=mgmt.example
	CREDENTIAL_FLOW=basic                  # basic, integrated or client_credentials
	VMS_USERNAME=svc-bridge
	VMS_PASSWORD=<password>
	CCF_CLIENT_ID=<id>
	CCF_CLIENT_SECRET=<secret>

	# Events relay
	EVENTS_ENABLED=false
	EVENTS_SUBSCRIPTIONS=cam-1:motion,cam-2:motion

	# Server
	PORT=9090
	LOG_LEVEL=info                         # trace, debug, info, warn, error
	LOG_FORMAT=json                        # json or console

# Usage

	vmsbridge --host 0.0.0.0 --port 9090 --aib-url http://aib:4000/api/bridge/graphql

# Graceful Shutdown

SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
server within SERVER_SHUTDOWN_TIMEOUT, closes the events session and drops
websocket clients. Services that fail to stop in time are logged.
*/
package main
