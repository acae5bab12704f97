// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

/*
Package supervisor runs the long-lived services of the bridge under a suture
v4 supervisor tree.

	RootSupervisor ("vmsbridge")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocketHubService
	│   └── events-relay (if EVENTS_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A relay that keeps losing its gateway session is restarted inside the
messaging layer without touching the HTTP server, so the query endpoints
stay available while events are down.

Supervisor events (service failures, restarts, backoff) are logged through
sutureslog into the process logger.

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(relay)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)
*/
package supervisor
