// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

/*
Package websocket relays VMS events to browser clients.

A Hub keeps the set of connected Clients and fans messages out to them in
client id order. Each Client runs a read pump, which answers "ping"
messages and notices disconnects, and a write pump, which drains the
client's queue and sends keep-alive pings.

Messages are JSON envelopes:

	{"type": "vms_event", "data": {"id": "...", "type": "...", "source": "..."}}
	{"type": "session_status", "data": {"state": "connected", "session_id": "..."}}

The hub never blocks a producer: when its queue or a client's queue is full
the message is dropped, and a client that falls behind is disconnected.

Usage:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)

	upgrader := websocket.NewUpgrader([]string{"https://ops.example.com"})
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
	    return
	}
	websocket.NewClient(hub, conn).Start()
*/
package websocket
