// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vmsbridge/internal/events"
	"github.com/tomtom215/vmsbridge/internal/logging"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types sent to browser clients.
const (
	MessageTypeVMSEvent      = "vms_event"
	MessageTypeSessionStatus = "session_status"
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
)

// broadcastBuffer is the hub's queue depth; messages beyond it are dropped.
const broadcastBuffer = 256

// Message is the envelope for everything written to a client.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// SessionStatusData reports the state of the upstream events session.
type SessionStatusData struct {
	Timestamp string `json:"timestamp"`
	State     string `json:"state"`
	SessionID string `json:"session_id,omitempty"`
	Resumed   bool   `json:"resumed"`
	Error     string `json:"error,omitempty"`
}

// Hub fans events out to connected clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a Hub. Call RunWithContext to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, broadcastBuffer),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// RunWithContext processes registrations and broadcasts until ctx ends,
// then closes every client and returns ctx.Err().
//
// Shutdown is checked first, then client lifecycle, then broadcasts, so a
// client registered before a message is queued always receives it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case c := <-h.Register:
			h.add(c)
			continue
		case c := <-h.Unregister:
			h.remove(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case c := <-h.Register:
			h.add(c)
		case c := <-h.Unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	logging.Info().Uint64("client_id", c.id).Int("total_clients", n).Msg("websocket client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	logging.Info().Uint64("client_id", c.id).Int("total_clients", n).Msg("websocket client disconnected")
}

func (h *Hub) shutdown(ctx context.Context) {
	n := h.GetClientCount()
	h.closeAllClients()

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", n).
		Msg("websocket hub stopped")
}

// sortedClients returns clients in id order. Caller holds h.mu.
func (h *Hub) sortedClients() []*Client {
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// fanOut delivers msg to every client in id order. Clients whose queue is
// full are disconnected.
func (h *Hub) fanOut(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.sortedClients() {
		select {
		case c.send <- msg:
		default:
			logging.Warn().Uint64("client_id", c.id).Msg("websocket client too slow, disconnecting")
			close(c.send)
			delete(h.clients, c)
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.sortedClients() {
		close(c.send)
		delete(h.clients, c)
	}
}

// enqueue queues msg without blocking.
func (h *Hub) enqueue(msg Message) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		logging.Warn().Str("message_type", msg.Type).Msg("broadcast channel full, dropping message")
		return false
	}
}

// BroadcastEvents sends each event as its own vms_event message.
func (h *Hub) BroadcastEvents(evs []events.Event) {
	for i := range evs {
		if !h.enqueue(Message{Type: MessageTypeVMSEvent, Data: evs[i]}) {
			return
		}
	}
}

// BroadcastSessionStatus reports an upstream session state change.
func (h *Hub) BroadcastSessionStatus(state, sessionID string, resumed bool, err error) {
	data := SessionStatusData{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		State:     state,
		SessionID: sessionID,
		Resumed:   resumed,
	}
	if err != nil {
		data.Error = err.Error()
	}
	h.enqueue(Message{Type: MessageTypeSessionStatus, Data: data})
}

// BroadcastJSON sends an arbitrary payload under messageType.
func (h *Hub) BroadcastJSON(messageType string, data any) {
	h.enqueue(Message{Type: messageType, Data: data})
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MarshalMessage encodes msg as JSON.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
