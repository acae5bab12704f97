// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package events

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/vmsbridge/internal/identity"
)

type recordingBroadcaster struct {
	mu       sync.Mutex
	events   []Event
	states   []string
	notified chan struct{}
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{notified: make(chan struct{}, 64)}
}

func (b *recordingBroadcaster) BroadcastEvents(evs []Event) {
	b.mu.Lock()
	b.events = append(b.events, evs...)
	b.mu.Unlock()
	b.notified <- struct{}{}
}

func (b *recordingBroadcaster) BroadcastSessionStatus(state, _ string, _ bool, _ error) {
	b.mu.Lock()
	b.states = append(b.states, state)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) snapshot() ([]Event, []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.events...), append([]string(nil), b.states...)
}

type staticTokens struct {
	mu          sync.Mutex
	invalidated int
}

func (s *staticTokens) Configured() bool { return true }

func (s *staticTokens) Token(context.Context) (*identity.AccessToken, error) {
	return &identity.AccessToken{Value: "relay-token", TokenType: "Bearer"}, nil
}

func (s *staticTokens) Invalidate() {
	s.mu.Lock()
	s.invalidated++
	s.mu.Unlock()
}

func (s *staticTokens) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidated
}

func TestRelay_ForwardsEvents(t *testing.T) {
	t.Parallel()
	fake, srv := newFakeEventsServer(t)
	fake.postEvents = []Event{{ID: "e1", Type: "motion", Source: "cam-1"}}

	out := newRecordingBroadcaster()
	tokens := &staticTokens{}
	relay := NewRelay(NewSession(Options{}, nil), tokens, out, RelayConfig{
		GatewayURL: srv.URL,
		Subscriptions: []Subscription{
			{CameraID: "cam-1", EventTypeID: "motion"},
			{CameraID: "cam-2", EventTypeID: "tamper"},
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Serve(ctx) }()

	select {
	case <-out.notified:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("no events relayed")
	}
	if !relay.Connected() {
		t.Error("Connected() should be true while relaying")
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}

	evs, states := out.snapshot()
	if len(evs) != 1 || evs[0].ID != "e1" {
		t.Errorf("relayed events = %+v", evs)
	}
	if len(states) == 0 || states[0] != StateConnected {
		t.Errorf("states = %v, want connected first", states)
	}
	if got := fake.authorization(); got != "Bearer relay-token" {
		t.Errorf("Authorization = %q", got)
	}

	reqs := fake.received()
	subs := 0
	for _, r := range reqs {
		if r.Command == CommandAddSubscription {
			subs++
		}
	}
	if subs != 2 {
		t.Errorf("addSubscription commands = %d, want 2", subs)
	}
	if tokens.count() != 0 {
		t.Errorf("token invalidated %d times, want 0", tokens.count())
	}
}

func TestRelay_InvalidatesTokenOnUnauthorized(t *testing.T) {
	t.Parallel()
	fake, srv := newFakeEventsServer(t)
	fake.status = http.StatusUnauthorized
	fake.errorText = "token expired"

	out := newRecordingBroadcaster()
	tokens := &staticTokens{}
	relay := NewRelay(NewSession(Options{}, nil), tokens, out, RelayConfig{
		GatewayURL: srv.URL,
		MinBackoff: 10 * time.Millisecond,
		MaxBackoff: 20 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = relay.Serve(ctx)

	if tokens.count() == 0 {
		t.Error("token should be invalidated after a 401 command response")
	}
	_, states := out.snapshot()
	for _, s := range states {
		if s == StateConnected {
			t.Error("relay should never report connected")
		}
	}
}

// droppingEventsServer starts a session on every connection and hangs up
// right after answering.
func droppingEventsServer(t *testing.T) *httptest.Server {
	t.Helper()
	var upgrader websocket.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var req CommandRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		_ = conn.WriteJSON(CommandResponse{SessionID: "session-1", CommandID: req.CommandID, Status: StatusSessionCreated})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRelay_Backoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler func(t *testing.T) *httptest.Server
		want    []time.Duration
	}{
		{
			name:    "reset after each connected session",
			handler: droppingEventsServer,
			want:    []time.Duration{10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond},
		},
		{
			name: "grows across failed connects",
			handler: func(t *testing.T) *httptest.Server {
				srv := httptest.NewServer(http.NotFoundHandler())
				t.Cleanup(srv.Close)
				return srv
			},
			want: []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := tt.handler(t)

			relay := NewRelay(NewSession(Options{}, nil), nil, newRecordingBroadcaster(), RelayConfig{
				GatewayURL: srv.URL,
				MinBackoff: 10 * time.Millisecond,
				MaxBackoff: time.Second,
			})

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			var mu sync.Mutex
			var delays []time.Duration
			relay.after = func(d time.Duration) <-chan time.Time {
				mu.Lock()
				delays = append(delays, d)
				if len(delays) == len(tt.want) {
					cancel()
				}
				mu.Unlock()
				fired := make(chan time.Time, 1)
				fired <- time.Now()
				return fired
			}

			_ = relay.Serve(ctx)

			mu.Lock()
			defer mu.Unlock()
			if len(delays) < len(tt.want) {
				t.Fatalf("recorded %d delays, want %d", len(delays), len(tt.want))
			}
			for i, want := range tt.want {
				if delays[i] != want {
					t.Errorf("delay %d = %v, want %v (all %v)", i, delays[i], want, delays)
				}
			}
		})
	}
}

func TestUnauthorized(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"dial 401", &DialError{Status: 401, Err: errors.New("bad handshake")}, true},
		{"dial 404", &DialError{Status: 404, Err: errors.New("bad handshake")}, false},
		{"command 401", &CommandFailedError{Status: 401}, true},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := unauthorized(tt.err); got != tt.want {
				t.Errorf("unauthorized(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
