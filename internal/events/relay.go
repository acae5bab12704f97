// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package events

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tomtom215/vmsbridge/internal/identity"
	"github.com/tomtom215/vmsbridge/internal/logging"
)

// Session states reported to the broadcaster.
const (
	StateConnected    = "connected"
	StateDisconnected = "disconnected"
)

const (
	defaultMinBackoff = time.Second
	defaultMaxBackoff = time.Minute
)

// Subscription selects events of one type from one camera.
type Subscription struct {
	CameraID    string
	EventTypeID string
}

// Tokens supplies bearer tokens. *session.TokenSource satisfies it.
type Tokens interface {
	Configured() bool
	Token(ctx context.Context) (*identity.AccessToken, error)
	Invalidate()
}

// Broadcaster receives relayed events. *websocket.Hub satisfies it.
type Broadcaster interface {
	BroadcastEvents(evs []Event)
	BroadcastSessionStatus(state, sessionID string, resumed bool, err error)
}

// RelayConfig configures a Relay.
type RelayConfig struct {
	GatewayURL    string
	Subscriptions []Subscription
	MinBackoff    time.Duration
	MaxBackoff    time.Duration
}

// Relay keeps an events session open and forwards every event to a
// Broadcaster. After a disconnect it resumes the session from the last
// event received; subscriptions are re-added only when the server starts a
// new session.
type Relay struct {
	session *Session
	tokens  Tokens
	out     Broadcaster
	cfg     RelayConfig

	connected atomic.Bool
	after     func(time.Duration) <-chan time.Time
}

// NewRelay creates a Relay. tokens may be nil when the gateway needs no auth.
func NewRelay(sess *Session, tokens Tokens, out Broadcaster, cfg RelayConfig) *Relay {
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = defaultMinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	return &Relay{session: sess, tokens: tokens, out: out, cfg: cfg, after: time.After}
}

// Connected reports whether the upstream session is currently open.
func (r *Relay) Connected() bool {
	return r.connected.Load()
}

// Serve runs until ctx is canceled. It implements suture.Service.
func (r *Relay) Serve(ctx context.Context) error {
	ctx = logging.ContextWithLogger(ctx, logging.WithComponent(r.String()))
	defer func() {
		r.connected.Store(false)
		_ = r.session.Close()
	}()

	delay := r.cfg.MinBackoff
	for {
		wasConnected, err := r.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Back off only across consecutive failed connects
		if wasConnected {
			delay = r.cfg.MinBackoff
		}
		r.connected.Store(false)
		r.session.Disconnect()
		r.out.BroadcastSessionStatus(StateDisconnected, r.session.SessionID(), false, err)
		logging.Ctx(ctx).Warn().Err(err).Dur("delay", delay).Msg("Events session lost, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.after(delay):
		}
		delay *= 2
		if delay > r.cfg.MaxBackoff {
			delay = r.cfg.MaxBackoff
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (r *Relay) String() string {
	return "events-relay"
}

// runOnce connects, subscribes when needed and forwards events until a read
// fails. connected reports whether the session got that far.
func (r *Relay) runOnce(ctx context.Context) (connected bool, err error) {
	var token *identity.AccessToken
	if r.tokens != nil && r.tokens.Configured() {
		t, err := r.tokens.Token(ctx)
		if err != nil {
			return false, err
		}
		token = t
	}

	res, err := r.session.StartSession(ctx, r.cfg.GatewayURL, token)
	if err != nil {
		if r.tokens != nil && unauthorized(err) {
			r.tokens.Invalidate()
		}
		return false, err
	}

	resumed := res.Status == StatusSessionResumed
	if !resumed {
		for _, sub := range r.cfg.Subscriptions {
			if _, err := r.session.Subscribe(ctx, sub.CameraID, sub.EventTypeID); err != nil {
				return false, err
			}
		}
		logging.Ctx(ctx).Info().Int("subscriptions", len(r.cfg.Subscriptions)).Msg("Events subscriptions added")
	}

	r.connected.Store(true)
	r.out.BroadcastSessionStatus(StateConnected, res.SessionID, resumed, nil)

	for {
		batch, err := r.session.ReadEvents(ctx)
		if err != nil {
			return true, err
		}
		if len(batch.Events) > 0 {
			r.out.BroadcastEvents(batch.Events)
		}
	}
}

// unauthorized reports whether err means the token was rejected.
func unauthorized(err error) bool {
	var dialErr *DialError
	if errors.As(err, &dialErr) {
		return dialErr.Status == http.StatusUnauthorized
	}
	var cmdErr *CommandFailedError
	return errors.As(err, &cmdErr) && cmdErr.Status == http.StatusUnauthorized
}
