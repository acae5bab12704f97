// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package events

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/vmsbridge/internal/identity"
	"github.com/tomtom215/vmsbridge/internal/logging"
)

// Path is the events endpoint on the API Gateway.
const Path = "/api/ws/events/v1/"

const (
	defaultPingInterval = time.Minute
	defaultReadTimeout  = 2 * time.Minute
	writeWait           = 10 * time.Second
	maxMessageSize      = 1 << 20
)

// ErrNotConnected is returned when a command is sent before StartSession.
var ErrNotConnected = errors.New("events session not connected")

// CommandFailedError reports a command answered with a non-2xx status.
type CommandFailedError struct {
	Command string
	Status  int
	Text    string
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("command %s failed - status: %d - error: %s", e.Command, e.Status, e.Text)
}

// DialError reports a rejected websocket upgrade.
type DialError struct {
	Status int
	Err    error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("websocket dial failed (status %d): %v", e.Status, e.Err)
}

func (e *DialError) Unwrap() error {
	return e.Err
}

// Recorder counts received events. *metrics.Recorder satisfies it.
type Recorder interface {
	RecordEvent(eventType string)
}

// Options configures a Session.
type Options struct {
	// PingInterval is the keep-alive period. Default one minute.
	PingInterval time.Duration

	// ReadTimeout is how long the connection may stay silent. Every pong
	// extends it, so a quiet stream stays up while the server answers
	// pings. It is raised to twice PingInterval when smaller.
	ReadTimeout time.Duration

	// HandshakeTimeout bounds the websocket upgrade.
	HandshakeTimeout time.Duration

	// InsecureSkipVerify disables certificate checks for wss.
	InsecureSkipVerify bool
}

// Session is a client of the API Gateway events endpoint. Commands are
// synchronous: each waits for its own response. Events that arrive while a
// command is in flight are kept and returned by the next ReadEvents.
//
// A Session is not safe for concurrent command use; the keep-alive runs in
// its own goroutine.
type Session struct {
	opts     Options
	recorder Recorder

	commandID atomic.Int64

	mu          sync.Mutex
	conn        *websocket.Conn
	sessionID   string
	lastEventID string
	pending     []Event
	stop        chan struct{}
	wg          sync.WaitGroup
}

// NewSession creates an unconnected Session. recorder may be nil.
func NewSession(opts Options, recorder Recorder) *Session {
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.ReadTimeout < 2*opts.PingInterval {
		opts.ReadTimeout = 2 * opts.PingInterval
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	return &Session{opts: opts, recorder: recorder}
}

// URL converts an API Gateway URL into the events websocket URL.
func URL(gatewayURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(gatewayURL))
	if err != nil {
		return "", fmt.Errorf("invalid gateway URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid gateway URL %q: scheme must be http or https", gatewayURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid gateway URL %q: host is required", gatewayURL)
	}
	u.Path = Path
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// StartSession connects to gatewayURL and starts a session. When a previous
// session id and last event id are known the server is asked to resume it;
// status 200 means resumed, 201 means a new session was created and earlier
// subscriptions are gone.
func (s *Session) StartSession(ctx context.Context, gatewayURL string, token *identity.AccessToken) (*CommandResponse, error) {
	target, err := URL(gatewayURL)
	if err != nil {
		return nil, err
	}

	s.closeConn()

	dialer := websocket.Dialer{
		HandshakeTimeout: s.opts.HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	if s.opts.InsecureSkipVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-in
	}

	header := http.Header{}
	if token != nil {
		header.Set("Authorization", token.AuthorizationHeader())
	}

	conn, resp, err := dialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, &DialError{Status: resp.StatusCode, Err: err}
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	})

	s.mu.Lock()
	s.conn = conn
	s.stop = make(chan struct{})
	// Resume only with both ids present.
	if strings.TrimSpace(s.sessionID) == "" || strings.TrimSpace(s.lastEventID) == "" {
		s.sessionID = ""
		s.lastEventID = ""
	}
	req := &CommandRequest{
		Command:   CommandStartSession,
		SessionID: s.sessionID,
		EventID:   s.lastEventID,
	}
	stop := s.stop
	s.mu.Unlock()

	s.wg.Add(1)
	go s.pingLoop(conn, stop)

	logging.Ctx(ctx).Info().Str("url", target).Bool("resume", req.SessionID != "").Msg("Events websocket connected")

	res, err := s.send(ctx, req)
	if err != nil {
		s.closeConn()
		return nil, err
	}

	s.mu.Lock()
	s.sessionID = res.SessionID
	s.mu.Unlock()

	logging.Ctx(ctx).Info().
		Str("session_id", res.SessionID).
		Bool("resumed", res.Status == StatusSessionResumed).
		Msg("Events session started")
	return res, nil
}

// Subscribe adds a subscription for eventTypeID events raised by cameraID.
func (s *Session) Subscribe(ctx context.Context, cameraID, eventTypeID string) (*CommandResponse, error) {
	return s.send(ctx, &CommandRequest{
		Command: CommandAddSubscription,
		Filters: []Filter{CameraFilter(cameraID, eventTypeID)},
	})
}

// ReadEvents blocks until the next events frame arrives and returns it.
// Events buffered during earlier commands are returned first.
func (s *Session) ReadEvents(ctx context.Context) (*Batch, error) {
	s.mu.Lock()
	if len(s.pending) > 0 {
		batch := &Batch{Events: s.pending}
		s.pending = nil
		s.mu.Unlock()
		return batch, nil
	}
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	for {
		data, err := s.read(ctx, conn)
		if err != nil {
			return nil, err
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			logging.Ctx(ctx).Debug().Err(err).Msg("Ignoring undecodable events frame")
			continue
		}
		if f.Events == nil {
			continue
		}
		var batch Batch
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("failed to decode events: %w", err)
		}
		s.accept(batch.Events)
		return &batch, nil
	}
}

// SessionID returns the current session id, empty before StartSession.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// LastEventID returns the id of the last event received.
func (s *Session) LastEventID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEventID
}

// Close closes the connection and forgets the session, so the next
// StartSession creates a new one.
func (s *Session) Close() error {
	s.closeConn()
	s.mu.Lock()
	s.sessionID = ""
	s.lastEventID = ""
	s.pending = nil
	s.mu.Unlock()
	return nil
}

// Disconnect closes the connection but keeps the session and last event ids
// so a following StartSession resumes.
func (s *Session) Disconnect() {
	s.closeConn()
}

// send writes a command and waits for its response.
func (s *Session) send(ctx context.Context, req *CommandRequest) (*CommandResponse, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	req.CommandID = s.commandID.Add(1)
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return nil, fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", req.Command, err)
	}

	for {
		data, err := s.read(ctx, conn)
		if err != nil {
			return nil, err
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		if f.Events != nil {
			var batch Batch
			if err := json.Unmarshal(data, &batch); err == nil {
				s.accept(batch.Events)
				s.mu.Lock()
				s.pending = append(s.pending, batch.Events...)
				s.mu.Unlock()
			}
			continue
		}
		if f.CommandID == nil || *f.CommandID != req.CommandID {
			continue
		}

		var res CommandResponse
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, fmt.Errorf("failed to decode %s response: %w", req.Command, err)
		}
		if res.Status < 200 || res.Status > 299 {
			return nil, &CommandFailedError{Command: req.Command, Status: res.Status, Text: res.Error.ErrorText}
		}
		return &res, nil
	}
}

// read reads one frame, bounded by ctx and the read timeout. Pongs received
// while waiting push the deadline forward.
func (s *Session) read(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	if err := conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout)); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	// gorilla has no context support; closing the connection unblocks the read.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	_, data, err := conn.ReadMessage()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("events read failed: %w", err)
	}
	return data, nil
}

// accept tracks the last event id and counts events.
func (s *Session) accept(evs []Event) {
	if len(evs) == 0 {
		return
	}
	s.mu.Lock()
	s.lastEventID = evs[len(evs)-1].ID
	s.mu.Unlock()
	if s.recorder != nil {
		for _, ev := range evs {
			s.recorder.RecordEvent(ev.Type)
		}
	}
}

// pingLoop keeps the connection alive. WriteControl is safe to call
// concurrently with the command writer.
func (s *Session) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logging.Debug().Err(err).Msg("Events keep-alive failed")
				return
			}
		}
	}
}

// closeConn closes the connection and stops the keep-alive.
func (s *Session) closeConn() {
	s.mu.Lock()
	conn := s.conn
	stop := s.stop
	s.conn = nil
	s.stop = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if conn != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
	}
	s.wg.Wait()
}
