// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package api

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/vmsbridge/internal/gateway"
	"github.com/tomtom215/vmsbridge/internal/identity"
	"github.com/tomtom215/vmsbridge/internal/session"
	ws "github.com/tomtom215/vmsbridge/internal/websocket"
)

// Service is the set of VMS flows served over HTTP. *session.Service
// implements it.
type Service interface {
	VMSInfo(ctx context.Context) (map[string]any, error)
	Cameras(ctx context.Context) (map[string]any, error)
	Discover(ctx context.Context) (*gateway.WellKnownURIs, error)
	CreateUserDefinedEvent(ctx context.Context, name string) (session.Resource, error)
	GetUserDefinedEvent(ctx context.Context, id string) (session.Resource, error)
	UpdateUserDefinedEvent(ctx context.Context, id, name string) (session.Resource, error)
	DeleteUserDefinedEvent(ctx context.Context, id string) (session.Resource, error)
	ListUserDefinedEvents(ctx context.Context) ([]session.Resource, error)
	TriggerEvent(ctx context.Context, typeID string) (session.Resource, error)
	ListEvents(ctx context.Context, page, size int) ([]session.Resource, error)
	GetEvent(ctx context.Context, id string) (session.Resource, error)
	EnabledCameras(ctx context.Context) ([]session.Camera, error)
	AnalyticEventTypes(ctx context.Context) ([]session.AnalyticEventType, error)
}

// TokenProvider reports whether a bearer token can be obtained.
// *session.TokenSource implements it.
type TokenProvider interface {
	Configured() bool
	Token(ctx context.Context) (*identity.AccessToken, error)
}

// BreakerReporter exposes the gateway circuit breaker state.
// *gateway.Executor implements it.
type BreakerReporter interface {
	BreakerState() string
}

// RelayStatus reports whether the events relay holds a live session.
// *events.Relay implements it.
type RelayStatus interface {
	Connected() bool
}

// HandlerConfig holds the settings the handlers report or enforce.
type HandlerConfig struct {
	// GraphQLURL and MetricsURL are listed by /api/configuration-info.
	GraphQLURL string
	MetricsURL string

	// CORSOrigins also gates websocket upgrades.
	CORSOrigins []string
}

// Dependencies wires the handler. Service is required; the rest are
// optional and disable the endpoints or health fields that need them.
type Dependencies struct {
	Service Service
	Tokens  TokenProvider
	Breaker BreakerReporter
	Hub     *ws.Hub
	Relay   RelayStatus
	Config  HandlerConfig
}

// Handler serves the HTTP endpoints.
type Handler struct {
	svc       Service
	tokens    TokenProvider
	breaker   BreakerReporter
	wsHub     *ws.Hub
	relay     RelayStatus
	config    HandlerConfig
	upgrader  websocket.Upgrader
	startTime time.Time
	now       func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		svc:       deps.Service,
		tokens:    deps.Tokens,
		breaker:   deps.Breaker,
		wsHub:     deps.Hub,
		relay:     deps.Relay,
		config:    deps.Config,
		upgrader:  ws.NewUpgrader(deps.Config.CORSOrigins),
		startTime: time.Now(),
		now:       time.Now,
	}
}
