// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/vmsbridge/internal/api"
	"github.com/tomtom215/vmsbridge/internal/config"
	"github.com/tomtom215/vmsbridge/internal/events"
	"github.com/tomtom215/vmsbridge/internal/gateway"
	"github.com/tomtom215/vmsbridge/internal/identity"
	"github.com/tomtom215/vmsbridge/internal/logging"
	"github.com/tomtom215/vmsbridge/internal/metrics"
	"github.com/tomtom215/vmsbridge/internal/session"
	"github.com/tomtom215/vmsbridge/internal/supervisor"
	"github.com/tomtom215/vmsbridge/internal/supervisor/services"
	ws "github.com/tomtom215/vmsbridge/internal/websocket"
)

// tokenRenewInterval spaces token acquisitions while the IDP keeps failing.
// A token the gateway rejected is replaced without waiting.
const tokenRenewInterval = 5 * time.Second

// app holds the wired components. Nothing runs until register adds the
// long-lived ones to a supervisor tree.
type app struct {
	cfg      *config.Config
	recorder *metrics.Recorder
	tokens   *session.TokenSource
	executor *gateway.Executor
	service  *session.Service
	hub      *ws.Hub
	relay    *events.Relay
	server   *http.Server
}

// newApp builds every component from cfg in dependency order.
func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	a.recorder = metrics.NewRecorder(metrics.NewRegistry())

	acquirer := identity.NewAcquirer(cfg.HTTPOptions(), a.recorder)

	a.executor = gateway.NewExecutor(a.recorder, gateway.Options{
		HTTP:             cfg.HTTPOptions(),
		Breaker:          cfg.Gateway.BreakerConfig(),
		BreakerMetrics:   a.recorder,
		MaxResponseBytes: cfg.Gateway.MaxResponseBytes,
	})

	tokenCfg := session.TokenSourceConfig{
		Endpoint:         cfg.Identity.Endpoint(),
		Skew:             cfg.Identity.RenewSkew,
		MinRenewInterval: tokenRenewInterval,
	}
	if tokenCfg.Endpoint != "" {
		cred, err := cfg.Identity.Credential()
		if err != nil {
			return nil, fmt.Errorf("identity credential: %w", err)
		}
		tokenCfg.Credential = cred
		// Only a management server is known: ask it where its IDP lives
		if cfg.Identity.URL == "" {
			tokenCfg.Endpoint = acquirer.ResolveEndpoint(context.Background(), tokenCfg.Endpoint, cred.Flow())
		}
	} else {
		logging.Warn().Msg("No identity provider configured; gateway calls are sent without a token")
	}
	a.tokens = session.NewTokenSource(acquirer, tokenCfg)

	a.service = session.NewService(a.executor, a.tokens, session.ServiceConfig{
		GraphQLURL:   cfg.Gateway.GraphQLURL,
		RESTURL:      cfg.RESTBaseURL(),
		DiscoveryTTL: cfg.Gateway.DiscoveryTTL,
	})

	a.hub = ws.NewHub()

	if cfg.Events.Enabled {
		relay, err := a.newRelay()
		if err != nil {
			return nil, err
		}
		a.relay = relay
	}

	deps := api.Dependencies{
		Service: a.service,
		Tokens:  a.tokens,
		Breaker: a.executor,
		Hub:     a.hub,
		Config: api.HandlerConfig{
			GraphQLURL:  cfg.Gateway.GraphQLURL,
			MetricsURL:  cfg.Metrics.ScrapeURL,
			CORSOrigins: cfg.Security.CORSOrigins,
		},
	}
	// Assigned only when set so the interface stays nil without a relay
	if a.relay != nil {
		deps.Relay = a.relay
	}

	mw := api.NewChiMiddlewareFromSecurity(
		cfg.Security.CORSOrigins,
		cfg.Security.RateLimitReqs,
		cfg.Security.RateLimitWindow,
		cfg.Security.RateLimitDisabled,
	)
	router := api.NewRouter(api.NewHandler(deps), mw, a.recorder)

	a.server = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	return a, nil
}

func (a *app) newRelay() (*events.Relay, error) {
	subs, err := a.cfg.Events.ParseSubscriptions()
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		logging.Warn().Msg("Events relay enabled without subscriptions; only session status is relayed")
	}

	sess := events.NewSession(events.Options{
		PingInterval:       a.cfg.Events.PingInterval,
		InsecureSkipVerify: a.cfg.Identity.InsecureSkipVerify,
	}, a.recorder)

	return events.NewRelay(sess, a.tokens, a.hub, events.RelayConfig{
		GatewayURL:    a.cfg.RESTBaseURL(),
		Subscriptions: subs,
		MinBackoff:    a.cfg.Events.ReconnectMin,
		MaxBackoff:    a.cfg.Events.ReconnectMax,
	}), nil
}

// register adds the long-lived services: the hub and relay to the
// messaging layer and the HTTP server to the API layer.
func (a *app) register(tree *supervisor.SupervisorTree) {
	tree.AddMessagingService(services.NewWebSocketHubService(a.hub))
	if a.relay != nil {
		tree.AddMessagingService(a.relay)
	}
	tree.AddAPIService(services.NewHTTPServerService(a.server, a.cfg.Server.ShutdownTimeout))
}
