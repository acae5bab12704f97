// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/vmsbridge/internal/config"
	"github.com/tomtom215/vmsbridge/internal/logging"
	"github.com/tomtom215/vmsbridge/internal/supervisor"
)

func main() {
	// Load configuration first so the logger can be configured from it
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := applyFlags(os.Args[1:], cfg); err != nil {
		logging.Fatal().Err(err).Msg("Invalid command line")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("graphql_url", logging.SanitizeURL(cfg.Gateway.GraphQLURL)).
		Str("rest_url", logging.SanitizeURL(cfg.RESTBaseURL())).
		Str("identity_provider", logging.SanitizeURL(cfg.Identity.Endpoint())).
		Str("flow", cfg.Identity.Flow).
		Msg("Starting VMSBridge")

	application, err := newApp(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize application")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridges zerolog to slog for sutureslog
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	application.register(tree)

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Bool("events_relay", application.relay != nil).
		Bool("circuit_breaker", cfg.Gateway.CircuitBreakerEnabled).
		Msg("Services registered with supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	if err := waitForTree(ctx, errCh); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// waitForTree returns the tree's result. errCh receives exactly one value
// and is never closed.
func waitForTree(ctx context.Context, errCh <-chan error) error {
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		return <-errCh
	case err := <-errCh:
		return err
	}
}
