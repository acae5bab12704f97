// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/tomtom215/vmsbridge/internal/config"
)

// applyFlags overrides the loaded configuration with command line flags.
// Flags win over environment variables and the config file.
func applyFlags(args []string, cfg *config.Config) error {
	fs := flag.NewFlagSet("vmsbridge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	host := fs.String("host", cfg.Server.Host, "listen host")
	port := fs.Int("port", cfg.Server.Port, "listen port")
	aibURL := fs.String("aib-url", cfg.Gateway.GraphQLURL, "AI Bridge GraphQL endpoint")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg.Server.Host = *host
	cfg.Server.Port = *port
	cfg.Gateway.GraphQLURL = *aibURL

	return cfg.Validate()
}
