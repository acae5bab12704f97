// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vmsbridge/config.yaml",
	"/etc/vmsbridge/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Defaults shared with the command line flags.
const (
	DefaultGraphQLURL = "http://aibridge-webservice.processing-server:4000/api/bridge/graphql"
	DefaultScrapeURL  = "http://prometheus-server.prometheus:80"
	DefaultHost       = "0.0.0.0"
	DefaultPort       = 9090
)

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			GraphQLURL:            DefaultGraphQLURL,
			CircuitBreakerEnabled: true,
			MaxResponseBytes:      10 << 20, // 10MB
			DiscoveryTTL:          5 * time.Minute,
		},
		Identity: IdentityConfig{
			Flow:      "basic",
			RenewSkew: time.Minute,
		},
		HTTPClient: HTTPClientConfig{
			Timeout:               30 * time.Second,
			DialTimeout:           10 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Port:            DefaultPort,
			Host:            DefaultHost,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Events: EventsConfig{
			Enabled:      false,
			PingInterval: time.Minute,
			ReconnectMin: time.Second,
			ReconnectMax: time.Minute,
		},
		Metrics: MetricsConfig{
			ScrapeURL: DefaultScrapeURL,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Built-in defaults (lowest priority)
//  2. Config file (config.yaml, optional)
//  3. Environment variables (highest priority)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// AIB_URL -> gateway.graphql_url
	// CCF_CLIENT_ID -> identity.client_id
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "" if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths lists koanf paths that accept comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"events.subscriptions",
}

// processSliceFields converts comma-separated strings from env vars into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Gateway
	"aib_url":                    "gateway.graphql_url",
	"gateway_rest_url":           "gateway.rest_url",
	"gateway_circuit_breaker":    "gateway.circuit_breaker_enabled",
	"gateway_breaker_timeout":    "gateway.breaker_timeout",
	"gateway_max_response_bytes": "gateway.max_response_bytes",
	"gateway_discovery_ttl":      "gateway.discovery_ttl",

	// Identity provider
	"system_identity_provider": "identity.url",
	"legacy_management_server": "identity.management_server",
	"legacy_use_tls":           "identity.use_tls",
	"credential_flow":          "identity.flow",
	"vms_username":             "identity.username",
	"vms_password":             "identity.password",
	"vms_domain":               "identity.domain",
	"ccf_client_id":            "identity.client_id",
	"ccf_client_secret":        "identity.client_secret",
	"ccf_client_id_file":       "identity.client_id_file",
	"ccf_client_secret_file":   "identity.client_secret_file",
	"ccf_scope":                "identity.scope",
	"token_renew_skew":         "identity.renew_skew",
	"tls_insecure_skip_verify": "identity.insecure_skip_verify",

	// Outbound HTTP
	"http_client_timeout":          "http_client.timeout",
	"http_dial_timeout":            "http_client.dial_timeout",
	"http_tls_handshake_timeout":   "http_client.tls_handshake_timeout",
	"http_response_header_timeout": "http_client.response_header_timeout",

	// Server
	"host":                    "server.host",
	"port":                    "server.port",
	"server_read_timeout":     "server.read_timeout",
	"server_write_timeout":    "server.write_timeout",
	"server_idle_timeout":     "server.idle_timeout",
	"server_shutdown_timeout": "server.shutdown_timeout",

	// Events relay
	"events_enabled":       "events.enabled",
	"events_subscriptions": "events.subscriptions",
	"events_ping_interval": "events.ping_interval",
	"events_reconnect_min": "events.reconnect_min",
	"events_reconnect_max": "events.reconnect_max",

	// Metrics
	"prometheus_url": "metrics.scrape_url",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf paths.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// Unmapped keys are skipped so random environment variables do not
	// pollute the config.
	return ""
}
