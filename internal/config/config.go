// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/vmsbridge/internal/events"
	"github.com/tomtom215/vmsbridge/internal/gateway"
	"github.com/tomtom215/vmsbridge/internal/httpclient"
	"github.com/tomtom215/vmsbridge/internal/identity"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every optional setting
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// Config is immutable after Load() and safe for concurrent reads. The core
// packages never read it directly; main translates sections into the
// options each component takes.
type Config struct {
	Gateway    GatewayConfig    `koanf:"gateway"`
	Identity   IdentityConfig   `koanf:"identity"`
	HTTPClient HTTPClientConfig `koanf:"http_client"`
	Server     ServerConfig     `koanf:"server"`
	Events     EventsConfig     `koanf:"events"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// GatewayConfig locates the VMS API Gateway.
//
// Environment Variables:
//   - AIB_URL: GraphQL endpoint of the gateway
//   - GATEWAY_REST_URL: REST base URL (default: management server, then AIB_URL host)
//   - GATEWAY_CIRCUIT_BREAKER: Enable the circuit breaker (default: true)
//   - GATEWAY_MAX_RESPONSE_BYTES: Response body limit (default: 10MB)
//   - GATEWAY_DISCOVERY_TTL: Well-known URIs cache lifetime, 0 disables (default: 5m)
type GatewayConfig struct {
	GraphQLURL            string        `koanf:"graphql_url"`
	RESTURL               string        `koanf:"rest_url"`
	CircuitBreakerEnabled bool          `koanf:"circuit_breaker_enabled"`
	BreakerTimeout        time.Duration `koanf:"breaker_timeout"`
	BreakerFailureRatio   float64       `koanf:"breaker_failure_ratio"`
	BreakerMinRequests    uint32        `koanf:"breaker_min_requests"`
	MaxResponseBytes      int64         `koanf:"max_response_bytes"`
	DiscoveryTTL          time.Duration `koanf:"discovery_ttl"`
}

// IdentityConfig selects the identity provider and the credential used
// against it.
//
// Environment Variables:
//   - SYSTEM_IDENTITY_PROVIDER: IDP base URL, takes precedence when set
//   - LEGACY_MANAGEMENT_SERVER: Management server host used when no IDP URL is set
//   - LEGACY_USE_TLS: Use https for the management server (default: false)
//   - CREDENTIAL_FLOW: basic, integrated or client_credentials (default: basic)
//   - VMS_USERNAME, VMS_PASSWORD, VMS_DOMAIN: account for basic/integrated
//   - CCF_CLIENT_ID, CCF_CLIENT_SECRET: client for client_credentials
//   - CCF_CLIENT_ID_FILE, CCF_CLIENT_SECRET_FILE: mounted secret files
//   - CCF_SCOPE: optional scope for client_credentials
//   - TOKEN_RENEW_SKEW: renew this long before expiry (default: 1m)
type IdentityConfig struct {
	URL              string        `koanf:"url"`
	ManagementServer string        `koanf:"management_server"`
	UseTLS           bool          `koanf:"use_tls"`
	Flow             string        `koanf:"flow"`
	Username         string        `koanf:"username"`
	Password         string        `koanf:"password"`
	Domain           string        `koanf:"domain"`
	ClientID         string        `koanf:"client_id"`
	ClientSecret     string        `koanf:"client_secret"`
	ClientIDFile     string        `koanf:"client_id_file"`
	ClientSecretFile string        `koanf:"client_secret_file"`
	Scope            string        `koanf:"scope"`
	RenewSkew        time.Duration `koanf:"renew_skew"`
	// InsecureSkipVerify disables certificate checks against the IDP and
	// gateway. Management servers commonly use self-signed certificates.
	InsecureSkipVerify bool `koanf:"insecure_skip_verify"`
}

// HTTPClientConfig holds outbound timeouts shared by the acquirer and executor.
type HTTPClientConfig struct {
	Timeout               time.Duration `koanf:"timeout"`
	DialTimeout           time.Duration `koanf:"dial_timeout"`
	TLSHandshakeTimeout   time.Duration `koanf:"tls_handshake_timeout"`
	ResponseHeaderTimeout time.Duration `koanf:"response_header_timeout"`
}

// ServerConfig holds the inbound HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// EventsConfig controls the events relay.
//
// Environment Variables:
//   - EVENTS_ENABLED: Relay gateway events to websocket clients (default: false)
//   - EVENTS_SUBSCRIPTIONS: Comma-separated cameraId:eventTypeId pairs
//   - EVENTS_PING_INTERVAL: Keep-alive period (default: 1m)
//   - EVENTS_RECONNECT_MAX: Longest reconnect backoff (default: 1m)
type EventsConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Subscriptions []string      `koanf:"subscriptions"`
	PingInterval  time.Duration `koanf:"ping_interval"`
	ReconnectMin  time.Duration `koanf:"reconnect_min"`
	ReconnectMax  time.Duration `koanf:"reconnect_max"`
}

// ParseSubscriptions splits each cameraId:eventTypeId entry.
func (e EventsConfig) ParseSubscriptions() ([]events.Subscription, error) {
	subs := make([]events.Subscription, 0, len(e.Subscriptions))
	for _, entry := range e.Subscriptions {
		camera, eventType, ok := strings.Cut(strings.TrimSpace(entry), ":")
		camera, eventType = strings.TrimSpace(camera), strings.TrimSpace(eventType)
		if !ok || camera == "" || eventType == "" {
			return nil, fmt.Errorf("invalid events subscription %q: expected cameraId:eventTypeId", entry)
		}
		subs = append(subs, events.Subscription{CameraID: camera, EventTypeID: eventType})
	}
	return subs, nil
}

// MetricsConfig describes where the exposition is scraped from. The URL is
// informational and reported by the configuration endpoint.
type MetricsConfig struct {
	ScrapeURL string `koanf:"scrape_url"`
}

// SecurityConfig holds inbound request protections.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from all sources with the following precedence
// (highest to lowest):
//  1. Environment variables
//  2. Config file (config.yaml if exists, or path specified in CONFIG_PATH env var)
//  3. Built-in defaults
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Endpoint returns the identity provider base URL. An explicit IDP URL wins;
// otherwise the management server host is used with a scheme picked by UseTLS.
func (c IdentityConfig) Endpoint() string {
	if c.URL != "" {
		return strings.TrimRight(c.URL, "/")
	}
	if c.ManagementServer == "" {
		return ""
	}
	if strings.Contains(c.ManagementServer, "://") {
		return strings.TrimRight(c.ManagementServer, "/")
	}
	scheme := "http"
	if c.UseTLS {
		scheme = "https"
	}
	return scheme + "://" + strings.TrimRight(c.ManagementServer, "/")
}

// Credential builds the credential selected by Flow. Client id and secret
// files are read when the inline values are empty.
func (c IdentityConfig) Credential() (identity.Credential, error) {
	flow, err := identity.ParseFlow(c.Flow)
	if err != nil {
		return nil, err
	}

	switch flow {
	case identity.FlowBasic:
		return identity.BasicCredential{Username: c.Username, Password: c.Password}, nil
	case identity.FlowIntegrated:
		return identity.IntegratedCredential{Username: c.Username, Password: c.Password, Domain: c.Domain}, nil
	case identity.FlowClientCredentials:
		id, err := secretValue(c.ClientID, c.ClientIDFile)
		if err != nil {
			return nil, fmt.Errorf("client id: %w", err)
		}
		secret, err := secretValue(c.ClientSecret, c.ClientSecretFile)
		if err != nil {
			return nil, fmt.Errorf("client secret: %w", err)
		}
		return identity.ClientCredential{ClientID: id, ClientSecret: secret, Scope: c.Scope}, nil
	}
	return nil, fmt.Errorf("unsupported credential flow %q", c.Flow)
}

// secretValue returns inline if set, otherwise the trimmed content of path.
func secretValue(inline, path string) (string, error) {
	if inline != "" || path == "" {
		return inline, nil
	}
	b, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(b)), nil
}

// HTTPOptions converts the outbound settings for httpclient.
func (c *Config) HTTPOptions() httpclient.Options {
	return httpclient.Options{
		Timeout:               c.HTTPClient.Timeout,
		DialTimeout:           c.HTTPClient.DialTimeout,
		TLSHandshakeTimeout:   c.HTTPClient.TLSHandshakeTimeout,
		ResponseHeaderTimeout: c.HTTPClient.ResponseHeaderTimeout,
		InsecureSkipVerify:    c.Identity.InsecureSkipVerify,
	}
}

// BreakerConfig returns the gateway breaker settings, or nil when disabled.
func (g GatewayConfig) BreakerConfig() *gateway.BreakerConfig {
	if !g.CircuitBreakerEnabled {
		return nil
	}
	cfg := gateway.DefaultBreakerConfig()
	if g.BreakerTimeout > 0 {
		cfg.Timeout = g.BreakerTimeout
	}
	if g.BreakerFailureRatio > 0 {
		cfg.FailureRatio = g.BreakerFailureRatio
	}
	if g.BreakerMinRequests > 0 {
		cfg.MinRequests = g.BreakerMinRequests
	}
	return &cfg
}

// RESTBaseURL returns the REST base URL. Without an explicit value the API
// Gateway on the management server is used, then the host of the GraphQL
// endpoint.
func (c *Config) RESTBaseURL() string {
	if c.Gateway.RESTURL != "" {
		return strings.TrimRight(c.Gateway.RESTURL, "/")
	}
	if c.Identity.ManagementServer != "" {
		return IdentityConfig{ManagementServer: c.Identity.ManagementServer, UseTLS: c.Identity.UseTLS}.Endpoint()
	}
	u, err := url.Parse(c.Gateway.GraphQLURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
