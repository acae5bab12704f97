// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/vmsbridge/internal/identity"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateGateway(); err != nil {
		return err
	}

	if err := c.validateIdentity(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateEvents(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateGateway() error {
	if c.Gateway.GraphQLURL == "" {
		return fmt.Errorf("AIB_URL is required")
	}
	if err := validateHTTPURL(c.Gateway.GraphQLURL, "AIB_URL"); err != nil {
		return fmt.Errorf("AIB_URL is invalid: %w", err)
	}
	if c.Gateway.RESTURL != "" {
		if err := validateHTTPURL(c.Gateway.RESTURL, "GATEWAY_REST_URL"); err != nil {
			return fmt.Errorf("GATEWAY_REST_URL is invalid: %w", err)
		}
	}
	if c.Gateway.BreakerFailureRatio < 0 || c.Gateway.BreakerFailureRatio > 1 {
		return fmt.Errorf("gateway.breaker_failure_ratio must be between 0 and 1")
	}
	if c.Gateway.DiscoveryTTL < 0 {
		return fmt.Errorf("GATEWAY_DISCOVERY_TTL must not be negative")
	}
	return nil
}

// validateIdentity validates the identity provider and credential settings.
// An empty provider is allowed so the exporter can run without calling the
// gateway; endpoints that need a token fail at request time instead.
func (c *Config) validateIdentity() error {
	if c.Identity.URL != "" {
		if err := validateHTTPURL(c.Identity.URL, "SYSTEM_IDENTITY_PROVIDER"); err != nil {
			return fmt.Errorf("SYSTEM_IDENTITY_PROVIDER is invalid: %w", err)
		}
	}

	flow, err := identity.ParseFlow(c.Identity.Flow)
	if err != nil {
		return fmt.Errorf("CREDENTIAL_FLOW is invalid: %w", err)
	}

	if c.Identity.Endpoint() == "" {
		return nil
	}

	switch flow {
	case identity.FlowBasic, identity.FlowIntegrated:
		if c.Identity.Username == "" {
			return fmt.Errorf("VMS_USERNAME is required when CREDENTIAL_FLOW=%s", flow)
		}
	case identity.FlowClientCredentials:
		if c.Identity.ClientID == "" && c.Identity.ClientIDFile == "" {
			return fmt.Errorf("CCF_CLIENT_ID or CCF_CLIENT_ID_FILE is required when CREDENTIAL_FLOW=%s", flow)
		}
		if c.Identity.ClientSecret == "" && c.Identity.ClientSecretFile == "" {
			return fmt.Errorf("CCF_CLIENT_SECRET or CCF_CLIENT_SECRET_FILE is required when CREDENTIAL_FLOW=%s", flow)
		}
	}

	if c.Identity.RenewSkew < 0 {
		return fmt.Errorf("TOKEN_RENEW_SKEW must not be negative")
	}
	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	return nil
}

// validateEvents checks the relay settings only when the relay is enabled.
func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if _, err := c.Events.ParseSubscriptions(); err != nil {
		return fmt.Errorf("EVENTS_SUBSCRIPTIONS is invalid: %w", err)
	}
	if c.Events.PingInterval < time.Second {
		return fmt.Errorf("EVENTS_PING_INTERVAL must be at least 1s")
	}
	if c.Events.ReconnectMax < c.Events.ReconnectMin {
		return fmt.Errorf("EVENTS_RECONNECT_MAX must not be less than EVENTS_RECONNECT_MIN")
	}
	return nil
}

// Rate limiting bounds
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// validateSecurity validates security configuration
func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
