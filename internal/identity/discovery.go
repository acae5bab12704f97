// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package identity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/tomtom215/vmsbridge/internal/logging"
)

// WellKnownOpenIDConfigPath is where the VMS identity provider publishes its
// OpenID configuration, relative to the management server.
const WellKnownOpenIDConfigPath = "/idp/.well-known/openid-configuration"

// Discover fetches the identity provider's OpenID configuration from the
// management server at serverURL. The issuer is not compared with
// serverURL: VMS installations commonly advertise an internal host name.
func (a *Acquirer) Discover(ctx context.Context, serverURL string) (*oidc.DiscoveryConfiguration, error) {
	base := strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if base == "" {
		return nil, fmt.Errorf("management server URL is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+WellKnownOpenIDConfigPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Transport: a.transport, Timeout: a.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discovery request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("discovery returned status %d: %s", resp.StatusCode, string(body))
	}

	var cfg oidc.DiscoveryConfiguration
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTokenResponseBytes)).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}
	if cfg.TokenEndpoint == "" {
		return nil, fmt.Errorf("discovery document has no token_endpoint")
	}
	return &cfg, nil
}

// EndpointFromDiscovery derives the identity provider base URL to pass to
// Acquire from a discovered token endpoint, by stripping the token path.
func EndpointFromDiscovery(cfg *oidc.DiscoveryConfiguration) string {
	ep := strings.TrimRight(cfg.TokenEndpoint, "/")
	return strings.TrimSuffix(ep, TokenPath)
}

// ResolveEndpoint returns the identity provider base URL for flow on the
// management server at serverURL. The password and Windows flows use the
// token endpoint advertised by discovery. The client-credentials flow goes
// through the API Gateway at the server root, so serverURL is returned
// unchanged, as it is whenever discovery fails.
func (a *Acquirer) ResolveEndpoint(ctx context.Context, serverURL string, flow Flow) string {
	if flow == FlowClientCredentials {
		return serverURL
	}

	doc, err := a.Discover(ctx, serverURL)
	if err != nil {
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("server", logging.SanitizeURL(serverURL)).
			Msg("Identity provider discovery failed; using management server URL")
		return serverURL
	}

	endpoint := EndpointFromDiscovery(doc)
	logging.Ctx(ctx).Info().
		Str("issuer", doc.Issuer).
		Str("token_endpoint", doc.TokenEndpoint).
		Msg("Identity provider discovered")
	return endpoint
}
