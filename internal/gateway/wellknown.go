// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package gateway

import (
	"context"
	"strings"
)

// WellKnownURIsPath is the unauthenticated discovery document of the gateway.
const WellKnownURIsPath = "/api/.well-known/uris"

// WellKnownURIs lists the endpoints a VMS installation advertises.
type WellKnownURIs struct {
	ProductVersion           string   `json:"ProductVersion"`
	UnsecureManagementServer string   `json:"UnsecureManagementServer"`
	SecureManagementServer   string   `json:"SecureManagementServer"`
	IdentityProvider         string   `json:"IdentityProvider"`
	APIGateways              []string `json:"ApiGateways"`
}

// WellKnownURIs fetches the discovery document from serverURL. No token is
// sent.
func (e *Executor) WellKnownURIs(ctx context.Context, serverURL string) (*WellKnownURIs, error) {
	out := e.Get(ctx, strings.TrimRight(serverURL, "/")+WellKnownURIsPath, nil)
	if !out.OK() {
		return nil, out.Err()
	}
	var uris WellKnownURIs
	if err := out.Decode(&uris); err != nil {
		return nil, err
	}
	return &uris, nil
}
