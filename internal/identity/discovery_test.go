// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDiscover(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkStringEqual(t, "path", r.URL.Path, WellKnownOpenIDConfigPath)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"issuer": "https://mgmt.internal/idp",
			"token_endpoint": "https://mgmt.internal/idp/connect/token",
			"grant_types_supported": ["password", "client_credentials", "windows_credentials"]
		}`))
	}))
	defer server.Close()

	cfg, err := newTestAcquirer(nil).Discover(context.Background(), server.URL+"/")
	checkNoError(t, err)
	checkStringEqual(t, "issuer", cfg.Issuer, "https://mgmt.internal/idp")
	checkStringEqual(t, "token endpoint", cfg.TokenEndpoint, "https://mgmt.internal/idp/connect/token")
	checkStringEqual(t, "endpoint", EndpointFromDiscovery(cfg), "https://mgmt.internal/idp")
}

func TestDiscover_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, "missing"},
		{"invalid json", http.StatusOK, "{"},
		{"no token endpoint", http.StatusOK, `{"issuer":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestAcquirer(nil).Discover(context.Background(), server.URL)
			checkTrue(t, "error returned", err != nil)
		})
	}

	_, err := newTestAcquirer(nil).Discover(context.Background(), "")
	checkTrue(t, "empty server URL rejected", err != nil)
}

func TestResolveEndpoint(t *testing.T) {
	t.Parallel()

	var mgmt *httptest.Server
	mgmt = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != WellKnownOpenIDConfigPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"issuer":"` + mgmt.URL + `/idp","token_endpoint":"` + mgmt.URL + `/idp/connect/token"}`))
	}))
	t.Cleanup(mgmt.Close)

	broken := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(broken.Close)

	tests := []struct {
		name   string
		server string
		flow   Flow
		want   string
	}{
		{"basic uses discovered endpoint", mgmt.URL, FlowBasic, mgmt.URL + "/idp"},
		{"integrated uses discovered endpoint", mgmt.URL, FlowIntegrated, mgmt.URL + "/idp"},
		{"client credentials keeps server root", mgmt.URL, FlowClientCredentials, mgmt.URL},
		{"failed discovery keeps server root", broken.URL, FlowBasic, broken.URL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := newTestAcquirer(nil).ResolveEndpoint(context.Background(), tt.server, tt.flow)
			checkStringEqual(t, "endpoint", got, tt.want)
		})
	}
}
