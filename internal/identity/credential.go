// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package identity

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"github.com/zitadel/oidc/v3/pkg/oidc"
)

// GrantValidatorClientID is the client id the VMS identity provider expects
// for the password and windows_credentials grants.
const GrantValidatorClientID = "GrantValidatorClient"

// Token endpoint paths relative to the identity provider base URL. The
// client credentials grant is served under /API/IDP on the VMS gateway.
const (
	TokenPath                  = "/connect/token"
	ClientCredentialsTokenPath = "/API/IDP/connect/token"
)

// Grant types sent in the token request form.
const (
	GrantTypePassword           = "password"
	GrantTypeWindowsCredentials = "windows_credentials"
	GrantTypeClientCredentials  = string(oidc.GrantTypeClientCredentials)
)

// Flow names a credential scheme. It is used for configuration and as a
// metric label.
type Flow string

const (
	FlowBasic             Flow = "basic"
	FlowIntegrated        Flow = "integrated"
	FlowClientCredentials Flow = "client_credentials"
)

// ParseFlow converts a configuration value into a Flow.
func ParseFlow(s string) (Flow, error) {
	switch Flow(strings.ToLower(strings.TrimSpace(s))) {
	case FlowBasic:
		return FlowBasic, nil
	case FlowIntegrated, "windows", "ntlm":
		return FlowIntegrated, nil
	case FlowClientCredentials, "client-credentials", "ccf":
		return FlowClientCredentials, nil
	default:
		return "", fmt.Errorf("unknown credential flow %q (expected basic, integrated or client_credentials)", s)
	}
}

// Credential is one of BasicCredential, IntegratedCredential or
// ClientCredential. The set is closed: each variant supplies its own token
// path, form body and request authentication.
type Credential interface {
	// Flow reports the scheme of the credential.
	Flow() Flow

	tokenPath() string
	form() url.Values
	authenticate(req *http.Request)
	// wrapTransport picks the round tripper for the exchange. http1 never
	// negotiates HTTP/2.
	wrapTransport(base, http1 http.RoundTripper) http.RoundTripper
}

// BasicCredential authenticates with a VMS basic user.
type BasicCredential struct {
	Username string
	Password string
}

func (BasicCredential) Flow() Flow        { return FlowBasic }
func (BasicCredential) tokenPath() string { return TokenPath }

func (c BasicCredential) form() url.Values {
	return url.Values{
		"grant_type": {GrantTypePassword},
		"username":   {c.Username},
		"password":   {c.Password},
		"client_id":  {GrantValidatorClientID},
	}
}

func (BasicCredential) authenticate(*http.Request) {}

func (BasicCredential) wrapTransport(base, _ http.RoundTripper) http.RoundTripper { return base }

// IntegratedCredential authenticates a Windows account. The secret is never
// placed in the form body; the exchange is authenticated with NTLM.
type IntegratedCredential struct {
	Username string
	Password string
	// Domain is optional. When set the account is sent as DOMAIN\Username.
	Domain string
}

func (IntegratedCredential) Flow() Flow        { return FlowIntegrated }
func (IntegratedCredential) tokenPath() string { return TokenPath }

func (IntegratedCredential) form() url.Values {
	return url.Values{
		"grant_type": {GrantTypeWindowsCredentials},
		"client_id":  {GrantValidatorClientID},
	}
}

// authenticate hands the account to the NTLM negotiator, which replaces the
// basic authorization with the NTLM handshake.
func (c IntegratedCredential) authenticate(req *http.Request) {
	req.SetBasicAuth(c.account(), c.Password)
}

// wrapTransport runs the NTLM handshake over HTTP/1.1; IIS rejects NTLM on
// HTTP/2 connections.
func (IntegratedCredential) wrapTransport(_, http1 http.RoundTripper) http.RoundTripper {
	return ntlmssp.Negotiator{RoundTripper: http1}
}

func (c IntegratedCredential) account() string {
	if c.Domain == "" {
		return c.Username
	}
	return c.Domain + `\` + c.Username
}

// ClientCredential authenticates a registered service client.
type ClientCredential struct {
	ClientID     string
	ClientSecret string
	// Scope is optional, e.g. "managementserver". Omitted from the form when empty.
	Scope string
}

func (ClientCredential) Flow() Flow        { return FlowClientCredentials }
func (ClientCredential) tokenPath() string { return ClientCredentialsTokenPath }

func (c ClientCredential) form() url.Values {
	v := url.Values{
		"grant_type":    {GrantTypeClientCredentials},
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
	}
	if c.Scope != "" {
		v.Set("scope", c.Scope)
	}
	return v
}

func (ClientCredential) authenticate(*http.Request) {}

func (ClientCredential) wrapTransport(base, _ http.RoundTripper) http.RoundTripper { return base }
