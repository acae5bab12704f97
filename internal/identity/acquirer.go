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
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vmsbridge/internal/httpclient"
	"github.com/tomtom215/vmsbridge/internal/logging"
)

// maxTokenResponseBytes caps how much of a provider response is read.
const maxTokenResponseBytes = 1 << 20

// TokenRecorder receives one call per token exchange. *metrics.Recorder
// satisfies it.
type TokenRecorder interface {
	RecordTokenRequest(flow string, err error)
}

// Acquirer performs token exchanges. It is safe for concurrent use and holds
// no token state.
type Acquirer struct {
	transport http.RoundTripper
	http1     http.RoundTripper
	timeout   time.Duration
	recorder  TokenRecorder
	now       func() time.Time
}

// NewAcquirer creates an Acquirer whose requests all use opts, including its
// TLS verification setting. recorder may be nil.
func NewAcquirer(opts httpclient.Options, recorder TokenRecorder) *Acquirer {
	return &Acquirer{
		transport: httpclient.NewTransport(opts),
		http1:     httpclient.NewHTTP1Transport(opts),
		timeout:   opts.EffectiveTimeout(),
		recorder:  recorder,
		now:       time.Now,
	}
}

// tokenSuccess is the subset of the RFC 6749 token response the bridge uses.
// Pointers distinguish missing fields from zero values.
type tokenSuccess struct {
	AccessToken *string `json:"access_token"`
	ExpiresIn   *int64  `json:"expires_in"`
	TokenType   string  `json:"token_type"`
	Scope       string  `json:"scope"`
}

type tokenFailure struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Acquire exchanges cred for an access token at endpoint. Exactly one HTTP
// request is made. Every failure is an *AcquireError.
func (a *Acquirer) Acquire(ctx context.Context, endpoint string, cred Credential) (tok *AccessToken, err error) {
	if cred == nil {
		return nil, &AcquireError{Message: "no credential supplied"}
	}

	defer func() {
		if a.recorder != nil {
			a.recorder.RecordTokenRequest(string(cred.Flow()), err)
		}
	}()

	tokenURL, err := buildTokenURL(endpoint, cred.tokenPath())
	if err != nil {
		return nil, &AcquireError{Message: err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(cred.form().Encode()))
	if err != nil {
		return nil, &AcquireError{Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	cred.authenticate(req)

	client := &http.Client{
		Transport: cred.wrapTransport(a.transport, a.http1),
		Timeout:   a.timeout,
	}

	logging.Ctx(ctx).Debug().
		Str("flow", string(cred.Flow())).
		Str("token_url", tokenURL).
		Msg("Requesting access token")

	resp, err := client.Do(req)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("flow", string(cred.Flow())).Msg("Identity provider unreachable")
		return nil, &AcquireError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return nil, &AcquireError{Status: resp.StatusCode, Message: fmt.Sprintf("read token response: %v", err), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		acqErr := failureFromBody(resp.StatusCode, body)
		logging.Ctx(ctx).Warn().
			Str("flow", string(cred.Flow())).
			Int("status", acqErr.Status).
			Str("error", acqErr.Message).
			Msg("Token request rejected")
		return nil, acqErr
	}

	tok, err = a.parseToken(body)
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Debug().
		Str("flow", string(cred.Flow())).
		Dur("expires_in", tok.ExpiresIn).
		Msg("Access token acquired")

	return tok, nil
}

func (a *Acquirer) parseToken(body []byte) (*AccessToken, error) {
	var resp tokenSuccess
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &AcquireError{Status: http.StatusOK, Message: "token response is not valid JSON", Err: err}
	}
	if resp.AccessToken == nil || *resp.AccessToken == "" {
		return nil, &AcquireError{Status: http.StatusOK, Message: "token response is missing access_token"}
	}

	tok := &AccessToken{
		Value:     *resp.AccessToken,
		TokenType: resp.TokenType,
		Scope:     resp.Scope,
		IssuedAt:  a.now(),
	}
	if resp.ExpiresIn != nil {
		tok.ExpiresIn = time.Duration(*resp.ExpiresIn) * time.Second
		return tok, nil
	}

	// A JWT access token carries its own expiry
	lifetime, ok := tok.lifetimeFromClaims()
	if !ok {
		return nil, &AcquireError{Status: http.StatusOK, Message: "token response is missing expires_in"}
	}
	tok.ExpiresIn = lifetime
	return tok, nil
}

// failureFromBody prefers the provider's "error" field as the message.
func failureFromBody(status int, body []byte) *AcquireError {
	var f tokenFailure
	if err := json.Unmarshal(body, &f); err == nil && f.Error != "" {
		return &AcquireError{Status: status, Message: f.Error, Description: f.ErrorDescription}
	}
	return &AcquireError{
		Status:  status,
		Message: fmt.Sprintf("token request failed with status %d", status),
	}
}

func buildTokenURL(endpoint, path string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if base == "" {
		return "", fmt.Errorf("identity provider endpoint is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid identity provider endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid identity provider endpoint %q: scheme and host are required", endpoint)
	}
	return base + path, nil
}
