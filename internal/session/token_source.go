// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/vmsbridge/internal/identity"
	"github.com/tomtom215/vmsbridge/internal/logging"
)

// ErrRenewThrottled is returned when a renewal is retried too soon after a
// failed attempt. It wraps the last acquisition error.
var ErrRenewThrottled = errors.New("token renewal throttled")

// ErrNoIdentityProvider is returned by Token when no endpoint is configured.
var ErrNoIdentityProvider = errors.New("no identity provider configured")

// Acquirer obtains tokens from an identity provider.
type Acquirer interface {
	Acquire(ctx context.Context, endpoint string, cred identity.Credential) (*identity.AccessToken, error)
}

// TokenSourceConfig configures a TokenSource.
type TokenSourceConfig struct {
	// Endpoint is the identity provider base URL.
	Endpoint string

	// Credential is presented on every acquisition.
	Credential identity.Credential

	// Skew renews the token this long before it expires.
	Skew time.Duration

	// MinRenewInterval is the minimum spacing between a failed acquisition
	// and the next attempt. Zero disables throttling.
	MinRenewInterval time.Duration
}

// TokenSource owns the current token for one credential and endpoint. It
// hands out the cached token while valid and acquires a new one when the
// token is missing or about to expire. Concurrent callers share a single
// acquisition.
type TokenSource struct {
	acquirer Acquirer
	cfg      TokenSourceConfig
	limiter  *rate.Limiter
	now      func() time.Time

	mu      sync.Mutex
	current *identity.AccessToken
	lastErr error
}

// NewTokenSource creates a TokenSource.
func NewTokenSource(acquirer Acquirer, cfg TokenSourceConfig) *TokenSource {
	limit := rate.Inf
	if cfg.MinRenewInterval > 0 {
		limit = rate.Every(cfg.MinRenewInterval)
	}
	return &TokenSource{
		acquirer: acquirer,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 1),
		now:      time.Now,
	}
}

// Configured reports whether the source has an endpoint to acquire from.
func (s *TokenSource) Configured() bool {
	return s != nil && s.cfg.Endpoint != "" && s.cfg.Credential != nil
}

// Token returns a valid token, acquiring a new one when needed. The returned
// token is shared and must not be modified.
func (s *TokenSource) Token(ctx context.Context) (*identity.AccessToken, error) {
	if !s.Configured() {
		return nil, ErrNoIdentityProvider
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Checked under the lock so that callers queued behind an acquisition
	// reuse its result.
	if !s.current.Expired(s.now(), s.cfg.Skew) {
		return s.current, nil
	}

	// Every attempt takes from the limiter but only a retry after a failure
	// waits for it. A token dropped by Invalidate is replaced at once.
	allowed := s.limiter.Allow()
	if s.lastErr != nil && !allowed {
		return nil, fmt.Errorf("%w: %w", ErrRenewThrottled, s.lastErr)
	}

	tok, err := s.acquirer.Acquire(ctx, s.cfg.Endpoint, s.cfg.Credential)
	if err != nil {
		s.lastErr = err
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("flow", string(s.cfg.Credential.Flow())).
			Msg("Token acquisition failed")
		return nil, err
	}

	s.current = tok
	s.lastErr = nil

	event := logging.Ctx(ctx).Info().
		Str("flow", string(s.cfg.Credential.Flow())).
		Stringer("token", tok).
		Time("expires_at", tok.ExpiresAt())
	// Opaque tokens carry no claims
	if claims, err := tok.Claims(); err == nil {
		event = event.Str("subject", claims.Subject)
		if claims.ExpiresAt != nil {
			event = event.Time("exp", claims.ExpiresAt.Time)
		}
	}
	event.Msg("Access token renewed")
	return tok, nil
}

// Invalidate drops the cached token so the next Token call acquires a new
// one. Used after the gateway rejects a token.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Current returns the cached token without renewing it, or nil.
func (s *TokenSource) Current() *identity.AccessToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
