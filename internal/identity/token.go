// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrOpaqueToken is returned by Claims when the access token is not a JWT.
var ErrOpaqueToken = errors.New("access token is not a JWT")

// AccessToken is a bearer token issued by the identity provider. Values are
// never modified after Acquire returns them.
type AccessToken struct {
	// Value is the opaque bearer string.
	Value string

	// ExpiresIn is the lifetime reported by the provider.
	ExpiresIn time.Duration

	// TokenType is usually "Bearer".
	TokenType string

	// Scope is the granted scope, if reported.
	Scope string

	// IssuedAt is the local time the token response was received.
	IssuedAt time.Time
}

// ExpiresAt returns the local expiry instant.
func (t *AccessToken) ExpiresAt() time.Time {
	return t.IssuedAt.Add(t.ExpiresIn)
}

// Expired reports whether the token is expired at now, treating it as
// expired skew early.
func (t *AccessToken) Expired(now time.Time, skew time.Duration) bool {
	if t == nil || t.Value == "" {
		return true
	}
	return !now.Before(t.ExpiresAt().Add(-skew))
}

// AuthorizationHeader returns the value for the Authorization header.
func (t *AccessToken) AuthorizationHeader() string {
	return "Bearer " + t.Value
}

// String masks the token so it can be logged.
func (t *AccessToken) String() string {
	if t == nil {
		return "<nil>"
	}
	if len(t.Value) <= 12 {
		return "***"
	}
	return t.Value[:4] + "..." + t.Value[len(t.Value)-4:]
}

// Claims decodes the registered JWT claims without verifying the signature.
// The claims are only used for logging and as the expiry of last resort.
func (t *AccessToken) Claims() (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(t.Value, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpaqueToken, err)
	}
	return claims, nil
}

// lifetimeFromClaims returns the time from IssuedAt to the JWT exp claim.
func (t *AccessToken) lifetimeFromClaims() (time.Duration, bool) {
	claims, err := t.Claims()
	if err != nil || claims.ExpiresAt == nil {
		return 0, false
	}
	return claims.ExpiresAt.Time.Sub(t.IssuedAt), true
}
