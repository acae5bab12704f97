// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package logging

import (
	"net/url"
	"strings"
)

// SanitizeToken masks a token, showing only the first and last 4 characters.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeSecret reports only whether a secret is set.
func SanitizeSecret(secret string) string {
	if secret == "" {
		return "<unset>"
	}
	return "<set>"
}

// SanitizeURL strips user info from a URL so it can be logged or returned by
// the configuration endpoint.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = nil
	return u.String()
}

// SanitizeValue masks value when key names a credential.
func SanitizeValue(key, value string) string {
	switch strings.ToLower(key) {
	case "access_token", "token", "authorization", "bearer":
		return SanitizeToken(value)
	case "password", "client_secret", "secret":
		return SanitizeSecret(value)
	default:
		return value
	}
}
