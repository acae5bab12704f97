// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

// Package httpclient builds the outbound HTTP transport shared by the
// identity and gateway clients. Every timeout is explicit and TLS
// verification is a per-client decision rather than a process default.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// Options configures outbound connections.
type Options struct {
	// Timeout bounds the whole exchange including reading the body.
	Timeout time.Duration

	// DialTimeout bounds TCP connection establishment.
	DialTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake.
	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers after the
	// request has been written.
	ResponseHeaderTimeout time.Duration

	// InsecureSkipVerify disables server certificate verification. Management
	// servers frequently run with self-signed certificates.
	InsecureSkipVerify bool
}

// DefaultOptions returns the timeouts used when none are configured.
func DefaultOptions() Options {
	return Options{
		Timeout:               30 * time.Second,
		DialTimeout:           10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
}

// withDefaults fills zero durations from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = d.DialTimeout
	}
	if o.TLSHandshakeTimeout <= 0 {
		o.TLSHandshakeTimeout = d.TLSHandshakeTimeout
	}
	if o.ResponseHeaderTimeout <= 0 {
		o.ResponseHeaderTimeout = d.ResponseHeaderTimeout
	}
	return o
}

// NewTransport returns a transport honouring opts.
func NewTransport(opts Options) *http.Transport {
	opts = opts.withDefaults()

	dialer := &net.Dialer{
		Timeout:   opts.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   opts.TLSHandshakeTimeout,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // operator opt-in for self-signed management servers
		},
	}
}

// NewHTTP1Transport returns a transport like NewTransport that never
// negotiates HTTP/2. NTLM authenticates the connection, which HTTP/2
// multiplexing breaks.
func NewHTTP1Transport(opts Options) *http.Transport {
	t := NewTransport(opts)
	t.ForceAttemptHTTP2 = false
	t.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	return t
}

// New returns a client using a fresh transport built from opts.
func New(opts Options) *http.Client {
	opts = opts.withDefaults()
	return &http.Client{
		Transport: NewTransport(opts),
		Timeout:   opts.Timeout,
	}
}

// EffectiveTimeout returns the overall timeout after defaults are applied.
func (o Options) EffectiveTimeout() time.Duration {
	return o.withDefaults().Timeout
}
