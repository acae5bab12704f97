// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package gateway

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// FailureKind classifies a failed call.
type FailureKind string

const (
	KindTransport   FailureKind = "transport-error"
	KindHTTP        FailureKind = "http-error"
	KindGraphQL     FailureKind = "graphql-error"
	KindMissingData FailureKind = "missing-data"
)

// GraphQLError is one entry of a GraphQL "errors" list.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Locations  []Location     `json:"locations,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Location points into the query document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Failure describes why a call did not produce data. It implements error so
// callers can return it directly.
type Failure struct {
	Kind    FailureKind
	Message string

	// StatusCode is the HTTP status, 0 for transport errors.
	StatusCode int

	// Body is the decoded response body when it was JSON, otherwise the raw
	// text (truncated). Nil for transport errors.
	Body any

	// Errors holds the GraphQL error list for KindGraphQL.
	Errors []GraphQLError

	// Err is the underlying cause for transport errors.
	Err error
}

func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", f.Kind, f.StatusCode, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Outcome is the result of one executor call. Exactly one of Data and
// Failure is meaningful: Failure is nil on success.
type Outcome struct {
	Data    map[string]any
	Failure *Failure

	// StatusCode is the HTTP status when a response was received.
	StatusCode int

	// Duration is the time from request start to classification, as
	// recorded in the query histogram.
	Duration time.Duration
}

// OK reports whether the call succeeded.
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// Err returns the failure as an error, or nil on success.
func (o Outcome) Err() error {
	if o.Failure == nil {
		return nil
	}
	return o.Failure
}

// Decode converts the success data into v.
func (o Outcome) Decode(v any) error {
	if o.Failure != nil {
		return o.Failure
	}
	b, err := json.Marshal(o.Data)
	if err != nil {
		return fmt.Errorf("failed to re-encode outcome data: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode outcome data: %w", err)
	}
	return nil
}

// DecodeField converts one member of the success data into v, e.g. the
// "array" member of REST list responses.
func (o Outcome) DecodeField(field string, v any) error {
	if o.Failure != nil {
		return o.Failure
	}
	raw, ok := o.Data[field]
	if !ok {
		return &Failure{Kind: KindMissingData, Message: fmt.Sprintf("response has no %q member", field), StatusCode: o.StatusCode}
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to re-encode %q: %w", field, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode %q: %w", field, err)
	}
	return nil
}

func success(data map[string]any, status int) Outcome {
	return Outcome{Data: data, StatusCode: status}
}

func failed(f *Failure) Outcome {
	return Outcome{Failure: f, StatusCode: f.StatusCode}
}
