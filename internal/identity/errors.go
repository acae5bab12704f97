// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package identity

import "fmt"

// AcquireError reports a failed token exchange.
type AcquireError struct {
	// Status is the HTTP status of the provider response, or 0 when the
	// provider could not be reached or the request could not be built.
	Status int

	// Message is the provider's "error" field when present, otherwise a
	// description of the failure.
	Message string

	// Description carries "error_description" when the provider sends it.
	Description string

	// Err is the underlying cause for transport failures.
	Err error
}

func (e *AcquireError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("token request failed: %s", e.Message)
	}
	return fmt.Sprintf("token request failed with status %d: %s", e.Status, e.Message)
}

func (e *AcquireError) Unwrap() error {
	return e.Err
}
