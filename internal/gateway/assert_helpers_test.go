// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package gateway

import "testing"

// checkStringEqual checks that two strings are equal
func checkStringEqual(t *testing.T, fieldName, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %q, got %q", fieldName, want, got)
	}
}

// checkIntEqual checks that two ints are equal
func checkIntEqual(t *testing.T, fieldName string, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %d, got %d", fieldName, want, got)
	}
}

// checkKind checks the failure kind of an outcome
func checkKind(t *testing.T, out Outcome, want FailureKind) {
	t.Helper()
	if out.Failure == nil {
		t.Fatalf("expected %s failure, got success with data %v", want, out.Data)
	}
	if out.Failure.Kind != want {
		t.Errorf("failure kind: expected %s, got %s (%s)", want, out.Failure.Kind, out.Failure.Message)
	}
}

// checkOK fails the test immediately if the outcome is a failure
func checkOK(t *testing.T, out Outcome) {
	t.Helper()
	if out.Failure != nil {
		t.Fatalf("unexpected failure: %v", out.Failure)
	}
}

// checkTrue checks that condition holds
func checkTrue(t *testing.T, description string, condition bool) {
	t.Helper()
	if !condition {
		t.Errorf("expected %s to be true", description)
	}
}
