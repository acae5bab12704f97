// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/vmsbridge/internal/httpclient"
	"github.com/tomtom215/vmsbridge/internal/metrics"
)

func newBreakerExecutor(rec Recorder) *Executor {
	return NewExecutor(rec, Options{
		HTTP: httpclient.Options{Timeout: 5 * time.Second},
		Breaker: &BreakerConfig{
			MaxRequests:  1,
			Interval:     time.Minute,
			Timeout:      time.Minute,
			MinRequests:  2,
			FailureRatio: 0.5,
		},
	})
}

func TestBreaker_OpensOnServerErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"error":"upstream down"}`)
	}))
	t.Cleanup(server.Close)

	rec := &fakeRecorder{}
	exec := newBreakerExecutor(rec)
	checkStringEqual(t, "initial state", exec.BreakerState(), "closed")

	for i := 0; i < 2; i++ {
		out := exec.Execute(context.Background(), server.URL, QuerySpec{Query: "{ x }"}, testToken)
		checkKind(t, out, KindHTTP)
		checkIntEqual(t, "status", out.Failure.StatusCode, http.StatusBadGateway)
	}
	checkStringEqual(t, "state after failures", exec.BreakerState(), "open")

	out := exec.Execute(context.Background(), server.URL, QuerySpec{Query: "{ x }"}, testToken)
	checkKind(t, out, KindTransport)
	checkTrue(t, "open state wrapped", errors.Is(out.Failure, gobreaker.ErrOpenState))
	checkIntEqual(t, "upstream hits", int(hits.Load()), 2)

	// Rejected calls are still recorded.
	samples := rec.all()
	checkIntEqual(t, "samples", len(samples), 3)
	for _, s := range samples {
		if s.status != metrics.StatusFailure {
			t.Errorf("sample status: expected %s, got %s", metrics.StatusFailure, s.status)
		}
	}
}

func TestBreaker_IgnoresClientErrors(t *testing.T) {
	t.Parallel()

	server := jsonServer(t, http.StatusNotFound, `{"error":"no such camera"}`)
	exec := newBreakerExecutor(&fakeRecorder{})

	for i := 0; i < 5; i++ {
		out := exec.Execute(context.Background(), server.URL, QuerySpec{Query: "{ x }"}, testToken)
		checkKind(t, out, KindHTTP)
	}
	checkStringEqual(t, "state", exec.BreakerState(), "closed")
}

func TestBreaker_Disabled(t *testing.T) {
	t.Parallel()
	checkStringEqual(t, "state", newTestExecutor(&fakeRecorder{}).BreakerState(), "")
}
