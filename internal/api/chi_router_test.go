// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/vmsbridge/internal/events"
	"github.com/tomtom215/vmsbridge/internal/metrics"
	"github.com/tomtom215/vmsbridge/internal/middleware"
	ws "github.com/tomtom215/vmsbridge/internal/websocket"
)

func TestRouter_RequestIDEchoed(t *testing.T) {
	t.Parallel()
	router := newTestRouter(Dependencies{Service: &fakeService{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	checkStatus(t, rec, http.StatusOK)
	checkStringEqual(t, "header", rec.Header().Get(middleware.RequestIDHeader), "req-123")
	checkStringEqual(t, "metadata", decodeEnvelope(t, rec).Metadata.RequestID, "req-123")
}

func TestRouter_SecurityHeaders(t *testing.T) {
	t.Parallel()
	router := newTestRouter(Dependencies{Service: &fakeService{}})

	for _, path := range []string{"/api/get-server-status", "/api/v1/health/live", "/api/v1/cameras"} {
		rec := do(t, router, http.MethodGet, path, "")
		checkStringEqual(t, path+" nosniff", rec.Header().Get("X-Content-Type-Options"), "nosniff")
		checkStringEqual(t, path+" frame", rec.Header().Get("X-Frame-Options"), "DENY")
		checkStringEqual(t, path+" cache", rec.Header().Get("Cache-Control"), "no-store")
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	t.Parallel()
	mw := NewChiMiddlewareFromSecurity([]string{"https://ops.example"}, 0, 0, true)
	router := NewRouter(NewHandler(Dependencies{Service: &fakeService{}}), mw, nil).SetupChi()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/events", nil)
	req.Header.Set("Origin", "https://ops.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	checkStringEqual(t, "allow origin", rec.Header().Get("Access-Control-Allow-Origin"), "https://ops.example")
}

func TestRouter_RateLimit(t *testing.T) {
	t.Parallel()
	mw := NewChiMiddlewareFromSecurity(nil, 2, time.Minute, false)
	router := NewRouter(NewHandler(Dependencies{Service: &fakeService{}}), mw, nil).SetupChi()

	for i := 0; i < 2; i++ {
		checkStatus(t, do(t, router, http.MethodGet, "/api/v1/cameras", ""), http.StatusOK)
	}
	checkStatus(t, do(t, router, http.MethodGet, "/api/v1/cameras", ""), http.StatusTooManyRequests)

	// Health has its own, larger budget.
	checkStatus(t, do(t, router, http.MethodGet, "/api/v1/health/live", ""), http.StatusOK)
}

func TestRouter_Metrics(t *testing.T) {
	t.Parallel()
	rec := metrics.NewRecorder(metrics.NewRegistry())
	mw := NewChiMiddlewareFromSecurity(nil, 0, 0, true)
	router := NewRouter(NewHandler(Dependencies{Service: &fakeService{}}), mw, rec).SetupChi()

	checkStatus(t, do(t, router, http.MethodGet, "/api/v1/events/evt-1", ""), http.StatusOK)
	checkStatus(t, do(t, router, http.MethodGet, "/api/v1/events/evt-2", ""), http.StatusOK)
	checkStatus(t, do(t, router, http.MethodGet, "/nope", ""), http.StatusNotFound)

	got := testutil.ToFloat64(rec.APIRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/events/{id}", "200"))
	if got != 2 {
		t.Errorf("api_requests_total for /api/v1/events/{id}: expected 2, got %v", got)
	}
	got = testutil.ToFloat64(rec.APIRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404"))
	if got != 1 {
		t.Errorf("api_requests_total for unmatched: expected 1, got %v", got)
	}

	exposition := do(t, router, http.MethodGet, "/metrics", "")
	checkStatus(t, exposition, http.StatusOK)
	if !strings.Contains(exposition.Body.String(), "api_requests_total") {
		t.Error("/metrics should expose api_requests_total")
	}
}

func TestRouter_CompressesResponses(t *testing.T) {
	t.Parallel()
	router := newTestRouter(Dependencies{Service: &fakeService{}})

	req := httptest.NewRequest(http.MethodGet, "/api/get-server-status", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	checkStatus(t, rec, http.StatusOK)
	checkStringEqual(t, "encoding", rec.Header().Get("Content-Encoding"), "gzip")
}

func TestRouter_WebSocketUnavailableWithoutHub(t *testing.T) {
	t.Parallel()
	rec := do(t, newTestRouter(Dependencies{Service: &fakeService{}}), http.MethodGet, "/api/v1/ws", "")
	checkStatus(t, rec, http.StatusServiceUnavailable)
	checkErrorCode(t, rec, "SERVICE_UNAVAILABLE")
}

func TestRouter_WebSocketRelaysEvents(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.RunWithContext(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	rec := metrics.NewRecorder(metrics.NewRegistry())
	mw := NewChiMiddlewareFromSecurity([]string{"http://ops.local"}, 0, 0, true)
	router := NewRouter(NewHandler(Dependencies{
		Service: &fakeService{},
		Hub:     hub,
		Config:  HandlerConfig{CORSOrigins: []string{"http://ops.local"}},
	}), mw, rec).SetupChi()
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	header := http.Header{}
	header.Set("Origin", "http://ops.local")
	header.Set("Accept-Encoding", "gzip")
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws", header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	deadline := time.Now().Add(time.Second)
	for hub.GetClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.GetClientCount() != 1 {
		t.Fatalf("client count = %d, want 1", hub.GetClientCount())
	}

	hub.BroadcastEvents([]events.Event{{ID: "e-1", Type: "motion", Source: "cameras/cam-1"}})

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg struct {
		Type string       `json:"type"`
		Data events.Event `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	checkStringEqual(t, "type", msg.Type, ws.MessageTypeVMSEvent)
	checkStringEqual(t, "event id", msg.Data.ID, "e-1")
}

func TestRouter_WebSocketRejectsOrigin(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()
	router := newTestRouter(Dependencies{
		Service: &fakeService{},
		Hub:     hub,
		Config:  HandlerConfig{CORSOrigins: []string{"http://ops.local"}},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	header := http.Header{}
	header.Set("Origin", "http://evil.local")
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws", header)
	if conn != nil {
		_ = conn.Close()
	}
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp)
	}
	_ = resp.Body.Close()
}
