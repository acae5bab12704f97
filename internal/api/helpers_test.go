// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vmsbridge/internal/gateway"
	"github.com/tomtom215/vmsbridge/internal/identity"
	"github.com/tomtom215/vmsbridge/internal/logging"
	"github.com/tomtom215/vmsbridge/internal/models"
	"github.com/tomtom215/vmsbridge/internal/session"
)

//nolint:gochecknoinits // quiet logs for all tests in the package
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

// fakeService records calls and returns canned results. err, when set, is
// returned by every method.
type fakeService struct {
	mu    sync.Mutex
	calls []string
	args  []string
	err   error

	about    map[string]any
	cameras  map[string]any
	resource session.Resource
	list     []session.Resource
}

func (f *fakeService) record(name string, args ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	f.args = append(f.args, strings.Join(args, ","))
}

func (f *fakeService) lastCall() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return "", ""
	}
	return f.calls[len(f.calls)-1], f.args[len(f.args)-1]
}

func (f *fakeService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeService) VMSInfo(context.Context) (map[string]any, error) {
	f.record("VMSInfo")
	return f.about, f.err
}

func (f *fakeService) Cameras(context.Context) (map[string]any, error) {
	f.record("Cameras")
	return f.cameras, f.err
}

func (f *fakeService) Discover(context.Context) (*gateway.WellKnownURIs, error) {
	f.record("Discover")
	if f.err != nil {
		return nil, f.err
	}
	return &gateway.WellKnownURIs{ProductVersion: "24.2", IdentityProvider: "https://mgmt/IDP"}, nil
}

func (f *fakeService) CreateUserDefinedEvent(_ context.Context, name string) (session.Resource, error) {
	f.record("CreateUserDefinedEvent", name)
	return f.resource, f.err
}

func (f *fakeService) GetUserDefinedEvent(_ context.Context, id string) (session.Resource, error) {
	f.record("GetUserDefinedEvent", id)
	return f.resource, f.err
}

func (f *fakeService) UpdateUserDefinedEvent(_ context.Context, id, name string) (session.Resource, error) {
	f.record("UpdateUserDefinedEvent", id, name)
	return f.resource, f.err
}

func (f *fakeService) DeleteUserDefinedEvent(_ context.Context, id string) (session.Resource, error) {
	f.record("DeleteUserDefinedEvent", id)
	return f.resource, f.err
}

func (f *fakeService) ListUserDefinedEvents(context.Context) ([]session.Resource, error) {
	f.record("ListUserDefinedEvents")
	return f.list, f.err
}

func (f *fakeService) TriggerEvent(_ context.Context, typeID string) (session.Resource, error) {
	f.record("TriggerEvent", typeID)
	return f.resource, f.err
}

func (f *fakeService) ListEvents(_ context.Context, page, size int) ([]session.Resource, error) {
	f.record("ListEvents", strconv.Itoa(page), strconv.Itoa(size))
	return f.list, f.err
}

func (f *fakeService) GetEvent(_ context.Context, id string) (session.Resource, error) {
	f.record("GetEvent", id)
	return f.resource, f.err
}

func (f *fakeService) EnabledCameras(context.Context) ([]session.Camera, error) {
	f.record("EnabledCameras")
	if f.err != nil {
		return nil, f.err
	}
	return []session.Camera{{ID: "cam-1", Name: "Lobby", Enabled: true}}, nil
}

func (f *fakeService) AnalyticEventTypes(context.Context) ([]session.AnalyticEventType, error) {
	f.record("AnalyticEventTypes")
	if f.err != nil {
		return nil, f.err
	}
	return []session.AnalyticEventType{{ID: "evt-1", Name: "Motion"}}, nil
}

// fakeTokens is a TokenProvider.
type fakeTokens struct {
	configured bool
	err        error
}

func (f *fakeTokens) Configured() bool { return f.configured }

func (f *fakeTokens) Token(context.Context) (*identity.AccessToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &identity.AccessToken{Value: "t", ExpiresIn: time.Hour, IssuedAt: time.Now()}, nil
}

type fakeBreaker string

func (f fakeBreaker) BreakerState() string { return string(f) }

type fakeRelay bool

func (f fakeRelay) Connected() bool { return bool(f) }

// newTestRouter builds the full router around deps with rate limiting off.
func newTestRouter(deps Dependencies) http.Handler {
	mw := NewChiMiddlewareFromSecurity([]string{"*"}, 0, 0, true)
	return NewRouter(NewHandler(deps), mw, nil).SetupChi()
}

// do sends one request through h.
func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decodeEnvelope parses an APIResponse body.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func checkStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status: expected %d, got %d (body %s)", want, rec.Code, rec.Body.String())
	}
}

func checkStringEqual(t *testing.T, fieldName, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %q, got %q", fieldName, want, got)
	}
}

func checkErrorCode(t *testing.T, rec *httptest.ResponseRecorder, want string) models.APIResponse {
	t.Helper()
	resp := decodeEnvelope(t, rec)
	checkStringEqual(t, "envelope status", resp.Status, "error")
	if resp.Error == nil {
		t.Fatalf("expected error body, got %s", rec.Body.String())
	}
	checkStringEqual(t, "error code", resp.Error.Code, want)
	return resp
}

var errBoom = errors.New("boom")
