// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vmsbridge/internal/gateway"
	"github.com/tomtom215/vmsbridge/internal/metrics"
)

type nopRecorder struct{}

func (nopRecorder) Record(metrics.Status, float64) {}

// fakeGateway serves canned REST and GraphQL responses and remembers the
// last request.
type fakeGateway struct {
	mu     sync.Mutex
	routes map[string]fakeRoute

	lastAuth string
	lastBody map[string]any
	lastURL  string
}

type fakeRoute struct {
	status int
	body   string
}

func newFakeGateway(t *testing.T, routes map[string]fakeRoute) (*fakeGateway, *httptest.Server) {
	t.Helper()
	fg := &fakeGateway{routes: routes}
	srv := httptest.NewServer(fg)
	t.Cleanup(srv.Close)
	return fg, srv
}

func (f *fakeGateway) auth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

func (f *fakeGateway) url() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastURL
}

func (f *fakeGateway) body(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, _ := f.lastBody[key].(string)
	return v
}

func (f *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.lastAuth = r.Header.Get("Authorization")
	f.lastURL = r.URL.String()
	f.lastBody = nil
	if b, _ := io.ReadAll(r.Body); len(b) > 0 {
		_ = json.Unmarshal(b, &f.lastBody)
	}
	route, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(route.status)
	_, _ = w.Write([]byte(route.body))
}

func newTestService(t *testing.T, srvURL string, tokens Tokens) *Service {
	t.Helper()
	exec := gateway.NewExecutor(nopRecorder{}, gateway.Options{})
	return NewService(exec, tokens, ServiceConfig{
		GraphQLURL: srvURL + "/api/bridge/graphql",
		RESTURL:    srvURL,
	})
}

func TestService_GraphQLWithoutIdentityProvider(t *testing.T) {
	t.Parallel()
	fg, srv := newFakeGateway(t, map[string]fakeRoute{
		"POST /api/bridge/graphql": {http.StatusOK, `{"data":{"cameras":[]}}`},
	})
	svc := newTestService(t, srv.URL, nil)

	data, err := svc.Cameras(context.Background())
	checkNoError(t, err)
	if _, ok := data["cameras"]; !ok {
		t.Errorf("Cameras() = %v, want cameras member", data)
	}
	checkStringEqual(t, "Authorization", fg.auth(), "")
	checkStringEqual(t, "query", fg.body("query"), gateway.CamerasQuery)
}

func TestService_VMSInfoGraphQLError(t *testing.T) {
	t.Parallel()
	_, srv := newFakeGateway(t, map[string]fakeRoute{
		"POST /api/bridge/graphql": {http.StatusOK, `{"errors":[{"message":"boom"}]}`},
	})
	svc := newTestService(t, srv.URL, nil)

	_, err := svc.VMSInfo(context.Background())
	var f *gateway.Failure
	if !errors.As(err, &f) {
		t.Fatalf("VMSInfo() error = %v, want *gateway.Failure", err)
	}
	checkStringEqual(t, "kind", string(f.Kind), string(gateway.KindGraphQL))
}

func TestService_SendsBearerToken(t *testing.T) {
	t.Parallel()
	fg, srv := newFakeGateway(t, map[string]fakeRoute{
		"GET /api/rest/v1/cameras": {http.StatusOK, `{"array":[{"id":"c1","displayName":"Lobby","enabled":true,"channel":2}]}`},
	})
	acq := &stubAcquirer{lifetime: time.Hour}
	svc := newTestService(t, srv.URL, newTestSource(acq, 0, 0))

	cams, err := svc.EnabledCameras(context.Background())
	checkNoError(t, err)
	checkIntEqual(t, "cameras", len(cams), 1)
	checkStringEqual(t, "camera name", cams[0].Name, "Lobby")
	checkIntEqual(t, "camera channel", cams[0].Channel, 2)
	checkStringEqual(t, "Authorization", fg.auth(), "Bearer token-1")
}

func TestService_UserDefinedEventLifecycle(t *testing.T) {
	t.Parallel()
	const id = "3f2a"
	fg, srv := newFakeGateway(t, map[string]fakeRoute{
		"POST /api/rest/v1/userDefinedEvents":        {http.StatusCreated, `{"result":{"id":"3f2a","name":"Door"}}`},
		"GET /api/rest/v1/userDefinedEvents/3f2a":    {http.StatusOK, `{"data":{"id":"3f2a","name":"Door"}}`},
		"PUT /api/rest/v1/userDefinedEvents/3f2a":    {http.StatusOK, `{"data":{"id":"3f2a","name":"Gate"}}`},
		"DELETE /api/rest/v1/userDefinedEvents/3f2a": {http.StatusOK, `{"state":"deleted"}`},
	})
	svc := newTestService(t, srv.URL, nil)
	ctx := context.Background()

	created, err := svc.CreateUserDefinedEvent(ctx, "Door")
	checkNoError(t, err)
	checkStringEqual(t, "created id", created["id"].(string), id)
	checkStringEqual(t, "create body name", fg.body("name"), "Door")

	got, err := svc.GetUserDefinedEvent(ctx, id)
	checkNoError(t, err)
	checkStringEqual(t, "get name", got["name"].(string), "Door")

	updated, err := svc.UpdateUserDefinedEvent(ctx, id, "Gate")
	checkNoError(t, err)
	checkStringEqual(t, "updated name", updated["name"].(string), "Gate")

	deleted, err := svc.DeleteUserDefinedEvent(ctx, id)
	checkNoError(t, err)
	checkStringEqual(t, "delete state", deleted["state"].(string), "deleted")
}

func TestService_ListUserDefinedEventsExcludesBuiltIns(t *testing.T) {
	t.Parallel()
	_, srv := newFakeGateway(t, map[string]fakeRoute{
		"GET /api/rest/v1/userDefinedEvents": {http.StatusOK, `{"array":[
			{"id":"85867627-b287-4439-9e55-a63701e1715b","name":"RequestPlayAudioMessage"},
			{"id":"77b1e70d-ba8d-4bb8-9ee8-43b09746d82a","name":"RequestStartRecording"},
			{"id":"7605f8b0-7f5f-4432-b223-0bb2dc3f1f5c","name":"RequestStopRecording"},
			{"id":"custom-1","name":"Door"}
		]}`},
	})
	svc := newTestService(t, srv.URL, nil)

	events, err := svc.ListUserDefinedEvents(context.Background())
	checkNoError(t, err)
	checkIntEqual(t, "events", len(events), 1)
	checkStringEqual(t, "remaining id", events[0]["id"].(string), "custom-1")
}

func TestService_TriggerAndReadEvents(t *testing.T) {
	t.Parallel()
	fg, srv := newFakeGateway(t, map[string]fakeRoute{
		"POST /api/rest/v1/events":   {http.StatusAccepted, `{"data":{"id":"e1","type":"custom-1"}}`},
		"GET /api/rest/v1/events":    {http.StatusOK, `{"array":[{"id":"e0"},{"id":"e1"}]}`},
		"GET /api/rest/v1/events/e1": {http.StatusOK, `{"data":{"id":"e1","type":"custom-1"}}`},
	})
	svc := newTestService(t, srv.URL, nil)
	ctx := context.Background()

	ev, err := svc.TriggerEvent(ctx, "custom-1")
	checkNoError(t, err)
	checkStringEqual(t, "triggered id", ev["id"].(string), "e1")
	checkStringEqual(t, "trigger body type", fg.body("type"), "custom-1")

	list, err := svc.ListEvents(ctx, 0, 10)
	checkNoError(t, err)
	checkIntEqual(t, "events", len(list), 2)
	checkStringEqual(t, "list url", fg.url(), "/api/rest/v1/events?include=data&page=0&size=10")

	one, err := svc.GetEvent(ctx, "e1")
	checkNoError(t, err)
	checkStringEqual(t, "event type", one["type"].(string), "custom-1")
}

func TestService_TriggerEventUnexpectedStatus(t *testing.T) {
	t.Parallel()
	_, srv := newFakeGateway(t, map[string]fakeRoute{
		"POST /api/rest/v1/events": {http.StatusOK, `{"data":{"id":"e1"}}`},
	})
	svc := newTestService(t, srv.URL, nil)

	_, err := svc.TriggerEvent(context.Background(), "custom-1")
	var statusErr *UnexpectedStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("TriggerEvent() error = %v, want UnexpectedStatusError", err)
	}
	checkIntEqual(t, "want", statusErr.Want, http.StatusAccepted)
	checkIntEqual(t, "got", statusErr.Got, http.StatusOK)
}

func TestService_UnauthorizedInvalidatesToken(t *testing.T) {
	t.Parallel()
	_, srv := newFakeGateway(t, map[string]fakeRoute{
		"GET /api/rest/v1/analyticsEvents": {http.StatusUnauthorized, `{"error":"token expired"}`},
	})
	acq := &stubAcquirer{lifetime: time.Hour}
	src := newTestSource(acq, 0, 0)
	svc := newTestService(t, srv.URL, src)

	_, err := svc.AnalyticEventTypes(context.Background())
	var f *gateway.Failure
	if !errors.As(err, &f) {
		t.Fatalf("AnalyticEventTypes() error = %v, want *gateway.Failure", err)
	}
	checkStringEqual(t, "kind", string(f.Kind), string(gateway.KindHTTP))
	checkStringEqual(t, "message", f.Message, "token expired")
	if src.Current() != nil {
		t.Error("token should be dropped after a 401")
	}
	checkIntEqual(t, "acquire calls", int(acq.calls.Load()), 1)
}

func TestService_TokenFailureSkipsGateway(t *testing.T) {
	t.Parallel()
	fg, srv := newFakeGateway(t, map[string]fakeRoute{})
	acq := &stubAcquirer{err: errors.New("idp down")}
	svc := newTestService(t, srv.URL, newTestSource(acq, 0, 0))

	_, err := svc.EnabledCameras(context.Background())
	if err == nil {
		t.Fatal("expected error when no token can be obtained")
	}
	checkStringEqual(t, "gateway hit", fg.url(), "")
}

func TestService_AnalyticEventTypes(t *testing.T) {
	t.Parallel()
	_, srv := newFakeGateway(t, map[string]fakeRoute{
		"GET /api/rest/v1/analyticsEvents": {http.StatusOK, `{"array":[{"id":"a1","displayName":"Motion","sourceArray":["c1"]}]}`},
	})
	svc := newTestService(t, srv.URL, nil)

	types, err := svc.AnalyticEventTypes(context.Background())
	checkNoError(t, err)
	checkIntEqual(t, "types", len(types), 1)
	checkStringEqual(t, "name", types[0].Name, "Motion")
	checkIntEqual(t, "sources", len(types[0].Sources), 1)
}

func TestService_Discover(t *testing.T) {
	t.Parallel()
	_, srv := newFakeGateway(t, map[string]fakeRoute{
		"GET /api/.well-known/uris": {http.StatusOK, `{"ProductVersion":"24.1","ApiGateways":["https://mgmt/api/"]}`},
	})
	svc := newTestService(t, srv.URL, nil)

	uris, err := svc.Discover(context.Background())
	checkNoError(t, err)
	checkStringEqual(t, "version", uris.ProductVersion, "24.1")
	checkIntEqual(t, "gateways", len(uris.APIGateways), 1)
}

func TestService_NoRESTGateway(t *testing.T) {
	t.Parallel()
	svc := NewService(gateway.NewExecutor(nopRecorder{}, gateway.Options{}), nil, ServiceConfig{})
	if _, err := svc.EnabledCameras(context.Background()); !errors.Is(err, ErrNoRESTGateway) {
		t.Errorf("EnabledCameras() error = %v, want ErrNoRESTGateway", err)
	}
}

func TestService_DiscoverCached(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ProductVersion":"24.1"}`))
	}))
	t.Cleanup(srv.Close)

	exec := gateway.NewExecutor(nopRecorder{}, gateway.Options{})
	svc := NewService(exec, nil, ServiceConfig{RESTURL: srv.URL, DiscoveryTTL: time.Minute})

	if _, err := svc.Discover(context.Background()); err == nil {
		t.Fatal("first Discover() should fail on 503")
	}
	for i := 0; i < 3; i++ {
		uris, err := svc.Discover(context.Background())
		checkNoError(t, err)
		checkStringEqual(t, "version", uris.ProductVersion, "24.1")
	}
	checkIntEqual(t, "upstream hits", int(hits.Load()), 2)
}
