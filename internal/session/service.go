// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/vmsbridge/internal/cache"
	"github.com/tomtom215/vmsbridge/internal/gateway"
	"github.com/tomtom215/vmsbridge/internal/identity"
)

// Gateway is the subset of the executor used by Service.
type Gateway interface {
	Execute(ctx context.Context, endpoint string, spec gateway.QuerySpec, token *identity.AccessToken) gateway.Outcome
	Do(ctx context.Context, baseURL string, req gateway.RESTRequest, token *identity.AccessToken) gateway.Outcome
	WellKnownURIs(ctx context.Context, serverURL string) (*gateway.WellKnownURIs, error)
}

// Tokens supplies bearer tokens. *TokenSource implements it.
type Tokens interface {
	Configured() bool
	Token(ctx context.Context) (*identity.AccessToken, error)
	Invalidate()
}

// ServiceConfig locates the gateway.
type ServiceConfig struct {
	// GraphQLURL is the AI Bridge GraphQL endpoint.
	GraphQLURL string

	// RESTURL is the API Gateway base URL, e.g. https://mgmt.
	RESTURL string

	// DiscoveryTTL keeps the well-known URIs document this long. Zero
	// fetches it on every Discover.
	DiscoveryTTL time.Duration
}

// Service runs the VMS flows used by the HTTP surface. Every call goes
// through the executor exactly once; a failed outcome is returned as a
// *gateway.Failure error.
type Service struct {
	gw        Gateway
	tokens    Tokens
	cfg       ServiceConfig
	discovery *cache.Cache[*gateway.WellKnownURIs]
}

// NewService creates a Service. tokens may be nil, in which case requests
// are sent without an Authorization header.
func NewService(gw Gateway, tokens Tokens, cfg ServiceConfig) *Service {
	s := &Service{gw: gw, tokens: tokens, cfg: cfg}
	if cfg.DiscoveryTTL > 0 {
		s.discovery = cache.New[*gateway.WellKnownURIs](cfg.DiscoveryTTL)
	}
	return s
}

// Config returns the gateway locations.
func (s *Service) Config() ServiceConfig {
	return s.cfg
}

// token returns the bearer token, or nil when no identity provider is set.
func (s *Service) token(ctx context.Context) (*identity.AccessToken, error) {
	if s.tokens == nil || !s.tokens.Configured() {
		return nil, nil
	}
	tok, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}
	return tok, nil
}

// check drops the cached token when the gateway rejected it. No retry is
// made; the next call acquires a fresh token.
func (s *Service) check(out gateway.Outcome) error {
	if out.OK() {
		return nil
	}
	if out.Failure.StatusCode == http.StatusUnauthorized && s.tokens != nil && s.tokens.Configured() {
		s.tokens.Invalidate()
	}
	return out.Failure
}

// query executes a GraphQL document and returns the data member.
func (s *Service) query(ctx context.Context, spec gateway.QuerySpec) (map[string]any, error) {
	tok, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	out := s.gw.Execute(ctx, s.cfg.GraphQLURL, spec, tok)
	if err := s.check(out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// rest performs a REST call and returns the outcome after the status check.
func (s *Service) rest(ctx context.Context, req gateway.RESTRequest, want int) (gateway.Outcome, error) {
	if s.cfg.RESTURL == "" {
		return gateway.Outcome{}, ErrNoRESTGateway
	}
	tok, err := s.token(ctx)
	if err != nil {
		return gateway.Outcome{}, err
	}
	out := s.gw.Do(ctx, s.cfg.RESTURL, req, tok)
	if err := s.check(out); err != nil {
		return out, err
	}
	if want != 0 && out.StatusCode != want {
		return out, &UnexpectedStatusError{Want: want, Got: out.StatusCode}
	}
	return out, nil
}

// ErrNoRESTGateway is returned by REST flows when no gateway URL is known.
var ErrNoRESTGateway = errors.New("no REST gateway configured")

// UnexpectedStatusError reports a 2xx status other than the one a flow
// expects, e.g. 200 where a trigger should answer 202.
type UnexpectedStatusError struct {
	Want int
	Got  int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d, want %d", e.Got, e.Want)
}

// VMSInfo returns the "about" document of the connected systems.
func (s *Service) VMSInfo(ctx context.Context) (map[string]any, error) {
	return s.query(ctx, gateway.QuerySpec{Query: gateway.AboutQuery})
}

// Cameras returns the camera inventory from the GraphQL endpoint.
func (s *Service) Cameras(ctx context.Context) (map[string]any, error) {
	return s.query(ctx, gateway.QuerySpec{Query: gateway.CamerasQuery})
}

// Discover fetches the well-known URIs of the REST gateway host. With a
// DiscoveryTTL the document is served from cache until it expires; failed
// fetches are not cached.
func (s *Service) Discover(ctx context.Context) (*gateway.WellKnownURIs, error) {
	if s.cfg.RESTURL == "" {
		return nil, ErrNoRESTGateway
	}
	if s.discovery != nil {
		if uris, ok := s.discovery.Get(s.cfg.RESTURL); ok {
			return uris, nil
		}
	}
	uris, err := s.gw.WellKnownURIs(ctx, s.cfg.RESTURL)
	if err != nil {
		return nil, err
	}
	if s.discovery != nil {
		s.discovery.Set(s.cfg.RESTURL, uris)
	}
	return uris, nil
}

// CreateUserDefinedEvent creates a user-defined event type and returns the
// created resource.
func (s *Service) CreateUserDefinedEvent(ctx context.Context, name string) (Resource, error) {
	out, err := s.rest(ctx, gateway.RESTRequest{
		Method:   http.MethodPost,
		Resource: ResourceUserDefinedEvents,
		Body:     map[string]string{"name": name},
	}, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	var created Resource
	if err := out.DecodeField("result", &created); err != nil {
		return nil, err
	}
	return created, nil
}

// GetUserDefinedEvent returns one user-defined event type.
func (s *Service) GetUserDefinedEvent(ctx context.Context, id string) (Resource, error) {
	return s.single(ctx, ResourceUserDefinedEvents, id)
}

// UpdateUserDefinedEvent renames a user-defined event type.
func (s *Service) UpdateUserDefinedEvent(ctx context.Context, id, name string) (Resource, error) {
	out, err := s.rest(ctx, gateway.RESTRequest{
		Method:   http.MethodPut,
		Resource: ResourceUserDefinedEvents,
		ID:       id,
		Body:     map[string]string{"name": name},
	}, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var updated Resource
	if err := out.DecodeField("data", &updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteUserDefinedEvent deletes a user-defined event type and returns the
// gateway's response document.
func (s *Service) DeleteUserDefinedEvent(ctx context.Context, id string) (Resource, error) {
	out, err := s.rest(ctx, gateway.RESTRequest{
		Method:   http.MethodDelete,
		Resource: ResourceUserDefinedEvents,
		ID:       id,
	}, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListUserDefinedEvents returns the user-defined event types, without the
// built-in ones.
func (s *Service) ListUserDefinedEvents(ctx context.Context) ([]Resource, error) {
	all, err := s.list(ctx, ResourceUserDefinedEvents, nil)
	if err != nil {
		return nil, err
	}
	filtered := make([]Resource, 0, len(all))
	for _, ev := range all {
		id, _ := ev["id"].(string)
		if _, builtIn := BuiltInUserDefinedEventIDs[id]; builtIn {
			continue
		}
		filtered = append(filtered, ev)
	}
	return filtered, nil
}

// TriggerEvent raises an event of the given type. The gateway answers 202
// with the accepted event.
func (s *Service) TriggerEvent(ctx context.Context, typeID string) (Resource, error) {
	out, err := s.rest(ctx, gateway.RESTRequest{
		Method:   http.MethodPost,
		Resource: ResourceEvents,
		Body:     map[string]string{"type": typeID},
	}, http.StatusAccepted)
	if err != nil {
		return nil, err
	}
	var ev Resource
	if err := out.DecodeField("data", &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// ListEvents returns one page of stored events including their data.
func (s *Service) ListEvents(ctx context.Context, page, size int) ([]Resource, error) {
	q := url.Values{
		"page":    {strconv.Itoa(page)},
		"size":    {strconv.Itoa(size)},
		"include": {"data"},
	}
	return s.list(ctx, ResourceEvents, q)
}

// GetEvent returns one stored event. Events are only retained when the
// event type's retention is greater than zero.
func (s *Service) GetEvent(ctx context.Context, id string) (Resource, error) {
	return s.single(ctx, ResourceEvents, id)
}

// EnabledCameras lists cameras through the REST API.
func (s *Service) EnabledCameras(ctx context.Context) ([]Camera, error) {
	out, err := s.rest(ctx, gateway.RESTRequest{Method: http.MethodGet, Resource: ResourceCameras}, http.StatusOK)
	if err != nil {
		return nil, err
	}
	cameras := []Camera{}
	if err := out.DecodeField("array", &cameras); err != nil {
		return nil, err
	}
	return cameras, nil
}

// AnalyticEventTypes lists the analytics event definitions.
func (s *Service) AnalyticEventTypes(ctx context.Context) ([]AnalyticEventType, error) {
	out, err := s.rest(ctx, gateway.RESTRequest{Method: http.MethodGet, Resource: ResourceAnalyticsEvents}, http.StatusOK)
	if err != nil {
		return nil, err
	}
	types := []AnalyticEventType{}
	if err := out.DecodeField("array", &types); err != nil {
		return nil, err
	}
	return types, nil
}

func (s *Service) single(ctx context.Context, resource, id string) (Resource, error) {
	out, err := s.rest(ctx, gateway.RESTRequest{Method: http.MethodGet, Resource: resource, ID: id}, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var r Resource
	if err := out.DecodeField("data", &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) list(ctx context.Context, resource string, q url.Values) ([]Resource, error) {
	out, err := s.rest(ctx, gateway.RESTRequest{Method: http.MethodGet, Resource: resource, Query: q}, http.StatusOK)
	if err != nil {
		return nil, err
	}
	items := []Resource{}
	if err := out.DecodeField("array", &items); err != nil {
		return nil, err
	}
	return items, nil
}
