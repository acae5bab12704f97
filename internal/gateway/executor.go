// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vmsbridge/internal/httpclient"
	"github.com/tomtom215/vmsbridge/internal/identity"
	"github.com/tomtom215/vmsbridge/internal/logging"
	"github.com/tomtom215/vmsbridge/internal/metrics"
)

// defaultMaxResponseBytes caps how much of a gateway response is read.
const defaultMaxResponseBytes = 32 << 20

// errServerStatus marks 5xx responses as failures for the circuit breaker.
var errServerStatus = errors.New("gateway returned a server error")

// Recorder receives one sample per executor call. *metrics.Recorder
// satisfies it.
type Recorder interface {
	Record(status metrics.Status, seconds float64)
}

// Options configures an Executor.
type Options struct {
	HTTP httpclient.Options

	// Breaker enables the circuit breaker when non-nil.
	Breaker *BreakerConfig

	// BreakerMetrics receives breaker state metrics. Optional.
	BreakerMetrics *metrics.Recorder

	// MaxResponseBytes caps the response body size. Zero uses 32 MiB.
	MaxResponseBytes int64
}

// Executor performs gateway calls. It is safe for concurrent use; the only
// shared mutable state is the recorder.
type Executor struct {
	client   *http.Client
	recorder Recorder
	breaker  *circuitBreaker
	maxBody  int64
	now      func() time.Time
}

// NewExecutor creates an Executor recording into recorder. recorder must not
// be nil.
func NewExecutor(recorder Recorder, opts Options) *Executor {
	e := &Executor{
		client:   httpclient.New(opts.HTTP),
		recorder: recorder,
		maxBody:  opts.MaxResponseBytes,
		now:      time.Now,
	}
	if e.maxBody <= 0 {
		e.maxBody = defaultMaxResponseBytes
	}
	if opts.Breaker != nil {
		e.breaker = newCircuitBreaker("vms-gateway", *opts.Breaker, opts.BreakerMetrics)
	}
	return e
}

type graphQLRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName,omitempty"`
}

// rawResponse is a fully read gateway response.
type rawResponse struct {
	status int
	body   []byte
}

// Execute posts a GraphQL request to endpoint. token may be nil, in which
// case no Authorization header is sent.
func (e *Executor) Execute(ctx context.Context, endpoint string, spec QuerySpec, token *identity.AccessToken) (out Outcome) {
	start := e.now()
	op := spec.OperationName
	if op == "" {
		op = OperationName(spec.Query)
	}
	defer func() { e.finish(ctx, &out, start, "graphql", op) }()

	payload, err := json.Marshal(graphQLRequest{
		Query:         spec.Query,
		Variables:     spec.Variables,
		OperationName: spec.OperationName,
	})
	if err != nil {
		return failed(&Failure{Kind: KindTransport, Message: "failed to encode request: " + err.Error(), Err: err})
	}

	raw, fail := e.send(ctx, http.MethodPost, endpoint, payload, spec.Headers, token)
	if fail != nil {
		return failed(fail)
	}
	return classifyGraphQL(raw)
}

// Do performs a REST call against baseURL. token may be nil.
func (e *Executor) Do(ctx context.Context, baseURL string, req RESTRequest, token *identity.AccessToken) (out Outcome) {
	start := e.now()
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	defer func() { e.finish(ctx, &out, start, "rest", method+" "+req.Resource) }()

	target := strings.TrimRight(baseURL, "/") + req.Path()
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var payload []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return failed(&Failure{Kind: KindTransport, Message: "failed to encode request: " + err.Error(), Err: err})
		}
		payload = b
	}

	raw, fail := e.send(ctx, method, target, payload, req.Headers, token)
	if fail != nil {
		return failed(fail)
	}
	return classifyREST(raw)
}

// Get fetches an arbitrary gateway URL, classified as REST. Used for
// documents outside /api/rest/v1 such as the well-known URIs.
func (e *Executor) Get(ctx context.Context, target string, token *identity.AccessToken) (out Outcome) {
	start := e.now()
	defer func() { e.finish(ctx, &out, start, "rest", "GET "+target) }()

	raw, fail := e.send(ctx, http.MethodGet, target, nil, nil, token)
	if fail != nil {
		return failed(fail)
	}
	return classifyREST(raw)
}

// finish records the single metric sample for a call and logs the outcome.
func (e *Executor) finish(ctx context.Context, out *Outcome, start time.Time, kind, operation string) {
	elapsed := e.now().Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	out.Duration = elapsed

	status := metrics.StatusSuccess
	if out.Failure != nil {
		status = metrics.StatusFailure
	}
	e.recorder.Record(status, elapsed.Seconds())

	if out.Failure != nil {
		logging.Ctx(ctx).Warn().
			Str("kind", kind).
			Str("operation", operation).
			Str("failure", string(out.Failure.Kind)).
			Int("status", out.Failure.StatusCode).
			Dur("duration", elapsed).
			Msg(out.Failure.Message)
		return
	}
	logging.Ctx(ctx).Debug().
		Str("kind", kind).
		Str("operation", operation).
		Int("status", out.StatusCode).
		Dur("duration", elapsed).
		Msg("Gateway call succeeded")
}

// send performs the HTTP exchange. A non-nil Failure is always a transport
// error; HTTP statuses are classified by the caller.
func (e *Executor) send(ctx context.Context, method, target string, payload []byte, headers map[string]string, token *identity.AccessToken) (*rawResponse, *Failure) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &Failure{Kind: KindTransport, Message: "failed to create request: " + err.Error(), Err: err}
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if token != nil {
		req.Header.Set("Authorization", token.AuthorizationHeader())
	}

	raw, err := e.roundTrip(req)
	if err != nil && !errors.Is(err, errServerStatus) {
		return nil, &Failure{Kind: KindTransport, Message: err.Error(), Err: err}
	}
	return raw, nil
}

func (e *Executor) roundTrip(req *http.Request) (*rawResponse, error) {
	do := func() (*rawResponse, error) {
		resp, err := e.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBody))
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		raw := &rawResponse{status: resp.StatusCode, body: b}
		if resp.StatusCode >= http.StatusInternalServerError {
			return raw, errServerStatus
		}
		return raw, nil
	}

	if e.breaker == nil {
		return do()
	}
	return e.breaker.execute(do)
}

// classifyGraphQL applies steps 2 to 5 of the classification order.
func classifyGraphQL(raw *rawResponse) Outcome {
	if !is2xx(raw.status) {
		return failed(httpFailure(raw))
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw.body, &envelope); err != nil {
		return failed(&Failure{
			Kind:       KindMissingData,
			Message:    "response body is not a JSON object",
			StatusCode: raw.status,
			Body:       truncate(string(raw.body)),
			Err:        err,
		})
	}

	if errs := parseGraphQLErrors(envelope["errors"]); len(errs) > 0 {
		return failed(&Failure{
			Kind:       KindGraphQL,
			Message:    errs[0].Message,
			StatusCode: raw.status,
			Body:       decodeBody(raw.body),
			Errors:     errs,
		})
	}

	dataRaw, ok := envelope["data"]
	if !ok || isNull(dataRaw) {
		return failed(&Failure{
			Kind:       KindMissingData,
			Message:    "response has no data",
			StatusCode: raw.status,
			Body:       decodeBody(raw.body),
		})
	}

	var data map[string]any
	if err := json.Unmarshal(dataRaw, &data); err != nil {
		return failed(&Failure{
			Kind:       KindMissingData,
			Message:    "response data is not an object",
			StatusCode: raw.status,
			Body:       decodeBody(raw.body),
			Err:        err,
		})
	}
	return success(data, raw.status)
}

// classifyREST applies the REST rules: non-2xx is an http-error, otherwise
// the whole body is the data.
func classifyREST(raw *rawResponse) Outcome {
	if !is2xx(raw.status) {
		return failed(httpFailure(raw))
	}
	if len(bytes.TrimSpace(raw.body)) == 0 {
		return success(map[string]any{}, raw.status)
	}

	var data map[string]any
	if err := json.Unmarshal(raw.body, &data); err != nil || data == nil {
		return failed(&Failure{
			Kind:       KindMissingData,
			Message:    "response body is not a JSON object",
			StatusCode: raw.status,
			Body:       decodeBody(raw.body),
			Err:        err,
		})
	}
	return success(data, raw.status)
}

func httpFailure(raw *rawResponse) *Failure {
	body := decodeBody(raw.body)
	return &Failure{
		Kind:       KindHTTP,
		Message:    httpErrorMessage(raw.status, body),
		StatusCode: raw.status,
		Body:       body,
	}
}

// httpErrorMessage prefers the gateway's own description: the REST "error"
// member or the first GraphQL error.
func httpErrorMessage(status int, body any) string {
	if m, ok := body.(map[string]any); ok {
		switch v := m["error"].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if b, err := json.Marshal(v); err == nil {
				return string(b)
			}
		}
		if list, ok := m["errors"].([]any); ok && len(list) > 0 {
			if first, ok := list[0].(map[string]any); ok {
				if msg, ok := first["message"].(string); ok && msg != "" {
					return msg
				}
			}
		}
	}
	return fmt.Sprintf("gateway returned status %d", status)
}

// parseGraphQLErrors returns the entries of an "errors" member. A present
// but malformed member is reported as a single error carrying its text.
func parseGraphQLErrors(raw json.RawMessage) []GraphQLError {
	if len(raw) == 0 || isNull(raw) {
		return nil
	}
	var errs []GraphQLError
	if err := json.Unmarshal(raw, &errs); err != nil {
		return []GraphQLError{{Message: truncate(string(raw))}}
	}
	return errs
}

// decodeBody returns the body as decoded JSON, or as truncated text when it
// is not JSON.
func decodeBody(b []byte) any {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return truncate(string(b))
	}
	return v
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}

func truncate(s string) string {
	const maxLen = 512
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
