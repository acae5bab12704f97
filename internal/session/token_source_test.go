// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/vmsbridge/internal/identity"
)

// stubAcquirer hands out numbered tokens and counts calls.
type stubAcquirer struct {
	calls    atomic.Int32
	lifetime time.Duration
	err      error
	delay    time.Duration
	issuedAt time.Time
}

func (a *stubAcquirer) Acquire(ctx context.Context, endpoint string, cred identity.Credential) (*identity.AccessToken, error) {
	n := a.calls.Add(1)
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	if a.err != nil {
		return nil, a.err
	}
	issued := a.issuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	return &identity.AccessToken{
		Value:     "token-" + string(rune('0'+n)),
		ExpiresIn: a.lifetime,
		TokenType: "Bearer",
		IssuedAt:  issued,
	}, nil
}

func newTestSource(acq Acquirer, skew, minInterval time.Duration) *TokenSource {
	return NewTokenSource(acq, TokenSourceConfig{
		Endpoint:         "http://idp.test",
		Credential:       identity.BasicCredential{Username: "u", Password: "p"},
		Skew:             skew,
		MinRenewInterval: minInterval,
	})
}

func TestTokenSource_CachesValidToken(t *testing.T) {
	t.Parallel()
	acq := &stubAcquirer{lifetime: time.Hour}
	src := newTestSource(acq, time.Minute, 0)

	first, err := src.Token(context.Background())
	checkNoError(t, err)
	second, err := src.Token(context.Background())
	checkNoError(t, err)

	checkIntEqual(t, "acquire calls", int(acq.calls.Load()), 1)
	if first != second {
		t.Error("expected the cached token to be returned")
	}
}

func TestTokenSource_RenewsWithinSkew(t *testing.T) {
	t.Parallel()
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	acq := &stubAcquirer{lifetime: 10 * time.Minute, issuedAt: issued}
	src := newTestSource(acq, time.Minute, 0)

	src.now = func() time.Time { return issued }
	_, err := src.Token(context.Background())
	checkNoError(t, err)

	// Still valid outside the skew window.
	src.now = func() time.Time { return issued.Add(8 * time.Minute) }
	_, err = src.Token(context.Background())
	checkNoError(t, err)
	checkIntEqual(t, "acquire calls before skew", int(acq.calls.Load()), 1)

	// Inside the skew window the token is treated as expired.
	src.now = func() time.Time { return issued.Add(9*time.Minute + time.Second) }
	_, err = src.Token(context.Background())
	checkNoError(t, err)
	checkIntEqual(t, "acquire calls after skew", int(acq.calls.Load()), 2)
}

func TestTokenSource_ConcurrentCallersShareAcquisition(t *testing.T) {
	t.Parallel()
	acq := &stubAcquirer{lifetime: time.Hour, delay: 20 * time.Millisecond}
	src := newTestSource(acq, 0, 0)

	var wg sync.WaitGroup
	tokens := make([]*identity.AccessToken, 16)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := src.Token(context.Background())
			if err != nil {
				t.Errorf("Token() error = %v", err)
				return
			}
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	checkIntEqual(t, "acquire calls", int(acq.calls.Load()), 1)
	for i, tok := range tokens {
		if tok != tokens[0] {
			t.Errorf("caller %d received a different token", i)
		}
	}
}

func TestTokenSource_ThrottlesAfterFailure(t *testing.T) {
	t.Parallel()
	idpErr := &identity.AcquireError{Status: 401, Message: "invalid_client"}
	acq := &stubAcquirer{err: idpErr}
	src := newTestSource(acq, 0, time.Hour)

	_, err := src.Token(context.Background())
	var acqErr *identity.AcquireError
	if !errors.As(err, &acqErr) || acqErr.Message != "invalid_client" {
		t.Fatalf("first Token() error = %v, want AcquireError invalid_client", err)
	}

	_, err = src.Token(context.Background())
	if !errors.Is(err, ErrRenewThrottled) {
		t.Fatalf("second Token() error = %v, want ErrRenewThrottled", err)
	}
	if !errors.As(err, &acqErr) {
		t.Error("throttled error should wrap the last acquisition error")
	}
	checkIntEqual(t, "acquire calls", int(acq.calls.Load()), 1)
}

func TestTokenSource_Invalidate(t *testing.T) {
	t.Parallel()
	acq := &stubAcquirer{lifetime: time.Hour}
	src := newTestSource(acq, 0, 0)

	_, err := src.Token(context.Background())
	checkNoError(t, err)
	src.Invalidate()
	if src.Current() != nil {
		t.Error("Current() should be nil after Invalidate")
	}
	_, err = src.Token(context.Background())
	checkNoError(t, err)
	checkIntEqual(t, "acquire calls", int(acq.calls.Load()), 2)
}

func TestTokenSource_InvalidateAfterSuccessNotThrottled(t *testing.T) {
	t.Parallel()
	acq := &stubAcquirer{lifetime: time.Hour}
	src := newTestSource(acq, 0, 5*time.Second)

	first, err := src.Token(context.Background())
	checkNoError(t, err)

	// The gateway rejected the token; a healthy IDP must be asked again at once
	src.Invalidate()
	second, err := src.Token(context.Background())
	checkNoError(t, err)
	if second == first {
		t.Error("Token() after Invalidate returned the dropped token")
	}
	checkIntEqual(t, "acquire calls", int(acq.calls.Load()), 2)
}

func TestTokenSource_ThrottleClearsAfterSuccess(t *testing.T) {
	t.Parallel()
	acq := &stubAcquirer{err: errors.New("idp down")}
	src := newTestSource(acq, 0, 20*time.Millisecond)

	_, err := src.Token(context.Background())
	if err == nil {
		t.Fatal("first Token() should fail")
	}

	time.Sleep(40 * time.Millisecond)
	acq.err = nil
	acq.lifetime = time.Hour
	_, err = src.Token(context.Background())
	checkNoError(t, err)

	src.Invalidate()
	_, err = src.Token(context.Background())
	checkNoError(t, err)
	checkIntEqual(t, "acquire calls", int(acq.calls.Load()), 3)
}

func TestTokenSource_NotConfigured(t *testing.T) {
	t.Parallel()
	src := NewTokenSource(&stubAcquirer{}, TokenSourceConfig{})
	if src.Configured() {
		t.Error("Configured() should be false without endpoint")
	}
	if _, err := src.Token(context.Background()); !errors.Is(err, ErrNoIdentityProvider) {
		t.Errorf("Token() error = %v, want ErrNoIdentityProvider", err)
	}

	var nilSource *TokenSource
	if nilSource.Configured() {
		t.Error("nil source should not be configured")
	}
}
