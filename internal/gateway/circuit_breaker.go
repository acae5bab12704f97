// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package gateway

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/vmsbridge/internal/logging"
	"github.com/tomtom215/vmsbridge/internal/metrics"
)

// BreakerConfig tunes the gateway circuit breaker.
type BreakerConfig struct {
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
	// Interval is the closed-state window after which counts reset.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// MinRequests is the sample size required before the breaker may trip.
	MinRequests uint32
	// FailureRatio trips the breaker once reached.
	FailureRatio float64
}

// DefaultBreakerConfig mirrors the settings used for other upstream APIs:
// open at 60% failures over at least 10 requests, half-open after 2 minutes.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      2 * time.Minute,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// circuitBreaker guards gateway round trips. Transport errors and 5xx
// responses count as failures; 4xx responses and GraphQL errors do not,
// since they say nothing about gateway health.
type circuitBreaker struct {
	cb       *gobreaker.CircuitBreaker[*rawResponse]
	name     string
	recorder *metrics.Recorder
}

func newCircuitBreaker(name string, cfg BreakerConfig, recorder *metrics.Recorder) *circuitBreaker {
	if recorder != nil {
		recorder.CircuitBreakerState.WithLabelValues(name).Set(0) // 0 = closed
	}

	cb := gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= cfg.FailureRatio

			if shouldTrip {
				logging.Warn().Str("breaker", name).Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			if recorder != nil {
				recorder.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
				recorder.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			}
		},
	})

	return &circuitBreaker{cb: cb, name: name, recorder: recorder}
}

// execute runs fn under the breaker. A 5xx result is returned together with
// errServerStatus so the caller still sees the response.
func (b *circuitBreaker) execute(fn func() (*rawResponse, error)) (*rawResponse, error) {
	result, err := b.cb.Execute(fn)

	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		b.count("rejected")
		logging.Warn().Err(err).Str("breaker", b.name).Msg("[CIRCUIT BREAKER] Request rejected")
	case err != nil:
		b.count("failure")
	default:
		b.count("success")
	}

	return result, err
}

func (b *circuitBreaker) count(result string) {
	if b.recorder != nil {
		b.recorder.CircuitBreakerRequests.WithLabelValues(b.name, result).Inc()
	}
}

// State returns the current breaker state.
func (b *circuitBreaker) State() gobreaker.State {
	return b.cb.State()
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// BreakerState reports the gateway breaker state, or "" when the breaker is
// disabled.
func (e *Executor) BreakerState() string {
	if e.breaker == nil {
		return ""
	}
	return stateToString(e.breaker.State())
}
