package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryConfig configures backoff for a single LLM call
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	BackoffFactor   float64
	RetryableStatus []int
}

// DefaultRetryConfig retries rate limits and server errors five times, starting at 2s
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   5,
		InitialDelay:  2 * time.Second,
		BackoffFactor: 2.0,
		RetryableStatus: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// StatusError is a non-200 answer from an LLM provider
type StatusError struct {
	Engine string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Engine, e.Status, body)
}

// permanentError stops the backoff loop, e.g. a malformed provider payload
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func (c RetryConfig) retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var perm permanentError
	if errors.As(err, &perm) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		for _, s := range c.RetryableStatus {
			if s == se.Status {
				return true
			}
		}
		return false
	}
	// transport errors and per-attempt deadlines
	return true
}

// withBackoff runs fn until it succeeds, fails permanently, or attempts run out
func withBackoff(ctx context.Context, cfg RetryConfig, log *logrus.Entry, fn func(ctx context.Context) (*Completion, error)) (*Completion, error) {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	factor := cfg.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	delay := cfg.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !cfg.retryable(err) || attempt == attempts {
			break
		}

		log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"delay":   delay.String(),
		}).Warn("LLM call failed, backing off")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * factor)
	}
	return nil, fmt.Errorf("LLM call failed: %w", lastErr)
}
