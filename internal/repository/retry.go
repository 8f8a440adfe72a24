package repository

import (
	"context"
	"math"
	"time"

	"github.com/sony/gobreaker"

	"github.com/dataexplorer/core/internal/apperr"
)

// backoffSchedule implements the capped exponential backoff of spec.md
// §4.A: initial 100ms, factor 2, max 5 attempts, 10s ceiling.
type backoffSchedule struct {
	initial     time.Duration
	factor      float64
	maxAttempts int
	ceiling     time.Duration
}

var defaultBackoff = backoffSchedule{
	initial:     100 * time.Millisecond,
	factor:      2,
	maxAttempts: 5,
	ceiling:     10 * time.Second,
}

func (b backoffSchedule) delay(attempt int) time.Duration {
	d := time.Duration(float64(b.initial) * math.Pow(b.factor, float64(attempt)))
	if d > b.ceiling {
		return b.ceiling
	}

	return d
}

// remoteBreaker wraps the remote backend's network calls in a circuit
// breaker: once the capped-backoff retry exhausts repeatedly, the
// breaker opens so subsequent calls fail fast with ErrBackendUnavailable
// instead of re-running the full backoff window, per SPEC_FULL.md's
// domain-stack note on sony/gobreaker. IsSuccessful only counts transient
// failures against the breaker — an ordinary rejected query (a user SQL
// typo, surfaced as KindQueryInvalid) must never trip it, or healthy
// queries would start failing with ErrBackendUnavailable behind it.
func newRemoteBreaker(name string, isTransient func(error) bool) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(defaultBackoff.maxAttempts)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isTransient(err)
		},
	})
}

// withRetry runs op up to the backoff schedule's max attempts, retrying
// only on transient network failures (isTransient). It surfaces
// ErrBackendUnavailable after exhaustion, or propagates the op's error
// unchanged if the op signaled a non-transient failure.
func withRetry(ctx context.Context, breaker *gobreaker.CircuitBreaker, isTransient func(error) bool, op func(ctx context.Context) error) error {
	_, err := breaker.Execute(func() (any, error) {
		var lastErr error

		for attempt := 0; attempt < defaultBackoff.maxAttempts; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(defaultBackoff.delay(attempt - 1)):
				}
			}

			lastErr = op(ctx)
			if lastErr == nil {
				return nil, nil
			}

			if !isTransient(lastErr) {
				return nil, lastErr
			}
		}

		return nil, lastErr
	})

	if err == nil {
		return nil
	}

	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return apperr.Wrap(apperr.KindBackendUnavailable, "remote backend circuit breaker open", err)
	}

	if ctx.Err() != nil {
		return apperr.Wrap(apperr.KindTimeout, "remote backend call cancelled", ctx.Err())
	}

	if isTransient(err) {
		return apperr.Wrap(apperr.KindBackendUnavailable, "remote backend unavailable after retries", err)
	}

	return err
}
