// Package retry executes operations against the query engine with bounded
// exponential backoff. Whether a failure is worth another attempt is
// decided by the queryerr classifier.
package retry

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/kustomcp/kustomcp/internal/metrics"
	"github.com/kustomcp/kustomcp/internal/queryerr"
)

// Policy defines retry behavior for a single operation invocation.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt,
	// so MaxRetries+1 attempts happen in the worst case.
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64
}

// DefaultPolicy provides sensible defaults.
var DefaultPolicy = Policy{
	MaxRetries: 3,
	BaseDelay:  100 * time.Millisecond,
	Multiplier: 2.0,
}

// Do runs op until it succeeds, fails permanently, or the retry budget is
// spent. Permanent failures stop the loop immediately; transient and
// unrecognized failures are retried after a jittered backoff delay.
//
// The last error is returned exactly as op produced it, never wrapped, so
// callers can classify or format the original failure.
func Do[T any](ctx context.Context, label string, policy Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if queryerr.Classify(err) == queryerr.Permanent {
			return zero, err
		}
		if attempt == policy.MaxRetries {
			metrics.RetriesExhaustedTotal.WithLabelValues(label).Inc()
			break
		}

		delay := backoffDelay(policy, attempt)
		slog.Warn("retrying operation",
			"operation", label,
			"attempt", attempt+1,
			"max_retries", policy.MaxRetries,
			"delay", delay,
			"error", err)
		metrics.RetriesTotal.WithLabelValues(label).Inc()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}

// backoffDelay computes the wait before attempt+1: exponential growth from
// BaseDelay with symmetric +/-25% jitter to avoid synchronized retry storms.
func backoffDelay(policy Policy, attempt int) time.Duration {
	delay := float64(policy.BaseDelay) * math.Pow(policy.Multiplier, float64(attempt))
	jittered := delay + (rand.Float64()*0.5-0.25)*delay
	if jittered < 0 {
		return 0
	}
	return time.Duration(math.Floor(jittered))
}
