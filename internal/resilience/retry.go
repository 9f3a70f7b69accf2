package resilience

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/idcvault/idcvault/internal/resilience/metrics"
)

// Operation is a single fallible step. The framework owns retries around it;
// the operation owns its own I/O.
type Operation func(ctx context.Context) (any, error)

// RetryPolicy bounds the retry loop for one step.
type RetryPolicy struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool

	// RetryableCodes are provider code patterns ('*' prefix/suffix wildcards)
	// retried even when the category alone would not qualify.
	RetryableCodes []string

	// RetryableCategories are the failure categories the policy will retry.
	RetryableCategories []Category
}

// DefaultRetryPolicy provides sensible defaults for directory API calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		BaseDelay:       1 * time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
		RetryableCodes:  []string{"Throttling*", "TooManyRequests*", "ServiceUnavailable*", "InternalServer*"},
		RetryableCategories: []Category{
			CategoryNetwork,
			CategoryRateLimiting,
			CategoryResourceConflict,
		},
	}
}

// Delay computes the backoff before the given attempt (attempt >= 1),
// capped at MaxDelay. Jitter scales the result by uniform [0.5, 1.0).
func (p RetryPolicy) Delay(attempt int, rng *rand.Rand) time.Duration {
	base := p.ExponentialBase
	if base <= 1 {
		base = 2.0
	}
	raw := float64(p.BaseDelay) * math.Pow(base, float64(attempt-1))
	if raw > float64(p.MaxDelay) {
		raw = float64(p.MaxDelay)
	}
	if p.Jitter && rng != nil {
		raw *= 0.5 + 0.5*rng.Float64()
	}
	return time.Duration(raw)
}

func (p RetryPolicy) retryable(rec *ErrorRecord) bool {
	if !rec.Recoverable {
		return false
	}
	for _, c := range p.RetryableCategories {
		if rec.Category == c {
			return true
		}
	}
	if rec.ProviderCode != "" {
		for _, pattern := range p.RetryableCodes {
			if matchPattern(pattern, rec.ProviderCode) {
				return true
			}
		}
	}
	return false
}

// Executor runs single operations under a retry policy. Zero value is not
// usable; construct with NewExecutor.
type Executor struct {
	rng   *rand.Rand
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates a retry executor with its own jitter source.
func NewExecutor() *Executor {
	return &Executor{
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: sleepCtx,
	}
}

// Execute runs op, retrying per policy. Transient failures are contained here
// and never surface unless the budget is exhausted; the returned error, when
// non-nil, is always a classified *ErrorRecord.
func (e *Executor) Execute(ctx context.Context, op Operation, opctx OpContext, policy RetryPolicy) (any, error) {
	var last *ErrorRecord

	maxRetries := policy.MaxRetries
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := policy.Delay(attempt, e.rng)
			slog.Debug("Retrying step",
				"operation", opctx.OperationType,
				"step", opctx.StepName,
				"attempt", attempt,
				"delay", delay)
			if err := e.sleep(ctx, delay); err != nil {
				// Cancellation during backoff stops the loop for good.
				rec := Classify(err, opctx)
				rec.RetryCount = attempt
				rec.MaxRetries = maxRetries
				return nil, rec
			}
			metrics.RetryAttempts.WithLabelValues(opctx.OperationType, opctx.StepName).Inc()
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		rec := Classify(err, opctx)
		metrics.ErrorsTotal.WithLabelValues(string(rec.Category), string(rec.Severity)).Inc()

		// A classification may raise the budget (e.g. throttling).
		if rec.MaxRetries > maxRetries {
			maxRetries = rec.MaxRetries
		}
		rec.RetryCount = attempt
		rec.MaxRetries = maxRetries
		last = rec

		if !policy.retryable(rec) {
			return nil, rec
		}
	}

	return nil, last
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
