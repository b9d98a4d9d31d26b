package unifiedllm

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures exponential backoff between attempts.
type RetryPolicy struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // wait before the first retry
	MaxDelay   time.Duration // 0 = uncapped
	Multiplier float64       // growth per retry; <= 0 means constant delay
	Jitter     bool          // scale each delay by a random factor in [0.5, 1.5)
	OnRetry    func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy allows three attempts in total, waiting 1s and then 2s
// between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   8 * time.Second,
		Multiplier: 2,
	}
}

// Delay returns the wait before retry n (0-indexed).
func (p RetryPolicy) Delay(n int) time.Duration {
	m := p.Multiplier
	if m <= 0 {
		m = 1
	}
	d := float64(p.BaseDelay) * math.Pow(m, float64(n))
	if p.MaxDelay > 0 {
		d = math.Min(d, float64(p.MaxDelay))
	}
	if p.Jitter {
		d *= 0.5 + rand.Float64()
	}
	return time.Duration(d)
}

// wait returns the delay before retry n after err. A rate limit's
// Retry-After replaces the computed delay; if it exceeds MaxDelay the
// caller should give up.
func (p RetryPolicy) wait(err error, n int) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		if p.MaxDelay > 0 && rl.RetryAfter > p.MaxDelay {
			return 0, false
		}
		return rl.RetryAfter, true
	}
	return p.Delay(n), true
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// policy runs out of retries. The last error is returned unchanged.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for n := 0; ; n++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if n >= policy.MaxRetries || !IsRetryable(err) {
			return zero, err
		}
		delay, ok := policy.wait(err, n)
		if !ok {
			return zero, err
		}
		if policy.OnRetry != nil {
			policy.OnRetry(err, n+1, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, &AbortError{SDKError: SDKError{Message: "request cancelled during retry", Cause: ctx.Err()}}
		case <-timer.C:
		}
	}
}
