package unifiedllm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func retryable() error {
	return &ServerError{ProviderError: ProviderError{SDKError: SDKError{Message: "overloaded"}, Retryable: true}}
}

func instant(maxRetries int) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, BaseDelay: time.Microsecond}
}

func TestRetryPolicyDelay(t *testing.T) {
	tests := []struct {
		name   string
		policy RetryPolicy
		want   []time.Duration
	}{
		{
			name:   "default",
			policy: DefaultRetryPolicy(),
			want:   []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 8 * time.Second},
		},
		{
			name:   "uncapped",
			policy: RetryPolicy{BaseDelay: 100 * time.Millisecond, Multiplier: 3},
			want:   []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 900 * time.Millisecond},
		},
		{
			name:   "constant",
			policy: RetryPolicy{BaseDelay: time.Second},
			want:   []time.Duration{time.Second, time.Second, time.Second},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for n, want := range tt.want {
				if got := tt.policy.Delay(n); got != want {
					t.Errorf("retry %d: got %v, want %v", n, got, want)
				}
			}
		})
	}
}

func TestRetryPolicyJitterBounds(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second, Multiplier: 2, Jitter: true}
	for i := 0; i < 100; i++ {
		if got := p.Delay(0); got < 500*time.Millisecond || got >= 1500*time.Millisecond {
			t.Fatalf("jittered delay out of range: %v", got)
		}
	}
}

func TestRetryAttempts(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   bool
	}{
		{name: "first try", failures: 0, err: retryable(), wantCalls: 1},
		{name: "recovers on third attempt", failures: 2, err: retryable(), wantCalls: 3},
		{name: "exhausted after three attempts", failures: 5, err: retryable(), wantCalls: 3, wantErr: true},
		{
			name:      "auth errors fail fast",
			failures:  5,
			err:       &AuthenticationError{ProviderError: ProviderError{SDKError: SDKError{Message: "bad key"}}},
			wantCalls: 1,
			wantErr:   true,
		},
		{name: "forbidden fails fast", failures: 5, err: ErrorFromStatusCode("openai", 403, "forbidden", nil, errors.New("403")), wantCalls: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var retries []int
			policy := instant(2)
			policy.OnRetry = func(err error, attempt int, delay time.Duration) {
				retries = append(retries, attempt)
			}

			calls := 0
			got, err := Retry(context.Background(), policy, func(ctx context.Context) (string, error) {
				calls++
				if calls <= tt.failures {
					return "", tt.err
				}
				return "ok", nil
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != "ok" {
				t.Errorf("got %q", got)
			}
			if tt.wantErr && err != tt.err {
				t.Errorf("expected the last error unchanged, got %v", err)
			}
			if calls != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, calls)
			}
			if len(retries) != calls-1 {
				t.Errorf("OnRetry called %d times for %d calls", len(retries), calls)
			}
		})
	}
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	tests := []struct {
		name       string
		retryAfter time.Duration
		wantCalls  int
	}{
		{name: "within max delay", retryAfter: time.Millisecond, wantCalls: 2},
		{name: "beyond max delay", retryAfter: time.Minute, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := RetryPolicy{MaxRetries: 1, BaseDelay: time.Hour, MaxDelay: time.Second}
			calls := 0
			Retry(context.Background(), policy, func(ctx context.Context) (string, error) {
				calls++
				return "", &RateLimitError{ProviderError: ProviderError{
					SDKError:   SDKError{Message: "slow down"},
					Retryable:  true,
					RetryAfter: tt.retryAfter,
				}}
			})
			if calls != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, calls)
			}
		})
	}
}

func TestRetryCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour}
	policy.OnRetry = func(error, int, time.Duration) { cancel() }

	_, err := Retry(ctx, policy, func(ctx context.Context) (string, error) {
		return "", retryable()
	})
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("expected *AbortError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected cause context.Canceled, got %v", err)
	}
}
