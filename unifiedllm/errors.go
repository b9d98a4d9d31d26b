package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// SDKError is the base of every error this package returns.
type SDKError struct {
	Message string
	Cause   error
}

func (e *SDKError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *SDKError) Unwrap() error { return e.Cause }

// ProviderError is a failure reported by a provider endpoint.
type ProviderError struct {
	SDKError
	Provider   string
	StatusCode int
	Retryable  bool
	// RetryAfter is the wait the provider asked for; 0 when it gave none.
	RetryAfter time.Duration
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

type (
	AuthenticationError struct{ ProviderError }
	AccessDeniedError   struct{ ProviderError }
	NotFoundError       struct{ ProviderError }
	InvalidRequestError struct{ ProviderError }
	ContextLengthError  struct{ ProviderError }
	RateLimitError      struct{ ProviderError }
	ServerError         struct{ ProviderError }
)

type (
	RequestTimeoutError struct{ SDKError }
	AbortError          struct{ SDKError }
	NetworkError        struct{ SDKError }
	ConfigurationError  struct{ SDKError }
)

// statusClass maps a status code to its typed error. Codes not listed
// fall through to a plain retryable *ProviderError.
var statusClass = map[int]func(ProviderError) error{
	http.StatusBadRequest:          func(p ProviderError) error { return &InvalidRequestError{p} },
	http.StatusUnprocessableEntity: func(p ProviderError) error { return &InvalidRequestError{p} },
	http.StatusUnauthorized:        func(p ProviderError) error { return &AuthenticationError{p} },
	http.StatusForbidden:           func(p ProviderError) error { return &AccessDeniedError{p} },
	http.StatusNotFound:            func(p ProviderError) error { return &NotFoundError{p} },
	http.StatusRequestTimeout: func(p ProviderError) error {
		return &RequestTimeoutError{p.SDKError}
	},
	http.StatusRequestEntityTooLarge: func(p ProviderError) error { return &ContextLengthError{p} },
	http.StatusTooManyRequests:       func(p ProviderError) error { p.Retryable = true; return &RateLimitError{p} },
	http.StatusInternalServerError:   func(p ProviderError) error { p.Retryable = true; return &ServerError{p} },
	http.StatusBadGateway:            func(p ProviderError) error { p.Retryable = true; return &ServerError{p} },
	http.StatusServiceUnavailable:    func(p ProviderError) error { p.Retryable = true; return &ServerError{p} },
	http.StatusGatewayTimeout:        func(p ProviderError) error { p.Retryable = true; return &ServerError{p} },
}

// ErrorFromStatusCode builds the typed error for an HTTP failure. cause is
// kept reachable through Unwrap; header may be nil.
func ErrorFromStatusCode(provider string, status int, message string, header http.Header, cause error) error {
	p := ProviderError{
		SDKError:   SDKError{Message: message, Cause: cause},
		Provider:   provider,
		StatusCode: status,
		RetryAfter: retryAfter(header),
	}
	if build, ok := statusClass[status]; ok {
		return build(p)
	}
	p.Retryable = true
	return &p
}

func responseHeader(resp *http.Response) http.Header {
	if resp == nil {
		return nil
	}
	return resp.Header
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	secs, err := strconv.ParseFloat(h.Get("Retry-After"), 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// transportError classifies a failure that never produced an HTTP status.
func transportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &AbortError{SDKError{Message: provider + " request cancelled", Cause: err}}
	}
	return &NetworkError{SDKError{Message: provider + " request failed", Cause: err}}
}

// IsRetryable reports whether err is worth another attempt. The first
// classifiable error on the wrap chain decides; cancellation never
// retries and anything unrecognised does.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if e == context.Canceled || e == context.DeadlineExceeded {
			return false
		}
		switch t := e.(type) {
		case *ProviderError:
			return t.Retryable
		case *RateLimitError, *ServerError, *NetworkError, *RequestTimeoutError:
			return true
		case *AuthenticationError, *AccessDeniedError, *NotFoundError,
			*InvalidRequestError, *ContextLengthError, *ConfigurationError, *AbortError:
			return false
		}
	}
	return true
}
