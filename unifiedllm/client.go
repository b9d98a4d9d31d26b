package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"
)

// Middleware wraps a provider call; next invokes the rest of the chain.
type Middleware func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error)

// Client routes requests to registered provider adapters.
type Client struct {
	providers       map[string]ProviderAdapter
	defaultProvider string
	middleware      []Middleware
	retry           RetryPolicy
	logger          *slog.Logger
	mu              sync.RWMutex
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProvider registers a provider adapter.
func WithProvider(name string, adapter ProviderAdapter) ClientOption {
	return func(c *Client) {
		c.providers[name] = adapter
	}
}

// WithDefaultProvider sets the default provider name.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) {
		c.defaultProvider = name
	}
}

// WithMiddleware adds middleware to the client.
func WithMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) {
		c.middleware = append(c.middleware, mw...)
	}
}

// WithRetryPolicy replaces DefaultRetryPolicy for chat-completion adapters.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = p
	}
}

// WithLogger sets the logger used for retry notices.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a new Client with the given options.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		providers: make(map[string]ProviderAdapter),
		retry:     DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.defaultProvider == "" && len(c.providers) == 1 {
		c.defaultProvider = slices.Collect(maps.Keys(c.providers))[0]
	}
	return c
}

// RegisterProvider adds a provider adapter to the client.
func (c *Client) RegisterProvider(name string, adapter ProviderAdapter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[name] = adapter
	if c.defaultProvider == "" {
		c.defaultProvider = name
	}
}

// Shape reports the completion shape of the adapter a request for provider
// would be routed to. An empty name means the default provider.
func (c *Client) Shape(provider string) (Shape, error) {
	adapter, err := c.resolveProvider(Request{Provider: provider})
	if err != nil {
		return ShapeDirect, err
	}
	return adapter.Shape(), nil
}

// resolveProvider determines which provider adapter to use for a request.
func (c *Client) resolveProvider(req Request) (ProviderAdapter, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	name := req.Provider
	if name == "" {
		name = c.defaultProvider
	}
	if name == "" {
		if info := GetModelInfo(req.Model); info != nil {
			name = info.Provider
		}
	}
	if name == "" {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "no provider specified and no default provider configured",
		}}
	}

	adapter, ok := c.providers[name]
	if !ok {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("provider %q is not registered", name),
		}}
	}
	return adapter, nil
}

// Complete routes req to its provider through the middleware chain.
// Chat-shaped providers are retried under the client's RetryPolicy; a
// direct provider gets exactly one attempt.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	adapter, err := c.resolveProvider(req)
	if err != nil {
		return nil, err
	}
	if req.Provider == "" {
		req.Provider = adapter.Name()
	}

	call := c.chain(adapter.Complete)
	if adapter.Shape() == ShapeDirect {
		return call(ctx, req)
	}
	return Retry(ctx, c.policyFor(req.Provider), func(ctx context.Context) (*Response, error) {
		return call(ctx, req)
	})
}

type handler = func(context.Context, Request) (*Response, error)

// chain wraps h so the first registered middleware sees the request first.
func (c *Client) chain(h handler) handler {
	for _, mw := range slices.Backward(c.middleware) {
		next := h
		h = func(ctx context.Context, r Request) (*Response, error) {
			return mw(ctx, r, next)
		}
	}
	return h
}

func (c *Client) policyFor(provider string) RetryPolicy {
	p := c.retry
	if p.OnRetry == nil {
		p.OnRetry = func(err error, attempt int, delay time.Duration) {
			c.logger.Warn("llm request failed, retrying",
				"provider", provider, "attempt", attempt, "delay", delay, "error", err)
		}
	}
	return p
}

// Close closes every registered adapter that holds resources.
func (c *Client) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var errs []error
	for _, adapter := range c.providers {
		if closer, ok := adapter.(Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}
