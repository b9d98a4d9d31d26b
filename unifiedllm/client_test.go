package unifiedllm

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockAdapter is a test double for ProviderAdapter.
type mockAdapter struct {
	name     string
	shape    Shape
	response *Response
	errs     []error // returned in order before succeeding
	calls    int
	lastReq  Request
}

func (m *mockAdapter) Name() string { return m.name }
func (m *mockAdapter) Shape() Shape { return m.shape }

func (m *mockAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	m.calls++
	m.lastReq = req
	if m.calls <= len(m.errs) {
		return nil, m.errs[m.calls-1]
	}
	return m.response, nil
}

func newMockAdapter(name, text string) *mockAdapter {
	return &mockAdapter{
		name:  name,
		shape: ShapeChat,
		response: &Response{
			ID:           "test_resp",
			Model:        "test-model",
			Provider:     name,
			Message:      AssistantMessage(text),
			FinishReason: FinishReason{Reason: "stop"},
			Usage:        Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30},
		},
	}
}

func fastRetry() ClientOption {
	return WithRetryPolicy(RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, Multiplier: 2, MaxDelay: 10 * time.Millisecond})
}

func serverError() error {
	return &ServerError{ProviderError: ProviderError{SDKError: SDKError{Message: "boom"}, Retryable: true}}
}

func TestClientComplete(t *testing.T) {
	mock := newMockAdapter("test-provider", "Hello!")
	client := NewClient(
		WithProvider("test-provider", mock),
		WithDefaultProvider("test-provider"),
	)

	resp, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Hello!" {
		t.Errorf("expected text %q, got %q", "Hello!", resp.Text())
	}
	if mock.lastReq.Provider != "test-provider" {
		t.Errorf("expected provider to be filled in, got %q", mock.lastReq.Provider)
	}
}

func TestClientProviderRouting(t *testing.T) {
	local := newMockAdapter("local", "local response")
	ollama := newMockAdapter("ollama", "ollama response")
	client := NewClient(
		WithProvider("local", local),
		WithProvider("ollama", ollama),
		WithDefaultProvider("local"),
	)

	resp, err := client.Complete(context.Background(), Request{
		Messages: []Message{UserMessage("Hi")},
		Provider: "ollama",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "ollama response" {
		t.Errorf("expected ollama response, got %q", resp.Text())
	}

	resp, err = client.Complete(context.Background(), Request{
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "local response" {
		t.Errorf("expected local response, got %q", resp.Text())
	}
}

func TestClientNoProvider(t *testing.T) {
	client := NewClient()
	_, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserMessage("Hi")},
	})
	if err == nil {
		t.Fatal("expected error for no provider")
	}
	if _, ok := err.(*ConfigurationError); !ok {
		t.Errorf("expected ConfigurationError, got %T", err)
	}
}

func TestClientRetriesChatShape(t *testing.T) {
	mock := newMockAdapter("openai", "finally")
	mock.errs = []error{serverError(), serverError()}
	client := NewClient(WithProvider("openai", mock), fastRetry())

	resp, err := client.Complete(context.Background(), Request{Messages: []Message{UserMessage("Hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "finally" {
		t.Errorf("expected %q, got %q", "finally", resp.Text())
	}
	if mock.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", mock.calls)
	}
}

func TestClientRetryExhausted(t *testing.T) {
	mock := newMockAdapter("openai", "never")
	mock.errs = []error{serverError(), serverError(), serverError(), serverError()}
	client := NewClient(WithProvider("openai", mock), fastRetry())

	_, err := client.Complete(context.Background(), Request{Messages: []Message{UserMessage("Hi")}})
	if err == nil {
		t.Fatal("expected error after three attempts")
	}
	var se *ServerError
	if !errors.As(err, &se) {
		t.Errorf("expected the last provider error to propagate, got %T", err)
	}
	if mock.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", mock.calls)
	}
}

func TestClientDoesNotRetryDirectShape(t *testing.T) {
	mock := newMockAdapter("local", "never")
	mock.shape = ShapeDirect
	mock.errs = []error{serverError()}
	client := NewClient(WithProvider("local", mock), fastRetry())

	if _, err := client.Complete(context.Background(), Request{Messages: []Message{UserMessage("Hi")}}); err == nil {
		t.Fatal("expected error")
	}
	if mock.calls != 1 {
		t.Errorf("expected a single attempt, got %d", mock.calls)
	}
}

func TestClientShape(t *testing.T) {
	direct := newMockAdapter("local", "")
	direct.shape = ShapeDirect
	client := NewClient(
		WithProvider("local", direct),
		WithProvider("openai", newMockAdapter("openai", "")),
		WithDefaultProvider("local"),
	)

	if s, err := client.Shape(""); err != nil || s != ShapeDirect {
		t.Errorf("default provider: got %v, %v", s, err)
	}
	if s, err := client.Shape("openai"); err != nil || s != ShapeChat {
		t.Errorf("openai: got %v, %v", s, err)
	}
	if _, err := client.Shape("missing"); err == nil {
		t.Error("expected error for unregistered provider")
	}
}

func TestClientMiddlewareOrder(t *testing.T) {
	mock := newMockAdapter("test", "response")
	var order []int

	mw1 := func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		order = append(order, 1)
		resp, err := next(ctx, req)
		order = append(order, -1)
		return resp, err
	}
	mw2 := func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		order = append(order, 2)
		resp, err := next(ctx, req)
		order = append(order, -2)
		return resp, err
	}

	client := NewClient(
		WithProvider("test", mock),
		WithMiddleware(mw1, mw2),
	)

	_, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Onion pattern: first registered runs first for request, reverse for response.
	expected := []int{1, 2, -2, -1}
	if len(order) != len(expected) {
		t.Fatalf("expected %d middleware calls, got %d", len(expected), len(order))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Errorf("position %d: expected %d, got %d", i, v, order[i])
		}
	}
}

func TestClientRegisterProvider(t *testing.T) {
	client := NewClient()
	client.RegisterProvider("late", newMockAdapter("late", "late response"))

	resp, err := client.Complete(context.Background(), Request{Messages: []Message{UserMessage("Hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "late response" {
		t.Errorf("expected late response, got %q", resp.Text())
	}
}
