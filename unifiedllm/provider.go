package unifiedllm

import "context"

// Shape describes the request/response contract an adapter speaks.
type Shape int

const (
	// ShapeDirect adapters take role+content pairs and return plain text.
	// They never see tool definitions and never produce tool calls.
	ShapeDirect Shape = iota
	// ShapeChat adapters accept temperature, max tokens and tool schemas and
	// may answer with tool calls.
	ShapeChat
)

func (s Shape) String() string {
	if s == ShapeChat {
		return "chat"
	}
	return "direct"
}

// ProviderAdapter is the interface every provider backend must implement.
type ProviderAdapter interface {
	// Name returns the provider identifier (e.g. "openai", "ollama", "local").
	Name() string

	// Shape reports which completion contract the adapter implements.
	Shape() Shape

	// Complete sends a blocking request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Closer is implemented by adapters that hold resources.
type Closer interface {
	Close() error
}
