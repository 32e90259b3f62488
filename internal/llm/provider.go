package llm

import "context"

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

// DeltaFunc receives one incremental piece of a streamed response.
type DeltaFunc func(delta string)

// StreamProvider is implemented by providers that can deliver the
// response incrementally. The returned CompletionResponse holds the
// full accumulated content.
type StreamProvider interface {
	Provider
	Stream(ctx context.Context, req CompletionRequest, onDelta DeltaFunc) (*CompletionResponse, error)
}

// StreamOrComplete streams when the provider supports it, and otherwise
// falls back to a single Complete call delivered as one delta.
func StreamOrComplete(ctx context.Context, p Provider, req CompletionRequest, onDelta DeltaFunc) (*CompletionResponse, error) {
	if sp, ok := p.(StreamProvider); ok {
		return sp.Stream(ctx, req, onDelta)
	}
	resp, err := p.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if onDelta != nil && resp.Content != "" {
		onDelta(resp.Content)
	}
	return resp, nil
}
