package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimitedProvider caps a Provider at rpm requests per sliding
// minute. It streams when the wrapped provider does.
type RateLimitedProvider struct {
	provider Provider
	rpm      int

	mu     sync.Mutex
	recent []time.Time // send times within the last minute
}

// NewRateLimitedProvider wraps the given provider with a limiter that
// allows at most rpm requests per minute.
func NewRateLimitedProvider(provider Provider, rpm int) *RateLimitedProvider {
	return &RateLimitedProvider{
		provider: provider,
		rpm:      rpm,
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

func (r *RateLimitedProvider) Stream(ctx context.Context, req CompletionRequest, onDelta DeltaFunc) (*CompletionResponse, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return StreamOrComplete(ctx, r.provider, req, onDelta)
}

// wait blocks until a request slot is free or the context ends.
func (r *RateLimitedProvider) wait(ctx context.Context) error {
	for {
		if r.tryAcquire() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (r *RateLimitedProvider) tryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-time.Minute)
	kept := r.recent[:0]
	for _, t := range r.recent {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.recent = kept

	if len(r.recent) >= r.rpm {
		return false
	}
	r.recent = append(r.recent, time.Now())
	return true
}
