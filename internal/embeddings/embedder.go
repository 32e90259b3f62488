package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// BatchLimit is the maximum number of texts sent to a provider per call.
const BatchLimit = 100

// Embedder defines the interface for generating text embeddings. Embed is
// all-or-nothing for the texts it is given; partial-failure handling lives
// in EmbedBatch.
type Embedder interface {
	// Embed generates one embedding per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// ErrEmptyInput is returned when a single-text embed is given blank input.
var ErrEmptyInput = errors.New("embeddings: input text is empty")

// GenerationError wraps an underlying provider failure.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating embeddings: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// EmbedOne embeds a single text. Blank or whitespace-only input is rejected
// with ErrEmptyInput; provider failures are wrapped in GenerationError.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	if len(vecs) != 1 {
		return nil, &GenerationError{Err: fmt.Errorf("provider returned %d embeddings for 1 text", len(vecs))}
	}
	return vecs[0], nil
}

// Embedding pairs a vector with the text it was generated from and that
// text's position in the original input.
type Embedding struct {
	Vector     []float32
	SourceText string
	Index      int
}

// BatchResult holds the embeddings that succeeded plus any sub-batch errors.
// Callers must compare len(Embeddings) against the number of requested texts.
type BatchResult struct {
	Embeddings []Embedding
	Errors     []error
}

// EmbedBatch embeds texts in sequential sub-batches of at most BatchLimit.
// A failed sub-batch is recorded in Errors and skipped; the remaining
// sub-batches still run. Embeddings are returned in input order.
func EmbedBatch(ctx context.Context, e Embedder, texts []string) *BatchResult {
	result := &BatchResult{}

	for start := 0; start < len(texts); start += BatchLimit {
		end := start + BatchLimit
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vecs, err := e.Embed(ctx, batch)
		if err != nil {
			result.Errors = append(result.Errors,
				&GenerationError{Err: fmt.Errorf("batch %d-%d: %w", start, end-1, err)})
			continue
		}
		if len(vecs) != len(batch) {
			result.Errors = append(result.Errors,
				&GenerationError{Err: fmt.Errorf("batch %d-%d: provider returned %d embeddings for %d texts", start, end-1, len(vecs), len(batch))})
			continue
		}

		for i, v := range vecs {
			result.Embeddings = append(result.Embeddings, Embedding{
				Vector:     v,
				SourceText: batch[i],
				Index:      start + i,
			})
		}
	}

	return result
}
