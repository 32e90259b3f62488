package embeddings

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// countingEmbedder records each Embed call and can fail on selected calls.
type countingEmbedder struct {
	calls    int
	failOn   map[int]bool // 1-based call numbers that return an error
	batchLen []int
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.batchLen = append(c.batchLen, len(texts))
	if c.failOn[c.calls] {
		return nil, errors.New("provider unavailable")
	}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = []float32{float32(len(text))}
	}
	return vecs, nil
}

func (c *countingEmbedder) Dimensions() int { return 1 }
func (c *countingEmbedder) Name() string    { return "counting" }

func makeTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("text number %d", i)
	}
	return texts
}

func TestEmbedOneRejectsBlankInput(t *testing.T) {
	e := &countingEmbedder{}
	for _, in := range []string{"", "   ", "\n\t "} {
		_, err := EmbedOne(context.Background(), e, in)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("EmbedOne(%q): got %v, want ErrEmptyInput", in, err)
		}
	}
	if e.calls != 0 {
		t.Errorf("provider called %d times for blank input", e.calls)
	}
}

func TestEmbedOneWrapsProviderErrors(t *testing.T) {
	e := &countingEmbedder{failOn: map[int]bool{1: true}}
	_, err := EmbedOne(context.Background(), e, "hello")
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("got %T (%v), want *GenerationError", err, err)
	}
}

func TestEmbedBatchCallCounts(t *testing.T) {
	cases := []struct {
		n         int
		wantCalls int
	}{
		{0, 0},
		{1, 1},
		{BatchLimit, 1},
		{BatchLimit + 1, 2},
		{2 * BatchLimit, 2},
	}

	for _, tc := range cases {
		e := &countingEmbedder{}
		result := EmbedBatch(context.Background(), e, makeTexts(tc.n))
		if e.calls != tc.wantCalls {
			t.Errorf("n=%d: got %d provider calls, want %d", tc.n, e.calls, tc.wantCalls)
		}
		if len(result.Embeddings) != tc.n {
			t.Errorf("n=%d: got %d embeddings, want %d", tc.n, len(result.Embeddings), tc.n)
		}
		if len(result.Errors) != 0 {
			t.Errorf("n=%d: unexpected errors: %v", tc.n, result.Errors)
		}
	}
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	texts := makeTexts(BatchLimit + 5)
	result := EmbedBatch(context.Background(), &countingEmbedder{}, texts)

	for i, emb := range result.Embeddings {
		if emb.Index != i {
			t.Fatalf("embedding %d has index %d", i, emb.Index)
		}
		if emb.SourceText != texts[i] {
			t.Fatalf("embedding %d has source %q, want %q", i, emb.SourceText, texts[i])
		}
	}
}

func TestEmbedBatchSkipsFailedSubBatch(t *testing.T) {
	// Three sub-batches; the middle one fails.
	texts := makeTexts(2*BatchLimit + 10)
	e := &countingEmbedder{failOn: map[int]bool{2: true}}

	result := EmbedBatch(context.Background(), e, texts)

	if e.calls != 3 {
		t.Errorf("got %d calls, want 3 (failed batch must not abort the rest)", e.calls)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(result.Errors))
	}
	wantOK := len(texts) - BatchLimit
	if len(result.Embeddings) != wantOK {
		t.Errorf("got %d embeddings, want %d", len(result.Embeddings), wantOK)
	}

	// Surviving embeddings keep their original input positions.
	if result.Embeddings[0].Index != 0 {
		t.Errorf("first surviving embedding has index %d", result.Embeddings[0].Index)
	}
	last := result.Embeddings[len(result.Embeddings)-1]
	if last.Index != len(texts)-1 {
		t.Errorf("last surviving embedding has index %d, want %d", last.Index, len(texts)-1)
	}

	var genErr *GenerationError
	if !errors.As(result.Errors[0], &genErr) {
		t.Errorf("batch error is %T, want *GenerationError", result.Errors[0])
	}
}
