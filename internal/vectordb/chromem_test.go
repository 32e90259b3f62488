package vectordb

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"
)

// mockEmbedder returns deterministic embeddings based on text content.
// Similar texts produce similar vectors because shared characters contribute
// to the same positions in the vector.
type mockEmbedder struct {
	dims int
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = m.deterministicVector(text)
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

func (m *mockEmbedder) deterministicVector(text string) []float32 {
	vec := make([]float32, m.dims)
	for i, ch := range text {
		idx := (int(ch) + i) % m.dims
		vec[idx] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func newTestStore() (*ChromemStore, *mockEmbedder) {
	embedder := &mockEmbedder{dims: 64}
	return NewChromemStore(embedder), embedder
}

func testRecord(embedder *mockEmbedder, id, text, sourceURL string, chunkIndex int) Record {
	return Record{
		ID:     id,
		Text:   text,
		Vector: embedder.deterministicVector(text),
		Metadata: Metadata{
			SourceURL:   sourceURL,
			Title:       "Test Page",
			ContentHash: "hash-" + sourceURL,
			ChunkIndex:  chunkIndex,
			TotalChunks: 3,
			UpdatedAt:   time.Now().UTC(),
		},
	}
}

func TestUpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	store, embedder := newTestStore()

	records := []Record{
		testRecord(embedder, "r1", "How to reset your password and recover your account", "https://example.com/help", 0),
		testRecord(embedder, "r2", "Pricing plans for teams and enterprises", "https://example.com/pricing", 0),
		testRecord(embedder, "r3", "Password requirements and security guidelines", "https://example.com/security", 0),
	}
	if err := store.Upsert(ctx, "bot-a", records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	matches, err := store.Query(ctx, "bot-a", "how do I reset my password", 2, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Errorf("matches not in descending score order: %f > %f", matches[i].Score, matches[i-1].Score)
		}
	}
}

func TestQueryTopKNeverExceeded(t *testing.T) {
	ctx := context.Background()
	store, embedder := newTestStore()

	var records []Record
	for i := 0; i < 20; i++ {
		records = append(records, testRecord(embedder,
			fmt.Sprintf("r%d", i), fmt.Sprintf("document about topic number %d", i),
			"https://example.com", i))
	}
	if err := store.Upsert(ctx, "ns", records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	for _, k := range []int{1, 3, 5} {
		matches, err := store.Query(ctx, "ns", "topic", k, nil)
		if err != nil {
			t.Fatalf("Query topK=%d: %v", k, err)
		}
		if len(matches) > k {
			t.Errorf("topK=%d returned %d matches", k, len(matches))
		}
	}
}

func TestQueryUnknownNamespace(t *testing.T) {
	store, _ := newTestStore()
	matches, err := store.Query(context.Background(), "never-seen", "anything", 5, nil)
	if err != nil {
		t.Fatalf("Query on unknown namespace: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("got %d matches from unknown namespace", len(matches))
	}
}

func TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	store, embedder := newTestStore()

	store.Upsert(ctx, "bot-a", []Record{testRecord(embedder, "a1", "alpha content", "https://a.example.com", 0)})
	store.Upsert(ctx, "bot-b", []Record{testRecord(embedder, "b1", "beta content", "https://b.example.com", 0)})

	matches, err := store.Query(ctx, "bot-a", "content", 10, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for _, m := range matches {
		if m.ID == "b1" {
			t.Error("query on bot-a returned record from bot-b")
		}
	}

	if got := store.Count("bot-a"); got != 1 {
		t.Errorf("Count(bot-a) = %d, want 1", got)
	}
	names := store.Namespaces()
	if len(names) != 2 || names[0] != "bot-a" || names[1] != "bot-b" {
		t.Errorf("Namespaces() = %v", names)
	}
}

func TestUpsertIsIdempotentByID(t *testing.T) {
	ctx := context.Background()
	store, embedder := newTestStore()

	rec := testRecord(embedder, "dup", "original text", "https://example.com", 0)
	if err := store.Upsert(ctx, "ns", []Record{rec}); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	rec.Text = "replacement text"
	rec.Vector = embedder.deterministicVector(rec.Text)
	if err := store.Upsert(ctx, "ns", []Record{rec}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	if got := store.Count("ns"); got != 1 {
		t.Fatalf("Count = %d after re-upsert, want 1", got)
	}
	matches, err := store.Query(ctx, "ns", "replacement text", 1, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 1 || matches[0].Text != "replacement text" {
		t.Errorf("re-upsert did not overwrite: %+v", matches)
	}
}

func TestQueryWithFilter(t *testing.T) {
	ctx := context.Background()
	store, embedder := newTestStore()

	store.Upsert(ctx, "ns", []Record{
		testRecord(embedder, "p1", "shared words in both pages", "https://example.com/one", 0),
		testRecord(embedder, "p2", "shared words in both pages too", "https://example.com/two", 0),
	})

	source := "https://example.com/two"
	matches, err := store.Query(ctx, "ns", "shared words", 10, &Filter{SourceURL: &source})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "p2" {
		t.Errorf("filter not applied: %+v", matches)
	}
}

func TestDeleteOperations(t *testing.T) {
	ctx := context.Background()
	store, embedder := newTestStore()

	store.Upsert(ctx, "ns", []Record{
		testRecord(embedder, "d1", "first", "https://example.com/a", 0),
		testRecord(embedder, "d2", "second", "https://example.com/a", 1),
		testRecord(embedder, "d3", "third", "https://example.com/b", 0),
		testRecord(embedder, "d4", "fourth", "https://example.com/c", 0),
	})

	if err := store.DeleteOne(ctx, "ns", "d4"); err != nil {
		t.Fatalf("DeleteOne: %v", err)
	}
	if got := store.Count("ns"); got != 3 {
		t.Errorf("Count after DeleteOne = %d, want 3", got)
	}

	if err := store.DeleteBySource(ctx, "ns", "https://example.com/a"); err != nil {
		t.Fatalf("DeleteBySource: %v", err)
	}
	if got := store.Count("ns"); got != 1 {
		t.Errorf("Count after DeleteBySource = %d, want 1", got)
	}

	if err := store.DeleteMany(ctx, "ns", []string{"d3"}); err != nil {
		t.Fatalf("DeleteMany: %v", err)
	}
	if got := store.Count("ns"); got != 0 {
		t.Errorf("Count after DeleteMany = %d, want 0", got)
	}
}

func TestDeleteNamespace(t *testing.T) {
	ctx := context.Background()
	store, embedder := newTestStore()

	store.Upsert(ctx, "gone", []Record{testRecord(embedder, "x", "content", "https://example.com", 0)})
	store.Upsert(ctx, "kept", []Record{testRecord(embedder, "y", "content", "https://example.com", 0)})

	if err := store.DeleteNamespace(ctx, "gone"); err != nil {
		t.Fatalf("DeleteNamespace: %v", err)
	}
	if got := store.Count("gone"); got != 0 {
		t.Errorf("Count(gone) = %d after delete", got)
	}
	if got := store.Count("kept"); got != 1 {
		t.Errorf("Count(kept) = %d, other namespace affected", got)
	}
}

func TestPersistAndLoad(t *testing.T) {
	ctx := context.Background()
	store, embedder := newTestStore()
	dir := t.TempDir()

	store.Upsert(ctx, "saved", []Record{
		testRecord(embedder, "s1", "persisted content about widgets", "https://example.com", 0),
	})
	if err := store.Persist(ctx, dir); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	restored := NewChromemStore(embedder)
	if err := restored.Load(ctx, dir); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := restored.Count("saved"); got != 1 {
		t.Fatalf("Count after Load = %d, want 1", got)
	}
	matches, err := restored.Query(ctx, "saved", "widgets", 1, nil)
	if err != nil {
		t.Fatalf("Query after Load: %v", err)
	}
	if len(matches) != 1 || matches[0].Metadata.SourceURL != "https://example.com" {
		t.Errorf("metadata lost across Persist/Load: %+v", matches)
	}
}

func TestFormatMatches(t *testing.T) {
	out := FormatMatches(nil)
	if out != "No results found." {
		t.Errorf("empty format = %q", out)
	}

	out = FormatMatches([]Match{{
		ID:    "m1",
		Score: 0.91,
		Text:  "chunk body",
		Metadata: Metadata{
			SourceURL: "https://example.com/docs", Title: "Docs", ChunkIndex: 1, TotalChunks: 3,
		},
	}})
	for _, want := range []string{"0.91", "https://example.com/docs", "chunk 2/3", "Docs", "chunk body"} {
		if !strings.Contains(out, want) {
			t.Errorf("formatted output missing %q:\n%s", want, out)
		}
	}
}
