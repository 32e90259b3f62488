package trainer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ziadkadry99/sitechat/internal/config"
	"github.com/ziadkadry99/sitechat/internal/crawler"
	"github.com/ziadkadry99/sitechat/internal/db"
	"github.com/ziadkadry99/sitechat/internal/vectordb"
)

// countingEmbedder returns deterministic embeddings and can be told to
// fail specific calls (1-based call numbers).
type countingEmbedder struct {
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
}

func (m *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()

	if m.failOn[call] {
		return nil, fmt.Errorf("simulated provider failure on call %d", call)
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 16)
		for j, r := range text {
			vec[j%16] += float32(r) / 1000.0
		}
		results[i] = vec
	}
	return results, nil
}

func (m *countingEmbedder) Dimensions() int { return 16 }
func (m *countingEmbedder) Name() string    { return "counting-mock" }

func (m *countingEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// testSite serves a small three-page site: / links to /about and /docs.
func testSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><head><title>Acme Widgets</title></head><body>
			<p>Acme builds widgets for industrial automation. Our flagship product
			line covers pneumatic and hydraulic widget assemblies.</p>
			<p>Browse the <a href="/about">about page</a> or the <a href="/docs">docs</a>.</p>
			</body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>About Acme</title></head><body>
			<p>Founded in 1987, Acme has shipped over two million widgets to
			customers in forty countries. The company is privately held.</p>
			</body></html>`)
	})
	mux.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Widget Docs</title></head><body>
			<p>Widgets ship with a two year warranty. Installation requires a
			torque wrench and the mounting bracket included in the box.</p>
			<p>For pressure ratings above 40 bar, use the reinforced gasket.</p>
			</body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Chunk.Size = 200
	cfg.Chunk.Overlap = 20
	cfg.DataDir = "" // skip persistence in most tests
	return cfg
}

func testCrawlOptions() *crawler.Options {
	return &crawler.Options{
		MaxDepth:    1,
		MaxPages:    10,
		Concurrency: 2,
	}
}

func newTestPipeline(t *testing.T, embedder *countingEmbedder) (*Pipeline, vectordb.Store, *JobStore) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := vectordb.NewChromemStore(embedder)
	jobs := NewJobStore(database)
	return NewPipeline(crawler.New(), embedder, store, jobs, testConfig(t)), store, jobs
}

func TestTrainFromURLIngestsSite(t *testing.T) {
	srv := testSite(t)
	embedder := &countingEmbedder{}
	pipeline, store, jobs := newTestPipeline(t, embedder)

	result, err := pipeline.TrainFromURL(context.Background(), "acme", srv.URL, Options{Crawl: testCrawlOptions()})
	if err != nil {
		t.Fatalf("TrainFromURL failed: %v", err)
	}

	if result.DocumentsProcessed != 3 {
		t.Errorf("expected 3 documents processed, got %d", result.DocumentsProcessed)
	}
	if result.ChunksCreated == 0 {
		t.Fatal("expected chunks to be created")
	}
	if result.EmbeddingsGenerated != result.ChunksCreated {
		t.Errorf("embeddings %d != chunks %d", result.EmbeddingsGenerated, result.ChunksCreated)
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected no errors, got %v", result.Errors)
	}
	if got := store.Count("acme"); got != result.ChunksCreated {
		t.Errorf("store holds %d records, expected %d", got, result.ChunksCreated)
	}

	// The job record reflects the run.
	job, err := jobs.Get(context.Background(), result.JobID)
	if err != nil {
		t.Fatalf("Get job: %v", err)
	}
	if job == nil {
		t.Fatal("job not found")
	}
	if job.Status != JobCompleted {
		t.Errorf("expected completed job, got %q", job.Status)
	}
	if job.DocumentsProcessed != 3 {
		t.Errorf("job documents_processed = %d, want 3", job.DocumentsProcessed)
	}

	// Retrieval works and chunk IDs carry the deterministic shape.
	matches, err := store.Query(context.Background(), "acme", "widget warranty", 3, nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("expected query matches after training")
	}
	for _, m := range matches {
		if !strings.HasPrefix(m.ID, "acme_") || !strings.Contains(m.ID, "_chunk_") {
			t.Errorf("unexpected chunk id %q", m.ID)
		}
	}
}

func TestTrainFromURLIdempotent(t *testing.T) {
	srv := testSite(t)
	embedder := &countingEmbedder{}
	pipeline, store, _ := newTestPipeline(t, embedder)

	first, err := pipeline.TrainFromURL(context.Background(), "acme", srv.URL, Options{Crawl: testCrawlOptions()})
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	countAfterFirst := store.Count("acme")

	second, err := pipeline.TrainFromURL(context.Background(), "acme", srv.URL, Options{Crawl: testCrawlOptions()})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if second.ChunksCreated != first.ChunksCreated {
		t.Errorf("chunk count changed across runs: %d then %d", first.ChunksCreated, second.ChunksCreated)
	}
	if got := store.Count("acme"); got != countAfterFirst {
		t.Errorf("record count changed across runs: %d then %d", countAfterFirst, got)
	}
}

func TestTrainStageOrder(t *testing.T) {
	srv := testSite(t)
	embedder := &countingEmbedder{}
	pipeline, _, _ := newTestPipeline(t, embedder)

	var stages []Stage
	pipeline.SetProgressFunc(func(p Progress) {
		if len(stages) == 0 || stages[len(stages)-1] != p.Stage {
			stages = append(stages, p.Stage)
		}
	})

	if _, err := pipeline.TrainFromURL(context.Background(), "acme", srv.URL, Options{Crawl: testCrawlOptions()}); err != nil {
		t.Fatalf("TrainFromURL failed: %v", err)
	}

	want := []Stage{StageScraping, StageProcessing, StageEmbedding, StageIndexing, StageComplete}
	if len(stages) != len(want) {
		t.Fatalf("stage sequence %v, want %v", stages, want)
	}
	for i, s := range stages {
		if s != want[i] {
			t.Fatalf("stage sequence %v, want %v", stages, want)
		}
	}
}

func TestTrainEmbeddingBatchFailureIsRecorded(t *testing.T) {
	srv := testSite(t)
	embedder := &countingEmbedder{failOn: map[int]bool{1: true}}
	pipeline, store, _ := newTestPipeline(t, embedder)

	result, err := pipeline.TrainFromURL(context.Background(), "acme", srv.URL, Options{Crawl: testCrawlOptions()})
	if err != nil {
		t.Fatalf("run should survive a failed batch: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 recorded error, got %d: %v", len(result.Errors), result.Errors)
	}
	if result.EmbeddingsGenerated >= result.ChunksCreated {
		t.Errorf("expected fewer embeddings (%d) than chunks (%d) after a failed batch",
			result.EmbeddingsGenerated, result.ChunksCreated)
	}
	if got := store.Count("acme"); got != result.EmbeddingsGenerated {
		t.Errorf("store holds %d records, expected %d", got, result.EmbeddingsGenerated)
	}
}

func TestTrainFromURLInvalidURL(t *testing.T) {
	embedder := &countingEmbedder{}
	pipeline, _, _ := newTestPipeline(t, embedder)

	if _, err := pipeline.TrainFromURL(context.Background(), "acme", "not-a-url", Options{}); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestTrainFromURLs(t *testing.T) {
	srv := testSite(t)
	embedder := &countingEmbedder{}
	pipeline, store, _ := newTestPipeline(t, embedder)

	urls := []string{srv.URL + "/about", srv.URL + "/docs", srv.URL + "/missing"}
	result, err := pipeline.TrainFromURLs(context.Background(), "acme", urls, Options{})
	if err != nil {
		t.Fatalf("TrainFromURLs failed: %v", err)
	}

	if result.DocumentsProcessed != 2 {
		t.Errorf("expected 2 documents processed, got %d", result.DocumentsProcessed)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 error for the missing page, got %v", result.Errors)
	}
	if store.Count("acme") == 0 {
		t.Error("expected records in store")
	}
}

func TestTrainFromContentMarkdown(t *testing.T) {
	embedder := &countingEmbedder{}
	pipeline, store, _ := newTestPipeline(t, embedder)

	src := ContentSource{
		Title:    "Returns policy",
		Content:  "# Returns\n\nItems can be returned within **30 days** of delivery.\n",
		Markdown: true,
	}
	result, err := pipeline.TrainFromContent(context.Background(), "support", src, Options{})
	if err != nil {
		t.Fatalf("TrainFromContent failed: %v", err)
	}
	if result.DocumentsProcessed != 1 {
		t.Errorf("expected 1 document processed, got %d", result.DocumentsProcessed)
	}
	if result.ChunksCreated == 0 {
		t.Fatal("expected chunks to be created")
	}

	matches, err := store.Query(context.Background(), "support", "return window", 1, nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if !strings.HasPrefix(matches[0].Metadata.SourceURL, "content://") {
		t.Errorf("expected synthetic content:// source, got %q", matches[0].Metadata.SourceURL)
	}
	if strings.Contains(matches[0].Text, "**") || strings.Contains(matches[0].Text, "#") {
		t.Errorf("markdown markup leaked into chunk text: %q", matches[0].Text)
	}

	// Re-training identical content replaces rather than duplicates.
	countBefore := store.Count("support")
	if _, err := pipeline.TrainFromContent(context.Background(), "support", src, Options{}); err != nil {
		t.Fatalf("second TrainFromContent failed: %v", err)
	}
	if got := store.Count("support"); got != countBefore {
		t.Errorf("record count changed across identical runs: %d then %d", countBefore, got)
	}
}

func TestTrainFromContentEmpty(t *testing.T) {
	embedder := &countingEmbedder{}
	pipeline, _, _ := newTestPipeline(t, embedder)

	if _, err := pipeline.TrainFromContent(context.Background(), "support", ContentSource{}, Options{}); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestTrainResetClearsNamespace(t *testing.T) {
	embedder := &countingEmbedder{}
	pipeline, store, _ := newTestPipeline(t, embedder)

	ctx := context.Background()
	old := ContentSource{Title: "Old", Content: "An obsolete page about discontinued products."}
	if _, err := pipeline.TrainFromContent(ctx, "shop", old, Options{}); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	fresh := ContentSource{Title: "New", Content: "The current catalog lists only active products."}
	result, err := pipeline.TrainFromContent(ctx, "shop", fresh, Options{Reset: true})
	if err != nil {
		t.Fatalf("reset run failed: %v", err)
	}
	if got := store.Count("shop"); got != result.ChunksCreated {
		t.Errorf("expected only fresh records after reset, store holds %d, want %d", got, result.ChunksCreated)
	}
}

func TestJobStoreLifecycle(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer database.Close()
	jobs := NewJobStore(database)
	ctx := context.Background()

	job, err := jobs.Create(ctx, "acme", []string{"https://example.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if job.Status != JobPending {
		t.Errorf("new job status %q, want pending", job.Status)
	}

	if err := jobs.MarkProcessing(ctx, job.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if err := jobs.Complete(ctx, job.ID, &Result{DocumentsProcessed: 5, ChunksCreated: 12, EmbeddingsGenerated: 12}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	got, err := jobs.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != JobCompleted {
		t.Errorf("status %q, want completed", got.Status)
	}
	if got.ChunksCreated != 12 {
		t.Errorf("chunks_created %d, want 12", got.ChunksCreated)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
	if len(got.URLs) != 1 || got.URLs[0] != "https://example.com" {
		t.Errorf("urls round-trip failed: %v", got.URLs)
	}

	// Terminal jobs stay terminal.
	if err := jobs.Fail(ctx, job.ID, fmt.Errorf("late failure")); err == nil {
		t.Error("expected error when failing a completed job")
	}
	got, _ = jobs.Get(ctx, job.ID)
	if got.Status != JobCompleted {
		t.Errorf("terminal job was reopened: %q", got.Status)
	}
}

func TestJobStoreGetMissing(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer database.Close()
	jobs := NewJobStore(database)

	job, err := jobs.Get(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job != nil {
		t.Errorf("expected nil for missing job, got %+v", job)
	}
}

func TestJobStoreList(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer database.Close()
	jobs := NewJobStore(database)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := jobs.Create(ctx, "acme", []string{fmt.Sprintf("https://example.com/%d", i)}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if _, err := jobs.Create(ctx, "other", []string{"https://other.example"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	listed, err := jobs.List(ctx, "acme", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 3 {
		t.Errorf("expected 3 jobs for namespace, got %d", len(listed))
	}

	all, err := jobs.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("List all failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 jobs total, got %d", len(all))
	}
}
