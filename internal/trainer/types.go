package trainer

import (
	"time"

	"github.com/ziadkadry99/sitechat/internal/crawler"
)

// Stage identifies a phase of a training run. Stages always advance in
// order: scraping, processing, embedding, indexing, complete.
type Stage string

const (
	StageScraping   Stage = "scraping"
	StageProcessing Stage = "processing"
	StageEmbedding  Stage = "embedding"
	StageIndexing   Stage = "indexing"
	StageComplete   Stage = "complete"
)

// Progress is one progress update emitted during a training run.
type Progress struct {
	Stage   Stage
	Current int
	Total   int
	Message string
}

// ProgressFunc is called as the pipeline moves through its stages.
type ProgressFunc func(Progress)

// Options control a single training run.
type Options struct {
	// Reset drops every record in the namespace before ingesting.
	// Without it, stale chunks are removed per source URL instead.
	Reset bool

	// Crawl overrides the configured crawl settings when non-nil.
	Crawl *crawler.Options
}

// ContentSource is raw text or markdown supplied directly, bypassing
// the crawler.
type ContentSource struct {
	Title    string
	Content  string
	Markdown bool
}

// Result summarizes the outcome of a training run. Errors holds
// per-document and per-batch failures that did not abort the run.
type Result struct {
	JobID               string
	DocumentsProcessed  int
	ChunksCreated       int
	EmbeddingsGenerated int
	Errors              []error
	Duration            time.Duration
}
