package trainer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ziadkadry99/sitechat/internal/chunker"
	"github.com/ziadkadry99/sitechat/internal/config"
	"github.com/ziadkadry99/sitechat/internal/crawler"
	"github.com/ziadkadry99/sitechat/internal/embeddings"
	"github.com/ziadkadry99/sitechat/internal/vectordb"
)

// embedBatchSize is the number of chunks embedded and upserted per batch.
// A failed batch is recorded and skipped without aborting the run.
const embedBatchSize = 10

// Pipeline orchestrates the full ingestion workflow:
// crawl -> clean -> chunk -> embed -> index.
type Pipeline struct {
	crawler    *crawler.Crawler
	embedder   embeddings.Embedder
	store      vectordb.Store
	jobs       *JobStore // optional, nil disables job tracking
	cfg        *config.Config
	onProgress ProgressFunc
}

// NewPipeline creates a new Pipeline. jobs may be nil when job tracking
// is not needed (one-shot CLI runs).
func NewPipeline(
	c *crawler.Crawler,
	embedder embeddings.Embedder,
	store vectordb.Store,
	jobs *JobStore,
	cfg *config.Config,
) *Pipeline {
	return &Pipeline{
		crawler:  c,
		embedder: embedder,
		store:    store,
		jobs:     jobs,
		cfg:      cfg,
	}
}

// SetProgressFunc sets the progress callback.
func (p *Pipeline) SetProgressFunc(fn ProgressFunc) {
	p.onProgress = fn
}

func (p *Pipeline) report(stage Stage, current, total int, msg string) {
	if p.onProgress != nil {
		p.onProgress(Progress{Stage: stage, Current: current, Total: total, Message: msg})
	}
}

// crawlOptions resolves the crawl settings for a run.
func (p *Pipeline) crawlOptions(opts Options) crawler.Options {
	if opts.Crawl != nil {
		return *opts.Crawl
	}
	return crawler.Options{
		MaxDepth:            p.cfg.Crawl.MaxDepth,
		MaxPages:            p.cfg.Crawl.MaxPages,
		Concurrency:         p.cfg.Crawl.Concurrency,
		FollowExternalLinks: p.cfg.Crawl.FollowExternalLinks,
		UseSitemap:          p.cfg.Crawl.UseSitemap,
		Include:             p.cfg.Crawl.Include,
		Exclude:             p.cfg.Crawl.Exclude,
	}
}

// TrainFromURL crawls a website and ingests every reachable page into
// the namespace. A crawl that cannot start is fatal; individual page
// failures are recorded in the result and skipped.
func (p *Pipeline) TrainFromURL(ctx context.Context, namespace, startURL string, opts Options) (*Result, error) {
	job, err := p.startJob(ctx, namespace, []string{startURL})
	if err != nil {
		return nil, err
	}
	return p.runCrawl(ctx, job, namespace, startURL, opts)
}

// TrainFromURLAsync registers a pending job and runs the crawl in the
// background. Callers poll the job store for completion. Requires a
// JobStore.
func (p *Pipeline) TrainFromURLAsync(namespace, startURL string, opts Options) (*Job, error) {
	if p.jobs == nil {
		return nil, fmt.Errorf("async training requires a job store")
	}
	job, err := p.jobs.Create(context.Background(), namespace, []string{startURL})
	if err != nil {
		return nil, fmt.Errorf("creating training job: %w", err)
	}
	go func() {
		ctx := context.Background()
		if err := p.jobs.MarkProcessing(ctx, job.ID); err != nil {
			return
		}
		p.runCrawl(ctx, job, namespace, startURL, opts)
	}()
	return job, nil
}

func (p *Pipeline) runCrawl(ctx context.Context, job *Job, namespace, startURL string, opts Options) (*Result, error) {
	start := time.Now()
	result := &Result{JobID: job.id()}

	p.report(StageScraping, 0, 0, "crawling "+startURL)
	crawlRes, err := p.crawler.Crawl(ctx, startURL, p.crawlOptions(opts))
	if err != nil {
		err = fmt.Errorf("crawling %s: %w", startURL, err)
		p.failJob(ctx, job, err)
		return nil, err
	}
	for _, pe := range crawlRes.Errors {
		result.Errors = append(result.Errors, pe)
	}
	p.report(StageScraping, len(crawlRes.Pages), len(crawlRes.Pages),
		fmt.Sprintf("fetched %d pages", len(crawlRes.Pages)))

	if err := p.train(ctx, namespace, crawlRes.Pages, opts, result); err != nil {
		p.failJob(ctx, job, err)
		return result, err
	}

	result.Duration = time.Since(start)
	p.finishJob(ctx, job, result)
	p.report(StageComplete, 1, 1,
		fmt.Sprintf("%d documents, %d chunks", result.DocumentsProcessed, result.ChunksCreated))
	return result, nil
}

// TrainFromURLs ingests an explicit list of page URLs without link
// discovery. Pages are fetched with bounded concurrency; per-URL
// failures are recorded and skipped.
func (p *Pipeline) TrainFromURLs(ctx context.Context, namespace string, urls []string, opts Options) (*Result, error) {
	start := time.Now()
	result := &Result{}

	job, err := p.startJob(ctx, namespace, urls)
	if err != nil {
		return nil, err
	}
	result.JobID = job.id()

	p.report(StageScraping, 0, len(urls), "fetching pages")

	concurrency := p.cfg.Crawl.Concurrency
	if concurrency < 1 {
		concurrency = 3
	}
	docs := make([]*crawler.Document, len(urls))
	errs := make([]error, len(urls))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, u string) {
			defer wg.Done()
			defer func() { <-sem }()
			doc, err := p.crawler.FetchOne(ctx, u)
			if err != nil {
				errs[i] = crawler.PageError{URL: u, Err: err}
				return
			}
			docs[i] = doc
		}(i, u)
	}
	wg.Wait()

	var pages []crawler.Document
	for i := range urls {
		if errs[i] != nil {
			result.Errors = append(result.Errors, errs[i])
			continue
		}
		pages = append(pages, *docs[i])
	}
	p.report(StageScraping, len(pages), len(urls),
		fmt.Sprintf("fetched %d of %d pages", len(pages), len(urls)))

	if err := p.train(ctx, namespace, pages, opts, result); err != nil {
		p.failJob(ctx, job, err)
		return result, err
	}

	result.Duration = time.Since(start)
	p.finishJob(ctx, job, result)
	p.report(StageComplete, 1, 1,
		fmt.Sprintf("%d documents, %d chunks", result.DocumentsProcessed, result.ChunksCreated))
	return result, nil
}

// TrainFromContent ingests raw text or markdown supplied directly. The
// document gets a synthetic content:// source URL derived from the raw
// content hash, so re-training the same content stays idempotent.
func (p *Pipeline) TrainFromContent(ctx context.Context, namespace string, src ContentSource, opts Options) (*Result, error) {
	start := time.Now()
	result := &Result{}

	if src.Content == "" {
		return nil, fmt.Errorf("content is empty")
	}

	content := src.Content
	if src.Markdown {
		content = chunker.StripMarkdown(content)
	} else {
		content = chunker.Clean(content)
	}

	doc := crawler.Document{
		URL:       "content://" + chunker.Hash(src.Content)[:12],
		Title:     src.Title,
		Content:   content,
		FetchedAt: time.Now(),
	}

	job, err := p.startJob(ctx, namespace, []string{doc.URL})
	if err != nil {
		return nil, err
	}
	result.JobID = job.id()

	p.report(StageScraping, 1, 1, "using supplied content")

	if err := p.train(ctx, namespace, []crawler.Document{doc}, opts, result); err != nil {
		p.failJob(ctx, job, err)
		return result, err
	}

	result.Duration = time.Since(start)
	p.finishJob(ctx, job, result)
	p.report(StageComplete, 1, 1, fmt.Sprintf("%d chunks", result.ChunksCreated))
	return result, nil
}

// train runs the processing, embedding, and indexing stages over a set
// of fetched documents. Every stage reports progress even when its
// input set is empty.
func (p *Pipeline) train(ctx context.Context, namespace string, pages []crawler.Document, opts Options, result *Result) error {
	if opts.Reset {
		if err := p.store.DeleteNamespace(ctx, namespace); err != nil {
			return fmt.Errorf("resetting namespace %s: %w", namespace, err)
		}
	}

	// Processing: chunk each document and build records. Chunk IDs are
	// deterministic over namespace, content hash, and chunk index, so a
	// re-run of unchanged content overwrites in place.
	p.report(StageProcessing, 0, len(pages), "chunking documents")
	var records []vectordb.Record
	now := time.Now()
	for i, doc := range pages {
		if !opts.Reset {
			// Drop chunks from a previous version of this page. The new
			// content may hash differently, which would otherwise leave
			// the old chunks behind.
			if err := p.store.DeleteBySource(ctx, namespace, doc.URL); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("deleting stale chunks for %s: %w", doc.URL, err))
				continue
			}
		}

		hash := chunker.Hash(doc.Content)
		chunks := chunker.Split(doc.Content, p.cfg.Chunk.Size, p.cfg.Chunk.Overlap)
		for _, c := range chunks {
			records = append(records, vectordb.Record{
				ID:   fmt.Sprintf("%s_%s_chunk_%d", namespace, hash, c.Index),
				Text: c.Text,
				Metadata: vectordb.Metadata{
					SourceURL:   doc.URL,
					Title:       doc.Title,
					ContentHash: hash,
					ChunkIndex:  c.Index,
					TotalChunks: len(chunks),
					UpdatedAt:   now,
				},
			})
		}
		result.DocumentsProcessed++
		result.ChunksCreated += len(chunks)
		p.report(StageProcessing, i+1, len(pages), doc.URL)
	}

	// Embedding: batches keep provider calls small and make failures
	// recoverable per batch rather than per run.
	p.report(StageEmbedding, 0, len(records), "generating embeddings")
	var ready []vectordb.Record
	for start := 0; start < len(records); start += embedBatchSize {
		end := min(start+embedBatchSize, len(records))
		batch := records[start:end]

		texts := make([]string, len(batch))
		for i, r := range batch {
			texts[i] = r.Text
		}
		vectors, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			result.Errors = append(result.Errors, &embeddings.GenerationError{Err: err})
			continue
		}
		for i := range batch {
			batch[i].Vector = vectors[i]
		}
		ready = append(ready, batch...)
		result.EmbeddingsGenerated += len(batch)
		p.report(StageEmbedding, end, len(records), "")
	}

	// Indexing.
	p.report(StageIndexing, 0, len(ready), "upserting records")
	for start := 0; start < len(ready); start += embedBatchSize {
		end := min(start+embedBatchSize, len(ready))
		if err := p.store.Upsert(ctx, namespace, ready[start:end]); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("upserting batch: %w", err))
			continue
		}
		p.report(StageIndexing, end, len(ready), "")
	}

	if p.cfg.DataDir != "" {
		if err := p.store.Persist(ctx, p.cfg.DataDir); err != nil {
			return fmt.Errorf("persisting store: %w", err)
		}
	}

	return nil
}
