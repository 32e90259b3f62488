package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	// defaultTimeout bounds a single page fetch.
	defaultTimeout = 30 * time.Second

	// maxBodySize caps how much of a response body is read (5MB).
	maxBodySize = int64(5 * 1024 * 1024)

	userAgent = "sitechat-crawler/1.0"
)

// ErrInvalidURL is returned when the start URL cannot be parsed or does not
// use an http(s) scheme. Never retried.
var ErrInvalidURL = errors.New("crawler: invalid url")

// Document is one fetched page, normalized to plain text.
type Document struct {
	URL         string
	Title       string
	Description string
	Content     string
	FetchedAt   time.Time
}

// PageError records a per-page fetch failure. A bad page never aborts a crawl.
type PageError struct {
	URL string
	Err error
}

func (e PageError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Options controls a crawl.
type Options struct {
	MaxDepth            int
	MaxPages            int
	Concurrency         int // page fetches in flight per BFS wave
	FollowExternalLinks bool
	UseSitemap          bool
	Include             []string // doublestar globs over URL paths
	Exclude             []string
	Timeout             time.Duration
}

func (o *Options) applyDefaults() {
	if o.MaxDepth <= 0 {
		o.MaxDepth = 2
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 50
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 3
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
}

// Result is the outcome of one crawl.
type Result struct {
	Pages       []Document
	Errors      []PageError
	SitemapSeed int // URLs pre-queued from the sitemap, 0 if unused or failed
	Duration    time.Duration
}

// Crawler traverses a website breadth-first and extracts page text.
type Crawler struct {
	client *http.Client
}

// New creates a Crawler with its own HTTP client.
func New() *Crawler {
	return &Crawler{
		client: &http.Client{Timeout: defaultTimeout},
	}
}

type queueItem struct {
	url   string
	depth int
}

type fetchOutcome struct {
	item  queueItem
	doc   *Document
	links []string
	err   error
}

// Crawl walks the site starting at startURL. Traversal is breadth-first over
// a FIFO queue of (url, depth); a visited set prevents revisiting; it stops
// when the queue empties or MaxPages pages have been fetched. Depth is
// checked on dequeue, so over-deep branches are pruned lazily.
func (c *Crawler) Crawl(ctx context.Context, startURL string, opts Options) (*Result, error) {
	opts.applyDefaults()
	start := time.Now()

	base, err := parseStartURL(startURL)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	queue := []queueItem{{url: base.String(), depth: 0}}

	if opts.UseSitemap {
		seeds := c.sitemapSeeds(ctx, base)
		result.SitemapSeed = len(seeds)
		for _, s := range seeds {
			queue = append(queue, queueItem{url: s, depth: 1})
		}
	}

	visited := make(map[string]bool)

	for len(queue) > 0 && len(result.Pages) < opts.MaxPages {
		// Pull the next wave of fetchable URLs off the queue.
		var wave []queueItem
		for len(queue) > 0 && len(wave) < opts.Concurrency && len(result.Pages)+len(wave) < opts.MaxPages {
			item := queue[0]
			queue = queue[1:]
			if item.depth > opts.MaxDepth {
				continue
			}
			if visited[item.url] {
				continue
			}
			visited[item.url] = true
			wave = append(wave, item)
		}
		if len(wave) == 0 {
			continue
		}

		outcomes := c.fetchWave(ctx, wave, opts)

		for _, out := range outcomes {
			if out.err != nil {
				result.Errors = append(result.Errors, PageError{URL: out.item.url, Err: out.err})
				continue
			}
			result.Pages = append(result.Pages, *out.doc)

			for _, link := range out.links {
				if !c.allowLink(link, base, opts) {
					continue
				}
				if visited[link] {
					continue
				}
				queue = append(queue, queueItem{url: link, depth: out.item.depth + 1})
			}
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// fetchWave fetches one wave of pages with bounded concurrency. Outcomes
// come back in wave order so crawl results are deterministic for a given
// site layout.
func (c *Crawler) fetchWave(ctx context.Context, wave []queueItem, opts Options) []fetchOutcome {
	outcomes := make([]fetchOutcome, len(wave))

	sem := make(chan struct{}, opts.Concurrency)
	var wg sync.WaitGroup
	for i, item := range wave {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, item queueItem) {
			defer wg.Done()
			defer func() { <-sem }()

			fetchCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
			defer cancel()

			doc, links, err := c.fetchPage(fetchCtx, item.url)
			outcomes[i] = fetchOutcome{item: item, doc: doc, links: links, err: err}
		}(i, item)
	}
	wg.Wait()

	return outcomes
}

// FetchOne fetches and extracts a single page without link traversal.
// Used by multi-URL ingestion where the URL list is already known.
func (c *Crawler) FetchOne(ctx context.Context, pageURL string) (*Document, error) {
	if _, err := parseStartURL(pageURL); err != nil {
		return nil, err
	}
	fetchCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, _, err := c.fetchPage(fetchCtx, pageURL)
	return doc, err
}

func parseStartURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q: scheme must be http or https", ErrInvalidURL, raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q: missing host", ErrInvalidURL, raw)
	}
	u.Fragment = ""
	return u, nil
}
