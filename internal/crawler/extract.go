package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/ziadkadry99/sitechat/internal/chunker"
)

// excludedTags holds structural elements whose text is navigation or
// boilerplate, never page content.
const excludedTags = "script, style, nav, footer, header, aside, noscript, iframe, form, svg"

// assetExtensions lists file extensions that are never text pages.
var assetExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".webp": true, ".ico": true, ".css": true, ".js": true, ".json": true,
	".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".rar": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wav": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".xml": true,
}

// fetchPage downloads one URL and extracts its title, meta description,
// visible text, and outgoing links.
func (c *Crawler) fetchPage(ctx context.Context, pageURL string) (*Document, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, nil, fmt.Errorf("unsupported content type %q", ct)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		u := *resp.Request.URL
		u.Fragment = ""
		finalURL = u.String()
	}

	page := &Document{
		URL:         finalURL,
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Description: metaDescription(doc),
		FetchedAt:   time.Now().UTC(),
	}

	// Strip boilerplate elements before reading the visible text.
	doc.Find(excludedTags).Remove()
	page.Content = chunker.Clean(blockText(doc))

	links := extractLinks(doc, finalURL)
	return page, links, nil
}

func metaDescription(doc *goquery.Document) string {
	desc, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	return strings.TrimSpace(desc)
}

// blockText walks block-level elements so their boundaries become newlines
// instead of words running together.
func blockText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		return doc.Text()
	}

	var b strings.Builder
	blocks := body.Find("p, h1, h2, h3, h4, h5, h6, li, td, th, blockquote, pre, figcaption")
	if blocks.Length() == 0 {
		return body.Text()
	}
	blocks.Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	})
	return b.String()
}

// extractLinks resolves all anchor hrefs against the page URL and returns
// absolute http(s) URLs with fragments stripped.
func extractLinks(doc *goquery.Document, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "tel:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.Fragment = ""
		link := abs.String()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})
	return links
}

// allowLink decides whether a discovered link may be enqueued: same-origin
// unless FollowExternalLinks, no asset extensions, and the path must pass
// the include/exclude globs.
func (c *Crawler) allowLink(link string, base *url.URL, opts Options) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}

	if !opts.FollowExternalLinks && u.Host != base.Host {
		return false
	}

	if ext := strings.ToLower(path.Ext(u.Path)); assetExtensions[ext] {
		return false
	}

	return pathAllowed(u.Path, opts.Include, opts.Exclude)
}

// pathAllowed applies doublestar include/exclude globs to a URL path.
// An empty include list means everything is included.
func pathAllowed(urlPath string, include, exclude []string) bool {
	trimmed := strings.TrimPrefix(urlPath, "/")

	for _, pattern := range exclude {
		if ok, _ := doublestar.Match(pattern, trimmed); ok {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pattern := range include {
		if ok, _ := doublestar.Match(pattern, trimmed); ok {
			return true
		}
	}
	return false
}
