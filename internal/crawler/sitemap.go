package crawler

import (
	"context"
	"encoding/xml"
	"io"
	"log"
	"net/http"
	"net/url"
)

type sitemapURLSet struct {
	URLs []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

// sitemapSeeds fetches /sitemap.xml relative to the start URL and returns the
// <loc> entries it lists. Any failure is swallowed: the crawl falls back to
// plain BFS from the seed.
func (c *Crawler) sitemapSeeds(ctx context.Context, base *url.URL) []string {
	sitemapURL := base.ResolveReference(&url.URL{Path: "/sitemap.xml"}).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("crawler: sitemap fetch failed for %s: %v", sitemapURL, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil
	}

	var set sitemapURLSet
	if err := xml.Unmarshal(body, &set); err != nil {
		log.Printf("crawler: sitemap parse failed for %s: %v", sitemapURL, err)
		return nil
	}

	var seeds []string
	for _, entry := range set.URLs {
		if entry.Loc == "" {
			continue
		}
		if u, err := url.Parse(entry.Loc); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
			u.Fragment = ""
			seeds = append(seeds, u.String())
		}
	}
	return seeds
}
