package scrape

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	sitemap "github.com/oxffaa/gopher-parse-sitemap"
)

// SitemapReader discovers page URLs from a site's sitemap XML, following one
// level of sitemap-index nesting.
type SitemapReader struct {
	fetcher *Fetcher
	logger  *slog.Logger
}

// NewSitemapReader initializes a SitemapReader over the shared fetcher.
func NewSitemapReader(fetcher *Fetcher, logger *slog.Logger) *SitemapReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &SitemapReader{fetcher: fetcher, logger: logger}
}

// Read fetches sitemapURL and returns every page location it lists. Sitemap
// indexes are recursed into; unparseable documents return an error.
func (s *SitemapReader) Read(ctx context.Context, sitemapURL string) ([]string, error) {
	s.logger.Debug("fetching sitemap", "url", sitemapURL)

	result, err := s.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}
	if result.StatusCode >= 400 {
		return nil, fmt.Errorf("sitemap fetch returned status %d", result.StatusCode)
	}

	var urls []string
	err = sitemap.Parse(bytes.NewReader(result.Body), func(e sitemap.Entry) error {
		urls = append(urls, e.GetLocation())
		return nil
	})

	if err != nil || len(urls) == 0 {
		// Possibly a sitemap index wrapping nested sitemaps.
		var nested []string
		indexErr := sitemap.ParseIndex(bytes.NewReader(result.Body), func(e sitemap.IndexEntry) error {
			nested = append(nested, e.GetLocation())
			return nil
		})
		if indexErr != nil || (len(urls) == 0 && len(nested) == 0) {
			return nil, fmt.Errorf("parse as sitemap or index: %w", err)
		}

		for _, nestedURL := range nested {
			nestedURLs, fetchErr := s.Read(ctx, nestedURL)
			if fetchErr != nil {
				s.logger.Warn("nested sitemap failed", "url", nestedURL, "err", fetchErr)
				continue
			}
			urls = append(urls, nestedURLs...)
		}
	}

	return urls, nil
}
