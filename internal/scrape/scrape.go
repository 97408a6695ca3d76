// Package scrape implements the ContentScraper capability. A scrape runs in
// two tiers: an asynchronous multi-page crawl job restricted to pages likely
// to describe the business, then a single-page fetch of the confirmed URL if
// the crawl yields nothing usable. Providers are tried in preference order;
// content below a minimum usefulness threshold counts as failure, never as a
// partial success.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/dossier/internal/metrics"
)

// PageBreakMarker separates per-page sections in combined output. Downstream
// consumers split on it, so it must stay parseable.
const PageBreakMarker = "\n\n---PAGE BREAK---\n\n"

// MinUsefulLength is the smallest combined text length treated as a usable
// scrape. Anything shorter is reported as failure.
const MinUsefulLength = 200

// ErrNoContent reports that every tier of every provider failed to produce
// usable content for the URL.
var ErrNoContent = errors.New("no usable content extracted")

// JobState describes an asynchronous crawl job.
type JobState string

const (
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Page is one fetched page with its source URL.
type Page struct {
	URL     string
	Content string
}

// CrawlStatus is a poll snapshot of a crawl job.
type CrawlStatus struct {
	State JobState
	Pages []Page
	Error string // populated when State == JobFailed
}

// Provider is one interchangeable scraping backend. StartCrawl submits an
// asynchronous multi-page job; PollCrawl reports its progress. ScrapePage
// fetches and cleans a single page synchronously.
type Provider interface {
	Name() string
	ScrapePage(ctx context.Context, url string) (string, error)
	StartCrawl(ctx context.Context, url string, maxPages int) (jobID string, err error)
	PollCrawl(ctx context.Context, jobID string) (CrawlStatus, error)
}

// Config bounds the crawl tier.
type Config struct {
	MaxPages     int
	PollInterval time.Duration
	PollBudget   time.Duration
}

// Scraper coordinates providers and tiers.
type Scraper struct {
	cfg       Config
	providers []Provider
	logger    *slog.Logger
}

// New creates a Scraper over the given providers, tried in order.
func New(cfg Config, logger *slog.Logger, providers ...Provider) *Scraper {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 15
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PollBudget <= 0 {
		cfg.PollBudget = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{cfg: cfg, providers: providers, logger: logger}
}

// Fetch returns the combined, page-break-joined text for the website at url,
// and the number of pages it covers. It fails with ErrNoContent when no tier
// produced text above MinUsefulLength.
func (s *Scraper) Fetch(ctx context.Context, url string) (string, int, error) {
	for _, p := range s.providers {
		start := time.Now()
		combined, pages, err := s.crawlTier(ctx, p, url)
		metrics.RecordScrape("crawl", time.Since(start), err)
		if err == nil {
			return combined, pages, nil
		}
		s.logger.Warn("crawl tier failed, trying single page", "provider", p.Name(), "url", url, "err", err)

		start = time.Now()
		combined, err = s.singleTier(ctx, p, url)
		metrics.RecordScrape("single", time.Since(start), err)
		if err == nil {
			return combined, 1, nil
		}
		s.logger.Warn("single page tier failed", "provider", p.Name(), "url", url, "err", err)
	}
	return "", 0, ErrNoContent
}

// crawlTier submits a crawl job and polls it to completion within the budget.
// "still running" is retry-worthy; "failed" and budget exhaustion are final.
func (s *Scraper) crawlTier(ctx context.Context, p Provider, url string) (string, int, error) {
	jobID, err := p.StartCrawl(ctx, url, s.cfg.MaxPages)
	if err != nil {
		return "", 0, fmt.Errorf("start crawl: %w", err)
	}

	deadline := time.Now().Add(s.cfg.PollBudget)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", 0, ctx.Err()
		case <-ticker.C:
		}

		status, err := p.PollCrawl(ctx, jobID)
		if err != nil {
			return "", 0, fmt.Errorf("poll crawl %s: %w", jobID, err)
		}

		switch status.State {
		case JobCompleted:
			return combinePages(status.Pages)
		case JobFailed:
			return "", 0, fmt.Errorf("crawl job %s failed: %s", jobID, status.Error)
		case JobRunning:
			if time.Now().After(deadline) {
				return "", 0, fmt.Errorf("crawl job %s exceeded poll budget", jobID)
			}
		default:
			return "", 0, fmt.Errorf("crawl job %s reported unknown state %q", jobID, status.State)
		}
	}
}

func (s *Scraper) singleTier(ctx context.Context, p Provider, url string) (string, error) {
	content, err := p.ScrapePage(ctx, url)
	if err != nil {
		return "", fmt.Errorf("scrape page: %w", err)
	}
	content = strings.TrimSpace(content)
	if len(content) < MinUsefulLength {
		return "", fmt.Errorf("page content too short (%d chars)", len(content))
	}
	return "Source: " + url + "\n\n" + content, nil
}

// combinePages labels each page with its source URL and joins sections with
// the page-break marker. Empty pages are skipped; a combined result below the
// usefulness threshold is a failure.
func combinePages(pages []Page) (string, int, error) {
	var sections []string
	for _, pg := range pages {
		text := strings.TrimSpace(pg.Content)
		if text == "" {
			continue
		}
		sections = append(sections, "Source: "+pg.URL+"\n\n"+text)
	}

	combined := strings.Join(sections, PageBreakMarker)
	if len(combined) < MinUsefulLength {
		return "", 0, fmt.Errorf("combined content too short (%d chars over %d pages)", len(combined), len(sections))
	}
	return combined, len(sections), nil
}
