package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/FranksOps/dossier/pkg/httpclient"
)

// Firecrawl is a remote scraping provider speaking the firecrawl.dev v1 API:
// synchronous single-page scrapes plus asynchronous crawl jobs polled by id.
type Firecrawl struct {
	baseURL string
	apiKey  string
	client  *httpclient.Client
}

var _ Provider = (*Firecrawl)(nil)

// NewFirecrawl builds a Firecrawl provider. baseURL defaults to the hosted API.
func NewFirecrawl(baseURL, apiKey string) (*Firecrawl, error) {
	if baseURL == "" {
		baseURL = "https://api.firecrawl.dev/v1"
	}
	client, err := httpclient.New(httpclient.Config{Timeout: 30 * time.Second, MaxRedirects: 5})
	if err != nil {
		return nil, fmt.Errorf("create firecrawl client: %w", err)
	}
	return &Firecrawl{baseURL: baseURL, apiKey: apiKey, client: client}, nil
}

func (f *Firecrawl) Name() string { return "firecrawl" }

func (f *Firecrawl) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + f.apiKey}
}

type scrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
	Error string `json:"error"`
}

// ScrapePage fetches one page as markdown with boilerplate regions excluded
// server-side.
func (f *Firecrawl) ScrapePage(ctx context.Context, url string) (string, error) {
	if f.apiKey == "" {
		return "", fmt.Errorf("firecrawl: no API key configured")
	}

	payload := map[string]any{
		"url":             url,
		"formats":         []string{"markdown"},
		"excludeTags":     []string{"nav", "footer", "header", "aside", "script", "style"},
		"onlyMainContent": true,
	}

	var resp scrapeResponse
	if err := f.client.PostJSON(ctx, f.baseURL+"/scrape", f.headers(), payload, &resp); err != nil {
		return "", fmt.Errorf("firecrawl scrape: %w", err)
	}
	if !resp.Success {
		return "", fmt.Errorf("firecrawl scrape rejected: %s", resp.Error)
	}
	return resp.Data.Markdown, nil
}

type crawlStartResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Error   string `json:"error"`
}

// StartCrawl submits an asynchronous crawl job limited to business-relevant
// path patterns.
func (f *Firecrawl) StartCrawl(ctx context.Context, url string, maxPages int) (string, error) {
	if f.apiKey == "" {
		return "", fmt.Errorf("firecrawl: no API key configured")
	}

	includePaths := make([]string, 0, len(includeSegments))
	for _, seg := range includeSegments {
		includePaths = append(includePaths, seg+"/*")
	}
	excludePaths := make([]string, 0, len(excludeSegments))
	for _, seg := range excludeSegments {
		excludePaths = append(excludePaths, seg+"/*")
	}

	payload := map[string]any{
		"url":          url,
		"limit":        maxPages,
		"includePaths": includePaths,
		"excludePaths": excludePaths,
		"scrapeOptions": map[string]any{
			"formats":         []string{"markdown"},
			"onlyMainContent": true,
		},
	}

	var resp crawlStartResponse
	if err := f.client.PostJSON(ctx, f.baseURL+"/crawl", f.headers(), payload, &resp); err != nil {
		return "", fmt.Errorf("firecrawl crawl submit: %w", err)
	}
	if !resp.Success || resp.ID == "" {
		return "", fmt.Errorf("firecrawl crawl rejected: %s", resp.Error)
	}
	return resp.ID, nil
}

type crawlPollResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Data   []struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			SourceURL string `json:"sourceURL"`
		} `json:"metadata"`
	} `json:"data"`
}

// PollCrawl reports the crawl job's state, mapping provider status strings to
// the three job states the orchestrator understands.
func (f *Firecrawl) PollCrawl(ctx context.Context, jobID string) (CrawlStatus, error) {
	var resp crawlPollResponse
	if err := f.client.GetJSON(ctx, f.baseURL+"/crawl/"+jobID, f.headers(), &resp); err != nil {
		return CrawlStatus{}, fmt.Errorf("firecrawl crawl poll: %w", err)
	}

	switch resp.Status {
	case "completed":
		pages := make([]Page, 0, len(resp.Data))
		for _, d := range resp.Data {
			pages = append(pages, Page{URL: d.Metadata.SourceURL, Content: d.Markdown})
		}
		return CrawlStatus{State: JobCompleted, Pages: pages}, nil
	case "failed", "cancelled":
		msg := resp.Error
		if msg == "" {
			msg = resp.Status
		}
		return CrawlStatus{State: JobFailed, Error: msg}, nil
	default:
		// "scraping", "waiting" and anything else the API invents count as
		// still running; the poll budget bounds how long we indulge it.
		return CrawlStatus{State: JobRunning}, nil
	}
}
