package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/FranksOps/dossier/pkg/ratelimit"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// LocalConfig bounds the in-process crawl provider.
type LocalConfig struct {
	Concurrency   int
	FetchDelay    time.Duration // minimum delay between consecutive page fetches
	JobTimeout    time.Duration
	JobExpiry     time.Duration // how long a finished job survives without being polled
	UserAgent     string        // user-agent name presented to robots.txt
	RespectRobots bool
}

// Local is a scraping provider that needs no external API: it crawls the
// site itself with the fingerprinted fetcher, discovering pages from the
// sitemap and from links on the root page. It implements the same
// asynchronous job contract as the remote provider so the orchestrator
// cannot tell them apart.
type Local struct {
	cfg      LocalConfig
	fetcher  *Fetcher
	robots   *RobotsAuditor
	sitemaps *SitemapReader
	logger   *slog.Logger

	mu   sync.Mutex
	jobs map[string]*localJob
}

type localJob struct {
	mu     sync.Mutex
	status CrawlStatus
	done   time.Time // zero while the crawl is still running
}

var _ Provider = (*Local)(nil)

// NewLocal creates a Local provider over the shared fetcher.
func NewLocal(cfg LocalConfig, fetcher *Fetcher, logger *slog.Logger) *Local {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.FetchDelay <= 0 {
		cfg.FetchDelay = 500 * time.Millisecond
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	if cfg.JobExpiry <= 0 {
		cfg.JobExpiry = 10 * time.Minute
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "dossier-research-bot"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{
		cfg:      cfg,
		fetcher:  fetcher,
		robots:   NewRobotsAuditor(fetcher, logger),
		sitemaps: NewSitemapReader(fetcher, logger),
		logger:   logger,
		jobs:     make(map[string]*localJob),
	}
}

func (l *Local) Name() string { return "local" }

// ScrapePage fetches one page and strips boilerplate.
func (l *Local) ScrapePage(ctx context.Context, pageURL string) (string, error) {
	if l.cfg.RespectRobots {
		allowed, err := l.robots.IsAllowed(ctx, pageURL, l.cfg.UserAgent)
		if err == nil && !allowed {
			return "", fmt.Errorf("robots.txt disallows %s", pageURL)
		}
	}

	res, err := l.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}
	if blocked, vendor := Blocked(res); blocked {
		return "", fmt.Errorf("fetch of %s blocked (%s, status %d)", pageURL, vendor, res.StatusCode)
	}
	if res.StatusCode >= 400 {
		return "", fmt.Errorf("fetch of %s returned status %d", pageURL, res.StatusCode)
	}

	return StripBoilerplate(res.Body)
}

// StartCrawl launches an in-process crawl goroutine and returns its job id.
// The job runs under its own timeout, detached from the submitting context,
// matching the detached lifecycle of a remote crawl job.
func (l *Local) StartCrawl(_ context.Context, siteURL string, maxPages int) (string, error) {
	if _, err := url.ParseRequestURI(siteURL); err != nil {
		return "", fmt.Errorf("invalid crawl url: %w", err)
	}

	jobID := uuid.New().String()
	job := &localJob{status: CrawlStatus{State: JobRunning}}

	l.mu.Lock()
	l.jobs[jobID] = job
	l.mu.Unlock()
	l.sweepJobs(time.Now())

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.cfg.JobTimeout)
		defer cancel()

		pages, err := l.crawl(ctx, siteURL, maxPages)

		job.mu.Lock()
		defer job.mu.Unlock()
		job.done = time.Now()
		if err != nil {
			job.status = CrawlStatus{State: JobFailed, Error: err.Error()}
			return
		}
		job.status = CrawlStatus{State: JobCompleted, Pages: pages}
	}()

	return jobID, nil
}

// sweepJobs drops finished jobs that have gone unpolled past the expiry,
// so crawls abandoned mid-poll do not accumulate.
func (l *Local) sweepJobs(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, job := range l.jobs {
		job.mu.Lock()
		done := job.done
		job.mu.Unlock()
		if !done.IsZero() && now.Sub(done) > l.cfg.JobExpiry {
			delete(l.jobs, id)
		}
	}
}

// PollCrawl reports the job's current status. A job is forgotten once a
// final state has been delivered, or once it expires unpolled.
func (l *Local) PollCrawl(_ context.Context, jobID string) (CrawlStatus, error) {
	l.sweepJobs(time.Now())

	l.mu.Lock()
	job, ok := l.jobs[jobID]
	l.mu.Unlock()
	if !ok {
		return CrawlStatus{}, fmt.Errorf("unknown crawl job %s", jobID)
	}

	job.mu.Lock()
	status := job.status
	job.mu.Unlock()

	if status.State != JobRunning {
		l.mu.Lock()
		delete(l.jobs, jobID)
		l.mu.Unlock()
	}
	return status, nil
}

func (l *Local) crawl(ctx context.Context, siteURL string, maxPages int) ([]Page, error) {
	root, err := l.fetcher.Fetch(ctx, siteURL)
	if err != nil {
		return nil, fmt.Errorf("fetch root page: %w", err)
	}
	if blocked, vendor := Blocked(root); blocked {
		return nil, fmt.Errorf("root page blocked (%s, status %d)", vendor, root.StatusCode)
	}
	if root.StatusCode >= 400 {
		return nil, fmt.Errorf("root page returned status %d", root.StatusCode)
	}

	rootText, err := StripBoilerplate(root.Body)
	if err != nil {
		return nil, fmt.Errorf("extract root page text: %w", err)
	}

	pages := []Page{{URL: siteURL, Content: rootText}}
	if maxPages <= 1 {
		return pages, nil
	}

	candidates := l.discover(ctx, siteURL, root.Body)
	ranked := RankPages(siteURL, candidates)
	if len(ranked) > maxPages-1 {
		ranked = ranked[:maxPages-1]
	}

	fetched := l.fetchAll(ctx, ranked)
	pages = append(pages, fetched...)
	return pages, nil
}

// discover collects candidate page URLs from the sitemap (declared in
// robots.txt or at the conventional location) and from root page links.
func (l *Local) discover(ctx context.Context, siteURL string, rootBody []byte) []string {
	var candidates []string

	sitemapURLs := l.robots.Sitemaps(ctx, siteURL)
	if len(sitemapURLs) == 0 {
		if u, err := url.Parse(siteURL); err == nil {
			sitemapURLs = []string{u.Scheme + "://" + u.Host + "/sitemap.xml"}
		}
	}
	for _, sm := range sitemapURLs {
		urls, err := l.sitemaps.Read(ctx, sm)
		if err != nil {
			l.logger.Debug("sitemap unavailable", "url", sm, "err", err)
			continue
		}
		candidates = append(candidates, urls...)
	}

	candidates = append(candidates, ExtractLinks(siteURL, rootBody)...)
	return candidates
}

// fetchAll fetches the ranked pages with bounded concurrency. The shared
// limiter enforces the minimum delay between consecutive fetches regardless
// of worker count. Individual page failures are logged and skipped.
func (l *Local) fetchAll(ctx context.Context, urls []string) []Page {
	limiter := ratelimit.NewDelayLimiter(l.cfg.FetchDelay, 0.2)
	defer limiter.Stop()

	var (
		mu    sync.Mutex
		pages = make([]Page, 0, len(urls))
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.Concurrency)

	for _, pageURL := range urls {
		pageURL := pageURL
		g.Go(func() error {
			if l.cfg.RespectRobots {
				allowed, err := l.robots.IsAllowed(gCtx, pageURL, l.cfg.UserAgent)
				if err == nil && !allowed {
					l.logger.Debug("page disallowed by robots.txt", "url", pageURL)
					return nil
				}
			}

			if err := limiter.Wait(gCtx); err != nil {
				return err
			}

			res, err := l.fetcher.Fetch(gCtx, pageURL)
			if err != nil {
				l.logger.Debug("page fetch failed", "url", pageURL, "err", err)
				return nil
			}
			if blocked, _ := Blocked(res); blocked || res.StatusCode >= 400 {
				l.logger.Debug("page unusable", "url", pageURL, "status", res.StatusCode)
				return nil
			}
			if ct := res.Headers.Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "html") {
				return nil
			}

			text, err := StripBoilerplate(res.Body)
			if err != nil || strings.TrimSpace(text) == "" {
				return nil
			}

			mu.Lock()
			pages = append(pages, Page{URL: pageURL, Content: text})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		l.logger.Debug("crawl cancelled", "err", err)
	}

	// Restore discovery rank; goroutines complete out of order.
	ordered := make([]Page, 0, len(pages))
	for _, u := range urls {
		for _, pg := range pages {
			if pg.URL == u {
				ordered = append(ordered, pg)
				break
			}
		}
	}
	return ordered
}
