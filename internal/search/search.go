// Package search implements the WebSearch capability: given a query it
// returns ranked candidate website URLs. Providers are tried in a fixed
// preference order; the first one returning a usable non-empty result wins,
// and a total miss is reported as an empty slice, never as a fault.
package search

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/FranksOps/dossier/internal/metrics"
)

// Result is one ranked search hit.
type Result struct {
	URL     string
	Title   string
	Snippet string
}

// Provider abstracts a search engine that can return ranked results for a
// query. Implementations may use official APIs or scraping.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Chain tries providers in preference order and returns the first usable
// non-empty result set.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain builds a provider fallback chain.
func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{providers: providers, logger: logger}
}

// Find returns up to limit deduplicated results in provider rank order.
// All providers failing or returning nothing yields an empty slice.
func (c *Chain) Find(ctx context.Context, query string, limit int) []Result {
	for _, p := range c.providers {
		results, err := p.Search(ctx, query, limit)
		metrics.RecordSearch(p.Name(), len(results), err)
		if err != nil {
			c.logger.Warn("search provider failed", "provider", p.Name(), "query", query, "err", err)
			continue
		}

		results = Dedupe(results)
		if len(results) == 0 {
			c.logger.Debug("search provider returned no results", "provider", p.Name(), "query", query)
			continue
		}

		if len(results) > limit {
			results = results[:limit]
		}
		return results
	}
	return nil
}

// Dedupe removes results whose normalized URL was already seen, preserving
// rank order, and drops entries without a parseable http(s) URL.
func Dedupe(results []Result) []Result {
	seen := make(map[string]struct{}, len(results))
	out := results[:0:0]
	for _, r := range results {
		key, ok := normalizeURL(r.URL)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// normalizeURL lowercases scheme/host, strips fragments and trailing slashes.
func normalizeURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String(), true
}
