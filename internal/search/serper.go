package search

import (
	"context"
	"fmt"
	"time"

	"github.com/FranksOps/dossier/pkg/httpclient"
)

// Serper queries the serper.dev Google search API.
type Serper struct {
	endpoint string
	apiKey   string
	client   *httpclient.Client
}

var _ Provider = (*Serper)(nil)

// NewSerper builds a Serper provider. Endpoint defaults to the public API.
func NewSerper(endpoint, apiKey string) (*Serper, error) {
	if endpoint == "" {
		endpoint = "https://google.serper.dev/search"
	}
	client, err := httpclient.New(httpclient.Config{Timeout: 10 * time.Second, MaxRedirects: 3})
	if err != nil {
		return nil, fmt.Errorf("create serper client: %w", err)
	}
	return &Serper{endpoint: endpoint, apiKey: apiKey, client: client}, nil
}

func (s *Serper) Name() string { return "serper" }

// organicItem decodes one organic hit. Link is deliberately loose: the API
// has been observed returning nested arrays for the link field, which must be
// flattened to a single string before any matching logic runs.
type organicItem struct {
	Link    any    `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type serperResponse struct {
	Organic []organicItem `json:"organic"`
}

// Search posts the query and maps organic hits to Results in rank order.
func (s *Serper) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("serper: no API key configured")
	}

	payload := map[string]any{"q": query, "num": limit}
	var resp serperResponse
	err := s.client.PostJSON(ctx, s.endpoint, map[string]string{"X-API-KEY": s.apiKey}, payload, &resp)
	if err != nil {
		return nil, fmt.Errorf("serper search: %w", err)
	}

	var results []Result
	for _, item := range resp.Organic {
		link, ok := flattenLink(item.Link)
		if !ok {
			continue
		}
		results = append(results, Result{URL: link, Title: item.Title, Snippet: item.Snippet})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// flattenLink reduces a link value to its first string, descending into
// nested arrays of arbitrary depth.
func flattenLink(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", false
		}
		return t, true
	case []any:
		for _, inner := range t {
			if s, ok := flattenLink(inner); ok {
				return s, true
			}
		}
	}
	return "", false
}
