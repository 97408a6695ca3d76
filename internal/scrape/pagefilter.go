package scrape

import (
	"net/url"
	"strings"
)

// includeSegments mark paths likely to carry business-descriptive content.
// The root page always qualifies.
var includeSegments = []string{
	"about", "company", "product", "products", "service", "services",
	"pricing", "solutions", "customers", "industries", "platform",
	"features", "team", "what-we-do", "who-we-are",
}

// excludeSegments mark noise paths that never describe the business itself.
// Exclusion wins over inclusion.
var excludeSegments = []string{
	"blog", "news", "careers", "jobs", "legal", "privacy", "terms",
	"support", "help", "docs", "documentation", "login", "signin",
	"signup", "register", "cart", "press", "events", "sitemap",
	"cookie", "status", "api",
}

// RelevantPage reports whether pageURL is worth fetching during a business
// research crawl of the site rooted at baseURL: same host, not a noise path,
// and either the root page or a path containing an include segment.
func RelevantPage(baseURL, pageURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !sameSite(base.Hostname(), u.Hostname()) {
		return false
	}

	segments := pathSegments(u.Path)
	for _, seg := range segments {
		for _, excl := range excludeSegments {
			if seg == excl {
				return false
			}
		}
	}

	if len(segments) == 0 {
		return true // site root
	}
	for _, seg := range segments {
		for _, incl := range includeSegments {
			if seg == incl || strings.HasPrefix(seg, incl+"-") {
				return true
			}
		}
	}
	return false
}

// RankPages orders candidate URLs by descending relevance: root first, then
// shallower paths before deeper ones, preserving discovery order among equals.
func RankPages(baseURL string, candidates []string) []string {
	type scored struct {
		url   string
		depth int
		order int
	}
	var kept []scored
	for i, c := range candidates {
		if !RelevantPage(baseURL, c) {
			continue
		}
		u, err := url.Parse(c)
		if err != nil {
			continue
		}
		kept = append(kept, scored{url: c, depth: len(pathSegments(u.Path)), order: i})
	}

	// Insertion sort: candidate lists are small (tens of URLs).
	for i := 1; i < len(kept); i++ {
		for j := i; j > 0; j-- {
			a, b := kept[j-1], kept[j]
			if b.depth < a.depth || (b.depth == a.depth && b.order < a.order) {
				kept[j-1], kept[j] = b, a
			} else {
				break
			}
		}
	}

	out := make([]string, 0, len(kept))
	seen := make(map[string]struct{}, len(kept))
	for _, s := range kept {
		key := strings.TrimRight(s.url, "/")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s.url)
	}
	return out
}

func sameSite(baseHost, host string) bool {
	baseHost = strings.ToLower(strings.TrimPrefix(baseHost, "www."))
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	return host == baseHost || strings.HasSuffix(host, "."+baseHost)
}

func pathSegments(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || s == "index.html" || s == "index.htm" {
			continue
		}
		segs = append(segs, s)
	}
	return segs
}
