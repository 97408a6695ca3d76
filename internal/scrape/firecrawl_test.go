package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFirecrawl_ScrapePage(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scrape" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		fmt.Fprint(w, `{"success":true,"data":{"markdown":"# Acme\n\nWe sell widgets."}}`)
	}))
	defer srv.Close()

	f, err := NewFirecrawl(srv.URL, "test-key")
	if err != nil {
		t.Fatalf("new firecrawl: %v", err)
	}

	content, err := f.ScrapePage(context.Background(), "https://acme.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(content, "We sell widgets.") {
		t.Errorf("got content %q", content)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("got auth header %q", gotAuth)
	}
	if gotPayload["onlyMainContent"] != true {
		t.Errorf("expected onlyMainContent in payload, got %v", gotPayload)
	}
	if gotPayload["url"] != "https://acme.com" {
		t.Errorf("expected target url in payload, got %v", gotPayload["url"])
	}
}

func TestFirecrawl_ScrapePageRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false,"error":"invalid url"}`)
	}))
	defer srv.Close()

	f, _ := NewFirecrawl(srv.URL, "test-key")
	if _, err := f.ScrapePage(context.Background(), "https://acme.com"); err == nil {
		t.Fatal("expected error for rejected scrape")
	}
}

func TestFirecrawl_NoAPIKey(t *testing.T) {
	f, _ := NewFirecrawl("http://unused", "")
	if _, err := f.ScrapePage(context.Background(), "https://acme.com"); err == nil {
		t.Error("expected error without API key")
	}
	if _, err := f.StartCrawl(context.Background(), "https://acme.com", 5); err == nil {
		t.Error("expected error without API key")
	}
}

func TestFirecrawl_CrawlLifecycle(t *testing.T) {
	polls := 0
	var crawlPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/crawl":
			json.NewDecoder(r.Body).Decode(&crawlPayload)
			fmt.Fprint(w, `{"success":true,"id":"job-42"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/crawl/job-42":
			polls++
			if polls < 2 {
				fmt.Fprint(w, `{"status":"scraping"}`)
				return
			}
			fmt.Fprint(w, `{"status":"completed","data":[
				{"markdown":"home page text","metadata":{"sourceURL":"https://acme.com"}},
				{"markdown":"about page text","metadata":{"sourceURL":"https://acme.com/about"}}
			]}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	f, _ := NewFirecrawl(srv.URL, "test-key")
	jobID, err := f.StartCrawl(context.Background(), "https://acme.com", 12)
	if err != nil {
		t.Fatalf("start crawl: %v", err)
	}
	if jobID != "job-42" {
		t.Errorf("got job id %q", jobID)
	}
	if limit, ok := crawlPayload["limit"].(float64); !ok || int(limit) != 12 {
		t.Errorf("expected limit 12 in crawl payload, got %v", crawlPayload["limit"])
	}
	if _, ok := crawlPayload["excludePaths"]; !ok {
		t.Errorf("expected excludePaths in crawl payload")
	}

	status, err := f.PollCrawl(context.Background(), jobID)
	if err != nil {
		t.Fatalf("first poll: %v", err)
	}
	if status.State != JobRunning {
		t.Errorf("expected running on in-flight status, got %s", status.State)
	}

	status, err = f.PollCrawl(context.Background(), jobID)
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if status.State != JobCompleted {
		t.Fatalf("expected completed, got %s", status.State)
	}
	if len(status.Pages) != 2 || status.Pages[1].URL != "https://acme.com/about" {
		t.Errorf("unexpected pages %v", status.Pages)
	}
}

func TestFirecrawl_CrawlFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"failed","error":"target unreachable"}`)
	}))
	defer srv.Close()

	f, _ := NewFirecrawl(srv.URL, "test-key")
	status, err := f.PollCrawl(context.Background(), "job-9")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if status.State != JobFailed || status.Error != "target unreachable" {
		t.Errorf("got %+v", status)
	}
}

func TestBlocked(t *testing.T) {
	tests := []struct {
		name    string
		res     *FetchResult
		blocked bool
		vendor  string
	}{
		{"nil result", nil, false, ""},
		{"ok page", &FetchResult{StatusCode: 200, Body: []byte("cf-turnstile")}, false, ""},
		{
			"cloudflare header",
			&FetchResult{StatusCode: 403, Headers: http.Header{"Server": {"cloudflare"}}},
			true, "Cloudflare",
		},
		{
			"cloudflare challenge body",
			&FetchResult{StatusCode: 503, Headers: http.Header{}, Body: []byte("<div id=cf-browser-verification>")},
			true, "Cloudflare",
		},
		{
			"akamai denial",
			&FetchResult{StatusCode: 403, Headers: http.Header{}, Body: []byte("Access Denied. Reference #18.x")},
			true, "Akamai",
		},
		{
			"datadome header",
			&FetchResult{StatusCode: 403, Headers: http.Header{"X-Datadome": {"protected"}}},
			true, "DataDome",
		},
		{
			"perimeterx captcha",
			&FetchResult{StatusCode: 429, Headers: http.Header{}, Body: []byte("<div class=px-captcha>")},
			true, "PerimeterX",
		},
		{
			"plain 403",
			&FetchResult{StatusCode: 403, Headers: http.Header{}, Body: []byte("forbidden")},
			true, "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked, vendor := Blocked(tt.res)
			if blocked != tt.blocked || vendor != tt.vendor {
				t.Errorf("Blocked = (%v, %q), want (%v, %q)", blocked, vendor, tt.blocked, tt.vendor)
			}
		})
	}
}
