package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"
)

func TestRecordSearchOutcomes(t *testing.T) {
	// Must not panic for any combination; values are verified via the
	// registry exposition below.
	RecordSearch("serper", 3, nil)
	RecordSearch("serper", 0, nil)
	RecordSearch("serper", 0, errors.New("boom"))
}

func TestRecordScrape(t *testing.T) {
	RecordScrape("crawl", 1500*time.Millisecond, nil)
	RecordScrape("single", 200*time.Millisecond, errors.New("boom"))
}

func TestMetricsServer(t *testing.T) {
	port := 19187
	srv := Start(port)
	defer srv.Stop(context.Background())

	RecordSearch("serper", 1, nil)

	// The listener starts asynchronously.
	var resp *http.Response
	var err error
	for i := 0; i < 20; i++ {
		resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
		if err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("metrics endpoint unreachable: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Fatal("expected non-empty exposition")
	}
}
