// Package metrics exposes Prometheus collectors for the research pipeline and
// a small HTTP server publishing them on /metrics.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_searches_total",
			Help: "Total number of web searches executed",
		},
		[]string{"provider", "outcome"},
	)

	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_scrapes_total",
			Help: "Total number of website scrape attempts",
		},
		[]string{"tier", "outcome"},
	)

	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dossier_scrape_duration_seconds",
			Help:    "Duration of website scrapes in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"tier"},
	)

	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_analyses_total",
			Help: "Total number of content analyses, labeled by which parse tier resolved the output",
		},
		[]string{"parse_tier"},
	)

	PublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_publishes_total",
			Help: "Total number of research record publish attempts",
		},
		[]string{"outcome"},
	)

	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_conversation_turns_total",
			Help: "Total number of processed conversation turns, labeled by machine state at entry",
		},
		[]string{"state"},
	)
)

// RecordSearch updates search counters for one provider attempt.
func RecordSearch(provider string, found int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	} else if found == 0 {
		outcome = "empty"
	}
	SearchesTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordScrape updates scrape counters and duration for one tier attempt.
func RecordScrape(tier string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ScrapesTotal.WithLabelValues(tier, outcome).Inc()
	ScrapeDuration.WithLabelValues(tier).Observe(d.Seconds())
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
