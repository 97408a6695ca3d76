// Dossier - chat-driven company research service
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/FranksOps/dossier/internal/analyze"
	"github.com/FranksOps/dossier/internal/config"
	"github.com/FranksOps/dossier/internal/conversation"
	"github.com/FranksOps/dossier/internal/extract"
	"github.com/FranksOps/dossier/internal/httpapi"
	"github.com/FranksOps/dossier/internal/llm"
	"github.com/FranksOps/dossier/internal/metrics"
	"github.com/FranksOps/dossier/internal/publish"
	"github.com/FranksOps/dossier/internal/scrape"
	"github.com/FranksOps/dossier/internal/search"
	"github.com/FranksOps/dossier/internal/storage"
	"github.com/FranksOps/dossier/internal/storage/jsonbackend"
	"github.com/FranksOps/dossier/internal/storage/postgres"
	"github.com/FranksOps/dossier/internal/storage/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting dossier", "port", cfg.Port, "storage", cfg.StorageBackend)

	// Research archive.
	store, err := openStorage(cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close storage", "error", closeErr)
		}
	}()

	// Search: Serper when a key is present; an empty chain degrades to
	// "no candidates found" replies.
	var searchProviders []search.Provider
	if cfg.SerperAPIKey != "" {
		serper, err := search.NewSerper(cfg.SerperEndpoint, cfg.SerperAPIKey)
		if err != nil {
			slog.Error("Failed to initialize search provider", "error", err)
			os.Exit(1)
		}
		searchProviders = append(searchProviders, serper)
	} else {
		slog.Warn("SERPER_API_KEY not set, website search disabled; users must paste URLs")
	}
	searcher := search.NewChain(logger, searchProviders...)

	// Scraping: the hosted crawl API first, then the in-process crawler.
	fetcher, err := scrape.NewFetcher(scrape.FetchConfig{Timeout: 30 * time.Second, MaxRedirects: 5})
	if err != nil {
		slog.Error("Failed to initialize fetcher", "error", err)
		os.Exit(1)
	}
	var scrapeProviders []scrape.Provider
	if cfg.FirecrawlAPIKey != "" {
		firecrawl, err := scrape.NewFirecrawl(cfg.FirecrawlEndpoint, cfg.FirecrawlAPIKey)
		if err != nil {
			slog.Error("Failed to initialize firecrawl provider", "error", err)
			os.Exit(1)
		}
		scrapeProviders = append(scrapeProviders, firecrawl)
	} else {
		slog.Warn("FIRECRAWL_API_KEY not set, using the local crawler only")
	}
	scrapeProviders = append(scrapeProviders, scrape.NewLocal(scrape.LocalConfig{RespectRobots: true}, fetcher, logger))

	scraper := scrape.New(scrape.Config{
		MaxPages:     cfg.MaxCrawlPages,
		PollInterval: cfg.CrawlPollInterval,
		PollBudget:   cfg.CrawlPollBudget,
	}, logger, scrapeProviders...)

	// Language model: completions power analysis and, when available,
	// smarter intent extraction. Without a key the rules extractor carries
	// the conversation and analyses degrade to sentinels.
	var completers []llm.Completer
	if cfg.LLMAPIKey != "" {
		openaiCompleter, err := llm.NewOpenAI(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
		if err != nil {
			slog.Error("Failed to initialize completion provider", "error", err)
			os.Exit(1)
		}
		completers = append(completers, openaiCompleter)
	} else {
		slog.Warn("OPENAI_API_KEY not set, analyses will degrade to placeholders")
	}
	completerChain := llm.NewChain(logger, completers...)

	var extractor extract.Extractor = extract.Rules{}
	if len(completers) > 0 {
		extractor = extract.NewAssisted(completerChain, logger)
	}

	summarizer := analyze.New(completerChain, logger)

	publisher, err := publish.New(cfg.WebhookURL, store, logger)
	if err != nil {
		slog.Error("Failed to initialize publisher", "error", err)
		os.Exit(1)
	}
	if cfg.WebhookURL == "" {
		slog.Warn("N8N_WEBHOOK_URL not set, reports will be archived but not delivered")
	}

	engine := conversation.NewEngine(extractor, searcher, cfg.SearchLimit, scraper, summarizer, publisher, logger)
	handler := httpapi.NewHandler(engine, store, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // a turn can cover a full crawl
		IdleTimeout:  120 * time.Second,
	}

	metricsSrv := metrics.Start(cfg.MetricsPort)
	slog.Info("Metrics listening", "port", cfg.MetricsPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := metricsSrv.Stop(shutdownCtx); err != nil {
		slog.Error("Metrics server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped successfully")
}

func openStorage(cfg *config.Config) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case "postgres":
		return postgres.New(context.Background(), cfg.PostgresDSN)
	case "json":
		return jsonbackend.New(cfg.JSONPath)
	default:
		return sqlite.New(cfg.SQLitePath)
	}
}
