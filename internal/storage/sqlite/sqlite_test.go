package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/dossier/internal/storage"
)

func newTestBackend(t *testing.T) storage.Backend {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	b, err := New(dsn)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func sampleRecord(id, company string, delivered bool, at time.Time) *storage.ResearchRecord {
	return &storage.ResearchRecord{
		ID:               id,
		CompanyName:      company,
		WebsiteURL:       "https://" + company + ".example.com",
		RecipientEmail:   "buyer@example.com",
		WhatTheySell:     "Widgets",
		WhoTheyTarget:    "Widget buyers",
		CondensedSummary: "A widget company.",
		ScrapedContent:   "About us: widgets.",
		PagesScraped:     3,
		Delivered:        delivered,
		CreatedAt:        at,
	}
}

func TestSaveAndQuery(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := b.Save(ctx, sampleRecord("r1", "acme", true, now.Add(-time.Hour))); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := b.Save(ctx, sampleRecord("r2", "globex", false, now)); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	records, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Newest first
	if records[0].ID != "r2" {
		t.Errorf("expected r2 first, got %s", records[0].ID)
	}
	if records[0].WhatTheySell != "Widgets" {
		t.Errorf("round-trip mismatch: %q", records[0].WhatTheySell)
	}
}

func TestQueryFilters(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	now := time.Now().UTC()
	_ = b.Save(ctx, sampleRecord("r1", "acme", true, now.Add(-2*time.Hour)))
	_ = b.Save(ctx, sampleRecord("r2", "acme", false, now.Add(-time.Hour)))
	_ = b.Save(ctx, sampleRecord("r3", "globex", true, now))

	records, err := b.Query(ctx, storage.Filter{CompanyName: "acme"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 acme records, got %d", len(records))
	}

	delivered := true
	records, err = b.Query(ctx, storage.Filter{Delivered: &delivered})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 delivered records, got %d", len(records))
	}

	since := now.Add(-30 * time.Minute)
	records, err = b.Query(ctx, storage.Filter{Since: &since})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "r3" {
		t.Errorf("expected only r3 since cutoff, got %d", len(records))
	}

	records, err = b.Query(ctx, storage.Filter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "r2" {
		t.Errorf("expected r2 with limit/offset, got %v", records)
	}
}
