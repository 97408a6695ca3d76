package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FranksOps/dossier/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS research_records (
	id TEXT PRIMARY KEY,
	company_name TEXT NOT NULL,
	website_url TEXT NOT NULL,
	recipient_email TEXT NOT NULL,
	what_they_sell TEXT NOT NULL,
	who_they_target TEXT NOT NULL,
	condensed_summary TEXT NOT NULL,
	scraped_content TEXT,
	pages_scraped INTEGER NOT NULL DEFAULT 0,
	delivered BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, rec *storage.ResearchRecord) error {
	query := `
	INSERT INTO research_records (
		id, company_name, website_url, recipient_email, what_they_sell,
		who_they_target, condensed_summary, scraped_content, pages_scraped, delivered, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := b.db.ExecContext(ctx, query,
		rec.ID,
		rec.CompanyName,
		rec.WebsiteURL,
		rec.RecipientEmail,
		rec.WhatTheySell,
		rec.WhoTheyTarget,
		rec.CondensedSummary,
		rec.ScrapedContent,
		rec.PagesScraped,
		rec.Delivered,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert research record: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.ResearchRecord, error) {
	query := `SELECT id, company_name, website_url, recipient_email, what_they_sell,
		who_they_target, condensed_summary, scraped_content, pages_scraped, delivered, created_at
		FROM research_records WHERE 1=1`
	args := []any{}

	if filter.CompanyName != "" {
		query += ` AND company_name = ?`
		args = append(args, filter.CompanyName)
	}
	if filter.WebsiteURL != "" {
		query += ` AND website_url = ?`
		args = append(args, filter.WebsiteURL)
	}
	if filter.Delivered != nil {
		query += ` AND delivered = ?`
		args = append(args, *filter.Delivered)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query research records: %w", err)
	}
	defer rows.Close()

	var records []*storage.ResearchRecord
	for rows.Next() {
		var r storage.ResearchRecord
		err := rows.Scan(
			&r.ID, &r.CompanyName, &r.WebsiteURL, &r.RecipientEmail, &r.WhatTheySell,
			&r.WhoTheyTarget, &r.CondensedSummary, &r.ScrapedContent, &r.PagesScraped,
			&r.Delivered, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan research record: %w", err)
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate research records: %w", err)
	}

	return records, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
