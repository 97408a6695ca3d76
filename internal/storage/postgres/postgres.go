package postgres

import (
	"context"
	"fmt"

	"github.com/FranksOps/dossier/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
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
	delivered BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, rec *storage.ResearchRecord) error {
	query := `
	INSERT INTO research_records (
		id, company_name, website_url, recipient_email, what_they_sell,
		who_they_target, condensed_summary, scraped_content, pages_scraped, delivered, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := b.pool.Exec(ctx, query,
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

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.ResearchRecord, error) {
	query := `SELECT id, company_name, website_url, recipient_email, what_they_sell,
		who_they_target, condensed_summary, scraped_content, pages_scraped, delivered, created_at
		FROM research_records WHERE 1=1`
	args := []any{}
	argn := 0

	next := func() string {
		argn++
		return fmt.Sprintf("$%d", argn)
	}

	if filter.CompanyName != "" {
		query += ` AND company_name = ` + next()
		args = append(args, filter.CompanyName)
	}
	if filter.WebsiteURL != "" {
		query += ` AND website_url = ` + next()
		args = append(args, filter.WebsiteURL)
	}
	if filter.Delivered != nil {
		query += ` AND delivered = ` + next()
		args = append(args, *filter.Delivered)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ` + next()
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ` + next()
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + next()
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
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

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
