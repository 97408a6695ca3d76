// Package publish delivers finished research to the automation webhook and
// the local archive. Delivery is best effort: a failure is reported as a
// boolean so the conversation can warn the user and carry on, with the full
// diagnostics going to the log instead of the chat.
package publish

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/FranksOps/dossier/internal/metrics"
	"github.com/FranksOps/dossier/internal/storage"
	"github.com/FranksOps/dossier/pkg/httpclient"
)

// Report is one finished piece of company research ready for delivery.
type Report struct {
	CompanyName      string
	WebsiteURL       string
	RecipientEmail   string
	WhatTheySell     string
	WhoTheyTarget    string
	CondensedSummary string
	ScrapedContent   string
	PagesScraped     int
}

// Publisher sends reports to the automation webhook and archives them.
type Publisher struct {
	webhookURL string
	client     *httpclient.Client
	store      storage.Backend
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Publisher. webhookURL may be empty, in which case every
// delivery reports failure; store may be nil to skip archiving.
func New(webhookURL string, store storage.Backend, logger *slog.Logger) (*Publisher, error) {
	client, err := httpclient.New(httpclient.Config{Timeout: 15 * time.Second, MaxRedirects: 3})
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		webhookURL: webhookURL,
		client:     client,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Publish delivers the report and archives it. It returns whether the
// webhook delivery succeeded; archiving failures are logged but do not
// affect the result.
func (p *Publisher) Publish(ctx context.Context, rep Report) bool {
	delivered := p.deliver(ctx, rep)
	if delivered {
		metrics.PublishesTotal.WithLabelValues("success").Inc()
	} else {
		metrics.PublishesTotal.WithLabelValues("failure").Inc()
	}

	p.archive(ctx, rep, delivered)
	return delivered
}

func (p *Publisher) deliver(ctx context.Context, rep Report) bool {
	if p.webhookURL == "" {
		p.logger.Warn("no webhook configured, skipping delivery", "company", rep.CompanyName)
		return false
	}

	payload := map[string]any{
		"CompanyName":      Sanitize(rep.CompanyName),
		"ScrapedContent":   Sanitize(rep.ScrapedContent),
		"WhatTheySell":     Sanitize(rep.WhatTheySell),
		"WhoTheyTarget":    Sanitize(rep.WhoTheyTarget),
		"CondensedSummary": Sanitize(rep.CondensedSummary),
		"recipientEmail":   rep.RecipientEmail,
		"emailBody":        EmailBody(rep),
		"emailHtml":        EmailHTML(rep),
		"timestamp":        p.now().UTC().Format(time.RFC3339),
	}

	if err := p.client.PostJSON(ctx, p.webhookURL, nil, payload, nil); err != nil {
		p.logger.Error("webhook delivery failed",
			"company", rep.CompanyName,
			"recipient", rep.RecipientEmail,
			"err", err,
		)
		return false
	}

	p.logger.Info("research delivered", "company", rep.CompanyName, "recipient", rep.RecipientEmail)
	return true
}

func (p *Publisher) archive(ctx context.Context, rep Report, delivered bool) {
	if p.store == nil {
		return
	}

	rec := &storage.ResearchRecord{
		ID:               uuid.New().String(),
		CompanyName:      rep.CompanyName,
		WebsiteURL:       rep.WebsiteURL,
		RecipientEmail:   rep.RecipientEmail,
		WhatTheySell:     rep.WhatTheySell,
		WhoTheyTarget:    rep.WhoTheyTarget,
		CondensedSummary: rep.CondensedSummary,
		ScrapedContent:   Sanitize(rep.ScrapedContent),
		PagesScraped:     rep.PagesScraped,
		Delivered:        delivered,
		CreatedAt:        p.now().UTC(),
	}
	if err := p.store.Save(ctx, rec); err != nil {
		p.logger.Error("archiving research failed", "company", rep.CompanyName, "err", err)
	}
}
