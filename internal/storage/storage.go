// Package storage defines the research record model and the Backend interface
// its persistence backends implement. Records are written once per completed
// research cycle by the publisher and queried for history/reporting.
package storage

import (
	"context"
	"time"
)

// ResearchRecord is one completed company research cycle.
type ResearchRecord struct {
	ID               string
	CompanyName      string
	WebsiteURL       string
	RecipientEmail   string
	WhatTheySell     string
	WhoTheyTarget    string
	CondensedSummary string
	ScrapedContent   string // sanitized and truncated before it reaches storage
	PagesScraped     int
	Delivered        bool // whether the notification webhook accepted the record
	CreatedAt        time.Time
}

// Filter allows querying for specific research records.
type Filter struct {
	CompanyName string
	WebsiteURL  string
	Delivered   *bool
	Since       *time.Time
	Limit       int
	Offset      int
}

// Backend defines the interface for storing and querying research records.
type Backend interface {
	Save(ctx context.Context, rec *ResearchRecord) error
	Query(ctx context.Context, filter Filter) ([]*ResearchRecord, error)
	Close() error
}
