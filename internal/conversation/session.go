// Package conversation drives the chat-based research workflow: a state
// machine that collects a company name and recipient email, confirms the
// right website, runs the scrape and analysis, delivers the result once,
// and then answers follow-up questions.
package conversation

import (
	"fmt"
	"time"

	"github.com/FranksOps/dossier/internal/analyze"
	"github.com/FranksOps/dossier/internal/search"
)

// State names a position in the research workflow.
type State string

const (
	// StateGreeting waits for a company name.
	StateGreeting State = "GREETING"
	// StateCollectingEmail has a company and waits for the recipient email.
	StateCollectingEmail State = "COLLECTING_EMAIL"
	// StateWaitingURLConfirmation has search candidates awaiting a choice.
	StateWaitingURLConfirmation State = "WAITING_URL_CONFIRMATION"
	// StateScrapingWebsite is transient while the site is fetched.
	StateScrapingWebsite State = "SCRAPING_WEBSITE"
	// StateAnalyzingContent is transient while content is summarized.
	StateAnalyzingContent State = "ANALYZING_CONTENT"
	// StateReadyForQuestions holds a finished analysis open for follow-ups.
	StateReadyForQuestions State = "READY_FOR_QUESTIONS"
)

// Message is one chat turn kept in the session log. URLs holds the website
// candidates offered with the turn, so a replay of the log reproduces the
// choices the user saw.
type Message struct {
	Role string // "user" or "assistant"
	Text string
	URLs []string
	At   time.Time
}

// Session is the full state of one research conversation.
type Session struct {
	ID             string
	State          State
	CompanyName    string
	RecipientEmail string
	Candidates     []search.Result
	SelectedURL    string
	ScrapedContent string
	PagesScraped   int
	Analysis       analyze.Analysis
	// ResultPublished is set after the first delivery attempt; a session
	// never publishes twice, even when the first attempt failed.
	ResultPublished bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Log             []Message
}

// NewSession starts a fresh conversation.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		State:     StateGreeting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reset returns the session to the greeting state for a new piece of
// research. The chat log survives; everything else is cleared.
func (s *Session) Reset() {
	s.State = StateGreeting
	s.CompanyName = ""
	s.RecipientEmail = ""
	s.Candidates = nil
	s.SelectedURL = ""
	s.ScrapedContent = ""
	s.PagesScraped = 0
	s.Analysis = analyze.Analysis{}
	s.ResultPublished = false
	s.UpdatedAt = time.Now().UTC()
}

// Record appends a chat turn to the log, with the website candidates the
// turn offered, if any.
func (s *Session) Record(role, text string, urls ...string) {
	s.Log = append(s.Log, Message{Role: role, Text: text, URLs: urls, At: time.Now().UTC()})
	s.UpdatedAt = time.Now().UTC()
}

// CandidateURLs lists the offered website URLs in rank order.
func (s *Session) CandidateURLs() []string {
	urls := make([]string, 0, len(s.Candidates))
	for _, c := range s.Candidates {
		urls = append(urls, c.URL)
	}
	return urls
}

// Status is a one-line progress summary shown alongside replies.
func (s *Session) Status() string {
	switch s.State {
	case StateGreeting:
		return "Waiting for a company to research"
	case StateCollectingEmail:
		return fmt.Sprintf("Researching %s, waiting for a delivery email", s.CompanyName)
	case StateWaitingURLConfirmation:
		return fmt.Sprintf("Researching %s, waiting for website confirmation", s.CompanyName)
	case StateScrapingWebsite:
		return fmt.Sprintf("Reading %s", s.SelectedURL)
	case StateAnalyzingContent:
		return fmt.Sprintf("Analyzing content from %s", s.SelectedURL)
	case StateReadyForQuestions:
		return fmt.Sprintf("Research on %s complete, ready for questions", s.CompanyName)
	default:
		return string(s.State)
	}
}
