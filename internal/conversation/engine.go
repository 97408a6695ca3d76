package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FranksOps/dossier/internal/analyze"
	"github.com/FranksOps/dossier/internal/extract"
	"github.com/FranksOps/dossier/internal/metrics"
	"github.com/FranksOps/dossier/internal/publish"
	"github.com/FranksOps/dossier/internal/search"
)

// Greeting opens every new conversation.
const Greeting = "Hi! I research companies. Tell me which company to look into, for example \"research Acme Corp\", and I'll scrape their website, summarize what they do, and email you the result."

// Searcher finds candidate websites for a company name.
type Searcher interface {
	Find(ctx context.Context, query string, limit int) []search.Result
}

// Scraper fetches the combined text of a website.
type Scraper interface {
	Fetch(ctx context.Context, url string) (content string, pages int, err error)
}

// Summarizer analyzes content and answers follow-ups.
type Summarizer interface {
	Analyze(ctx context.Context, companyName, content string) (analyze.Analysis, error)
	AnswerFollowup(ctx context.Context, companyName, content string, analysis analyze.Analysis, question string) string
}

// Publisher delivers a finished report, reporting success.
type Publisher interface {
	Publish(ctx context.Context, rep publish.Report) bool
}

// Reply is what a processed turn sends back to the user.
type Reply struct {
	Text   string
	URLs   []string
	Status string
	State  State
}

// Engine processes conversation turns.
type Engine struct {
	extractor   extract.Extractor
	searcher    Searcher
	searchLimit int
	scraper     Scraper
	summarizer  Summarizer
	publisher   Publisher
	store       *Store
	logger      *slog.Logger
}

// NewEngine wires the engine. searchLimit bounds how many website candidates
// are offered per search.
func NewEngine(extractor extract.Extractor, searcher Searcher, searchLimit int, scraper Scraper, summarizer Summarizer, publisher Publisher, logger *slog.Logger) *Engine {
	if searchLimit <= 0 {
		searchLimit = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		extractor:   extractor,
		searcher:    searcher,
		searchLimit: searchLimit,
		scraper:     scraper,
		summarizer:  summarizer,
		publisher:   publisher,
		store:       NewStore(),
		logger:      logger,
	}
}

// Message processes one user turn for the given session and returns the
// assistant's reply. Unknown session ids start a new session.
func (e *Engine) Message(ctx context.Context, sessionID, text string) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	sess, release := e.store.Acquire(sessionID)
	defer release()

	metrics.TurnsTotal.WithLabelValues(string(sess.State)).Inc()
	sess.Record("user", text)

	reply := e.processTurn(ctx, sess, text)
	reply.Status = sess.Status()
	reply.State = sess.State

	sess.Record("assistant", reply.Text, reply.URLs...)
	return reply, nil
}

func (e *Engine) processTurn(ctx context.Context, sess *Session, text string) Reply {
	var candidates []string
	if sess.State == StateWaitingURLConfirmation {
		candidates = sess.CandidateURLs()
	}
	intent := e.extractor.Extract(ctx, text, candidates)

	if intent.Kind == extract.KindStartOver {
		sess.Reset()
		return Reply{Text: "Starting over. " + Greeting}
	}

	switch sess.State {
	case StateGreeting:
		return e.handleGreeting(ctx, sess, intent)
	case StateCollectingEmail:
		return e.handleCollectingEmail(ctx, sess, text, intent)
	case StateWaitingURLConfirmation:
		return e.handleURLConfirmation(ctx, sess, text, intent)
	case StateReadyForQuestions:
		return e.handleFollowup(ctx, sess, text)
	default:
		// A transient state can only persist if a previous turn crashed
		// mid-flight. Recover by restarting the confirmation step.
		return e.backToConfirmation(sess, "Let's pick the website again.")
	}
}

func (e *Engine) handleGreeting(ctx context.Context, sess *Session, intent extract.Intent) Reply {
	if intent.Email != "" {
		sess.RecipientEmail = intent.Email
	}

	switch intent.Kind {
	case extract.KindProvideCompany, extract.KindProvideCompanyAndMail:
		sess.CompanyName = intent.Company
		if sess.RecipientEmail == "" {
			sess.State = StateCollectingEmail
			return Reply{Text: fmt.Sprintf("Got it, researching %s. Where should I email the result?", sess.CompanyName)}
		}
		return e.runSearch(ctx, sess)
	case extract.KindProvideEmail:
		return Reply{Text: "Thanks, I'll send the result there. Which company should I research?"}
	default:
		return Reply{Text: Greeting}
	}
}

func (e *Engine) handleCollectingEmail(ctx context.Context, sess *Session, text string, intent extract.Intent) Reply {
	if intent.Company != "" {
		// Changed their mind about the company mid-step.
		sess.CompanyName = intent.Company
	}
	if intent.Email != "" {
		sess.RecipientEmail = intent.Email
	}
	if sess.RecipientEmail == "" {
		return Reply{Text: fmt.Sprintf("I need an email address to deliver the research on %s. What address should I use?", sess.CompanyName)}
	}

	// A pasted URL skips the search. After a search that found nothing this
	// step is also where the user lands, so it is the only way forward then.
	if raw := extract.FindURL(text); raw != "" {
		sess.SelectedURL = ensureScheme(raw)
		return e.runResearch(ctx, sess)
	}
	if intent.Company != "" || intent.Email != "" {
		return e.runSearch(ctx, sess)
	}
	return Reply{Text: fmt.Sprintf("I don't have a website for %s yet. Give me another company name, or paste the site URL directly.", sess.CompanyName)}
}

// runSearch looks up website candidates for the session's company. The
// confirmation state is only entered when there is something to confirm;
// an empty result keeps the session on a re-searchable step.
func (e *Engine) runSearch(ctx context.Context, sess *Session) Reply {
	query := sess.CompanyName + " official website"
	sess.Candidates = e.searcher.Find(ctx, query, e.searchLimit)

	if len(sess.Candidates) == 0 {
		sess.State = StateCollectingEmail
		return Reply{Text: fmt.Sprintf("I couldn't find any websites for %s. Try a different company name, or paste the website URL directly.", sess.CompanyName)}
	}
	sess.State = StateWaitingURLConfirmation
	return e.listCandidates(sess, fmt.Sprintf("Here's what I found for %s.", sess.CompanyName))
}

// backToConfirmation re-offers the candidate list, or falls back to the
// collecting step when there are no candidates to offer.
func (e *Engine) backToConfirmation(sess *Session, lead string) Reply {
	if len(sess.Candidates) == 0 {
		sess.State = StateCollectingEmail
		return Reply{Text: lead + " Give me a company name or paste the site URL directly."}
	}
	sess.State = StateWaitingURLConfirmation
	return e.listCandidates(sess, lead)
}

func (e *Engine) listCandidates(sess *Session, lead string) Reply {
	var b strings.Builder
	b.WriteString(lead)
	b.WriteString(" Which website is the right one?\n")
	for i, c := range sess.Candidates {
		if c.Title != "" {
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, c.Title, c.URL)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, c.URL)
		}
	}
	b.WriteString("Reply with a number or the URL itself.")
	return Reply{Text: b.String(), URLs: sess.CandidateURLs()}
}

func (e *Engine) handleURLConfirmation(ctx context.Context, sess *Session, text string, intent extract.Intent) Reply {
	if intent.Email != "" {
		sess.RecipientEmail = intent.Email
	}

	targetURL := intent.URL
	if targetURL == "" && intent.Kind != extract.KindSelectURL {
		// A pasted URL is a valid choice even when the extractor read the
		// message as something else, and the only way forward when the
		// search came up empty.
		targetURL = extract.FindURL(text)
	}

	if targetURL != "" {
		sess.SelectedURL = ensureScheme(targetURL)
		return e.runResearch(ctx, sess)
	}

	if intent.Kind == extract.KindProvideCompany {
		sess.CompanyName = intent.Company
		return e.runSearch(ctx, sess)
	}

	return e.listCandidates(sess, "I didn't catch which website you meant.")
}

// runResearch is the scrape-analyze-publish pipeline triggered by a
// confirmed URL. The session passes through the transient states so status
// lines and logs reflect progress.
func (e *Engine) runResearch(ctx context.Context, sess *Session) Reply {
	sess.State = StateScrapingWebsite
	e.logger.Info("scraping website", "session", sess.ID, "company", sess.CompanyName, "url", sess.SelectedURL)

	content, pages, err := e.scraper.Fetch(ctx, sess.SelectedURL)
	if err != nil {
		e.logger.Warn("scrape failed", "session", sess.ID, "url", sess.SelectedURL, "err", err)
		sess.SelectedURL = ""
		return e.backToConfirmation(sess, "I couldn't get enough readable content from that website.")
	}
	sess.ScrapedContent = content
	sess.PagesScraped = pages

	sess.State = StateAnalyzingContent
	analysis, err := e.summarizer.Analyze(ctx, sess.CompanyName, content)
	if err != nil {
		// Only context cancellation surfaces here; the turn is already dead.
		return e.backToConfirmation(sess, "Something interrupted the analysis.")
	}
	sess.Analysis = analysis
	sess.State = StateReadyForQuestions

	delivered := e.publishOnce(ctx, sess)

	var b strings.Builder
	fmt.Fprintf(&b, "Here's what I learned about %s from %d page(s) of %s.\n\n", sess.CompanyName, pages, sess.SelectedURL)
	fmt.Fprintf(&b, "What they sell: %s\n", analysis.WhatTheySell)
	fmt.Fprintf(&b, "Who they target: %s\n", analysis.WhoTheyTarget)
	fmt.Fprintf(&b, "Summary: %s\n\n", analysis.Summary)
	if delivered {
		fmt.Fprintf(&b, "I've sent the full report to %s. Ask me anything else about them.", sess.RecipientEmail)
	} else {
		b.WriteString("I couldn't deliver the emailed report, but the research is done. Ask me anything else about them.")
	}
	return Reply{Text: b.String()}
}

// publishOnce delivers the report exactly once per research cycle. The
// attempt is recorded whether or not delivery succeeded; a later follow-up
// never re-sends the email.
func (e *Engine) publishOnce(ctx context.Context, sess *Session) bool {
	if sess.ResultPublished {
		return true
	}
	sess.ResultPublished = true

	return e.publisher.Publish(ctx, publish.Report{
		CompanyName:      sess.CompanyName,
		WebsiteURL:       sess.SelectedURL,
		RecipientEmail:   sess.RecipientEmail,
		WhatTheySell:     sess.Analysis.WhatTheySell,
		WhoTheyTarget:    sess.Analysis.WhoTheyTarget,
		CondensedSummary: sess.Analysis.Summary,
		ScrapedContent:   sess.ScrapedContent,
		PagesScraped:     sess.PagesScraped,
	})
}

func (e *Engine) handleFollowup(ctx context.Context, sess *Session, text string) Reply {
	answer := e.summarizer.AnswerFollowup(ctx, sess.CompanyName, sess.ScrapedContent, sess.Analysis, text)
	return Reply{Text: answer}
}

func ensureScheme(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}
