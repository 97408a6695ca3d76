package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/FranksOps/dossier/internal/analyze"
	"github.com/FranksOps/dossier/internal/extract"
	"github.com/FranksOps/dossier/internal/publish"
	"github.com/FranksOps/dossier/internal/search"
)

type fakeSearcher struct {
	results map[string][]search.Result
	queries []string
}

func (f *fakeSearcher) Find(ctx context.Context, query string, limit int) []search.Result {
	f.queries = append(f.queries, query)
	for key, rs := range f.results {
		if strings.Contains(strings.ToLower(query), strings.ToLower(key)) {
			return rs
		}
	}
	return nil
}

type fakeScraper struct {
	content map[string]string // url -> content; missing means failure
	fetched []string
}

func (f *fakeScraper) Fetch(ctx context.Context, url string) (string, int, error) {
	f.fetched = append(f.fetched, url)
	if content, ok := f.content[url]; ok {
		return content, 2, nil
	}
	return "", 0, errors.New("no usable content extracted")
}

type fakeSummarizer struct {
	analysis  analyze.Analysis
	answer    string
	questions []string
}

func (f *fakeSummarizer) Analyze(ctx context.Context, company, content string) (analyze.Analysis, error) {
	return f.analysis, nil
}

func (f *fakeSummarizer) AnswerFollowup(ctx context.Context, company, content string, a analyze.Analysis, q string) string {
	f.questions = append(f.questions, q)
	return f.answer
}

type fakePublisher struct {
	reports []publish.Report
	ok      bool
}

func (f *fakePublisher) Publish(ctx context.Context, rep publish.Report) bool {
	f.reports = append(f.reports, rep)
	return f.ok
}

type fixture struct {
	engine    *Engine
	searcher  *fakeSearcher
	scraper   *fakeScraper
	analyzer  *fakeSummarizer
	publisher *fakePublisher
}

func newFixture() *fixture {
	searcher := &fakeSearcher{results: map[string][]search.Result{
		"acme": {
			{URL: "https://acme.com", Title: "Acme Corp"},
			{URL: "https://acme-corp.io", Title: "Acme Corp (mirror)"},
		},
		"initech": {
			{URL: "https://initech.com", Title: "Initech"},
		},
	}}
	scraper := &fakeScraper{content: map[string]string{
		"https://acme.com":    "Acme Corp makes industrial widgets for factories.",
		"https://initech.com": "Initech builds TPS report software.",
		"https://other.dev":   "Other Dev is a consultancy.",
	}}
	analyzer := &fakeSummarizer{
		analysis: analyze.Analysis{
			WhatTheySell:  "Industrial widgets.",
			WhoTheyTarget: "Factories.",
			Summary:       "Acme makes widgets.",
		},
		answer: "They ship worldwide.",
	}
	pub := &fakePublisher{ok: true}

	return &fixture{
		engine:    NewEngine(extract.Rules{}, searcher, 5, scraper, analyzer, pub, nil),
		searcher:  searcher,
		scraper:   scraper,
		analyzer:  analyzer,
		publisher: pub,
	}
}

func (f *fixture) say(t *testing.T, session, text string) Reply {
	t.Helper()
	reply, err := f.engine.Message(context.Background(), session, text)
	if err != nil {
		t.Fatalf("message %q: %v", text, err)
	}
	return reply
}

func TestEngine_HappyPath(t *testing.T) {
	f := newFixture()

	reply := f.say(t, "s1", "research Acme Corp")
	if reply.State != StateCollectingEmail {
		t.Fatalf("after company: state %s", reply.State)
	}
	if !strings.Contains(reply.Text, "email") {
		t.Errorf("expected email prompt, got %q", reply.Text)
	}

	reply = f.say(t, "s1", "bob@example.com")
	if reply.State != StateWaitingURLConfirmation {
		t.Fatalf("after email: state %s", reply.State)
	}
	if len(reply.URLs) != 2 || reply.URLs[0] != "https://acme.com" {
		t.Fatalf("candidates = %v", reply.URLs)
	}

	reply = f.say(t, "s1", "1")
	if reply.State != StateReadyForQuestions {
		t.Fatalf("after selection: state %s (%q)", reply.State, reply.Text)
	}
	if !strings.Contains(reply.Text, "Industrial widgets.") {
		t.Errorf("analysis missing from reply: %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "bob@example.com") {
		t.Errorf("delivery confirmation missing: %q", reply.Text)
	}

	if len(f.publisher.reports) != 1 {
		t.Fatalf("expected one publish, got %d", len(f.publisher.reports))
	}
	rep := f.publisher.reports[0]
	if rep.CompanyName != "Acme Corp" || rep.RecipientEmail != "bob@example.com" || rep.WebsiteURL != "https://acme.com" {
		t.Errorf("published report %+v", rep)
	}
	if rep.CondensedSummary != "Acme makes widgets." {
		t.Errorf("summary = %q", rep.CondensedSummary)
	}
}

func TestEngine_CompanyAndEmailInOneMessage(t *testing.T) {
	f := newFixture()

	reply := f.say(t, "s1", "research Acme and send it to bob@example.com")
	if reply.State != StateWaitingURLConfirmation {
		t.Fatalf("state %s (%q)", reply.State, reply.Text)
	}
	if len(reply.URLs) == 0 {
		t.Fatalf("expected candidates, got %q", reply.Text)
	}
}

func TestEngine_FollowupsAfterResearch(t *testing.T) {
	f := newFixture()
	f.say(t, "s1", "research Acme and send it to bob@example.com")
	f.say(t, "s1", "1")

	reply := f.say(t, "s1", "do they ship worldwide?")
	if reply.Text != "They ship worldwide." {
		t.Errorf("got %q", reply.Text)
	}
	if len(f.analyzer.questions) != 1 || f.analyzer.questions[0] != "do they ship worldwide?" {
		t.Errorf("questions = %v", f.analyzer.questions)
	}

	// A second follow-up must not publish again.
	f.say(t, "s1", "what about pricing?")
	if len(f.publisher.reports) != 1 {
		t.Errorf("follow-ups re-published the report: %d", len(f.publisher.reports))
	}
}

func TestEngine_PublishFailureIsSoft(t *testing.T) {
	f := newFixture()
	f.publisher.ok = false

	f.say(t, "s1", "research Acme and send it to bob@example.com")
	reply := f.say(t, "s1", "1")

	if reply.State != StateReadyForQuestions {
		t.Fatalf("delivery failure must not block research: state %s", reply.State)
	}
	if !strings.Contains(reply.Text, "couldn't deliver") {
		t.Errorf("expected soft warning, got %q", reply.Text)
	}

	// The failed attempt still counts; no retry on follow-ups.
	f.say(t, "s1", "anything else?")
	if len(f.publisher.reports) != 1 {
		t.Errorf("expected exactly one publish attempt, got %d", len(f.publisher.reports))
	}
}

func TestEngine_ScrapeFailureStaysOnConfirmation(t *testing.T) {
	f := newFixture()
	f.say(t, "s1", "research Acme and send it to bob@example.com")

	// acme-corp.io has no scrapeable content in the fixture.
	reply := f.say(t, "s1", "2")
	if reply.State != StateWaitingURLConfirmation {
		t.Fatalf("state %s (%q)", reply.State, reply.Text)
	}
	if !strings.Contains(reply.Text, "couldn't get enough readable content") {
		t.Errorf("got %q", reply.Text)
	}
	if len(f.publisher.reports) != 0 {
		t.Errorf("nothing should publish after a failed scrape")
	}

	// Picking the working candidate recovers.
	reply = f.say(t, "s1", "1")
	if reply.State != StateReadyForQuestions {
		t.Fatalf("state %s (%q)", reply.State, reply.Text)
	}
}

func TestEngine_EmptySearchAcceptsDirectURL(t *testing.T) {
	f := newFixture()

	reply := f.say(t, "s1", "research Unknown Startup, email bob@example.com")
	if reply.State == StateWaitingURLConfirmation {
		t.Fatalf("confirmation state entered with nothing to confirm (%q)", reply.Text)
	}
	if len(reply.URLs) != 0 {
		t.Fatalf("expected no candidates, got %v", reply.URLs)
	}
	if !strings.Contains(reply.Text, "couldn't find") {
		t.Errorf("got %q", reply.Text)
	}

	reply = f.say(t, "s1", "https://other.dev")
	if reply.State != StateReadyForQuestions {
		t.Fatalf("direct url should start research: state %s (%q)", reply.State, reply.Text)
	}
	if f.publisher.reports[0].WebsiteURL != "https://other.dev" {
		t.Errorf("published url = %q", f.publisher.reports[0].WebsiteURL)
	}
}

// The confirmation state always has candidates to confirm; with an empty
// candidate list the session stays on a step where a new company name or a
// pasted URL moves things forward.
func TestEngine_EmptySearchNeverEntersConfirmation(t *testing.T) {
	f := newFixture()

	reply := f.say(t, "s1", "research Unknown Startup, email bob@example.com")
	if reply.State == StateWaitingURLConfirmation {
		t.Fatalf("state = %s with zero candidate urls", reply.State)
	}
	if reply.State != StateCollectingEmail {
		t.Fatalf("expected a re-searchable state, got %s (%q)", reply.State, reply.Text)
	}

	// A message with no company, email or URL keeps the session there.
	reply = f.say(t, "s1", "what now?")
	if reply.State != StateCollectingEmail {
		t.Fatalf("state %s (%q)", reply.State, reply.Text)
	}
	if !strings.Contains(reply.Text, "paste the site URL") {
		t.Errorf("got %q", reply.Text)
	}

	// A failed scrape of a directly pasted URL must not strand the session
	// in confirmation either, since there is still nothing to confirm.
	reply = f.say(t, "s1", "https://broken.example")
	if reply.State == StateWaitingURLConfirmation {
		t.Fatalf("state = %s with zero candidate urls (%q)", reply.State, reply.Text)
	}
	if reply.State != StateCollectingEmail {
		t.Fatalf("state %s (%q)", reply.State, reply.Text)
	}

	// Recovery still works from there.
	reply = f.say(t, "s1", "https://other.dev")
	if reply.State != StateReadyForQuestions {
		t.Fatalf("state %s (%q)", reply.State, reply.Text)
	}
}

func TestEngine_EmptySearchAcceptsNewCompanyName(t *testing.T) {
	f := newFixture()
	f.say(t, "s1", "research Unknown Startup, email bob@example.com")

	reply := f.say(t, "s1", "research Initech")
	if reply.State != StateWaitingURLConfirmation || len(reply.URLs) != 1 {
		t.Fatalf("re-search failed: state %s urls %v", reply.State, reply.URLs)
	}
	if reply.URLs[0] != "https://initech.com" {
		t.Errorf("urls = %v", reply.URLs)
	}
}

func TestEngine_StartOverFromAnyState(t *testing.T) {
	f := newFixture()
	f.say(t, "s1", "research Acme and send it to bob@example.com")
	f.say(t, "s1", "1")

	reply := f.say(t, "s1", "start over")
	if reply.State != StateGreeting {
		t.Fatalf("state %s", reply.State)
	}

	// A fresh cycle runs end to end, including a second publish.
	f.say(t, "s1", "research Initech, email jane@example.org")
	reply = f.say(t, "s1", "1")
	if reply.State != StateReadyForQuestions {
		t.Fatalf("state %s (%q)", reply.State, reply.Text)
	}
	if len(f.publisher.reports) != 2 {
		t.Fatalf("expected two publishes across cycles, got %d", len(f.publisher.reports))
	}
	second := f.publisher.reports[1]
	if second.CompanyName != "Initech" || second.RecipientEmail != "jane@example.org" {
		t.Errorf("second report %+v", second)
	}
}

func TestEngine_StartOverKeepsLog(t *testing.T) {
	f := newFixture()
	f.say(t, "s1", "research Acme Corp")
	f.say(t, "s1", "start over")

	sess, release := f.engine.store.Acquire("s1")
	defer release()
	if len(sess.Log) < 4 {
		t.Errorf("chat log should survive a reset, got %d entries", len(sess.Log))
	}
	if sess.CompanyName != "" || sess.RecipientEmail != "" || sess.ResultPublished {
		t.Errorf("session not cleared: %+v", sess)
	}
}

func TestEngine_LogCarriesOfferedURLs(t *testing.T) {
	f := newFixture()
	f.say(t, "s1", "research Acme Corp, email bob@example.com")

	sess, release := f.engine.store.Acquire("s1")
	defer release()

	last := sess.Log[len(sess.Log)-1]
	if last.Role != "assistant" {
		t.Fatalf("last log role = %q", last.Role)
	}
	if len(last.URLs) != 2 || last.URLs[0] != "https://acme.com" {
		t.Errorf("logged urls = %v", last.URLs)
	}
	if len(sess.Log[0].URLs) != 0 {
		t.Errorf("user turn should carry no urls, got %v", sess.Log[0].URLs)
	}
}

func TestEngine_UnclearInputRepeatsGreeting(t *testing.T) {
	f := newFixture()
	reply := f.say(t, "s1", "ok thanks")
	if reply.State != StateGreeting || !strings.Contains(reply.Text, "research") {
		t.Errorf("got state %s text %q", reply.State, reply.Text)
	}
}

func TestEngine_SessionsAreIndependent(t *testing.T) {
	f := newFixture()
	f.say(t, "alpha", "research Acme Corp")
	reply := f.say(t, "beta", "research Initech, email jane@example.org")

	if reply.State != StateWaitingURLConfirmation {
		t.Fatalf("beta state %s", reply.State)
	}

	sessA, releaseA := f.engine.store.Acquire("alpha")
	if sessA.State != StateCollectingEmail || sessA.CompanyName != "Acme Corp" {
		t.Errorf("alpha session polluted: %+v", sessA)
	}
	releaseA()
}

func TestEngine_StatusLine(t *testing.T) {
	f := newFixture()
	reply := f.say(t, "s1", "research Acme Corp")
	if !strings.Contains(reply.Status, "Acme Corp") {
		t.Errorf("status = %q", reply.Status)
	}

	f.say(t, "s1", "bob@example.com")
	reply = f.say(t, "s1", "1")
	if !strings.Contains(reply.Status, "complete") {
		t.Errorf("status = %q", reply.Status)
	}
}

func TestEngine_EmailUpdateDuringConfirmation(t *testing.T) {
	f := newFixture()
	f.say(t, "s1", "research Acme and send it to bob@example.com")

	reply := f.say(t, "s1", "actually use jane@example.org instead")
	if reply.State != StateWaitingURLConfirmation {
		t.Fatalf("state %s", reply.State)
	}

	f.say(t, "s1", "1")
	if got := f.publisher.reports[0].RecipientEmail; got != "jane@example.org" {
		t.Errorf("recipient = %q", got)
	}
}
