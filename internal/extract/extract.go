// Package extract classifies user messages and pulls out the entities the
// conversation needs: company names, email addresses and website choices.
// The rule extractor is deterministic and always available; an LLM-backed
// extractor can sit in front of it and falls back to the rules when the
// model is unreachable or answers nonsense.
package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind labels what a user message is trying to do.
type Kind string

const (
	KindStartOver             Kind = "start_over"
	KindProvideCompany        Kind = "provide_company"
	KindProvideEmail          Kind = "provide_email"
	KindProvideCompanyAndMail Kind = "provide_company_and_email"
	KindSelectURL             Kind = "select_url"
	KindFollowup              Kind = "ask_followup"
	KindUnclear               Kind = "unclear"
)

// Intent is the classified meaning of one user message. Only the fields
// relevant to Kind are set.
type Intent struct {
	Kind    Kind
	Company string
	Email   string
	URL     string
}

// Extractor classifies a message. candidates are the website URLs currently
// offered to the user, used to resolve selections; pass nil outside the
// confirmation step.
type Extractor interface {
	Extract(ctx context.Context, message string, candidates []string) Intent
}

// Rules is the deterministic extractor.
type Rules struct{}

var _ Extractor = Rules{}

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

var urlRe = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"]+`)

// restart phrases are matched as whole phrases on the normalized message.
var restartPhrases = []string{
	"start over", "start again", "restart", "reset", "new company", "new search",
}

// company-introducing verb phrases, longest first so "find info about"
// beats "find".
var leadIns = []string{
	"tell me about", "find info about", "find info on", "find information about",
	"look up", "research", "analyze", "analyse", "investigate",
}

// stopwords disqualify a short message from being read as a bare company
// name.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "what": {},
	"who": {}, "how": {}, "why": {}, "when": {}, "where": {}, "do": {},
	"does": {}, "can": {}, "you": {}, "i": {}, "me": {}, "my": {}, "it": {},
	"they": {}, "them": {}, "please": {}, "hello": {}, "hi": {}, "hey": {},
	"thanks": {}, "thank": {}, "yes": {}, "no": {}, "ok": {}, "okay": {},
}

// domainRe matches scheme-less website mentions like "acme.com/about".
// The TLD allowlist keeps ordinary prose and file names from matching.
var domainRe = regexp.MustCompile(`(?i)\b(?:[a-z0-9-]+\.)+(?:com|net|org|io|co|ai|dev|app|info|biz|us|uk|ca|de|fr|nl|se|no|es|it|eu)\b(?:/[^\s<>"]*)?`)

// FindURL returns the first URL-looking token in the message, or "". Bare
// domains count; email addresses do not.
func FindURL(message string) string {
	if m := urlRe.FindString(message); m != "" {
		return strings.TrimRight(m, ".,!?)")
	}
	withoutEmails := emailRe.ReplaceAllString(message, " ")
	return strings.TrimRight(domainRe.FindString(withoutEmails), ".,!?)")
}

// FindEmail returns the first email address in the message, or "".
func FindEmail(message string) string {
	return emailRe.FindString(message)
}

// Extract classifies message with the rule set. Resolution order matters:
// restart requests win over everything, an email anywhere in the message is
// always captured, and URL selection only applies while candidates are on
// offer.
func (Rules) Extract(_ context.Context, message string, candidates []string) Intent {
	text := strings.TrimSpace(message)
	if text == "" {
		return Intent{Kind: KindUnclear}
	}
	lower := strings.ToLower(text)

	if isRestart(lower) {
		return Intent{Kind: KindStartOver}
	}

	email := emailRe.FindString(text)

	if len(candidates) > 0 {
		if url, ok := selectURL(text, lower, candidates); ok {
			return Intent{Kind: KindSelectURL, URL: url, Email: email}
		}
	}

	company := extractCompany(text, lower, email)

	switch {
	case company != "" && email != "":
		return Intent{Kind: KindProvideCompanyAndMail, Company: company, Email: email}
	case email != "":
		return Intent{Kind: KindProvideEmail, Email: email}
	case company != "":
		return Intent{Kind: KindProvideCompany, Company: company}
	}

	if looksLikeQuestion(lower) {
		return Intent{Kind: KindFollowup}
	}
	return Intent{Kind: KindUnclear}
}

func isRestart(lower string) bool {
	for _, phrase := range restartPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// selectURL resolves a website choice: a URL in the message that matches a
// candidate wins, then a bare list number. A URL beats a number when both
// appear.
func selectURL(text, lower string, candidates []string) (string, bool) {
	if raw := urlRe.FindString(text); raw != "" {
		needle := normalizeSite(raw)
		for _, c := range candidates {
			if normalizeSite(c) == needle || strings.Contains(normalizeSite(c), needle) {
				return c, true
			}
		}
		// A URL the user typed themselves is a valid choice even when it
		// matches no candidate.
		return raw, true
	}

	// Candidate host mentioned without scheme, e.g. "acme.com please".
	for _, c := range candidates {
		host := normalizeSite(c)
		if host != "" && strings.Contains(lower, host) {
			return c, true
		}
	}

	for _, field := range strings.Fields(lower) {
		field = strings.Trim(field, ".,!)#")
		if n, err := strconv.Atoi(field); err == nil {
			if n >= 1 && n <= len(candidates) {
				return candidates[n-1], true
			}
		}
	}

	switch strings.Trim(lower, " .,!") {
	case "yes", "yep", "yeah", "correct", "that's it", "first one", "the first one":
		return candidates[0], true
	}
	return "", false
}

// normalizeSite reduces a URL to its host plus path for comparison.
func normalizeSite(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimRight(s, "/.,")
}

func extractCompany(text, lower, email string) string {
	for _, lead := range leadIns {
		idx := strings.Index(lower, lead+" ")
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(text[idx+len(lead):])
		rest = trimCompanyTail(rest, email)
		rest = strings.Trim(rest, " .,!?\"'")
		rest = strings.TrimPrefix(rest, "the company ")
		if strings.HasSuffix(strings.ToLower(rest), " please") {
			rest = strings.TrimSpace(rest[:len(rest)-len(" please")])
		}
		if rest != "" {
			// Company names after a lead-in are typed mid-sentence, often
			// all lowercase. Normalize to title case without clobbering
			// interior capitals like "OpenAI".
			return cases.Title(language.English, cases.NoLower).String(rest)
		}
	}

	// A short message of non-stopword tokens reads as a bare company name,
	// e.g. "Acme Corp". Questions and emails never do.
	if email != "" || strings.ContainsAny(text, "?@") {
		return ""
	}
	fields := strings.Fields(strings.Trim(text, " .,!\"'"))
	if len(fields) == 0 || len(fields) > 4 {
		return ""
	}
	alphabetic := false
	for _, f := range fields {
		if _, stop := stopwords[strings.ToLower(f)]; stop {
			return ""
		}
		if strings.IndexFunc(f, func(r rune) bool { return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' }) >= 0 {
			alphabetic = true
		}
	}
	if !alphabetic {
		return ""
	}
	return strings.Trim(text, " .,!\"'")
}

// trimCompanyTail removes trailing clauses that introduce an email address,
// so "research Acme and send it to bob@x.com" yields just "Acme".
func trimCompanyTail(rest, email string) string {
	if email != "" {
		if idx := strings.Index(rest, email); idx >= 0 {
			rest = rest[:idx]
		}
	}
	lower := strings.ToLower(rest)
	for _, connector := range []string{" and send", " and email", " and mail", " my email", " email me", " send it", " send the", " send to", ", email", ", send"} {
		if idx := strings.Index(lower, connector); idx >= 0 {
			rest = rest[:idx]
			lower = lower[:idx]
		}
	}
	return rest
}

func looksLikeQuestion(lower string) bool {
	if strings.Contains(lower, "?") {
		return true
	}
	for _, w := range []string{"what", "who", "how", "why", "when", "where", "do ", "does ", "can ", "tell me"} {
		if strings.HasPrefix(lower, w) {
			return true
		}
	}
	return false
}
