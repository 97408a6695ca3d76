package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FranksOps/dossier/internal/llm"
)

// Assisted classifies messages with a language model and falls back to the
// rule extractor when the model is unreachable or returns an answer the
// rules cannot validate. The conversation never stalls on a model outage.
type Assisted struct {
	completer llm.Completer
	rules     Rules
	logger    *slog.Logger
}

var _ Extractor = (*Assisted)(nil)

// NewAssisted wraps completer as an extractor.
func NewAssisted(completer llm.Completer, logger *slog.Logger) *Assisted {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assisted{completer: completer, logger: logger}
}

const extractSystem = "You classify chat messages for a company research assistant. Respond with strict JSON only."

const extractPromptFmt = `Classify the user message and extract entities. Respond with a JSON object:
  "intent": one of "provide_company", "provide_email", "provide_company_and_email", "select_url", "ask_followup", "start_over", "unclear"
  "company": the company name if one is given, else ""
  "email": the email address if one is given, else ""
  "url": the chosen website URL if the message picks one of the offered candidates, else ""

Offered website candidates (may be empty):
%s

User message:
%s`

type extractReply struct {
	Intent  string `json:"intent"`
	Company string `json:"company"`
	Email   string `json:"email"`
	URL     string `json:"url"`
}

var validKinds = map[Kind]struct{}{
	KindStartOver:             {},
	KindProvideCompany:        {},
	KindProvideEmail:          {},
	KindProvideCompanyAndMail: {},
	KindSelectURL:             {},
	KindFollowup:              {},
	KindUnclear:               {},
}

// Extract asks the model to classify the message, validating its answer
// before trusting it.
func (a *Assisted) Extract(ctx context.Context, message string, candidates []string) Intent {
	prompt := fmt.Sprintf(extractPromptFmt, strings.Join(candidates, "\n"), message)

	raw, err := a.completer.Complete(ctx, llm.Request{
		System:    extractSystem,
		Prompt:    prompt,
		MaxTokens: 200,
	})
	if err != nil {
		a.logger.Debug("model extraction failed, using rules", "err", err)
		return a.rules.Extract(ctx, message, candidates)
	}

	intent, ok := a.validate(raw, message, candidates)
	if !ok {
		a.logger.Debug("model extraction rejected, using rules", "raw", raw)
		return a.rules.Extract(ctx, message, candidates)
	}
	return intent
}

// validate parses the model reply and cross-checks extracted entities
// against the message; entities the model invented are discarded.
func (a *Assisted) validate(raw, message string, candidates []string) (Intent, bool) {
	raw = strings.TrimSpace(raw)
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return Intent{}, false
	}

	var reply extractReply
	if err := json.Unmarshal([]byte(raw[start:end+1]), &reply); err != nil {
		return Intent{}, false
	}

	kind := Kind(reply.Intent)
	if _, valid := validKinds[kind]; !valid {
		return Intent{}, false
	}

	intent := Intent{Kind: kind}

	if reply.Email != "" {
		if emailRe.MatchString(reply.Email) && strings.Contains(message, reply.Email) {
			intent.Email = reply.Email
		} else if found := emailRe.FindString(message); found != "" {
			intent.Email = found
		}
	}
	if reply.Company != "" && strings.Contains(strings.ToLower(message), strings.ToLower(reply.Company)) {
		intent.Company = strings.TrimSpace(reply.Company)
	}
	if reply.URL != "" {
		for _, c := range candidates {
			if normalizeSite(c) == normalizeSite(reply.URL) {
				intent.URL = c
				break
			}
		}
	}

	// The claimed intent must be backed by the entities it implies.
	switch kind {
	case KindProvideCompanyAndMail:
		if intent.Company == "" || intent.Email == "" {
			return Intent{}, false
		}
	case KindProvideCompany:
		if intent.Company == "" {
			return Intent{}, false
		}
	case KindProvideEmail:
		if intent.Email == "" {
			return Intent{}, false
		}
	case KindSelectURL:
		if intent.URL == "" {
			return Intent{}, false
		}
	}
	return intent, true
}
