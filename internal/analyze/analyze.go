// Package analyze turns scraped website text into a structured company
// profile and answers follow-up questions against it. Model output is
// untrusted: a layered parser recovers structure from sloppy responses, and
// a completely unusable response degrades to fixed sentinel values rather
// than an error, so research always completes.
package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FranksOps/dossier/internal/llm"
	"github.com/FranksOps/dossier/internal/metrics"
)

// Content limits keep prompts inside model context windows. Scraped sites can
// run to hundreds of kilobytes; the opening sections carry the signal.
const (
	MaxAnalysisContent = 15000
	MaxFollowupContent = 10000
)

// Sentinel values substituted for fields no parse tier could recover.
const (
	SentinelWhatTheySell  = "Unable to determine what they sell."
	SentinelWhoTheyTarget = "Unable to determine who they target."
	SentinelSummary       = "Unable to generate a summary from the website content."
)

// FollowupApology is returned when a follow-up answer cannot be generated.
const FollowupApology = "I'm sorry, I wasn't able to answer that question right now. Please try asking again."

// Analysis is the structured profile extracted from a company's website.
type Analysis struct {
	WhatTheySell  string
	WhoTheyTarget string
	Summary       string
}

// Complete reports whether every field was recovered from model output
// rather than filled with a sentinel.
func (a Analysis) Complete() bool {
	return a.WhatTheySell != SentinelWhatTheySell &&
		a.WhoTheyTarget != SentinelWhoTheyTarget &&
		a.Summary != SentinelSummary
}

// Summarizer runs analysis and follow-up prompts through a completer.
type Summarizer struct {
	completer llm.Completer
	logger    *slog.Logger
}

// New creates a Summarizer.
func New(completer llm.Completer, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{completer: completer, logger: logger}
}

const analysisSystem = "You are a business analyst. You respond with strict JSON only, no prose, no code fences."

const analysisPromptFmt = `Analyze the following website content for the company %q and respond with a JSON object with exactly these keys:
  "what_they_sell": one or two sentences describing the products or services offered
  "who_they_target": one or two sentences describing the customer segments targeted
  "summary": a condensed three to five sentence summary of the company

Website content:
%s`

// Analyze extracts a structured profile from scraped content. It never
// returns an error for bad model output; missing fields become sentinels.
func (s *Summarizer) Analyze(ctx context.Context, companyName, content string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}

	prompt := fmt.Sprintf(analysisPromptFmt, companyName, Truncate(content, MaxAnalysisContent))

	raw, err := s.completer.Complete(ctx, llm.Request{
		System:    analysisSystem,
		Prompt:    prompt,
		MaxTokens: 900,
	})
	if err != nil {
		s.logger.Warn("analysis completion failed, using sentinels", "company", companyName, "err", err)
		metrics.AnalysesTotal.WithLabelValues("sentinel").Inc()
		return sentinelAnalysis(), nil
	}

	analysis, tier := ParseAnalysis(raw)
	metrics.AnalysesTotal.WithLabelValues(tier).Inc()
	s.logger.Info("content analyzed", "company", companyName, "parse_tier", tier, "complete", analysis.Complete())
	return analysis, nil
}

const followupPromptFmt = `You are answering questions about the company %q using only the website content below and the research notes. Answer concisely in plain text. If the content does not cover the question, say so.

Research notes:
What they sell: %s
Who they target: %s
Summary: %s

Website content:
%s

Question: %s`

// AnswerFollowup answers a question against the scraped content and prior
// analysis. Failures degrade to a fixed apology instead of an error.
func (s *Summarizer) AnswerFollowup(ctx context.Context, companyName, content string, analysis Analysis, question string) string {
	prompt := fmt.Sprintf(followupPromptFmt,
		companyName,
		analysis.WhatTheySell,
		analysis.WhoTheyTarget,
		analysis.Summary,
		Truncate(content, MaxFollowupContent),
		question,
	)

	answer, err := s.completer.Complete(ctx, llm.Request{Prompt: prompt, MaxTokens: 600})
	if err != nil {
		s.logger.Warn("followup completion failed", "company", companyName, "err", err)
		return FollowupApology
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return FollowupApology
	}
	return answer
}

// Truncate cuts s to at most limit bytes, trimming back to the previous
// space so a word is never split mid-rune.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > limit/2 {
		cut = cut[:idx]
	}
	return cut
}

func sentinelAnalysis() Analysis {
	return Analysis{
		WhatTheySell:  SentinelWhatTheySell,
		WhoTheyTarget: SentinelWhoTheyTarget,
		Summary:       SentinelSummary,
	}
}
