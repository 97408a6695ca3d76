// Package llm exposes chat-style text completion behind a small interface so
// analysis code never touches a vendor SDK directly. Providers are tried in
// order; a request fails only when every provider fails.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnavailable reports that no completion provider is configured or
// reachable. Callers degrade to canned responses instead of crashing.
var ErrUnavailable = errors.New("no completion provider available")

// Request is one completion call.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Completer produces a text completion for a prompt.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Chain tries completers in preference order and returns the first success.
type Chain struct {
	completers []Completer
	logger     *slog.Logger
}

// NewChain builds a fallback chain. Completers earlier in the list are
// preferred.
func NewChain(logger *slog.Logger, completers ...Completer) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{completers: completers, logger: logger}
}

func (c *Chain) Name() string { return "chain" }

// Complete runs the request against each provider until one answers.
func (c *Chain) Complete(ctx context.Context, req Request) (string, error) {
	if len(c.completers) == 0 {
		return "", ErrUnavailable
	}

	var lastErr error
	for _, p := range c.completers {
		text, err := p.Complete(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
		c.logger.Warn("completion provider failed", "provider", p.Name(), "err", err)

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

var _ Completer = (*Chain)(nil)
