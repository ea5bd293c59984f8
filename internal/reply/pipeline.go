// Package reply turns a fetched post into sanitized reply text, or nothing.
package reply

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/STRATINT/replybot/internal/config"
)

// Generator is the single-turn text generation backend.
type Generator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Options configures the pipeline.
type Options struct {
	Persona         string
	MaxChars        int
	Languages       []string
	BlockedKeywords []string
}

// OptionsFromConfig derives pipeline options from the run configuration.
func OptionsFromConfig(bot config.BotConfig) Options {
	return Options{
		Persona:         bot.Persona,
		MaxChars:        bot.MaxReplyChars,
		Languages:       bot.ReplyLanguages,
		BlockedKeywords: bot.BlockedKeywords,
	}
}

// Request describes the post being replied to.
type Request struct {
	Author    string
	Text      string
	Permalink string
	Lang      string
}

// Pipeline filters, generates and sanitizes replies.
type Pipeline struct {
	generator Generator
	opts      Options
	blocked   []string
	logger    *slog.Logger
}

// NewPipeline creates a content pipeline.
func NewPipeline(generator Generator, opts Options, logger *slog.Logger) *Pipeline {
	blocked := make([]string, 0, len(opts.BlockedKeywords))
	for _, kw := range opts.BlockedKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			blocked = append(blocked, kw)
		}
	}
	return &Pipeline{
		generator: generator,
		opts:      opts,
		blocked:   blocked,
		logger:    logger,
	}
}

// Generate returns the reply for req. An empty string with a nil error means
// the post should be skipped: it was blocked or generation produced nothing.
func (p *Pipeline) Generate(ctx context.Context, req Request) (string, error) {
	if kw, ok := p.Blocked(req.Text); ok {
		p.logger.Info("post blocked by keyword filter",
			"event", "skip",
			"reason", "blocked_keyword",
			"keyword", kw,
			"permalink", req.Permalink)
		return "", nil
	}

	lang := replyLanguage(req.Lang, p.opts.Languages)
	raw, err := p.generator.GenerateText(ctx, p.systemPrompt(lang), userPrompt(req))
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}

	text := Sanitize(raw, p.opts.MaxChars)
	if text == "" {
		p.logger.Info("generation returned no reply",
			"event", "skip",
			"reason", "empty_generation",
			"permalink", req.Permalink)
		return "", nil
	}
	return text, nil
}

// Blocked reports whether text contains a denylisted keyword, case-insensitively.
func (p *Pipeline) Blocked(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range p.blocked {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}
