// Package llm talks to the language model that judges review responses.
package llm

import (
	"context"
	"fmt"
	"strings"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Request is a single completion request.
type Request struct {
	System    string
	User      string
	PDF       []byte // optional document attachment
	MaxTokens int
}

// Model is anything that can answer a prompt with text.
type Model interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, req Request) (string, error)

func (f ModelFunc) Complete(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

func (f ModelFunc) Name() string { return "func" }

// Config selects and authenticates a provider. Nothing in this package reads
// the environment; callers resolve credentials first.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	// MaxRetries is the SDK retry count for transient errors. Zero disables
	// retries; negative keeps the SDK default.
	MaxRetries int
	BaseURL    string // optional API endpoint override
}

// DefaultModel returns the default model name for a provider.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderGemini:
		return "gemini-2.5-pro"
	default:
		return "claude-sonnet-4-5"
	}
}

// New creates a Model for the configured provider.
func New(ctx context.Context, cfg Config) (Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", cfg.Provider)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderAnthropic:
		return NewAnthropic(cfg), nil
	case ProviderGemini, "google":
		return NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		} else {
			text = ""
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
