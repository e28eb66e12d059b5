package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joescharf/rebuttal/internal/judge"
	"github.com/joescharf/rebuttal/internal/llm"
)

// newModelFunc creates the judge model, replaceable in tests.
var newModelFunc = newModel

// newModel creates a model from config/env. Credentials are resolved here and
// passed to the llm package explicitly.
func newModel(ctx context.Context) (llm.Model, error) {
	cfg := llmConfigFromViper()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key for provider %q: set %s.api_key in config or %s", cfg.Provider, cfg.Provider, apiKeyEnv(cfg.Provider))
	}
	return llm.New(ctx, cfg)
}

func llmConfigFromViper() llm.Config {
	provider := strings.ToLower(viper.GetString("provider"))
	switch provider {
	case "":
		provider = llm.ProviderAnthropic
	case "google":
		provider = llm.ProviderGemini
	}

	apiKey := viper.GetString(provider + ".api_key")
	if apiKey == "" {
		apiKey = os.Getenv(apiKeyEnv(provider))
	}

	return llm.Config{
		Provider:   provider,
		Model:      viper.GetString("model"),
		APIKey:     apiKey,
		MaxRetries: viper.GetInt("judge.max_retries"),
		BaseURL:    viper.GetString(provider + ".base_url"),
	}
}

func apiKeyEnv(provider string) string {
	if provider == llm.ProviderGemini {
		return "GEMINI_API_KEY"
	}
	return "ANTHROPIC_API_KEY"
}

// judgeConfigFromViper reads the judge.* keys.
func judgeConfigFromViper() (judge.Config, error) {
	timeout := viper.GetDuration("judge.timeout")
	if raw := viper.GetString("judge.timeout"); raw != "" && timeout == 0 {
		if _, err := time.ParseDuration(raw); err != nil {
			return judge.Config{}, fmt.Errorf("invalid judge.timeout %q: %w", raw, err)
		}
	}
	return judge.Config{
		Trials:        viper.GetInt("judge.trials"),
		Concurrency:   viper.GetInt("judge.concurrency"),
		Timeout:       timeout,
		SplitComments: viper.GetBool("judge.split_comments"),
	}, nil
}
