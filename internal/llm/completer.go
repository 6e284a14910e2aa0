package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"podcaster/internal/config"
	"podcaster/internal/services"
)

// TextUnit is one completion choice returned by a provider.
type TextUnit struct {
	Text         string
	FinishReason string
}

// Completer produces completions for a prompt, stopping before stop.
type Completer interface {
	Complete(ctx context.Context, prompt, stop string) ([]TextUnit, error)
}

// HealthChecker verifies provider credentials and model availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config captures the runtime settings required to talk to a provider.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	Temperature    float64
}

// ConfigFrom extracts provider settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		APIKey:         strings.TrimSpace(cfg.LLM.APIKey),
		BaseURL:        strings.TrimSpace(cfg.LLM.BaseURL),
		Model:          strings.TrimSpace(cfg.LLM.Model),
		Referer:        strings.TrimSpace(cfg.LLM.Referer),
		Title:          strings.TrimSpace(cfg.LLM.Title),
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		Temperature:    cfg.LLM.Temperature,
	}
}

// New builds the provider selected by cfg.LLM.Provider. A missing API key is a
// configuration error so commands that never generate can still run.
func New(cfg *config.Config, logger *slog.Logger) (Completer, error) {
	settings := ConfigFrom(cfg)
	if settings.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "llm", "init",
			fmt.Sprintf("api key required for provider %s (set llm.api_key or the provider env var)", cfg.LLM.Provider), nil)
	}
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(settings, logger), nil
	case config.ProviderOpenRouter, "":
		return NewClient(settings, WithLogger(logger)), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "llm", "init",
			fmt.Sprintf("unsupported provider %q", cfg.LLM.Provider), nil)
	}
}
