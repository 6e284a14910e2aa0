package llm

import (
	"errors"
	"testing"

	"podcaster/internal/config"
	"podcaster/internal/services"
)

func TestNewSelectsProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "key"

	completer, err := New(&cfg, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := completer.(*Client); !ok {
		t.Fatalf("expected OpenRouter client, got %T", completer)
	}

	cfg.LLM.Provider = config.ProviderOpenAI
	completer, err = New(&cfg, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := completer.(*OpenAIClient); !ok {
		t.Fatalf("expected OpenAI client, got %T", completer)
	}
	if _, ok := completer.(HealthChecker); !ok {
		t.Fatal("expected OpenAI client to implement HealthChecker")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	cfg := config.Default()
	if _, err := New(&cfg, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
