package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"podcaster/internal/services"
)

func choicesPayload(contents ...string) map[string]any {
	choices := make([]any, 0, len(contents))
	for _, content := range contents {
		choices = append(choices, map[string]any{
			"finish_reason": "stop",
			"message":       map[string]any{"content": content},
		})
	}
	return map[string]any{"choices": choices}
}

func TestClientCompleteSendsStopAndReturnsUnit(t *testing.T) {
	var got chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-Title") != "Podcaster" {
			t.Errorf("unexpected title header %q", r.Header.Get("X-Title"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(choicesPayload(`"Car Talk", "podcast_description": "Call-in show"`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", Title: "Podcaster", Temperature: 0.7})
	units, err := client.Complete(context.Background(), "NEW OBJECT:\n{", "}")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if len(units) != 1 || !strings.HasPrefix(units[0].Text, `"Car Talk"`) {
		t.Fatalf("unexpected units %+v", units)
	}
	if units[0].FinishReason != "stop" {
		t.Fatalf("unexpected finish reason %q", units[0].FinishReason)
	}
	if len(got.Stop) != 1 || got.Stop[0] != "}" {
		t.Fatalf("expected stop sequence to be forwarded, got %v", got.Stop)
	}
	if got.N != 1 || got.Model != "demo-model" || got.Temperature != 0.7 {
		t.Fatalf("unexpected request %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Fatalf("expected a single user message, got %+v", got.Messages)
	}
}

func TestClientCompleteReportsEveryChoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(choicesPayload("a", "b"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	units, err := client.Complete(context.Background(), "prompt", "}")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected two units, got %d", len(units))
	}
}

func TestClientCompleteNoChoicesYieldsNoUnits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	units, err := client.Complete(context.Background(), "prompt", "}")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if len(units) != 0 {
		t.Fatalf("expected no units, got %+v", units)
	}
}

func TestClientCompleteRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Complete(context.Background(), "prompt", "}")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(choicesPayload(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(choicesPayload("```json\n{\"ok\":true}\n```"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestClientEmptyContentHasSnippet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(choicesPayload(""))
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.Complete(context.Background(), "prompt", "}")
	if err == nil {
		t.Fatal("expected completion to fail")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool classification, got %v", err)
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected empty-content error to include snippet, got %v", err)
	}
}

func TestClientDeltaAndLegacyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"delta": map[string]any{"content": "from delta"}},
				map[string]any{"text": "from text"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	units, err := client.Complete(context.Background(), "prompt", "}")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if len(units) != 2 || units[0].Text != "from delta" || units[1].Text != "from text" {
		t.Fatalf("unexpected units %+v", units)
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		_ = json.NewEncoder(w).Encode(choicesPayload("ok"))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	units, err := client.Complete(context.Background(), "prompt", "}")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("unexpected units %+v", units)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL},
		WithSleeper(func(time.Duration) {}),
	)
	if _, err := client.Complete(context.Background(), "prompt", "}"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	client := NewClient(Config{}, WithRetryBackoff(time.Second, 5*time.Second))
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, expected := range want {
		if got := client.backoffDelay(i + 1); got != expected {
			t.Fatalf("attempt %d: got %s want %s", i+1, got, expected)
		}
	}
}

func TestDecodeLLMJSONStripsProse(t *testing.T) {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON("Sure! {\"ok\": true} Hope that helps.", &out); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if !out.OK {
		t.Fatal("expected ok")
	}
	if err := DecodeLLMJSON("   ", &out); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
