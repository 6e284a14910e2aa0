package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"podcaster/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENROUTER_API_KEY", "OPENAI_API_KEY", "PODCASTER_DATABASE_URL", "PODCASTER_WORKSPACE", "PODCASTER_API_TOKEN", "PODCASTER_NTFY_TOPIC"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "podcaster")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Store.Driver != config.DriverSQLite {
		t.Fatalf("unexpected driver: %q", cfg.Store.Driver)
	}
	if cfg.Store.DSN != filepath.Join(wantData, "podcaster.db") {
		t.Fatalf("unexpected sqlite dsn: %q", cfg.Store.DSN)
	}
	if cfg.Workspace.Name != "default" {
		t.Fatalf("unexpected workspace: %q", cfg.Workspace.Name)
	}
	if cfg.LLM.Provider != config.ProviderOpenRouter || cfg.LLM.BaseURL == "" || cfg.LLM.Model == "" {
		t.Fatalf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if !cfg.Generation.CacheEnabled {
		t.Fatal("expected generation cache enabled by default")
	}
	if cfg.Feed.Identity != config.IdentityWorkspace {
		t.Fatalf("unexpected feed identity: %q", cfg.Feed.Identity)
	}
	if !strings.HasSuffix(cfg.Feed.BaseURL, "/") {
		t.Fatalf("expected feed base url to end in slash, got %q", cfg.Feed.BaseURL)
	}
}

func TestLoadEnvironmentFallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PODCASTER_DATABASE_URL", "postgres://u:p@localhost:5432/podcaster")
	t.Setenv("PODCASTER_WORKSPACE", "cars")
	t.Setenv("PODCASTER_API_TOKEN", " secret ")
	t.Setenv("PODCASTER_NTFY_TOPIC", "https://ntfy.example.com/pods")

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[llm]\nprovider = \"openai\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("expected api key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("expected openai default model, got %q", cfg.LLM.Model)
	}
	if cfg.Store.Driver != config.DriverPostgres {
		t.Fatalf("expected postgres driver inferred from dsn, got %q", cfg.Store.Driver)
	}
	if cfg.Workspace.Name != "cars" {
		t.Fatalf("expected workspace from env, got %q", cfg.Workspace.Name)
	}
	if cfg.Server.Token != "secret" {
		t.Fatalf("expected api token from env, got %q", cfg.Server.Token)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example.com/pods" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Notifications.RequestTimeoutSeconds != 10 {
		t.Fatalf("expected default ntfy timeout, got %d", cfg.Notifications.RequestTimeoutSeconds)
	}
}

func TestLoadCanonicalizesFeedLanguage(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[feed]\nlanguage = \"en-gb\"\nbase_url = \"https://pods.example.com\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Feed.Language != "en-GB" {
		t.Fatalf("expected canonical language tag, got %q", cfg.Feed.Language)
	}
	if cfg.Feed.BaseURL != "https://pods.example.com/" {
		t.Fatalf("expected trailing slash, got %q", cfg.Feed.BaseURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"driver":    func(c *config.Config) { c.Store.Driver = "mysql" },
		"postgres":  func(c *config.Config) { c.Store.Driver = config.DriverPostgres; c.Store.DSN = "" },
		"provider":  func(c *config.Config) { c.LLM.Provider = "local" },
		"identity":  func(c *config.Config) { c.Feed.Identity = "random" },
		"base_url":  func(c *config.Config) { c.Feed.BaseURL = "not a url/" },
		"workspace": func(c *config.Config) { c.Workspace.Name = "a/b" },
		"log":       func(c *config.Config) { c.Logging.Format = "xml" },
		"temp":      func(c *config.Config) { c.LLM.Temperature = 3 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Workspace.Name = "default"
			cfg.Store.Driver = config.DriverSQLite
			if err := cfg.Validate(); err != nil {
				t.Fatalf("baseline config invalid: %v", err)
			}
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", name)
			}
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[tmdb]\napi_key = \"x\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown section to be rejected")
	}
}

func TestStoreDriverInferredOnlyWhenUnset(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PODCASTER_DATABASE_URL", "postgresql://u:p@localhost:5432/podcaster")

	sample := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(sample); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, _, err := config.Load(sample)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if cfg.Store.Driver != config.DriverPostgres {
		t.Fatalf("expected postgres driver for sample config, got %q", cfg.Store.Driver)
	}
	if cfg.Store.DSN != "postgresql://u:p@localhost:5432/podcaster" {
		t.Fatalf("unexpected dsn %q", cfg.Store.DSN)
	}

	explicit := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(explicit, []byte("[store]\ndriver = \"sqlite\"\ndsn = \"/tmp/pods.db\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err = config.Load(explicit)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Driver != config.DriverSQLite || cfg.Store.DSN != "/tmp/pods.db" {
		t.Fatalf("explicit store settings changed: %+v", cfg.Store)
	}
}

func TestCreateSampleParsesAndLoads(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if decoded.Feed.Identity != config.IdentityWorkspace {
		t.Fatalf("unexpected sample identity %q", decoded.Feed.Identity)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if info, err := os.Stat(cfg.Paths.AudioDir); err != nil || !info.IsDir() {
		t.Fatalf("expected audio dir to exist: %v", err)
	}
}
