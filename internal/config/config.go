package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	AudioDir string `toml:"audio_dir"`
}

// Workspace names the scope every document, tag, and cache entry lives in.
type Workspace struct {
	Name string `toml:"name"`
}

// Store selects the document store backend.
type Store struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// LLM contains completion provider connection settings.
type LLM struct {
	Provider       string  `toml:"provider"`
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Temperature    float64 `toml:"temperature"`
}

// Generation toggles stage behaviour.
type Generation struct {
	CacheEnabled bool `toml:"cache_enabled"`
}

// Feed holds defaults applied to a feed created from a generated premise.
type Feed struct {
	BaseURL   string `toml:"base_url"`
	Identity  string `toml:"identity"`
	Author    string `toml:"author"`
	Language  string `toml:"language"`
	Copyright string `toml:"copyright"`
	Category  string `toml:"category"`
	ImageURL  string `toml:"image_url"`
	WebURL    string `toml:"web_url"`
	Explicit  bool   `toml:"explicit"`
}

// Server contains the HTTP listener configuration.
type Server struct {
	Bind string `toml:"bind"`
	// Token, when set, is required as a bearer token on mutating endpoints.
	Token string `toml:"token"`
}

// Telemetry configures OpenTelemetry export. An empty endpoint disables it.
type Telemetry struct {
	OTLPEndpoint string `toml:"otlp_endpoint"`
	Insecure     bool   `toml:"insecure"`
	ServiceName  string `toml:"service_name"`
}

// Notifications configures ntfy push notifications. An empty topic disables them.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for podcaster.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and audio directories
//   - Workspace: the workspace name scoping feeds, episodes, and cache entries
//   - Store: sqlite or postgres document store
//   - LLM: completion provider settings
//   - Generation: stage caching
//   - Feed: RSS base URL, feed identity mode, and channel defaults
//   - Server: HTTP bind address
//   - Telemetry: OTLP export
//   - Notifications: ntfy topic for episode events
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Workspace     Workspace     `toml:"workspace"`
	Store         Store         `toml:"store"`
	LLM           LLM           `toml:"llm"`
	Generation    Generation    `toml:"generation"`
	Feed          Feed          `toml:"feed"`
	Server        Server        `toml:"server"`
	Telemetry     Telemetry     `toml:"telemetry"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/podcaster/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("podcaster.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the data, log, and audio directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.AudioDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LLMTimeout returns the completion request timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// LockPath returns the file used to keep a single server per workspace.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "podcaster-"+c.Workspace.Name+".lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
