package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkspace()
	c.normalizeStore()
	c.normalizeLLM()
	if err := c.normalizeFeed(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.AudioDir) == "" {
		c.Paths.AudioDir = filepath.Join(c.Paths.DataDir, "audio")
	}
	if c.Paths.AudioDir, err = expandPath(c.Paths.AudioDir); err != nil {
		return fmt.Errorf("paths.audio_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkspace() {
	c.Workspace.Name = strings.TrimSpace(c.Workspace.Name)
	if c.Workspace.Name == "" {
		if value, ok := os.LookupEnv("PODCASTER_WORKSPACE"); ok {
			c.Workspace.Name = strings.TrimSpace(value)
		}
	}
	if c.Workspace.Name == "" {
		c.Workspace.Name = defaultWorkspace
	}
}

func (c *Config) normalizeStore() {
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.DSN == "" {
		if value, ok := os.LookupEnv("PODCASTER_DATABASE_URL"); ok {
			c.Store.DSN = strings.TrimSpace(value)
		}
	}
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = defaultStoreDriver
		if strings.HasPrefix(c.Store.DSN, "postgres://") || strings.HasPrefix(c.Store.DSN, "postgresql://") {
			c.Store.Driver = DriverPostgres
		}
	}
	if c.Store.Driver == DriverSQLite && c.Store.DSN == "" {
		c.Store.DSN = filepath.Join(c.Paths.DataDir, defaultStoreFile)
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)

	envKey, baseURL, model := "OPENROUTER_API_KEY", defaultOpenRouterBaseURL, defaultOpenRouterModel
	if c.LLM.Provider == ProviderOpenAI {
		envKey, baseURL, model = "OPENAI_API_KEY", defaultOpenAIBaseURL, defaultOpenAIModel
	}
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv(envKey); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = baseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = model
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeFeed() error {
	c.Feed.BaseURL = strings.TrimSpace(c.Feed.BaseURL)
	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = defaultFeedBaseURL
	}
	if !strings.HasSuffix(c.Feed.BaseURL, "/") {
		c.Feed.BaseURL += "/"
	}
	c.Feed.Identity = strings.ToLower(strings.TrimSpace(c.Feed.Identity))
	if c.Feed.Identity == "" {
		c.Feed.Identity = defaultFeedIdentity
	}
	c.Feed.Author = strings.TrimSpace(c.Feed.Author)
	c.Feed.Copyright = strings.TrimSpace(c.Feed.Copyright)
	c.Feed.Category = strings.TrimSpace(c.Feed.Category)
	c.Feed.ImageURL = strings.TrimSpace(c.Feed.ImageURL)
	c.Feed.WebURL = strings.TrimSpace(c.Feed.WebURL)

	lang := strings.TrimSpace(c.Feed.Language)
	if lang == "" {
		return nil
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("feed.language: %w", err)
	}
	c.Feed.Language = tag.String()
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	c.Server.Token = strings.TrimSpace(c.Server.Token)
	if c.Server.Token == "" {
		if value, ok := os.LookupEnv("PODCASTER_API_TOKEN"); ok {
			c.Server.Token = strings.TrimSpace(value)
		}
	}
	c.Telemetry.OTLPEndpoint = strings.TrimSpace(c.Telemetry.OTLPEndpoint)
	c.Telemetry.ServiceName = strings.TrimSpace(c.Telemetry.ServiceName)
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = defaultTelemetryService
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("PODCASTER_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
