package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkspace(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateFeed(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateWorkspace() error {
	if c.Workspace.Name == "" {
		return errors.New("workspace.name must be set")
	}
	if strings.ContainsAny(c.Workspace.Name, `/\`) {
		return fmt.Errorf("workspace.name %q must not contain path separators", c.Workspace.Name)
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case DriverSQLite:
		return nil
	case DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres driver. Set PODCASTER_DATABASE_URL or edit the config file")
		}
		return nil
	default:
		return fmt.Errorf("store.driver: unsupported value %q (want sqlite or postgres)", c.Store.Driver)
	}
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderOpenRouter, ProviderOpenAI:
	default:
		return fmt.Errorf("llm.provider: unsupported value %q (want openrouter or openai)", c.LLM.Provider)
	}
	if c.LLM.TimeoutSeconds < 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateFeed() error {
	switch c.Feed.Identity {
	case IdentityWorkspace, IdentityPremise, IdentityNone:
	default:
		return fmt.Errorf("feed.identity: unsupported value %q (want workspace, premise, or none)", c.Feed.Identity)
	}
	parsed, err := url.Parse(c.Feed.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("feed.base_url %q must be an absolute URL", c.Feed.BaseURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
