package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"podcaster/internal/config"
	"podcaster/internal/docstore"
	"podcaster/internal/llm"
	"podcaster/internal/logging"
	"podcaster/internal/producer"
)

type completerFactory func(*config.Config, *slog.Logger) (llm.Completer, error)

type commandContext struct {
	configFlag    string
	workspaceFlag string
	jsonFlag      bool

	// logWriter replaces the configured log outputs when set.
	logWriter    io.Writer
	newCompleter completerFactory

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{newCompleter: llm.New}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if ws := strings.TrimSpace(c.workspaceFlag); ws != "" {
			cfg.Workspace.Name = ws
			if err := cfg.Validate(); err != nil {
				c.configErr = err
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	if c.logWriter != nil {
		return logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Writer: c.logWriter,
		})
	}
	return logging.NewFromConfig(cfg)
}

// session holds the resources one command needs against a workspace.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     docstore.Store
	completer llm.Completer
	svc       *producer.Service
}

func (s *session) Close() error {
	return s.store.Close()
}

// openSession opens the store and builds the producer. When requireLLM is
// false a missing provider key leaves the producer without a completer so
// read-only commands still work.
func (c *commandContext) openSession(ctx context.Context, requireLLM bool) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.logger(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	completer, err := c.newCompleter(cfg, logger)
	if err != nil {
		if requireLLM {
			return nil, err
		}
		logger.Debug("completion provider unavailable", logging.Error(err))
		completer = nil
	}

	store, err := docstore.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	ws, err := docstore.NewWorkspace(store, cfg.Workspace.Name)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	svc, err := producer.New(cfg, ws, completer, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, store: store, completer: completer, svc: svc}, nil
}

// withSession runs fn against an open session and closes it afterwards.
func (c *commandContext) withSession(cmd *cobra.Command, requireLLM bool, fn func(context.Context, *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := c.openSession(ctx, requireLLM)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

// loadDotEnv reads a .env file from the working directory when present.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: read .env: %v\n", err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
