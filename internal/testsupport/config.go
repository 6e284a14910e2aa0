package testsupport

import (
	"path/filepath"
	"testing"

	"podcaster/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The store is a SQLite file under the temp data dir.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.AudioDir = filepath.Join(base, "audio")
	cfgVal.Workspace.Name = "test"
	cfgVal.Store.Driver = config.DriverSQLite
	cfgVal.Store.DSN = filepath.Join(cfgVal.Paths.DataDir, "podcaster.db")
	cfgVal.LLM.APIKey = "test"
	cfgVal.Feed.BaseURL = "https://pods.example.com/"
	cfgVal.Server.Bind = "127.0.0.1:0"

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithWorkspace overrides the workspace name.
func WithWorkspace(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workspace.Name = name
	}
}

// WithFeedIdentity overrides the feed identity mode.
func WithFeedIdentity(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Feed.Identity = mode
	}
}

// WithCacheDisabled turns stage caching off.
func WithCacheDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Generation.CacheEnabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
