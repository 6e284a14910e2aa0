package preflight

import (
	"context"

	"podcaster/internal/config"
	"podcaster/internal/llm"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll checks the configured directories and, when checker is non-nil,
// the completion provider.
func RunAll(ctx context.Context, cfg *config.Config, checker llm.HealthChecker) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Audio directory", cfg.Paths.AudioDir),
	}
	if checker != nil {
		results = append(results, CheckLLM(ctx, "Completion provider", checker))
	}
	return results
}
