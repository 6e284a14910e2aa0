package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"podcaster/internal/llm"
	"podcaster/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, the store, and the completion provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, false, func(c context.Context, s *session) error {
				checker, _ := s.completer.(llm.HealthChecker)
				results := preflight.RunAll(c, s.cfg, checker)
				for _, h := range s.svc.Health(c) {
					// The provider probe above replaces the stage check.
					if checker != nil && h.Name != "store" {
						continue
					}
					results = append(results, preflight.Result{Name: h.Name, Passed: h.Ready, Detail: h.Detail})
				}

				ready := true
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					ready = ready && r.Passed
					rows = append(rows, []string{r.Name, yesNo(r.Passed), r.Detail})
				}
				if ctx.jsonFlag {
					if err := writeJSON(cmd, map[string]any{"ready": ready, "checks": results}); err != nil {
						return err
					}
				} else {
					writeTable(cmd.OutOrStdout(), []string{"Check", "Ready", "Detail"}, rows, nil)
				}
				if !ready {
					return errors.New("one or more checks failed")
				}
				return nil
			})
		},
	}
}
