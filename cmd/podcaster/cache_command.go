package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the generation cache",
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cached generations per stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, false, func(c context.Context, s *session) error {
				stats, err := s.svc.CacheStats(c)
				if err != nil {
					return err
				}
				if ctx.jsonFlag {
					return writeJSON(cmd, stats)
				}
				rows := make([][]string, 0, len(stats))
				for _, st := range stats {
					rows = append(rows, []string{st.StoreID, strconv.FormatInt(st.Entries, 10)})
				}
				writeTable(cmd.OutOrStdout(), []string{"Namespace", "Entries"}, rows, []columnAlignment{alignLeft, alignRight})
				return nil
			})
		},
	})
	return cacheCmd
}
