package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	podmcp "podcaster/internal/mcp"
)

func newMCPCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve podcast tools to an MCP client over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries protocol frames; logs go to stderr only.
			if ctx.logWriter == nil {
				ctx.logWriter = os.Stderr
			}
			return ctx.withSession(cmd, true, func(_ context.Context, s *session) error {
				return podmcp.New(s.svc, s.logger, version).ServeStdio()
			})
		},
	}
}
