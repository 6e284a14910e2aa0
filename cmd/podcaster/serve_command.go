package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"podcaster/internal/logging"
	podmcp "podcaster/internal/mcp"
	"podcaster/internal/server"
	"podcaster/internal/telemetry"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var withMCP bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the feed, audio, and generation API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return ctx.withSession(cmd, false, func(_ context.Context, s *session) error {
				if bind != "" {
					s.cfg.Server.Bind = bind
				}

				lock := flock.New(s.cfg.LockPath())
				ok, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire lock: %w", err)
				}
				if !ok {
					return fmt.Errorf("another podcaster server is already running for workspace %s", s.cfg.Workspace.Name)
				}
				defer func() {
					if err := lock.Unlock(); err != nil {
						s.logger.Warn("failed to release server lock", logging.Error(err))
					}
				}()

				shutdown, err := telemetry.Init(runCtx, s.cfg.Telemetry, version)
				if err != nil {
					return fmt.Errorf("init telemetry: %w", err)
				}
				defer func() {
					if err := shutdown(context.Background()); err != nil {
						s.logger.Warn("telemetry shutdown failed", logging.Error(err))
					}
				}()

				var opts []server.Option
				if withMCP {
					opts = append(opts, server.WithMCP(podmcp.New(s.svc, s.logger, version).MCPServer()))
				}
				srv, err := server.New(s.cfg, s.svc, s.logger, opts...)
				if err != nil {
					return err
				}
				if err := srv.Start(runCtx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Serving workspace %s on http://%s\n", s.cfg.Workspace.Name, srv.Addr())

				<-runCtx.Done()
				srv.Stop()
				s.logger.Info("podcaster server stopped")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides server.bind)")
	cmd.Flags().BoolVar(&withMCP, "mcp", true, "Also serve MCP tools at /mcp")
	return cmd
}
