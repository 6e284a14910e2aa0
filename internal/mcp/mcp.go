// Package mcp exposes the podcast producer as Model Context Protocol tools so
// an agent can plan a podcast, draft episodes and read the feed.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"podcaster/internal/logging"
	"podcaster/internal/producer"
)

// Server wraps the MCP server with the producer.
type Server struct {
	mcpServer *mcpserver.MCPServer
	svc       *producer.Service
	logger    *slog.Logger
}

// New creates the MCP server and registers every tool.
func New(svc *producer.Service, logger *slog.Logger, version string) *Server {
	s := &Server{
		svc:    svc,
		logger: logging.NewComponentLogger(logger, "mcp"),
	}
	s.mcpServer = mcpserver.NewMCPServer(
		"podcaster",
		version,
		mcpserver.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// ServeStdio serves the tools over stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("podcast_premise",
			mcplib.WithDescription(`Generate the premise for a new podcast: its name and a one line description.

Use this when someone wants an idea for a new podcast. The first premise also
creates the workspace feed. Repeating the same request replays the stored answer.`),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("request",
				mcplib.Description("What the podcast should be about, in the user's words."),
				mcplib.Required(),
			),
		),
		s.handlePremise,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("podcast_episode_premise",
			mcplib.WithDescription(`Generate the premise for a podcast episode: its name and description.

The podcast's name and description are carried over from the podcast premise.`),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("request",
				mcplib.Description("What the podcast and the episode should be about."),
				mcplib.Required(),
			),
		),
		s.handleEpisodePremise,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("podcast_script",
			mcplib.WithDescription(`Write the script for a two minute podcast episode and store it as a new episode.

Returns the script and the stored episode. The episode appears in the RSS feed
once its audio has been uploaded.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithString("request",
				mcplib.Description("What the podcast and the episode should be about."),
				mcplib.Required(),
			),
		),
		s.handleScript,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("podcast_episodes",
			mcplib.WithDescription("List stored episodes, oldest first."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithBoolean("with_audio",
				mcplib.Description("Only list episodes whose audio has been uploaded."),
			),
		),
		s.handleEpisodes,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("podcast_feed_rss",
			mcplib.WithDescription("Return the workspace feed as podcast RSS XML."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
		),
		s.handleFeedRSS,
	)
}

func (s *Server) handlePremise(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	text := request.GetString("request", "")
	if text == "" {
		return errorResult("request is required"), nil
	}
	res, err := s.svc.Premise(ctx, text)
	if err != nil {
		return s.failed(ctx, "podcast_premise", err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleEpisodePremise(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	text := request.GetString("request", "")
	if text == "" {
		return errorResult("request is required"), nil
	}
	res, err := s.svc.EpisodePremise(ctx, text)
	if err != nil {
		return s.failed(ctx, "podcast_episode_premise", err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleScript(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	text := request.GetString("request", "")
	if text == "" {
		return errorResult("request is required"), nil
	}
	res, err := s.svc.Script(ctx, text)
	if err != nil {
		return s.failed(ctx, "podcast_script", err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleEpisodes(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	records, err := s.svc.Episodes(ctx, request.GetBool("with_audio", false))
	if err != nil {
		return s.failed(ctx, "podcast_episodes", err), nil
	}
	return jsonResult(map[string]any{"episodes": records}), nil
}

func (s *Server) handleFeedRSS(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	body, err := s.svc.RSS(ctx)
	if err != nil {
		return s.failed(ctx, "podcast_feed_rss", err), nil
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: body},
		},
	}, nil
}

func (s *Server) failed(ctx context.Context, tool string, err error) *mcplib.CallToolResult {
	logging.WithContext(ctx, s.logger).Warn("tool call failed",
		logging.String("tool", tool),
		logging.Error(err),
	)
	return errorResult(fmt.Sprintf("%s failed: %v", tool, err))
}

func jsonResult(v any) *mcplib.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("encode result: %v", err))
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
