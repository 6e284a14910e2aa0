package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"podcaster/internal/config"
	"podcaster/internal/logging"
	"podcaster/internal/producer"
)

// maxAudioBytes caps a single audio upload.
const maxAudioBytes = 512 << 20

// Server serves one workspace.
type Server struct {
	bind   string
	token  string
	logger *slog.Logger
	svc    *producer.Service
	router chi.Router
	mcp    *mcpserver.MCPServer

	listener net.Listener
	server   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMCP mounts the MCP streamable HTTP transport at /mcp.
func WithMCP(m *mcpserver.MCPServer) Option {
	return func(s *Server) { s.mcp = m }
}

// New builds the router for svc.
func New(cfg *config.Config, svc *producer.Service, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg == nil || svc == nil {
		return nil, errors.New("server: config and producer are required")
	}
	s := &Server{
		bind:   strings.TrimSpace(cfg.Server.Bind),
		token:  cfg.Server.Token,
		logger: logging.NewComponentLogger(logger, "api-server"),
		svc:    svc,
		router: chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.requestContext)

	r.Get("/healthz", s.handleHealth)
	r.Get("/rss", s.handleRSS)
	r.Get("/audio", s.handleAudio)
	r.Get("/feed", s.handleFeed)
	r.Get("/episodes", s.handleEpisodes)
	r.Get("/episodes/{id}", s.handleEpisode)

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Put("/feed", s.handleReplaceFeed)
		r.Post("/episodes/{id}/audio", s.handleUploadAudio)
		r.Post("/premise", s.handlePremise)
		r.Post("/episode-premise", s.handleEpisodePremise)
		r.Post("/scripts", s.handleScript)
		if s.mcp != nil {
			r.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s.mcp))
		}
	})
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured bind address and shuts down when ctx ends.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.String(logging.FieldWorkspace, s.svc.Workspace()),
	)
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting up to five seconds for requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
