package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/civicdata/civicdata/internal/observability"
)

// Server hosts the MCP endpoint over either stdio or streamable HTTP. The
// actual query semantics live behind Config.Gateway; this layer only does
// protocol plumbing.
type Server struct {
	log *slog.Logger
	cfg Config
	mcp *mcp.Server
}

func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		log: cfg.Logger,
		cfg: cfg,
		mcp: mcpServer,
	}

	if err := RegisterQueryTool(s.log, mcpServer, cfg.Gateway, cfg.Table); err != nil {
		return nil, fmt.Errorf("register query tool: %w", err)
	}
	if err := RegisterSchemaTool(s.log, mcpServer, cfg.Schema, cfg.Table); err != nil {
		return nil, fmt.Errorf("register schema tool: %w", err)
	}
	RegisterSchemaResource(s.log, mcpServer, cfg.Schema, cfg.Table)

	return s, nil
}

// RunStdio serves a single MCP session over stdin and stdout. Logs must go
// to stderr in this mode; stdout carries the protocol stream.
func (s *Server) RunStdio(ctx context.Context) error {
	s.log.Info("mcp server listening on stdio", "name", s.cfg.Name, "version", s.cfg.Version)
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio session: %w", err)
	}
	return nil
}

// RunHTTP serves MCP over streamable HTTP alongside health and metrics
// endpoints, and shuts down gracefully when ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context) error {
	if s.cfg.ListenAddr == "" {
		return fmt.Errorf("listen address is required for http transport")
	}

	handler := http.Handler(mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.mcp
	}, &mcp.StreamableHTTPOptions{
		Stateless: true,
	}))
	if s.cfg.AuthMiddleware != nil {
		handler = s.cfg.AuthMiddleware(handler)
	}

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/readyz", s.readyzHandler)
	mux.Handle("/metrics", promhttp.Handler())

	root := observability.Instrument(s.log, mux)

	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           root,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("listen and serve: %w", err)
		}
	}()

	s.log.Info("mcp server listening on http",
		"addr", s.cfg.ListenAddr,
		"name", s.cfg.Name,
		"version", s.cfg.Version,
	)

	select {
	case <-ctx.Done():
		s.log.Info("mcp server stopping", "reason", ctx.Err())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		return err
	}
}

func (s *Server) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Health.HealthCheck(r.Context()); err != nil {
		s.log.Warn("readyz: database not reachable", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database not ready\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
