package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/civicdata/civicdata/internal/audit"
	auditpostgres "github.com/civicdata/civicdata/internal/audit/postgres"
	"github.com/civicdata/civicdata/internal/auth"
	"github.com/civicdata/civicdata/internal/config"
	"github.com/civicdata/civicdata/internal/gateway"
	"github.com/civicdata/civicdata/internal/gateway/duckdb"
	"github.com/civicdata/civicdata/internal/mcpserver"
	"github.com/civicdata/civicdata/internal/observability"
)

func main() {
	cfg, err := config.LoadFromEnv("civicdata-mcp")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	// On stdio transport stdout carries the protocol stream, so logs go
	// to stderr.
	var logWriter io.Writer = os.Stdout
	if cfg.Server.Transport == config.TransportStdio {
		logWriter = os.Stderr
	}
	logger := observability.NewLogger(cfg, logWriter)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager, err := duckdb.Open(ctx, duckdb.Config{
		Path:         cfg.Database.Path,
		Table:        cfg.Dataset.Table,
		QueryTimeout: cfg.Database.QueryTimeout,
		MaxRows:      cfg.Database.MaxRows,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = manager.Close() }()

	var recorders []audit.Recorder
	if cfg.Audit.DSN != "" {
		db, err := auditpostgres.Open(ctx, auditpostgres.DBConfig{
			DSN:             cfg.Audit.DSN,
			MaxOpenConns:    cfg.Audit.MaxOpenConns,
			MaxIdleConns:    cfg.Audit.MaxIdleConns,
			ConnMaxIdleTime: cfg.Audit.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Audit.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open audit db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()

		store := auditpostgres.NewStore(db, logger)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure audit schema", slog.Any("error", err))
			os.Exit(1)
		}
		recorders = append(recorders, store)
	}

	tracker := gateway.NewTracker(logger, cfg.Audit.SQLPreviewLen, recorders...)
	svc := gateway.NewService(manager, tracker)

	serverCfg := mcpserver.Config{
		Logger:          logger,
		Gateway:         svc,
		Schema:          manager,
		Health:          manager,
		Name:            cfg.Service.Name,
		Version:         cfg.Service.Version,
		Table:           cfg.Dataset.Table,
		ListenAddr:      cfg.Server.Address,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	if cfg.Server.Transport == config.TransportHTTP && cfg.Auth.Required {
		validator, err := auth.NewStaticTokenValidator(cfg.Auth.StaticTokens)
		if err != nil {
			logger.Error("failed to parse auth tokens", slog.Any("error", err))
			os.Exit(1)
		}
		if validator.Empty() {
			logger.Error("auth is required but no tokens are configured")
			os.Exit(1)
		}
		serverCfg.AuthMiddleware = auth.Middleware(logger, validator)
	}

	server, err := mcpserver.New(serverCfg)
	if err != nil {
		logger.Error("failed to initialize mcp server", slog.Any("error", err))
		os.Exit(1)
	}

	switch cfg.Server.Transport {
	case config.TransportHTTP:
		err = server.RunHTTP(ctx)
	default:
		err = server.RunStdio(ctx)
	}
	if err != nil {
		logger.Error("mcp server failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("mcp server stopped")
}
