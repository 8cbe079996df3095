package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/civicdata/civicdata/internal/config"
	"github.com/civicdata/civicdata/internal/dataset"
	"github.com/civicdata/civicdata/internal/observability"
	s3store "github.com/civicdata/civicdata/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("civicdata-load")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Dataset.ObjectKey != "" {
		store, err := s3store.New(s3store.Config{
			Endpoint:        cfg.ObjectStore.Endpoint,
			Region:          cfg.ObjectStore.Region,
			Bucket:          cfg.ObjectStore.Bucket,
			AccessKeyID:     cfg.ObjectStore.AccessKeyID,
			SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
			UseSSL:          cfg.ObjectStore.UseSSL,
			Prefix:          cfg.ObjectStore.Prefix,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("fetching dataset from object storage",
			slog.String("key", cfg.Dataset.ObjectKey),
			slog.String("dest", cfg.Dataset.ParquetPath),
		)
		if err := dataset.Fetch(ctx, store, cfg.Dataset.ObjectKey, cfg.Dataset.ParquetPath); err != nil {
			logger.Error("failed to fetch dataset", slog.Any("error", err))
			os.Exit(1)
		}
	}

	db, err := dataset.OpenWritable(ctx, cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	loader := &dataset.Loader{DB: db, Logger: logger}
	if err := loader.Load(ctx, cfg.Dataset.Table, cfg.Dataset.ParquetPath); err != nil {
		logger.Error("failed to load dataset", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("dataset load complete",
		slog.String("db", cfg.Database.Path),
		slog.String("table", cfg.Dataset.Table),
	)
}
