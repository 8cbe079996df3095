package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/civicdata/civicdata/internal/audit"
)

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

func Open(ctx context.Context, cfg DBConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("audit dsn is required")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping audit db: %w", err)
	}

	return db, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS query_audit (
	id          BIGSERIAL PRIMARY KEY,
	recorded_at TIMESTAMPTZ NOT NULL,
	sql_preview TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL,
	row_count   INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
)`

const insertSQL = `
INSERT INTO query_audit (recorded_at, sql_preview, outcome, reason, duration_ms, row_count, error)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Store appends execution log entries to a Postgres audit table so that
// rejections stay queryable after log rotation. Recording failures are
// logged and dropped; the store is an observer, never a gate.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, log: logger}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create audit table: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, entry audit.Entry) {
	_, err := s.db.ExecContext(ctx, insertSQL,
		entry.Time,
		entry.SQL,
		entry.Outcome,
		entry.Reason,
		entry.Duration.Milliseconds(),
		entry.RowCount,
		entry.Err,
	)
	if err != nil && s.log != nil {
		s.log.ErrorContext(ctx, "failed to record audit entry",
			slog.String("outcome", entry.Outcome),
			slog.Any("error", err),
		)
	}
}

var _ audit.Recorder = (*Store)(nil)
