package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/civicdata/civicdata/internal/gateway"
)

type Config struct {
	Path         string
	Table        string
	QueryTimeout time.Duration
	MaxRows      int
	Logger       *slog.Logger
}

// Manager is the sole owner of the DuckDB handle. The database file is
// opened read-only, so writes fail at the engine even if validation were
// bypassed. All executions are serialized through one mutex because a
// single DuckDB connection must not be shared across concurrent callers.
type Manager struct {
	cfg Config

	mu sync.Mutex
	db *sql.DB
}

func Open(ctx context.Context, cfg Config) (*Manager, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("dataset table is required")
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 30 * time.Second
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 10000
	}

	manager := &Manager{cfg: cfg}
	db, err := openReadOnly(ctx, cfg.Path)
	if err != nil {
		return nil, err
	}
	manager.db = db
	return manager, nil
}

func openReadOnly(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path+"?access_mode=read_only")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return db, nil
}

// Execute runs one already-validated, already-bound statement and returns
// its result. The per-call timeout aborts long queries; the mutex is
// released on every exit path.
func (m *Manager) Execute(ctx context.Context, stmt gateway.Statement) (gateway.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	queryCtx, cancel := context.WithTimeout(ctx, m.cfg.QueryTimeout)
	defer cancel()

	sqlText := stripTrailingSemicolons(stmt.SQL)
	if sqlText == "" {
		return gateway.Result{}, &gateway.ExecutionError{Err: errors.New("sql is required")}
	}

	rows, err := m.db.QueryContext(queryCtx, sqlText, stmt.Args...)
	if err != nil {
		return gateway.Result{}, m.executionError(queryCtx, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return gateway.Result{}, m.executionError(queryCtx, err)
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return gateway.Result{}, m.executionError(queryCtx, err)
	}
	typeNames := make([]string, len(columnTypes))
	for i, columnType := range columnTypes {
		typeNames[i] = columnType.DatabaseTypeName()
	}

	resultRows := make([][]any, 0)
	truncated := false
	for rows.Next() {
		if len(resultRows) >= m.cfg.MaxRows {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return gateway.Result{}, m.executionError(queryCtx, err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return gateway.Result{}, m.executionError(queryCtx, err)
	}

	return gateway.Result{
		Columns:     columns,
		ColumnTypes: typeNames,
		Rows:        resultRows,
		RowCount:    len(resultRows),
		Truncated:   truncated,
		Duration:    time.Since(start),
	}, nil
}

// Schema reports the dataset's column layout from information_schema,
// enriched with column comments from duckdb_columns() when present.
func (m *Manager) Schema(ctx context.Context) ([]gateway.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	queryCtx, cancel := context.WithTimeout(ctx, m.cfg.QueryTimeout)
	defer cancel()

	comments := m.columnComments(queryCtx)

	rows, err := m.db.QueryContext(queryCtx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = ?
		ORDER BY ordinal_position`, m.cfg.Table)
	if err != nil {
		return nil, fmt.Errorf("query schema for table %q: %w", m.cfg.Table, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]gateway.Column, 0)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("scan schema row: %w", err)
		}
		columns = append(columns, gateway.Column{
			Name:        name,
			Type:        dataType,
			Nullable:    strings.EqualFold(nullable, "YES"),
			Description: comments[name],
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema rows: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q not found", m.cfg.Table)
	}
	return columns, nil
}

// columnComments is best effort; older database files may predate COMMENT ON.
func (m *Manager) columnComments(ctx context.Context) map[string]string {
	comments := map[string]string{}
	rows, err := m.db.QueryContext(ctx, `
		SELECT column_name, comment
		FROM duckdb_columns()
		WHERE table_name = ? AND comment IS NOT NULL`, m.cfg.Table)
	if err != nil {
		return comments
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var name, comment string
		if err := rows.Scan(&name, &comment); err != nil {
			return comments
		}
		comments[name] = comment
	}
	return comments
}

func (m *Manager) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.PingContext(ctx)
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Close()
}

// executionError classifies a failed execution. A failed query leaves the
// connection reusable; only when the handle itself no longer responds does
// the manager reopen the database. Caller must hold the mutex.
func (m *Manager) executionError(ctx context.Context, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	if !timeout {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if pingErr := m.db.PingContext(pingCtx); pingErr != nil {
			m.reopen()
		}
	}
	return &gateway.ExecutionError{Timeout: timeout, Err: err}
}

func (m *Manager) reopen() {
	if m.cfg.Logger != nil {
		m.cfg.Logger.Warn("duckdb handle unresponsive, reopening", slog.String("path", m.cfg.Path))
	}
	_ = m.db.Close()
	db, err := openReadOnly(context.Background(), m.cfg.Path)
	if err != nil {
		if m.cfg.Logger != nil {
			m.cfg.Logger.Error("failed to reopen duckdb", slog.Any("error", err))
		}
		return
	}
	m.db = db
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
