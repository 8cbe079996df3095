package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/civicdata/civicdata/internal/gateway"
)

func createTestDatabase(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "service_requests.duckdb")
	db, err := sql.Open("duckdb", path)
	if err != nil {
		t.Fatalf("open writable duckdb: %v", err)
	}
	defer func() { _ = db.Close() }()

	statements := []string{
		`CREATE TABLE service_requests (
			unique_key BIGINT,
			complaint_type VARCHAR,
			borough VARCHAR,
			status VARCHAR
		)`,
		`INSERT INTO service_requests VALUES
			(1, 'Noise - Residential', 'BROOKLYN', 'Open'),
			(2, 'Illegal Parking', 'QUEENS', 'Closed'),
			(3, 'Noise - Residential', 'MANHATTAN', 'Open'),
			(4, 'Heat/Hot Water', 'BRONX', 'Open'),
			(5, 'Illegal Parking', 'BROOKLYN', 'Closed')`,
		`COMMENT ON COLUMN service_requests.borough IS 'Borough of the incident location'`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(context.Background(), stmt); err != nil {
			t.Fatalf("seed database: %v", err)
		}
	}
	return path
}

func openTestManager(t *testing.T, maxRows int) *Manager {
	t.Helper()

	manager, err := Open(context.Background(), Config{
		Path:         createTestDatabase(t),
		Table:        "service_requests",
		QueryTimeout: 10 * time.Second,
		MaxRows:      maxRows,
	})
	if err != nil {
		t.Fatalf("open manager: %v", err)
	}
	t.Cleanup(func() { _ = manager.Close() })
	return manager
}

func TestExecuteReturnsRows(t *testing.T) {
	manager := openTestManager(t, 100)

	result, err := manager.Execute(context.Background(), gateway.Statement{
		SQL: "SELECT complaint_type, COUNT(*) AS n FROM service_requests GROUP BY complaint_type ORDER BY n DESC, complaint_type",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.RowCount != 3 || len(result.Rows) != 3 {
		t.Fatalf("row count = %d, rows = %d", result.RowCount, len(result.Rows))
	}
	if result.Columns[0] != "complaint_type" || result.Columns[1] != "n" {
		t.Fatalf("columns = %v", result.Columns)
	}
	if result.Truncated {
		t.Fatalf("result truncated below the cap")
	}
	if result.Duration <= 0 {
		t.Fatalf("duration = %v", result.Duration)
	}
}

func TestExecuteBindsPositionalArgs(t *testing.T) {
	manager := openTestManager(t, 100)

	result, err := manager.Execute(context.Background(), gateway.Statement{
		SQL:  "SELECT unique_key FROM service_requests WHERE borough = ? AND status = ? ORDER BY unique_key",
		Args: []any{"BROOKLYN", "Open"},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.RowCount != 1 {
		t.Fatalf("row count = %d, want 1", result.RowCount)
	}
	if result.Rows[0][0] != int64(1) {
		t.Fatalf("unique_key = %#v", result.Rows[0][0])
	}
}

func TestExecuteCapsRowCount(t *testing.T) {
	manager := openTestManager(t, 2)

	result, err := manager.Execute(context.Background(), gateway.Statement{
		SQL: "SELECT unique_key FROM service_requests ORDER BY unique_key",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.RowCount != 2 || len(result.Rows) != 2 {
		t.Fatalf("row count = %d, rows = %d, want 2", result.RowCount, len(result.Rows))
	}
	if !result.Truncated {
		t.Fatalf("result not flagged as truncated")
	}
}

func TestExecuteRejectsWritesAtTheEngine(t *testing.T) {
	manager := openTestManager(t, 100)

	_, err := manager.Execute(context.Background(), gateway.Statement{
		SQL: "INSERT INTO service_requests VALUES (99, 'x', 'y', 'z')",
	})
	if err == nil {
		t.Fatalf("write succeeded on read-only connection")
	}
	var xerr *gateway.ExecutionError
	if !errors.As(err, &xerr) {
		t.Fatalf("error type = %T, want *gateway.ExecutionError", err)
	}
	if xerr.Timeout {
		t.Fatalf("write rejection misclassified as timeout")
	}
}

func TestExecuteStripsTrailingSemicolons(t *testing.T) {
	manager := openTestManager(t, 100)

	result, err := manager.Execute(context.Background(), gateway.Statement{
		SQL: "SELECT COUNT(*) FROM service_requests;",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Rows[0][0] != int64(5) {
		t.Fatalf("count = %#v", result.Rows[0][0])
	}
}

func TestSchemaReportsColumnsInOrder(t *testing.T) {
	manager := openTestManager(t, 100)

	columns, err := manager.Schema(context.Background())
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if len(columns) != 4 {
		t.Fatalf("columns = %d, want 4", len(columns))
	}
	if columns[0].Name != "unique_key" || columns[1].Name != "complaint_type" {
		t.Fatalf("column order = %v, %v", columns[0].Name, columns[1].Name)
	}
	if !strings.Contains(columns[0].Type, "BIGINT") {
		t.Fatalf("unique_key type = %q", columns[0].Type)
	}

	var borough gateway.Column
	for _, column := range columns {
		if column.Name == "borough" {
			borough = column
		}
	}
	if borough.Description != "Borough of the incident location" {
		t.Fatalf("borough description = %q", borough.Description)
	}
}

func TestOpenRequiresPathAndTable(t *testing.T) {
	if _, err := Open(context.Background(), Config{Table: "service_requests"}); err == nil {
		t.Fatalf("open succeeded without a path")
	}
	if _, err := Open(context.Background(), Config{Path: "x.duckdb"}); err == nil {
		t.Fatalf("open succeeded without a table")
	}
}

func TestHealthCheck(t *testing.T) {
	manager := openTestManager(t, 100)
	if err := manager.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check: %v", err)
	}
}
