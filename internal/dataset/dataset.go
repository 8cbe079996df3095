package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/civicdata/civicdata/internal/storage"
)

const tableComment = "NYC 311 Service Requests data for 2024 containing complaint information, locations, agencies, and resolution details"

// columnComments documents the columns the upstream dataset is known to
// carry. Columns absent from a given snapshot are skipped at load time.
var columnComments = map[string]string{
	"unique_key":                     "Unique identifier for each service request",
	"created_date":                   "Date/time the request was created",
	"closed_date":                    "Date/time the request was closed",
	"agency":                         "The agency responsible for the request",
	"agency_name":                    "Full name of the responsible agency",
	"complaint_type":                 "Type of complaint/request",
	"descriptor":                     "Detailed description of the issue",
	"location_type":                  "Type of location where issue occurred",
	"incident_zip":                   "ZIP code of the incident",
	"incident_address":               "Street address of the incident",
	"street_name":                    "Name of the street",
	"cross_street_1":                 "First cross street",
	"cross_street_2":                 "Second cross street",
	"intersection_street_1":          "First intersection street",
	"intersection_street_2":          "Second intersection street",
	"address_type":                   "Type of address",
	"city":                           "City name",
	"landmark":                       "Nearby landmark",
	"facility_type":                  "Type of facility",
	"status":                         "Current status of the request",
	"due_date":                       "Due date for resolution",
	"resolution_description":         "Description of resolution",
	"resolution_action_updated_date": "Date resolution was updated",
	"community_board":                "Community board identifier",
	"bbl":                            "Borough, Block, and Lot number",
	"borough":                        "NYC borough name",
	"x_coordinate_state_plane":       "X coordinate (State Plane)",
	"y_coordinate_state_plane":       "Y coordinate (State Plane)",
	"open_data_channel_type":         "Channel used to submit request",
	"park_facility_name":             "Name of park facility",
	"park_borough":                   "Borough of the park",
	"vehicle_type":                   "Type of vehicle involved",
	"taxi_company_borough":           "Borough of taxi company",
	"taxi_pick_up_location":          "Taxi pickup location",
	"bridge_highway_name":            "Name of bridge or highway",
	"bridge_highway_direction":       "Direction on bridge/highway",
	"road_ramp":                      "Road ramp information",
	"bridge_highway_segment":         "Bridge/highway segment",
	"latitude":                       "Latitude coordinate",
	"longitude":                      "Longitude coordinate",
	"location":                       "Combined location information",
}

// Loader builds the DuckDB database file the gateway later serves
// read-only. It is the only component that opens the database writable and
// it runs before the server, never alongside it.
type Loader struct {
	DB     *sql.DB
	Logger *slog.Logger
}

// OpenWritable opens (or creates) the database file for loading.
func OpenWritable(ctx context.Context, path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return db, nil
}

// Load materializes the dataset table from a parquet file and attaches
// table and column comments so that the schema resource can surface
// descriptions from database metadata instead of hand-maintained docs.
func (l *Loader) Load(ctx context.Context, table, parquetPath string) error {
	if strings.TrimSpace(table) == "" {
		return fmt.Errorf("table name is required")
	}
	if _, err := os.Stat(parquetPath); err != nil {
		return fmt.Errorf("stat parquet file %q: %w", parquetPath, err)
	}

	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s AS SELECT * FROM read_parquet(%s)`,
		quoteIdent(table), quoteString(parquetPath))
	if _, err := l.DB.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create table %q from parquet: %w", table, err)
	}

	commentSQL := fmt.Sprintf(`COMMENT ON TABLE %s IS %s`, quoteIdent(table), quoteString(tableComment))
	if _, err := l.DB.ExecContext(ctx, commentSQL); err != nil {
		return fmt.Errorf("comment on table %q: %w", table, err)
	}

	applied := 0
	for column, comment := range columnComments {
		columnSQL := fmt.Sprintf(`COMMENT ON COLUMN %s.%s IS %s`,
			quoteIdent(table), quoteIdent(column), quoteString(comment))
		if _, err := l.DB.ExecContext(ctx, columnSQL); err != nil {
			// Column not present in this snapshot.
			continue
		}
		applied++
	}
	if l.Logger != nil {
		l.Logger.InfoContext(ctx, "dataset loaded",
			slog.String("table", table),
			slog.String("parquet", parquetPath),
			slog.Int("column_comments", applied),
		)
	}
	return nil
}

// Fetch downloads the parquet dataset from object storage to a local path.
func Fetch(ctx context.Context, store storage.ObjectStore, key, destPath string) error {
	if store == nil {
		return fmt.Errorf("object store is required")
	}
	info, err := store.Stat(ctx, key)
	if err != nil {
		return fmt.Errorf("stat dataset object %q: %w", key, err)
	}

	reader, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get dataset object %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}
	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create dataset file %q: %w", destPath, err)
	}
	defer func() { _ = file.Close() }()

	written, err := io.Copy(file, reader)
	if err != nil {
		return fmt.Errorf("write dataset file %q: %w", destPath, err)
	}
	if info.Size > 0 && written != info.Size {
		return fmt.Errorf("short dataset download: wrote %d of %d bytes", written, info.Size)
	}
	return nil
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
