package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	Server        ServerConfig
	Database      DatabaseConfig
	Dataset       DatasetConfig
	ObjectStore   ObjectStoreConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name    string
	Version string
}

type ServerConfig struct {
	Transport       Transport
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Path         string
	QueryTimeout time.Duration
	MaxRows      int
}

type DatasetConfig struct {
	Table       string
	ParquetPath string
	ObjectKey   string
}

type ObjectStoreConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Prefix          string
}

type AuditConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	SQLPreviewLen   int
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required     bool
	StaticTokens string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("CIVICDATA_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid CIVICDATA_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "CIVICDATA_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CIVICDATA_SERVICE_VERSION", &cfg.Service.Version); err != nil {
		return Config{}, err
	}
	if err := applyTransport(lookup, "CIVICDATA_SERVER_TRANSPORT", &cfg.Server.Transport); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CIVICDATA_SERVER_ADDR", &cfg.Server.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CIVICDATA_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CIVICDATA_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CIVICDATA_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CIVICDATA_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CIVICDATA_DB_PATH", &cfg.Database.Path); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CIVICDATA_DB_QUERY_TIMEOUT", &cfg.Database.QueryTimeout); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "CIVICDATA_DB_MAX_ROWS", &cfg.Database.MaxRows); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CIVICDATA_DATASET_TABLE", &cfg.Dataset.Table); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CIVICDATA_DATASET_PARQUET_PATH", &cfg.Dataset.ParquetPath); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CIVICDATA_DATASET_OBJECT_KEY", &cfg.Dataset.ObjectKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CIVICDATA_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CIVICDATA_OBJECTSTORE_REGION", &cfg.ObjectStore.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CIVICDATA_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CIVICDATA_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CIVICDATA_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "CIVICDATA_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CIVICDATA_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CIVICDATA_AUDIT_DSN", &cfg.Audit.DSN); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "CIVICDATA_AUDIT_MAX_OPEN_CONNS", &cfg.Audit.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "CIVICDATA_AUDIT_MAX_IDLE_CONNS", &cfg.Audit.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CIVICDATA_AUDIT_CONN_MAX_IDLE_TIME", &cfg.Audit.ConnMaxIdleTime); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CIVICDATA_AUDIT_CONN_MAX_LIFETIME", &cfg.Audit.ConnMaxLifetime); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "CIVICDATA_AUDIT_SQL_PREVIEW_LEN", &cfg.Audit.SQLPreviewLen); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "CIVICDATA_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "CIVICDATA_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "CIVICDATA_AUTH_REQUIRED", &cfg.Auth.Required); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CIVICDATA_AUTH_STATIC_TOKENS", &cfg.Auth.StaticTokens); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.Database.Path == "" {
		return Config{}, fmt.Errorf("database path is required")
	}
	if cfg.Dataset.Table == "" {
		return Config{}, fmt.Errorf("dataset table is required")
	}
	if cfg.Server.Transport == TransportHTTP && cfg.Server.Address == "" {
		return Config{}, fmt.Errorf("server address is required for http transport")
	}
	if cfg.Database.QueryTimeout <= 0 {
		return Config{}, fmt.Errorf("query timeout must be positive")
	}
	if cfg.Database.MaxRows <= 0 {
		return Config{}, fmt.Errorf("max rows must be positive")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "civicdata-mcp", Version: "dev"},
		Server: ServerConfig{
			Transport:       TransportStdio,
			Address:         ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:         "data/service_requests.duckdb",
			QueryTimeout: 30 * time.Second,
			MaxRows:      10000,
		},
		Dataset: DatasetConfig{
			Table:       "service_requests",
			ParquetPath: "data/cityofnewyork/service_requests_2024.parquet",
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:        "localhost:9000",
			Region:          "us-east-1",
			Bucket:          "civicdata",
			AccessKeyID:     "minio",
			SecretAccessKey: "miniostorage",
			UseSSL:          false,
			Prefix:          "",
		},
		Audit: AuditConfig{
			MaxOpenConns:    5,
			MaxIdleConns:    5,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
			SQLPreviewLen:   100,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:     false,
			StaticTokens: "",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.Server.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Auth.Required = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.ObjectStore.UseSSL = true
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyTransport(lookup LookupFunc, key string, dst *Transport) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	transport := Transport(strings.ToLower(strings.TrimSpace(raw)))
	switch transport {
	case TransportStdio, TransportHTTP:
		*dst = transport
		return nil
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
