package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/civicdata/civicdata/internal/gateway"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
)

// QueryRunner is the gateway surface the tools call into.
type QueryRunner interface {
	Query(ctx context.Context, req gateway.Request) (gateway.Result, error)
}

// HealthChecker reports whether the database handle is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Config struct {
	Logger *slog.Logger

	Gateway QueryRunner
	Schema  gateway.SchemaProvider
	Health  HealthChecker

	Name    string
	Version string
	Table   string

	ListenAddr        string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	AuthMiddleware func(next http.Handler) http.Handler
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.Gateway == nil {
		return fmt.Errorf("gateway is required")
	}
	if c.Schema == nil {
		return fmt.Errorf("schema provider is required")
	}
	if c.Health == nil {
		return fmt.Errorf("health checker is required")
	}
	if c.Name == "" {
		return fmt.Errorf("server name is required")
	}
	if c.Table == "" {
		return fmt.Errorf("dataset table is required")
	}
	if c.Version == "" {
		c.Version = "dev"
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	return nil
}
