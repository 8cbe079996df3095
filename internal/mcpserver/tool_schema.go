package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/civicdata/civicdata/internal/gateway"
)

type SchemaInput struct{}

type SchemaOutput struct {
	Table   string           `json:"table"`
	Columns []gateway.Column `json:"columns"`
}

func RegisterSchemaTool(log *slog.Logger, server *mcp.Server, provider gateway.SchemaProvider, table string) error {
	in, err := jsonschema.For[SchemaInput](nil)
	if err != nil {
		return fmt.Errorf("build schema input schema: %w", err)
	}
	out, err := jsonschema.For[SchemaOutput](nil)
	if err != nil {
		return fmt.Errorf("build schema output schema: %w", err)
	}

	mcp.AddTool(server, &mcp.Tool{
		Name: "get_table_schema",
		Description: fmt.Sprintf(
			"List the columns of the %q table with types, nullability, and per-column descriptions. Call this before writing SQL.",
			table,
		),
		InputSchema:  in,
		OutputSchema: out,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ SchemaInput) (*mcp.CallToolResult, SchemaOutput, error) {
		columns, err := provider.Schema(ctx)
		if err != nil {
			log.Error("mcp/tool: schema lookup failed", "error", err)
			return nil, SchemaOutput{}, fmt.Errorf("read table schema: %w", err)
		}
		return nil, SchemaOutput{Table: table, Columns: columns}, nil
	})
	return nil
}
