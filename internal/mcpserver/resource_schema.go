package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/civicdata/civicdata/internal/gateway"
)

type schemaDocument struct {
	Table       string           `json:"table"`
	Description string           `json:"description"`
	Columns     []gateway.Column `json:"columns"`
}

// RegisterSchemaResource exposes the table layout as a readable resource so
// clients can pin it into context without a tool round trip. The document is
// rebuilt from live database metadata on every read.
func RegisterSchemaResource(log *slog.Logger, server *mcp.Server, provider gateway.SchemaProvider, table string) {
	uri := fmt.Sprintf("schema://%s", table)

	server.AddResource(&mcp.Resource{
		URI:         uri,
		Name:        fmt.Sprintf("%s schema", table),
		Description: fmt.Sprintf("Column layout of the %q table as a JSON document.", table),
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		columns, err := provider.Schema(ctx)
		if err != nil {
			log.Error("mcp/resource: schema lookup failed", "uri", uri, "error", err)
			return nil, fmt.Errorf("read table schema: %w", err)
		}

		doc := schemaDocument{
			Table:       table,
			Description: "NYC 311 service request records. Query through the query_data tool.",
			Columns:     columns,
		}
		payload, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode schema document: %w", err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      uri,
					MIMEType: "application/json",
					Text:     string(payload),
				},
			},
		}, nil
	})
}
