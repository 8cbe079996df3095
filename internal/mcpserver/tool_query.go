package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/civicdata/civicdata/internal/gateway"
)

type QueryInput struct {
	SQL        string         `json:"sql"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Args       []any          `json:"args,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type QueryOutput struct {
	Columns    []string   `json:"columns"`
	Rows       [][]any    `json:"rows"`
	RowCount   int        `json:"row_count"`
	Truncated  bool       `json:"truncated,omitempty"`
	DurationMS int64      `json:"duration_ms"`
	Error      *ErrorInfo `json:"error,omitempty"`
}

const (
	errCodeBinding   = "binding-error"
	errCodeExecution = "execution-error"
	errCodeInternal  = "internal-error"
)

func queryToolDescription(table string) string {
	return strings.TrimSpace(fmt.Sprintf(`
Run a read-only SQL query against the %q table (NYC 311 service requests).

Rules:
- Single SELECT or WITH statement only. Writes, DDL, and session commands are rejected.
- A bare 'SELECT *' must carry a LIMIT clause.
- Bind values with $name placeholders and the "parameters" object, or with
  positional ? placeholders and the "args" array. Never inline values.

Consult the get_table_schema tool or the schema://%s resource for column
names before writing SQL.`, table, table))
}

func RegisterQueryTool(log *slog.Logger, server *mcp.Server, runner QueryRunner, table string) error {
	in, err := jsonschema.For[QueryInput](nil)
	if err != nil {
		return fmt.Errorf("build query input schema: %w", err)
	}
	out, err := jsonschema.For[QueryOutput](nil)
	if err != nil {
		return fmt.Errorf("build query output schema: %w", err)
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:         "query_data",
		Description:  queryToolDescription(table),
		InputSchema:  in,
		OutputSchema: out,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, req QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
		log.Debug("mcp/tool: query_data", "sql", req.SQL)

		result, err := runner.Query(ctx, gateway.Request{
			SQL:    req.SQL,
			Params: req.Parameters,
			Args:   req.Args,
		})
		if err != nil {
			info := classifyQueryError(err)
			output := QueryOutput{
				Columns: []string{},
				Rows:    [][]any{},
				Error:   info,
			}
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: info.Message}},
			}, output, nil
		}

		rows := result.Rows
		if rows == nil {
			rows = [][]any{}
		}
		return nil, QueryOutput{
			Columns:    result.Columns,
			Rows:       rows,
			RowCount:   result.RowCount,
			Truncated:  result.Truncated,
			DurationMS: result.Duration.Milliseconds(),
		}, nil
	})
	return nil
}

// classifyQueryError maps gateway errors to stable codes the calling agent
// can branch on. Unknown errors get a generic code with no internals leaked.
func classifyQueryError(err error) *ErrorInfo {
	var verr *gateway.ValidationError
	if errors.As(err, &verr) {
		return &ErrorInfo{Code: string(verr.Reason), Message: verr.Error()}
	}
	var berr *gateway.BindError
	if errors.As(err, &berr) {
		return &ErrorInfo{Code: errCodeBinding, Message: berr.Error()}
	}
	// Timeouts share the execution-error code; the message carries the
	// distinction.
	var xerr *gateway.ExecutionError
	if errors.As(err, &xerr) {
		return &ErrorInfo{Code: errCodeExecution, Message: xerr.Error()}
	}
	return &ErrorInfo{Code: errCodeInternal, Message: "query failed"}
}
