package gateway

import (
	"context"
	"fmt"
	"time"
)

// Request carries one SQL query from the protocol adapter. Params holds
// values for $name placeholders, Args holds values for positional ?
// placeholders; a request may use one style, not both.
type Request struct {
	SQL    string
	Params map[string]any
	Args   []any
}

// Statement is an execution-ready query: validated SQL text plus driver
// bind arguments. Values never get interpolated into the text.
type Statement struct {
	SQL  string
	Args []any
}

type Column struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Nullable    bool   `json:"nullable"`
	Description string `json:"description,omitempty"`
}

type Result struct {
	Columns     []string
	ColumnTypes []string
	Rows        [][]any
	RowCount    int
	Truncated   bool
	Duration    time.Duration
}

// Executor runs an already-validated, already-bound statement.
type Executor interface {
	Execute(ctx context.Context, stmt Statement) (Result, error)
}

// SchemaProvider reports the dataset's column layout from live database
// metadata.
type SchemaProvider interface {
	Schema(ctx context.Context) ([]Column, error)
}

type Reason string

const (
	ReasonMultiStatement    Reason = "multi-statement"
	ReasonNonReadOnly       Reason = "non-read-only"
	ReasonDenylisted        Reason = "denylisted-operation"
	ReasonUnboundedWildcard Reason = "unbounded-wildcard"
)

// Verdict is the validator's decision. A rejecting verdict carries the
// reason code and the offending token for diagnostics; an accepting one
// carries neither.
type Verdict struct {
	Accepted bool
	Reason   Reason
	Token    string
	Message  string
}

func (v Verdict) Err() error {
	if v.Accepted {
		return nil
	}
	return &ValidationError{Reason: v.Reason, Token: v.Token, Message: v.Message}
}

type ValidationError struct {
	Reason  Reason
	Token   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("query rejected (%s): %s: %q", e.Reason, e.Message, e.Token)
	}
	return fmt.Sprintf("query rejected (%s): %s", e.Reason, e.Message)
}

type BindError struct {
	Name    string
	Message string
}

func (e *BindError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("parameter binding failed for %q: %s", e.Name, e.Message)
	}
	return fmt.Sprintf("parameter binding failed: %s", e.Message)
}

type ExecutionError struct {
	Timeout bool
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("query timed out: %v", e.Err)
	}
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
