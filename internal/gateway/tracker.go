package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/civicdata/civicdata/internal/audit"
	"github.com/civicdata/civicdata/internal/observability"
)

type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeValidationRejected Outcome = "validation-rejected"
	OutcomeBindingRejected    Outcome = "binding-rejected"
	OutcomeExecutionError     Outcome = "execution-error"
)

const defaultSQLPreviewLen = 100

// Tracker emits exactly one log entry, one metrics observation and one
// audit record per query attempt, including attempts that never reach the
// database. It observes; it never alters the result or error.
type Tracker struct {
	log        *slog.Logger
	recorders  []audit.Recorder
	previewLen int
}

func NewTracker(logger *slog.Logger, previewLen int, recorders ...audit.Recorder) *Tracker {
	if previewLen <= 0 {
		previewLen = defaultSQLPreviewLen
	}
	return &Tracker{log: logger, recorders: recorders, previewLen: previewLen}
}

func (t *Tracker) Record(ctx context.Context, sqlText string, outcome Outcome, reason Reason, rows int, elapsed time.Duration, err error) {
	if t == nil {
		return
	}

	entry := audit.Entry{
		Time:     time.Now().UTC(),
		SQL:      truncateSQL(sqlText, t.previewLen),
		Outcome:  string(outcome),
		Reason:   string(reason),
		Duration: elapsed,
		RowCount: rows,
	}
	if err != nil {
		entry.Err = err.Error()
	}

	observability.ObserveQuery(string(outcome), rows, elapsed)
	if outcome == OutcomeValidationRejected {
		observability.IncrementQueryRejection(string(reason))
	}

	if t.log != nil {
		attrs := []any{
			slog.String("outcome", string(outcome)),
			slog.String("sql_preview", entry.SQL),
			slog.String("duration", elapsed.String()),
		}
		switch outcome {
		case OutcomeSuccess:
			attrs = append(attrs, slog.Int("row_count", rows))
			t.log.InfoContext(ctx, "query executed", attrs...)
		case OutcomeValidationRejected:
			attrs = append(attrs, slog.String("reason", string(reason)), slog.String("error", entry.Err))
			t.log.WarnContext(ctx, "query rejected", attrs...)
		case OutcomeBindingRejected:
			attrs = append(attrs, slog.String("error", entry.Err))
			t.log.WarnContext(ctx, "query binding failed", attrs...)
		default:
			attrs = append(attrs, slog.String("error", entry.Err))
			t.log.ErrorContext(ctx, "query failed", attrs...)
		}
	}

	for _, recorder := range t.recorders {
		recorder.Record(ctx, entry)
	}
}

func truncateSQL(sqlText string, limit int) string {
	runes := []rune(sqlText)
	if len(runes) <= limit {
		return sqlText
	}
	return string(runes[:limit]) + "..."
}
