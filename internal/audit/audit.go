package audit

import (
	"context"
	"time"
)

// Entry is one record of a query attempt, including attempts rejected
// before reaching the database. SQL is truncated by the tracker before it
// gets here.
type Entry struct {
	Time     time.Time
	SQL      string
	Outcome  string
	Reason   string
	Duration time.Duration
	RowCount int
	Err      string
}

// Recorder persists audit entries. Implementations must not fail the query
// on recording errors; the tracker treats recorders as fire-and-forget.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}
