package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/civicdata/civicdata/internal/audit"
)

type captureRecorder struct {
	entries []audit.Entry
}

func (c *captureRecorder) Record(_ context.Context, entry audit.Entry) {
	c.entries = append(c.entries, entry)
}

func TestTrackerRecordsEveryAttempt(t *testing.T) {
	recorder := &captureRecorder{}
	tracker := NewTracker(nil, 0, recorder)

	tracker.Record(context.Background(), "SELECT 1", OutcomeSuccess, "", 1, 5*time.Millisecond, nil)
	tracker.Record(context.Background(), "DROP TABLE x", OutcomeValidationRejected, ReasonNonReadOnly, -1, 0, errors.New("rejected"))

	if len(recorder.entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(recorder.entries))
	}
	if recorder.entries[0].Outcome != "success" || recorder.entries[0].RowCount != 1 {
		t.Fatalf("first entry = %+v", recorder.entries[0])
	}
	if recorder.entries[1].Outcome != "validation-rejected" || recorder.entries[1].Reason != "non-read-only" {
		t.Fatalf("second entry = %+v", recorder.entries[1])
	}
	if recorder.entries[1].Err == "" {
		t.Fatalf("rejected entry carries no error text")
	}
}

func TestTrackerTruncatesSQLPreview(t *testing.T) {
	recorder := &captureRecorder{}
	tracker := NewTracker(nil, 10, recorder)

	tracker.Record(context.Background(), "SELECT unique_key FROM service_requests", OutcomeSuccess, "", 0, 0, nil)

	got := recorder.entries[0].SQL
	if got != "SELECT uni..." {
		t.Fatalf("sql preview = %q", got)
	}
}

func TestTrackerKeepsShortSQLIntact(t *testing.T) {
	recorder := &captureRecorder{}
	tracker := NewTracker(nil, 100, recorder)

	tracker.Record(context.Background(), "SELECT 1", OutcomeSuccess, "", 1, 0, nil)

	if got := recorder.entries[0].SQL; got != "SELECT 1" || strings.HasSuffix(got, "...") {
		t.Fatalf("sql preview = %q", got)
	}
}

func TestTruncateSQLIsRuneSafe(t *testing.T) {
	preview := truncateSQL("SELECT 'héllo wörld from the city'", 12)
	if !strings.HasSuffix(preview, "...") {
		t.Fatalf("preview = %q, want truncation marker", preview)
	}
	for _, r := range preview {
		if r == '�' {
			t.Fatalf("preview contains a broken rune: %q", preview)
		}
	}
}
