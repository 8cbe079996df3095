package gateway

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeExecutor struct {
	statements []Statement
	result     Result
	err        error
}

func (f *fakeExecutor) Execute(_ context.Context, stmt Statement) (Result, error) {
	f.statements = append(f.statements, stmt)
	if f.err != nil {
		return Result{}, f.err
	}
	return f.result, nil
}

func newTestService(executor *fakeExecutor, recorder *captureRecorder) *Service {
	return NewService(executor, NewTracker(nil, 0, recorder))
}

func TestServiceQuerySuccess(t *testing.T) {
	executor := &fakeExecutor{result: Result{
		Columns:  []string{"n"},
		Rows:     [][]any{{int64(42)}},
		RowCount: 1,
		Duration: 3 * time.Millisecond,
	}}
	recorder := &captureRecorder{}
	svc := newTestService(executor, recorder)

	result, err := svc.Query(context.Background(), Request{SQL: "SELECT COUNT(*) AS n FROM service_requests"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if result.RowCount != 1 {
		t.Fatalf("row count = %d", result.RowCount)
	}
	if len(executor.statements) != 1 {
		t.Fatalf("executor calls = %d", len(executor.statements))
	}
	if len(recorder.entries) != 1 || recorder.entries[0].Outcome != "success" {
		t.Fatalf("audit entries = %+v", recorder.entries)
	}
}

func TestServiceQueryRejectionNeverReachesExecutor(t *testing.T) {
	executor := &fakeExecutor{}
	recorder := &captureRecorder{}
	svc := newTestService(executor, recorder)

	_, err := svc.Query(context.Background(), Request{SQL: "DELETE FROM service_requests"})
	if err == nil {
		t.Fatalf("query succeeded, want rejection")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T", err)
	}
	if len(executor.statements) != 0 {
		t.Fatalf("rejected query reached the executor")
	}
	if len(recorder.entries) != 1 || recorder.entries[0].Outcome != "validation-rejected" {
		t.Fatalf("audit entries = %+v", recorder.entries)
	}
	if recorder.entries[0].RowCount != -1 {
		t.Fatalf("rejected entry row count = %d, want -1", recorder.entries[0].RowCount)
	}
}

func TestServiceQueryBindFailure(t *testing.T) {
	executor := &fakeExecutor{}
	recorder := &captureRecorder{}
	svc := newTestService(executor, recorder)

	_, err := svc.Query(context.Background(), Request{
		SQL:    "SELECT 1 WHERE borough = $borough",
		Params: map[string]any{"other": "x"},
	})
	var berr *BindError
	if !errors.As(err, &berr) {
		t.Fatalf("error type = %T, want *BindError", err)
	}
	if len(executor.statements) != 0 {
		t.Fatalf("unbindable query reached the executor")
	}
	if recorder.entries[0].Outcome != "binding-rejected" {
		t.Fatalf("outcome = %s", recorder.entries[0].Outcome)
	}
}

func TestServiceQueryExecutionFailure(t *testing.T) {
	executor := &fakeExecutor{err: &ExecutionError{Err: errors.New("boom")}}
	recorder := &captureRecorder{}
	svc := newTestService(executor, recorder)

	_, err := svc.Query(context.Background(), Request{SQL: "SELECT 1"})
	var xerr *ExecutionError
	if !errors.As(err, &xerr) {
		t.Fatalf("error type = %T, want *ExecutionError", err)
	}
	if recorder.entries[0].Outcome != "execution-error" {
		t.Fatalf("outcome = %s", recorder.entries[0].Outcome)
	}
}
