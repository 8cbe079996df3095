package gateway

import (
	"context"
	"time"
)

// Service is the query gateway: validate, bind, execute, track. Rejected
// requests never reach the executor, and every attempt produces exactly one
// tracker record.
type Service struct {
	validator Validator
	executor  Executor
	tracker   *Tracker
}

func NewService(executor Executor, tracker *Tracker) *Service {
	return &Service{executor: executor, tracker: tracker}
}

func (s *Service) Query(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	verdict := s.validator.Validate(req.SQL)
	if !verdict.Accepted {
		err := verdict.Err()
		s.tracker.Record(ctx, req.SQL, OutcomeValidationRejected, verdict.Reason, -1, time.Since(start), err)
		return Result{}, err
	}

	stmt, err := Bind(req.SQL, req.Params, req.Args)
	if err != nil {
		s.tracker.Record(ctx, req.SQL, OutcomeBindingRejected, "", -1, time.Since(start), err)
		return Result{}, err
	}

	result, err := s.executor.Execute(ctx, stmt)
	if err != nil {
		s.tracker.Record(ctx, req.SQL, OutcomeExecutionError, "", -1, time.Since(start), err)
		return Result{}, err
	}

	s.tracker.Record(ctx, req.SQL, OutcomeSuccess, "", result.RowCount, time.Since(start), nil)
	return result, nil
}
