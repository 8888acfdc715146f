package batch

import (
	"errors"
	"fmt"
)

// Configuration errors, detected before any batch runs.
var (
	ErrNilDB          = errors.New("database handle cannot be nil")
	ErrEmptyStatement = errors.New("mutation statement cannot be empty")
	ErrNegativeDelay  = errors.New("inter-batch delay cannot be negative")
	ErrBadEstimate    = errors.New("estimate query must return a single non-negative integer")
)

// ExecutionError reports a failed begin, exec, or commit on one batch. The
// transaction is rolled back (or abandoned to the server's
// rollback-on-disconnect); no further batches are attempted.
type ExecutionError struct {
	Batch int
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("batch %d: executing statement: %v", e.Batch, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ResultError reports that the affected-row count could not be obtained from
// an otherwise successful execution. Treated with the same severity as
// ExecutionError: without a reliable termination signal, continuing risks an
// infinite loop or a silent no-op.
type ResultError struct {
	Batch int
	Err   error
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("batch %d: reading affected row count: %v", e.Batch, e.Err)
}

func (e *ResultError) Unwrap() error { return e.Err }
