package batch

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testStatement = "DELETE FROM events WHERE retired = 1 LIMIT 1000"
	testEstimate  = "SELECT COUNT(*) FROM events WHERE retired = 1"
)

// newMock returns a sqlmock-backed database with exact query matching.
func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, mock
}

// expectBatch queues one begin/exec/commit cycle reporting the given
// affected-row count.
func expectBatch(mock sqlmock.Sqlmock, affected int64) {
	mock.ExpectBegin()
	mock.ExpectExec(testStatement).WillReturnResult(sqlmock.NewResult(0, affected))
	mock.ExpectCommit()
}

func TestNewRunnerValidation(t *testing.T) {
	conn, _ := newMock(t)

	tests := []struct {
		name    string
		conn    *sql.DB
		cfg     Config
		wantErr error
	}{
		{"nil_db", nil, Config{Statement: testStatement}, ErrNilDB},
		{"empty_statement", conn, Config{Statement: "  "}, ErrEmptyStatement},
		{"negative_delay", conn, Config{Statement: testStatement, Delay: -1}, ErrNegativeDelay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(tt.conn, tt.cfg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// Five batches of 1000 rows then an empty one: the loop must run exactly six
// iterations and finish with the drained outcome.
func TestRunDrainsAfterEmptyBatch(t *testing.T) {
	conn, mock := newMock(t)
	for i := 0; i < 5; i++ {
		expectBatch(mock, 1000)
	}
	expectBatch(mock, 0)

	runner, err := NewRunner(conn, Config{Statement: testStatement})
	require.NoError(t, err)

	var batches []int64
	runner.WithProgress(func(p Progress) { batches = append(batches, p.Affected) })

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Batches)
	assert.Equal(t, int64(5000), summary.TotalAffected)
	assert.Equal(t, OutcomeDrained, summary.Outcome)
	assert.Equal(t, UntrackedRemaining, summary.Remaining)
	assert.Equal(t, []int64{1000, 1000, 1000, 1000, 1000, 0}, batches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A strictly decreasing affected sequence of k nonzero batches terminates in
// exactly k+1 iterations.
func TestRunIterationCount(t *testing.T) {
	conn, mock := newMock(t)
	for _, n := range []int64{400, 300, 200, 100, 0} {
		expectBatch(mock, n)
	}

	runner, err := NewRunner(conn, Config{Statement: testStatement})
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Batches)
	assert.Equal(t, int64(1000), summary.TotalAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Estimate 4500 with 1000-row batches: the countdown clamps at zero on the
// fifth batch and the loop terminates successfully without a sixth exec.
func TestRunEstimateClampAndEarlyExit(t *testing.T) {
	conn, mock := newMock(t)
	mock.ExpectQuery(testEstimate).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4500))
	for i := 0; i < 5; i++ {
		expectBatch(mock, 1000)
	}

	runner, err := NewRunner(conn, Config{
		Statement:     testStatement,
		EstimateQuery: testEstimate,
	})
	require.NoError(t, err)

	var remainings []int64
	runner.WithProgress(func(p Progress) { remainings = append(remainings, p.Remaining) })

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Batches)
	assert.Equal(t, int64(5000), summary.TotalAffected)
	assert.Equal(t, int64(0), summary.Remaining)
	assert.Equal(t, OutcomeEstimateReached, summary.Outcome)
	assert.Equal(t, []int64{3500, 2500, 1500, 500, 0}, remainings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunEstimateNeverNegative(t *testing.T) {
	conn, mock := newMock(t)
	mock.ExpectQuery(testEstimate).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(100))
	expectBatch(mock, 1000)

	runner, err := NewRunner(conn, Config{
		Statement:     testStatement,
		EstimateQuery: testEstimate,
	})
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.Remaining)
	assert.Equal(t, OutcomeEstimateReached, summary.Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A non-numeric estimate result prevents any batch from running.
func TestRunBadEstimateBlocksLoop(t *testing.T) {
	conn, mock := newMock(t)
	mock.ExpectQuery(testEstimate).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow("plenty"))

	runner, err := NewRunner(conn, Config{
		Statement:     testStatement,
		EstimateQuery: testEstimate,
	})
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.ErrorIs(t, err, ErrBadEstimate)
	assert.Equal(t, 0, summary.Batches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunNegativeEstimateBlocksLoop(t *testing.T) {
	conn, mock := newMock(t)
	mock.ExpectQuery(testEstimate).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(-7))

	runner, err := NewRunner(conn, Config{
		Statement:     testStatement,
		EstimateQuery: testEstimate,
	})
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.ErrorIs(t, err, ErrBadEstimate)
	assert.Equal(t, 0, summary.Batches)
}

// A database error on the third batch halts the loop with no fourth attempt.
func TestRunExecErrorHalts(t *testing.T) {
	conn, mock := newMock(t)
	expectBatch(mock, 1000)
	expectBatch(mock, 1000)
	mock.ExpectBegin()
	mock.ExpectExec(testStatement).WillReturnError(errors.New("lock wait timeout exceeded"))
	mock.ExpectRollback()

	runner, err := NewRunner(conn, Config{Statement: testStatement})
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 3, execErr.Batch)
	assert.Contains(t, err.Error(), "lock wait timeout exceeded")

	// The summary covers only the committed batches.
	assert.Equal(t, 2, summary.Batches)
	assert.Equal(t, int64(2000), summary.TotalAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunBeginErrorHalts(t *testing.T) {
	conn, mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("server has gone away"))

	runner, err := NewRunner(conn, Config{Statement: testStatement})
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 1, execErr.Batch)
}

func TestRunCommitErrorHalts(t *testing.T) {
	conn, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(testStatement).WillReturnResult(sqlmock.NewResult(0, 1000))
	mock.ExpectCommit().WillReturnError(errors.New("deadlock found when trying to get lock"))

	runner, err := NewRunner(conn, Config{Statement: testStatement})
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 0, summary.Batches)
}

// An unavailable affected-row count halts the loop: the batch is rolled back
// and no further iteration runs.
func TestRunMissingAffectedCountHalts(t *testing.T) {
	conn, mock := newMock(t)
	expectBatch(mock, 1000)
	mock.ExpectBegin()
	mock.ExpectExec(testStatement).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("no RowsAffected available")))
	mock.ExpectRollback()

	runner, err := NewRunner(conn, Config{Statement: testStatement})
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.Error(t, err)

	var resErr *ResultError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, 2, resErr.Batch)
	assert.Equal(t, 1, summary.Batches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Declining the per-batch confirmation stops the run cleanly: no error, no
// further batches, Stopped outcome.
func TestRunConfirmEachStop(t *testing.T) {
	conn, mock := newMock(t)
	expectBatch(mock, 1000)
	expectBatch(mock, 1000)

	runner, err := NewRunner(conn, Config{Statement: testStatement, ConfirmEach: true})
	require.NoError(t, err)
	runner.WithConfirm(func(batch int) bool { return batch <= 2 })

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Batches)
	assert.Equal(t, OutcomeStopped, summary.Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunContextCancelledBetweenBatches(t *testing.T) {
	conn, mock := newMock(t)
	expectBatch(mock, 1000)

	runner, err := NewRunner(conn, Config{Statement: testStatement})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runner.WithProgress(func(Progress) { cancel() })

	summary, err := runner.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.Batches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "drained", OutcomeDrained.String())
	assert.Equal(t, "estimate reached", OutcomeEstimateReached.String())
	assert.Equal(t, "stopped", OutcomeStopped.String())
	assert.Equal(t, "unknown", OutcomeUnknown.String())
}
