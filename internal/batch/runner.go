package batch

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultDelay is the conventional inter-batch pause. Callers that want it
// set Config.Delay explicitly; a zero Delay means no pause at all.
const DefaultDelay = 2 * time.Second

// UntrackedRemaining is the Remaining value reported when no estimate query
// was configured.
const UntrackedRemaining int64 = -1

// Outcome describes how a run ended.
type Outcome int

const (
	// OutcomeUnknown means the run has not terminated cleanly.
	OutcomeUnknown Outcome = iota

	// OutcomeDrained means the statement reported zero affected rows.
	OutcomeDrained

	// OutcomeEstimateReached means the advisory remaining estimate hit
	// zero, possibly while the last batch still affected rows.
	OutcomeEstimateReached

	// OutcomeStopped means the operator declined a per-batch confirmation.
	OutcomeStopped
)

// String returns a short operator-facing label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeDrained:
		return "drained"
	case OutcomeEstimateReached:
		return "estimate reached"
	case OutcomeStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ConfirmFunc is asked before each batch when Config.ConfirmEach is set.
// Returning false stops the run cleanly.
type ConfirmFunc func(batch int) bool

// ProgressFunc receives one report per committed batch.
type ProgressFunc func(p Progress)

// Config is the immutable per-run configuration of a Runner.
type Config struct {
	// Statement is the data-mutating SQL to run each batch. It must bound
	// the rows it touches per call and must not open transactions itself;
	// the runner owns transaction demarcation.
	Statement string

	// EstimateQuery, when set, is run once at startup to seed the advisory
	// remaining-work countdown.
	EstimateQuery string

	// Delay is the pause between batches. Zero means DefaultDelay.
	Delay time.Duration

	// ConfirmEach asks the confirm callback before every batch.
	ConfirmEach bool
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Statement) == "" {
		return ErrEmptyStatement
	}
	if c.Delay < 0 {
		return ErrNegativeDelay
	}
	return nil
}

// Progress is a per-batch report delivered to the progress callback after
// the batch's transaction has committed.
type Progress struct {
	// Batch is the 1-based batch number.
	Batch int

	// Affected is the row count reported by this batch.
	Affected int64

	// TotalAffected is the cumulative row count across all batches so far.
	TotalAffected int64

	// Remaining is the advisory countdown after this batch, clamped at
	// zero, or UntrackedRemaining when no estimate query was configured.
	Remaining int64

	// Elapsed is the wall time since the run started.
	Elapsed time.Duration
}

// Summary describes a terminated run.
type Summary struct {
	Batches       int
	TotalAffected int64
	Remaining     int64
	Outcome       Outcome
	Elapsed       time.Duration
}

// Runner executes one batch-mutation run against one database.
type Runner struct {
	conn       *sql.DB
	cfg        Config
	confirm    ConfirmFunc
	onProgress ProgressFunc
	log        zerolog.Logger
}

// NewRunner validates cfg and builds a Runner. The returned runner proceeds
// without confirmation and reports no progress until the respective
// callbacks are attached.
func NewRunner(conn *sql.DB, cfg Config) (*Runner, error) {
	if conn == nil {
		return nil, ErrNilDB
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Runner{
		conn: conn,
		cfg:  cfg,
		log:  zerolog.Nop(),
	}, nil
}

// WithConfirm sets the per-batch confirmation callback.
func (r *Runner) WithConfirm(confirm ConfirmFunc) *Runner {
	r.confirm = confirm
	return r
}

// WithProgress sets the per-batch progress callback.
func (r *Runner) WithProgress(onProgress ProgressFunc) *Runner {
	r.onProgress = onProgress
	return r
}

// WithLogger sets the runner's structured logger.
func (r *Runner) WithLogger(log zerolog.Logger) *Runner {
	r.log = log
	return r
}

// Run drives the loop to a terminal state. It returns the summary of the
// work performed; on error the summary covers the batches that committed
// before the failure. Errors are never retried.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	tracking := strings.TrimSpace(r.cfg.EstimateQuery) != ""

	summary := &Summary{Remaining: UntrackedRemaining}
	if tracking {
		remaining, err := r.fetchEstimate(ctx)
		if err != nil {
			summary.Elapsed = time.Since(start)
			return summary, err
		}
		summary.Remaining = remaining
		r.log.Info().Int64("remaining", remaining).Msg("estimated rows pending")
	}

	for batch := 1; ; batch++ {
		if r.cfg.ConfirmEach && r.confirm != nil && !r.confirm(batch) {
			summary.Outcome = OutcomeStopped
			r.log.Info().Int("batch", batch).Msg("run stopped by operator")
			break
		}

		affected, err := r.runBatch(ctx, batch)
		if err != nil {
			summary.Elapsed = time.Since(start)
			return summary, err
		}

		summary.Batches = batch
		summary.TotalAffected += affected
		if tracking {
			summary.Remaining -= affected
			if summary.Remaining < 0 {
				summary.Remaining = 0
			}
		}

		r.log.Debug().
			Int("batch", batch).
			Int64("affected", affected).
			Int64("remaining", summary.Remaining).
			Msg("batch committed")

		if r.onProgress != nil {
			r.onProgress(Progress{
				Batch:         batch,
				Affected:      affected,
				TotalAffected: summary.TotalAffected,
				Remaining:     summary.Remaining,
				Elapsed:       time.Since(start),
			})
		}

		if affected == 0 {
			summary.Outcome = OutcomeDrained
			break
		}
		if tracking && summary.Remaining == 0 {
			// The estimate can drain before affected rows do, e.g. when
			// something else deletes matching rows concurrently.
			summary.Outcome = OutcomeEstimateReached
			break
		}

		if err := r.wait(ctx); err != nil {
			summary.Elapsed = time.Since(start)
			return summary, err
		}
	}

	summary.Elapsed = time.Since(start)
	return summary, nil
}

// fetchEstimate seeds the advisory countdown from the estimate query.
func (r *Runner) fetchEstimate(ctx context.Context) (int64, error) {
	var n int64
	if err := r.conn.QueryRowContext(ctx, r.cfg.EstimateQuery).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadEstimate, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: got %d", ErrBadEstimate, n)
	}
	return n, nil
}

// runBatch executes one batch inside its own transaction and returns the
// affected-row count.
func (r *Runner) runBatch(ctx context.Context, batch int) (int64, error) {
	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, &ExecutionError{Batch: batch, Err: err}
	}

	res, err := tx.ExecContext(ctx, r.cfg.Statement)
	if err != nil {
		_ = tx.Rollback()
		return 0, &ExecutionError{Batch: batch, Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		// The batch is discarded rather than committed blind: without an
		// affected-row count there is no termination signal.
		_ = tx.Rollback()
		return 0, &ResultError{Batch: batch, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return 0, &ExecutionError{Batch: batch, Err: err}
	}
	return affected, nil
}

// wait pauses between batches, honoring context cancellation.
func (r *Runner) wait(ctx context.Context) error {
	if r.cfg.Delay == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(r.cfg.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
