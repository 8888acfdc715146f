package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dripsql/drip/internal/batch"
	"github.com/dripsql/drip/internal/config"
	"github.com/dripsql/drip/internal/db"
	"github.com/dripsql/drip/internal/logging"
)

// RunParams holds the parameters for the run command execution.
// Exported for testing.
type RunParams struct {
	Statement     string
	StatementFile string
	CountQuery    string
	Delay         time.Duration
	ConfirmEach   bool
	Yes           bool
	DryRun        bool
	DSN           string
}

// NewRunCmd creates the "run" subcommand: the batch-mutation loop.
//
// Exactly one of --statement and --statement-file must be given. The
// statement is the caller's contract: it must bound the rows it touches per
// call, and it must not manage transactions itself — drip wraps every batch
// in its own BEGIN/COMMIT.
func NewRunCmd() *cobra.Command {
	var params RunParams

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a bounded mutation statement until no rows remain",
		Long: `Executes the given statement repeatedly, one transaction per batch, until
it reports zero affected rows. With --count-query, an advisory remaining-work
countdown is tracked and the run also ends when it reaches zero.

Failures are never retried: any database error or missing affected-row count
halts the loop so the operator can inspect before re-running.`,
		Example: `  drip run -s "DELETE FROM events WHERE retired = 1 LIMIT 1000"

  drip run -f cleanup.sql \
    --count-query "SELECT COUNT(*) FROM events WHERE retired = 1" \
    --delay 5s --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeRun(cmd, params)
		},
	}

	cmd.Flags().StringVarP(&params.Statement, "statement", "s", "", "mutation statement to run each batch")
	cmd.Flags().StringVarP(&params.StatementFile, "statement-file", "f", "",
		"file containing the mutation statement (\"-\" for stdin)")
	cmd.Flags().StringVar(&params.CountQuery, "count-query", "",
		"query returning the number of rows still pending, tracked as an advisory countdown")
	cmd.Flags().DurationVar(&params.Delay, "delay", batch.DefaultDelay, "pause between batches")
	cmd.Flags().BoolVar(&params.ConfirmEach, "confirm-each", false, "ask before every batch instead of once up front")
	cmd.Flags().BoolVarP(&params.Yes, "yes", "y", false, "skip the initial confirmation")
	cmd.Flags().BoolVar(&params.DryRun, "dry-run", false,
		"print the target and statement, run only the count query, mutate nothing")
	cmd.Flags().StringVar(&params.DSN, "dsn", "", "database DSN (overrides config file and DRIP_DSN)")

	return cmd
}

// executeRun drives one batch-mutation run end to end.
func executeRun(cmd *cobra.Command, params RunParams) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)
	out := cmd.OutOrStdout()

	statement, err := resolveStatement(params, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg := config.GetGlobalConfig()
	dsn := params.DSN
	if dsn == "" {
		dsn = cfg.Database.DSN
	}
	if dsn == "" {
		return errors.New("no database DSN configured (use --dsn, DRIP_DSN, or the config file)")
	}

	target, err := describeTarget(dsn)
	if err != nil {
		return fmt.Errorf("invalid DSN: %w", err)
	}

	delay := params.Delay
	if !cmd.Flags().Changed("delay") {
		delay = cfg.Run.Delay()
	}
	confirmEach := params.ConfirmEach
	if !cmd.Flags().Changed("confirm-each") {
		confirmEach = cfg.Run.ConfirmEach
	}

	if confirmEach && !isTerminal(os.Stdin) {
		return errors.New("--confirm-each requires an interactive terminal")
	}
	if !params.Yes && !confirmEach && !isTerminal(os.Stdin) {
		return errors.New("stdin is not a terminal; pass --yes to run without confirmation")
	}

	conn, err := db.Open(ctx, db.Config{
		DSN:             dsn,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime(),
	})
	if err != nil {
		log.Error().Err(err).Str("target", target).Msg("connection failed")
		return err
	}
	defer conn.Close()

	printer := message.NewPrinter(language.English)

	if params.DryRun {
		return runDryRun(ctx, cmd, conn, printer, target, statement, params.CountQuery)
	}

	if !params.Yes && !confirmEach {
		fmt.Fprintf(out, "Target:    %s\nStatement: %s\n", target, statement)
		if params.CountQuery != "" {
			fmt.Fprintf(out, "Estimate:  %s\n", params.CountQuery)
		}
		res := Confirm(out, cmd.InOrStdin(), "? Run this statement in batches until no rows remain? [y/N] ")
		if !res.Accepted {
			cmd.Println("Aborted. No batches were run.")
			return nil
		}
	}

	runner, err := batch.NewRunner(conn, batch.Config{
		Statement:     statement,
		EstimateQuery: params.CountQuery,
		Delay:         delay,
		ConfirmEach:   confirmEach,
	})
	if err != nil {
		return err
	}

	runner.
		WithLogger(logging.ComponentLogger(*log, "batch")).
		WithProgress(progressPrinter(out, printer))
	if confirmEach {
		runner.WithConfirm(confirmEachFunc(out, cmd.InOrStdin()))
	}

	log.Info().Str("target", target).Dur("delay", delay).Msg("starting batch run")

	summary, err := runner.Run(ctx)
	if err != nil {
		if summary != nil && summary.Batches > 0 {
			printer.Fprintf(out, "Halted after %d batches, %d rows affected.\n",
				summary.Batches, summary.TotalAffected)
		}
		return err
	}

	printSummary(out, printer, summary)
	return nil
}

// runDryRun reports what a run would do without mutating anything. Only the
// count query, when given, is executed.
func runDryRun(
	ctx context.Context,
	cmd *cobra.Command,
	conn *sql.DB,
	printer *message.Printer,
	target, statement, countQuery string,
) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Dry run. No batches will be executed.\n")
	fmt.Fprintf(out, "Target:    %s\nStatement: %s\n", target, statement)
	if countQuery == "" {
		return nil
	}

	pending, err := db.ScalarCount(ctx, conn, countQuery)
	if err != nil {
		return err
	}
	printer.Fprintf(out, "Pending:   %d rows\n", pending)
	return nil
}

// resolveStatement loads the mutation statement from the flag, a file, or
// stdin. Exactly one source must be given.
func resolveStatement(params RunParams, stdin io.Reader) (string, error) {
	switch {
	case params.Statement != "" && params.StatementFile != "":
		return "", errors.New("--statement and --statement-file are mutually exclusive")
	case params.Statement == "" && params.StatementFile == "":
		return "", errors.New("one of --statement or --statement-file is required")
	}

	statement := params.Statement
	if params.StatementFile != "" {
		var data []byte
		var err error
		if params.StatementFile == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(params.StatementFile)
		}
		if err != nil {
			return "", fmt.Errorf("reading statement: %w", err)
		}
		statement = string(data)
	}

	statement = strings.TrimRight(strings.TrimSpace(statement), ";")
	if statement == "" {
		return "", errors.New("statement is empty")
	}
	return statement, nil
}

// describeTarget renders a DSN for operator display without the password.
func describeTarget(dsn string) (string, error) {
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	if parsed.User != "" {
		return fmt.Sprintf("%s@%s(%s)/%s", parsed.User, parsed.Net, parsed.Addr, parsed.DBName), nil
	}
	return fmt.Sprintf("%s(%s)/%s", parsed.Net, parsed.Addr, parsed.DBName), nil
}

// progressPrinter writes one human-readable line per committed batch.
func progressPrinter(out io.Writer, printer *message.Printer) batch.ProgressFunc {
	return func(p batch.Progress) {
		if p.Affected == 0 {
			fmt.Fprintf(out, "batch %d: no more rows\n", p.Batch)
			return
		}
		if p.Remaining >= 0 {
			printer.Fprintf(out, "batch %d: %d rows affected, about %d remaining\n",
				p.Batch, p.Affected, p.Remaining)
			return
		}
		printer.Fprintf(out, "batch %d: %d rows affected\n", p.Batch, p.Affected)
	}
}

// confirmEachFunc prompts before every batch, sharing one scanner so queued
// answers are not lost between prompts.
func confirmEachFunc(out io.Writer, in io.Reader) batch.ConfirmFunc {
	scanner := bufio.NewScanner(in)
	return func(batchNo int) bool {
		fmt.Fprintf(out, "? Run batch %d? [y/N] ", batchNo)
		if !scanner.Scan() {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}

// printSummary reports the terminal state of a completed run.
func printSummary(out io.Writer, printer *message.Printer, summary *batch.Summary) {
	switch summary.Outcome {
	case batch.OutcomeDrained:
		printer.Fprintf(out, "Done: no rows remain after %d batches (%d rows affected, %s elapsed).\n",
			summary.Batches, summary.TotalAffected, summary.Elapsed.Round(time.Millisecond))
	case batch.OutcomeEstimateReached:
		printer.Fprintf(out, "Done: estimate drained after %d batches (%d rows affected, %s elapsed).\n",
			summary.Batches, summary.TotalAffected, summary.Elapsed.Round(time.Millisecond))
	case batch.OutcomeStopped:
		printer.Fprintf(out, "Stopped by operator after %d batches (%d rows affected).\n",
			summary.Batches, summary.TotalAffected)
	}
}
