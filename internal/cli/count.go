package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dripsql/drip/internal/config"
	"github.com/dripsql/drip/internal/db"
	"github.com/dripsql/drip/internal/logging"
)

// NewCountCmd creates the "count" subcommand. It runs a single scalar count
// query so the operator can size a job before mutating anything.
func NewCountCmd() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:     "count <query>",
		Short:   "Run a count query once and print the result",
		Example: `  drip count "SELECT COUNT(*) FROM events WHERE retired = 1"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeCount(cmd, dsn, args[0])
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "database DSN (overrides config file and DRIP_DSN)")

	return cmd
}

func executeCount(cmd *cobra.Command, dsn, query string) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	cfg := config.GetGlobalConfig()
	if dsn == "" {
		dsn = cfg.Database.DSN
	}
	if dsn == "" {
		return errors.New("no database DSN configured (use --dsn, DRIP_DSN, or the config file)")
	}

	conn, err := db.Open(ctx, db.Config{
		DSN:             dsn,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime(),
	})
	if err != nil {
		log.Error().Err(err).Msg("connection failed")
		return err
	}
	defer conn.Close()

	n, err := db.ScalarCount(ctx, conn, query)
	if err != nil {
		return err
	}

	printer := message.NewPrinter(language.English)
	printer.Fprintf(cmd.OutOrStdout(), "%d rows\n", n)
	return nil
}
