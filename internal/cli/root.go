// Package cli wires the drip command tree: run, count, and config
// management, with configuration and logging set up once on the root.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dripsql/drip/internal/config"
	"github.com/dripsql/drip/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the drip CLI. It loads the
// configuration file, installs it globally, and sets up logging before any
// subcommand runs.
func NewRootCmd(ver string) *cobra.Command {
	var logResult *logging.Result

	cmd := &cobra.Command{
		Use:   "drip",
		Short: "Run large SQL data mutations in bounded batches",
		Long: `drip repeatedly executes a bounded UPDATE/DELETE/INSERT-SELECT statement
against a MySQL or MariaDB database, one transaction per batch, until the
statement affects zero rows or an optional remaining-work estimate is drained.

The statement must limit the rows it touches per call (a LIMIT clause or an
equivalently bounding WHERE condition); drip wraps each call in its own
transaction and pauses between batches to keep load off the server.`,
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			if cfgPath == "" {
				cfgPath = config.DefaultPath()
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			config.SetGlobalConfig(cfg)

			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if logResult != nil {
				return logResult.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().String("config", "", "path to config file (default ~/.drip/config.yaml)")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.AddCommand(NewRunCmd(), NewCountCmd(), newConfigCmd())

	return cmd
}

const rootCmdExample = `  # Delete retired rows in batches of 1000 until none remain
  drip run -s "DELETE FROM events WHERE retired = 1 LIMIT 1000"

  # Track remaining work and pause 5s between batches
  drip run -s "UPDATE users SET plan = 'free' WHERE plan = 'trial' LIMIT 500" \
    --count-query "SELECT COUNT(*) FROM users WHERE plan = 'trial'" --delay 5s

  # Read the statement from a file and confirm every batch
  drip run -f cleanup.sql --confirm-each

  # Size the job before mutating anything
  drip count "SELECT COUNT(*) FROM events WHERE retired = 1"

  # Write a starter configuration
  drip config init`

// newConfigCmd creates the config command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigValidateCmd())
	return cmd
}
