package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dripsql/drip/internal/config"
)

// NewConfigValidateCmd creates the config validate command.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Long: `Validates the effective configuration (config file plus environment
overrides) for syntax and semantic correctness: DSN shape, pool limits,
duration values, and logging level.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed configuration information")

	return cmd
}

// runConfigValidate executes the configuration validation logic.
func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg := config.GetGlobalConfig()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cmd.Printf("Configuration is valid\n")

	if verbose {
		printVerboseDetails(cmd, cfg)
	}
	return nil
}

// printVerboseDetails prints detailed configuration information. The DSN is
// shown redacted: credentials never reach the terminal.
func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	target := "(not set)"
	if cfg.Database.DSN != "" {
		if described, err := describeTarget(cfg.Database.DSN); err == nil {
			target = described
		}
	}

	cmd.Println()
	cmd.Println("Configuration details:")
	cmd.Printf("  Target database: %s\n", target)
	cmd.Printf("  Max open conns: %d\n", cfg.Database.MaxOpenConns)
	cmd.Printf("  Max idle conns: %d\n", cfg.Database.MaxIdleConns)
	cmd.Printf("  Batch delay: %s\n", cfg.Run.Delay())
	cmd.Printf("  Confirm each batch: %t\n", cfg.Run.ConfirmEach)
	cmd.Printf("  Logging level: %s\n", cfg.Logging.Level)
	if cfg.Logging.File != "" {
		cmd.Printf("  Log file: %s\n", cfg.Logging.File)
	}
}
