package cli

import (
	"github.com/spf13/cobra"

	"github.com/dripsql/drip/internal/config"
	"github.com/dripsql/drip/internal/logging"
)

// setupLogging configures logging from the config file and the --debug flag,
// mints a run ID, and attaches the logger to the command context so every
// subcommand and the batch runner share it.
func setupLogging(cmd *cobra.Command) logging.Result {
	loggingCfg := config.GetGlobalConfig().Logging

	logCfg := logging.Config{
		Level:  loggingCfg.Level,
		Format: loggingCfg.Format,
		Output: logging.OutputStderr,
	}
	if loggingCfg.File != "" {
		logCfg.Output = logging.OutputFile
		logCfg.File = loggingCfg.File
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logCfg.Level = "debug"
		logCfg.Format = logging.FormatConsole
		logCfg.Output = logging.OutputStderr
		logCfg.File = ""
	}

	result := logging.New(logCfg)
	logger = logging.ComponentLogger(result.Logger, "cli")

	runID := logging.GetOrGenerateRunID(cmd.Context())
	ctx := logging.ContextWithRunID(cmd.Context(), runID)

	log := logger.With().Str("run_id", runID).Logger()
	ctx = log.WithContext(ctx)
	cmd.SetContext(ctx)

	log.Debug().Str("command", cmd.Name()).Msg("command started")

	return result
}
