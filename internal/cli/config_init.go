package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dripsql/drip/internal/config"
)

// starterConfig is the commented template written by "config init".
const starterConfig = `# drip configuration.
database:
  # go-sql-driver DSN, e.g. "user:pass@tcp(db1:3306)/app".
  # May also be supplied via the DRIP_DSN environment variable.
  dsn: ""
  max_open_conns: 2
  max_idle_conns: 1
  conn_max_lifetime: 30m

run:
  # Pause between batches.
  delay: 2s
  # Ask before every batch instead of only once up front.
  confirm_each: false

logging:
  level: info
  format: console
  # Uncomment to log to a file instead of stderr.
  # file: /var/log/drip.log
`

// NewConfigInitCmd creates the config init command, which writes a starter
// configuration file.
func NewConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Writes a commented starter configuration to ~/.drip/config.yaml (or the
path given by --config / DRIP_CONFIG). Refuses to overwrite an existing file
unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				path = config.DefaultPath()
			}
			return runConfigInit(cmd, path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}

func runConfigInit(cmd *cobra.Command, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	cmd.Printf("Wrote %s\n", path)
	return nil
}
