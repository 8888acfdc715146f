// Command drip runs large SQL data mutations in bounded, transaction-wrapped
// batches against a MySQL or MariaDB database.
package main

import (
	"fmt"
	"os"

	"github.com/dripsql/drip/internal/cli"
	"github.com/dripsql/drip/pkg/version"
)

func main() {
	os.Exit(run())
}

// run executes the root command and maps the result to a process exit code:
// 0 when the loop drained, the estimate was reached, or the operator
// declined; 1 on any configuration, connection, execution, or result error.
func run() int {
	root := cli.NewRootCmd(version.GetVersion())
	root.SilenceErrors = true
	root.SilenceUsage = true

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
