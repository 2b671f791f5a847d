package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"smsdash/internal/display"
	"smsdash/internal/launcher"
)

// checkCmd runs the same checks as the root command but stops before
// changing anything. The exit status is non-zero when any check fails.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the preflight checks without starting the dashboard",
	Long: `check reports whether the dashboard could start: the config is valid,
the interpreter is on PATH, the dependency imports, app.py exists and the logs
directory is usable. It never installs packages or creates directories.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := launcher.New(appConfig, os.Stdout).Check(cmd.Context())
		fmt.Print(display.Checks(results))
		return err
	},
}
