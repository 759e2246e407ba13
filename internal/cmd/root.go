package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for qasuite.
// Running it without a subcommand runs the whole suite.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qasuite",
		Short: "Comprehensive test suite orchestrator",
		Long: `qasuite runs a project's quality checks in a fixed order: dependency
probes, unit tests with coverage, code quality, security scanning and
compose-backed integration tests.

Every step is recorded; a failing step never stops the next one. The run
ends with a timestamped markdown report under reports/ and a matching log
file under logs/.

Configuration is loaded from .qasuite/config.yaml if present.
CLI flags override configuration file settings.`,
		Version: Version,
		Args:    cobra.NoArgs,
		RunE:    runSuite,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		// Errors are printed by Execute with the suite's own wording
		SilenceErrors: true,
	}

	addSuiteFlags(cmd)

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewSummaryCommand())

	return cmd
}
