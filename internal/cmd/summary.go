package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/qasuite/internal/report"
)

// NewSummaryCommand creates the 'qasuite summary' command
func NewSummaryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary [report]",
		Short: "Show the overall status of a generated report",
		Long: `Read a comprehensive test report back and print its overall status.
Without an argument the newest report in the reports directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSummary,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .qasuite/config.yaml)")

	return cmd
}

func runSummary(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()

	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		root, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		cfg, err := loadConfig(cmd, root)
		if err != nil {
			return err
		}
		dir := cfg.ReportsDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		if path, err = report.LatestReport(dir); err != nil {
			return err
		}
	}

	summary, err := report.ReadSummary(path)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(output, "📄 %s\n", summary.Path)
	if summary.Timestamp != "" {
		fmt.Fprintf(output, "Timestamp: %s\n", summary.Timestamp)
	}
	if summary.SuccessRate != "" {
		fmt.Fprintf(output, "Success Rate: %s\n", summary.SuccessRate)
	}
	fmt.Fprintf(output, "Status: %s\n", summary.Status)
	return nil
}
