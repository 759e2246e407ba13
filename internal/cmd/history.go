package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/qasuite/internal/history"
	"github.com/harrison/qasuite/internal/models"
)

// NewHistoryCommand creates the 'qasuite history' command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		Long: `Display recent qasuite runs recorded in the history database:
  - Run timestamp and duration
  - Success rate across unit and integration tests
  - Overall status line
  - Code quality and security tools that failed

With --run, show every recorded invocation of one run instead.

Examples:
  qasuite history                  # Last 10 runs of this project
  qasuite history -n 25 --all      # Last 25 runs of every project
  qasuite history --run <run-id>   # Invocations of a single run`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .qasuite/config.yaml)")
	cmd.Flags().IntP("limit", "n", 10, "Number of runs to show")
	cmd.Flags().Bool("all", false, "Show runs of every project in the database")
	cmd.Flags().String("run", "", "Show the invocations recorded for this run ID")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}
	cfg.ResolveDefaults(root)

	dbPath, err := cfg.HistoryDBPath(root)
	if err != nil {
		return fmt.Errorf("failed to get history database path: %w", err)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintln(output, "No runs recorded yet")
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	if runID, _ := cmd.Flags().GetString("run"); runID != "" {
		invocations, err := store.Invocations(cmd.Context(), runID)
		if err != nil {
			return fmt.Errorf("get invocations: %w", err)
		}
		if len(invocations) == 0 {
			return fmt.Errorf("no invocations recorded for run %s", runID)
		}
		printInvocations(output, runID, invocations)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	all, _ := cmd.Flags().GetBool("all")
	project := cfg.ProjectName
	if all {
		project = ""
	}

	runs, err := store.RecentRuns(cmd.Context(), project, limit)
	if err != nil {
		return fmt.Errorf("get recent runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(output, "No runs recorded yet")
		return nil
	}

	total, err := store.RunCount(cmd.Context(), project)
	if err != nil {
		return fmt.Errorf("count runs: %w", err)
	}

	printRuns(output, runs, all)
	if total > len(runs) {
		color.New(color.FgHiBlack).Fprintf(output, "\n%d of %d runs shown; use --limit to see more\n", len(runs), total)
	}
	return nil
}

// printRuns formats runs newest first, colored by outcome
func printRuns(w io.Writer, runs []*history.RunRecord, showProject bool) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintf(w, "\n=== Recent Runs (%d) ===\n\n", len(runs))

	for _, r := range runs {
		if showProject {
			fmt.Fprintf(w, "%s  ", r.Project)
		}
		fmt.Fprintf(w, "%s  ", r.Timestamp)

		rate := "no tests"
		if r.Total > 0 {
			rate = fmt.Sprintf("%.1f%% (%d/%d)", r.SuccessRate, r.Passed, r.Total)
		}
		switch {
		case r.Total == 0:
			gray.Fprintf(w, "%-16s", rate)
		case r.Passed == r.Total:
			green.Fprintf(w, "%-16s", rate)
		case r.SuccessRate >= 80:
			yellow.Fprintf(w, "%-16s", rate)
		default:
			red.Fprintf(w, "%-16s", rate)
		}

		fmt.Fprintf(w, "  %s", r.Duration.Round(time.Second))
		gray.Fprintf(w, "  %s\n", r.RunID)

		if len(r.FailedTools) > 0 {
			red.Fprintf(w, "    failed tools: %s\n", strings.Join(r.FailedTools, ", "))
		}
	}
}

// printInvocations lists one run's invocations in execution order
func printInvocations(w io.Writer, runID string, invocations []*history.InvocationRecord) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintf(w, "\n=== Run %s (%d invocations) ===\n\n", runID, len(invocations))

	for _, inv := range invocations {
		name := inv.Category
		if inv.Tool != "" {
			name += "/" + inv.Tool
		}
		fmt.Fprintf(w, "%-32s ", name)

		switch inv.Outcome {
		case models.OutcomeSuccess:
			green.Fprintf(w, "%-13s", inv.Outcome)
		case models.OutcomeCanceled:
			yellow.Fprintf(w, "%-13s", inv.Outcome)
		default:
			red.Fprintf(w, "%-13s", inv.Outcome)
		}

		exit := "-"
		if inv.ExitCode != nil {
			exit = fmt.Sprintf("%d", *inv.ExitCode)
		}
		fmt.Fprintf(w, " exit=%-4s %s\n", exit, inv.Duration.Round(time.Millisecond))

		if inv.Command != "" {
			gray.Fprintf(w, "    $ %s\n", inv.Command)
		}
	}
}
