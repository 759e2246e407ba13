package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/qasuite/internal/config"
	"github.com/harrison/qasuite/internal/display"
	"github.com/harrison/qasuite/internal/history"
	"github.com/harrison/qasuite/internal/logger"
	"github.com/harrison/qasuite/internal/orchestrator"
	"github.com/harrison/qasuite/internal/runner"
	"github.com/harrison/qasuite/internal/stages"
	"github.com/harrison/qasuite/internal/workspace"
)

// Exit codes
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)

// ExitError carries a specific process exit code. Its message has already
// been shown to the user.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps a command error to the process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	return ExitFailure
}

// Execute runs the root command with ctx and returns the exit code.
// ctx is canceled on SIGINT/SIGTERM by the caller.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	code := ExitCode(err)

	switch {
	case err == nil:
	case code == ExitInterrupted:
		fmt.Fprintln(stdout, "\n⏹️ Test suite interrupted by user")
	case errors.As(err, new(*ExitError)):
	default:
		fmt.Fprintf(stderr, "\n💥 Test suite failed with error: %v\n", err)
	}
	return code
}

// newRunner builds the command runner for a run; replaced in tests
var newRunner = func(root string, log logger.Logger) runner.CommandRunner {
	return runner.NewExecRunner(root, log)
}

// NewRunCommand creates the run command, an explicit form of the root command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the comprehensive test suite",
		Long: `Run every stage of the suite in order and write the report.

Examples:
  qasuite run                      # Run everything
  qasuite run --skip-integration   # Do not start compose services
  qasuite run --strict             # Exit 1 if any check failed
  qasuite run --log-level debug    # Include probe output in the log
  qasuite run --config ci.yaml     # Use a custom config file`,
		Args: cobra.NoArgs,
		RunE: runSuite,
	}

	addSuiteFlags(cmd)
	return cmd
}

func addSuiteFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: .qasuite/config.yaml)")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().Bool("strict", false, "Exit with code 1 when any check failed")
	cmd.Flags().Bool("skip-integration", false, "Record integration tests as skipped")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")
}

// loadConfig reads --config (if the command has it) or .qasuite/config.yaml under root
func loadConfig(cmd *cobra.Command, root string) (*config.Config, error) {
	var configPath string
	if f := cmd.Flags().Lookup("config"); f != nil {
		configPath = f.Value.String()
	}

	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		return cfg, nil
	}

	cfg, err := config.LoadConfigFromDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// runSuite implements the root and run commands
func runSuite(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}

	// Only flags given on the command line override the file
	var logLevel *string
	var strict, skipIntegration, historyEnabled *bool
	if cmd.Flags().Changed("log-level") {
		v, _ := cmd.Flags().GetString("log-level")
		logLevel = &v
	}
	if cmd.Flags().Changed("strict") {
		v, _ := cmd.Flags().GetBool("strict")
		strict = &v
	}
	if cmd.Flags().Changed("skip-integration") {
		v, _ := cmd.Flags().GetBool("skip-integration")
		skipIntegration = &v
	}
	if cmd.Flags().Changed("no-history") {
		v, _ := cmd.Flags().GetBool("no-history")
		enabled := !v
		historyEnabled = &enabled
	}
	cfg.MergeWithFlags(logLevel, strict, skipIntegration, historyEnabled)
	cfg.ResolveDefaults(root)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Fprintf(out, "🧪 %s Comprehensive Test Suite\n", cfg.ProjectName)
	fmt.Fprintln(out, strings.Repeat("=", 50))

	ws, err := workspace.Prepare(ctx, root, cfg, time.Now())
	if err != nil {
		return fmt.Errorf("prepare workspace: %w", err)
	}

	fileLog, err := logger.NewFileLogger(ws.LogPath, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer fileLog.Close()
	log := logger.NewMultiLogger(logger.NewConsoleLogger(out, cfg.LogLevel), fileLog)

	o := &orchestrator.Orchestrator{
		Env: stages.Env{
			Config: cfg,
			Root:   root,
			Runner: newRunner(root, log),
			Logger: log,
		},
		Workspace: ws,
	}

	if cfg.History.Enabled {
		store, err := openHistory(cfg, root)
		if err != nil {
			log.LogWarn(fmt.Sprintf("⚠️ Run history disabled: %v", err))
		} else {
			defer store.Close()
			o.History = store
		}
	}

	start := time.Now()
	summary, err := o.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n✅ Test suite completed successfully in %.2fs\n", time.Since(start).Seconds())
	fmt.Fprintf(out, "📊 Check the report: %s\n", summary.ReportPath)

	if deps := summary.State.Dependencies; deps != nil && !deps.AllInstalled() {
		display.MissingDependencies(deps.Missing).Display(out)
	}

	if cfg.Strict && summary.Failed() {
		display.FailedChecks(summary.FailedChecks).Display(out)
		return &ExitError{
			Code: ExitFailure,
			Err:  fmt.Errorf("%d check(s) failed: %s", len(summary.FailedChecks), strings.Join(summary.FailedChecks, ", ")),
		}
	}
	return nil
}

func openHistory(cfg *config.Config, root string) (*history.Store, error) {
	dbPath, err := cfg.HistoryDBPath(root)
	if err != nil {
		return nil, err
	}
	return history.NewStore(dbPath)
}
