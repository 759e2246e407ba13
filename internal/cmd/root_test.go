package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/qasuite/internal/history"
	"github.com/harrison/qasuite/internal/logger"
	"github.com/harrison/qasuite/internal/models"
	"github.com/harrison/qasuite/internal/runner"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	if cmd == nil {
		t.Fatal("Root command should not be nil")
	}

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help returned error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "qasuite") {
		t.Errorf("Help text should contain 'qasuite', got: %s", output)
	}
	for _, flag := range []string{"--strict", "--skip-integration", "--no-history", "--log-level", "--config"} {
		if !strings.Contains(output, flag) {
			t.Errorf("Help text should list %s, got: %s", flag, output)
		}
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	if cmd.Use != "qasuite" {
		t.Errorf("Expected Use to be 'qasuite', got '%s'", cmd.Use)
	}

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"run", "history", "summary"} {
		if !names[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}
}

func TestVersionFlag(t *testing.T) {
	cmd := NewRootCommand()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "version")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain error", errors.New("boom"), ExitFailure},
		{"interrupt", fmt.Errorf("test suite interrupted: %w", context.Canceled), ExitInterrupted},
		{"strict failure", &ExitError{Code: ExitFailure, Err: errors.New("2 check(s) failed")}, ExitFailure},
		{"wrapped exit error", fmt.Errorf("outer: %w", &ExitError{Code: 7, Err: errors.New("x")}), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

// stubRunner succeeds for everything except commands starting with a failing prefix.
type stubRunner struct {
	failPrefix string
	commands   []string
}

func (s *stubRunner) Run(ctx context.Context, req runner.Request) models.InvocationResult {
	line := strings.Join(req.Command, " ")
	s.commands = append(s.commands, line)

	code := 0
	outcome := models.OutcomeSuccess
	if s.failPrefix != "" && strings.HasPrefix(line, s.failPrefix) {
		code = 1
		outcome = models.OutcomeNonzeroExit
	}
	return models.InvocationResult{
		Command:     req.Command,
		Description: req.Description,
		Outcome:     outcome,
		ExitCode:    &code,
		Stdout:      "1.0.0",
	}
}

// setupProject chdirs into a fresh project with a tests/ directory and a
// private QASUITE_HOME, and swaps in a stub runner.
func setupProject(t *testing.T, stub *stubRunner) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "tests"), 0755))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("QASUITE_HOME", filepath.Join(dir, ".qasuite"))
	t.Setenv("NO_COLOR", "1")
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	orig := newRunner
	newRunner = func(string, logger.Logger) runner.CommandRunner { return stub }
	t.Cleanup(func() { newRunner = orig })

	return dir
}

func execute(t *testing.T, ctx context.Context, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(ctx, args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestExecute_RunsSuiteAndWritesReport(t *testing.T) {
	stub := &stubRunner{}
	dir := setupProject(t, stub)

	code, out, errOut := execute(t, context.Background())
	require.Equal(t, ExitOK, code, "stderr: %s", errOut)

	assert.Contains(t, out, fmt.Sprintf("🧪 %s Comprehensive Test Suite\n", filepath.Base(dir)))
	assert.Contains(t, out, strings.Repeat("=", 50))
	assert.Contains(t, out, "✅ Test suite completed successfully in")
	assert.Contains(t, out, "📊 Check the report: ")

	reports, err := filepath.Glob(filepath.Join(dir, "reports", "comprehensive-test-report-*.md"))
	require.NoError(t, err)
	require.Len(t, reports, 1)
	data, err := os.ReadFile(reports[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "- **Success Rate**: 100.0% (1/1)")

	logs, err := filepath.Glob(filepath.Join(dir, "logs", "test-suite-*.log"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.FileExists(t, filepath.Join(dir, ".qasuite", "history.db"))

	for _, c := range stub.commands {
		assert.False(t, strings.HasPrefix(c, "docker-compose"), "unexpected compose command %q", c)
	}
}

func TestExecute_FailuresStillExitZeroWithoutStrict(t *testing.T) {
	setupProject(t, &stubRunner{failPrefix: "flake8"})

	code, out, _ := execute(t, context.Background(), "run", "--no-history")
	assert.Equal(t, ExitOK, code)
	assert.NotContains(t, out, "Strict Mode")
}

func TestExecute_StrictModeFailsOnFailedCheck(t *testing.T) {
	dir := setupProject(t, &stubRunner{failPrefix: "flake8"})

	code, out, errOut := execute(t, context.Background(), "--strict", "--no-history")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "⚠️  Warning: Strict Mode\n    2 check(s) failed\n")
	assert.Contains(t, out, "      1. code_quality/flake8_errors\n      2. code_quality/flake8_style\n")
	assert.Contains(t, out, "⚠️  Warning: Missing Dependencies")
	assert.Empty(t, errOut)
	assert.NoFileExists(t, filepath.Join(dir, ".qasuite", "history.db"))
}

func TestExecute_StrictFromConfigFile(t *testing.T) {
	dir := setupProject(t, &stubRunner{failPrefix: "bandit"})
	cfgPath := filepath.Join(dir, "ci.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("strict: true\nhistory:\n  enabled: false\n"), 0644))

	code, _, _ := execute(t, context.Background(), "run", "--config", cfgPath)
	assert.Equal(t, ExitFailure, code)

	code, _, _ = execute(t, context.Background(), "run", "--config", cfgPath, "--strict=false")
	assert.Equal(t, ExitOK, code)
}

func TestExecute_SkipIntegration(t *testing.T) {
	stub := &stubRunner{}
	dir := setupProject(t, stub)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docker-compose.yml"), []byte("services:\n  db:\n    image: postgres\n"), 0644))

	code, _, _ := execute(t, context.Background(), "--skip-integration", "--no-history")
	require.Equal(t, ExitOK, code)

	for _, c := range stub.commands {
		assert.False(t, strings.HasPrefix(c, "docker-compose"), "unexpected compose command %q", c)
	}
}

func TestExecute_InterruptedExits130(t *testing.T) {
	setupProject(t, &stubRunner{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, out, _ := execute(t, ctx, "--no-history")
	assert.Equal(t, ExitInterrupted, code)
	assert.Contains(t, out, "⏹️ Test suite interrupted by user")
}

func TestExecute_InvalidConfigFails(t *testing.T) {
	dir := setupProject(t, &stubRunner{})
	cfgPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log_level: loud\n"), 0644))

	code, _, errOut := execute(t, context.Background(), "--config", cfgPath)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, errOut, "💥 Test suite failed with error: invalid configuration")
}

func TestHistoryCommand(t *testing.T) {
	setupProject(t, &stubRunner{failPrefix: "mypy"})

	code, out, _ := execute(t, context.Background(), "history")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "No runs recorded yet")

	code, _, _ = execute(t, context.Background())
	require.Equal(t, ExitOK, code)
	code, _, _ = execute(t, context.Background())
	require.Equal(t, ExitOK, code)

	code, out, _ = execute(t, context.Background(), "history", "--limit", "5")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "=== Recent Runs (2) ===")
	assert.Contains(t, out, "100.0% (1/1)")
	assert.Contains(t, out, "failed tools: mypy")
	assert.NotContains(t, out, "runs shown")

	code, out, _ = execute(t, context.Background(), "history", "-n", "1")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "=== Recent Runs (1) ===")
	assert.Contains(t, out, "1 of 2 runs shown; use --limit to see more")
}

func TestHistoryCommand_RunDetail(t *testing.T) {
	dir := setupProject(t, &stubRunner{failPrefix: "bandit"})

	code, _, _ := execute(t, context.Background())
	require.Equal(t, ExitOK, code)

	store, err := history.NewStore(filepath.Join(dir, ".qasuite", "history.db"))
	require.NoError(t, err)
	runs, err := store.RecentRuns(context.Background(), "", 1)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Len(t, runs, 1)
	runID := runs[0].RunID

	code, out, _ := execute(t, context.Background(), "history", "--run", runID)
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "=== Run "+runID+" (")
	assert.Contains(t, out, "security_checks/bandit")
	assert.Contains(t, out, "nonzero_exit")
	assert.Contains(t, out, "exit=1")
	assert.Contains(t, out, "$ bandit ")

	code, _, errOut := execute(t, context.Background(), "history", "--run", "no-such-run")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, errOut, "no invocations recorded for run no-such-run")
}

func TestSummaryCommand(t *testing.T) {
	setupProject(t, &stubRunner{})

	code, _, errOut := execute(t, context.Background(), "summary")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, errOut, "no reports found")

	code, _, _ = execute(t, context.Background(), "--no-history")
	require.Equal(t, ExitOK, code)

	code, out, _ := execute(t, context.Background(), "summary")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "Success Rate: 100.0% (1/1)")
	assert.Contains(t, out, "Status: 🎉 All tests passed!")
}

func TestSummaryCommand_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.md")
	require.NoError(t, os.WriteFile(path, []byte("# Report\nTimestamp: 20250101_000000\n\n## 📊 Overall Status\n- **Status**: No tests were run\n"), 0644))

	code, out, _ := execute(t, context.Background(), "summary", path)
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "Timestamp: 20250101_000000")
	assert.Contains(t, out, "Status: No tests were run")
	assert.NotContains(t, out, "Success Rate")
}
