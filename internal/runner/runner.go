// Package runner executes external tools with a wall-clock bound and records
// each invocation as a models.InvocationResult.
//
// The runner never returns an error: launch failures, timeouts, non-zero
// exits and cancellation are all expressed as a tagged models.Outcome so the
// stages can record them and move on.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/harrison/qasuite/internal/logger"
	"github.com/harrison/qasuite/internal/models"
)

// DefaultWaitDelay bounds how long Run waits for output pipes after the
// process has been killed (e.g. a grandchild still holding stdout).
const DefaultWaitDelay = 2 * time.Second

// Request describes one command invocation.
type Request struct {
	Command     []string
	Description string
	Timeout     time.Duration // Zero means no bound beyond ctx
	Quiet       bool          // Log attempt and outcome at debug level
}

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, req Request) models.InvocationResult
}

// ExecRunner runs commands as child processes of the current process.
type ExecRunner struct {
	WorkDir   string        // Working directory for commands (empty = current dir)
	Logger    logger.Logger // Receives attempt and outcome lines (nil = discard)
	WaitDelay time.Duration // Pipe drain bound after kill (0 = DefaultWaitDelay)
}

// NewExecRunner creates a CommandRunner that executes real commands in workDir.
func NewExecRunner(workDir string, log logger.Logger) *ExecRunner {
	return &ExecRunner{WorkDir: workDir, Logger: log}
}

// Run executes the command and classifies how it ended.
func (r *ExecRunner) Run(ctx context.Context, req Request) models.InvocationResult {
	log := r.levelFunc(req.Quiet)
	log(fmt.Sprintf("Running: %s", req.Description))
	log(fmt.Sprintf("Command: %s", strings.Join(req.Command, " ")))

	start := time.Now()
	result := models.InvocationResult{
		Command:     append([]string(nil), req.Command...),
		Description: req.Description,
		StartTime:   start,
	}

	if len(req.Command) == 0 || req.Command[0] == "" {
		result.Outcome = models.OutcomeLaunchError
		result.Error = "empty command"
		r.logOutcome(req, result)
		return result
	}

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if req.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(runCtx, req.Command[0], req.Command[1:]...)
	cmd.Dir = r.WorkDir
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result.Duration = time.Since(start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	classify(&result, cmd, err, ctx, runCtx, req.Timeout)
	r.logOutcome(req, result)
	return result
}

// classify maps the exec error and context state onto a tagged outcome.
func classify(result *models.InvocationResult, cmd *exec.Cmd, err error, parent, runCtx context.Context, timeout time.Duration) {
	// Output pipes outlived the process; its exit status is still authoritative.
	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil {
		err = nil
		if !cmd.ProcessState.Success() {
			err = &exec.ExitError{ProcessState: cmd.ProcessState}
		}
	}

	switch {
	case err == nil:
		code := 0
		result.ExitCode = &code
		result.Outcome = models.OutcomeSuccess
	case parent.Err() != nil:
		result.Outcome = models.OutcomeCanceled
		result.Error = fmt.Sprintf("Command canceled: %v", parent.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.Outcome = models.OutcomeTimeout
		result.Error = TimeoutMessage(timeout)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			result.ExitCode = &code
			result.Outcome = models.OutcomeNonzeroExit
			return
		}
		result.Outcome = models.OutcomeLaunchError
		result.Error = err.Error()
	}
}

// TimeoutMessage returns the marker recorded for a timed-out command.
func TimeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("Command timed out after %s", humanDuration(timeout))
}

func humanDuration(d time.Duration) string {
	plural := func(n int64, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s", unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}
	switch {
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int64(d/time.Minute), "minute")
	case d >= time.Second && d%time.Second == 0:
		return plural(int64(d/time.Second), "second")
	default:
		return d.String()
	}
}

func (r *ExecRunner) levelFunc(quiet bool) func(string) {
	if r.Logger == nil {
		return func(string) {}
	}
	if quiet {
		return r.Logger.LogDebug
	}
	return r.Logger.LogInfo
}

func (r *ExecRunner) logOutcome(req Request, result models.InvocationResult) {
	if r.Logger == nil {
		return
	}
	if req.Quiet {
		r.Logger.LogDebug(fmt.Sprintf("%s: %s (%.2fs)", req.Description, result.Outcome, result.Duration.Seconds()))
		return
	}

	switch result.Outcome {
	case models.OutcomeSuccess:
		r.Logger.LogInfo(fmt.Sprintf("✅ %s completed successfully in %.2fs", req.Description, result.Duration.Seconds()))
	case models.OutcomeNonzeroExit:
		r.Logger.LogInfo(fmt.Sprintf("❌ %s failed with exit code %d", req.Description, *result.ExitCode))
	case models.OutcomeTimeout:
		r.Logger.LogWarn(fmt.Sprintf("⏰ %s timed out", req.Description))
	case models.OutcomeCanceled:
		r.Logger.LogWarn(fmt.Sprintf("⏹️ %s canceled", req.Description))
	default:
		r.Logger.LogError(fmt.Sprintf("💥 %s failed with exception: %s", req.Description, result.Error))
	}
}

// Sleep blocks for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
