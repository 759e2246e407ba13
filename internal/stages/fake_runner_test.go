package stages

import (
	"context"
	"strings"
	"time"

	"github.com/harrison/qasuite/internal/config"
	"github.com/harrison/qasuite/internal/models"
	"github.com/harrison/qasuite/internal/runner"
)

// FakeCommandRunner records requests and returns canned outcomes keyed by command line.
type FakeCommandRunner struct {
	outcomes map[string]models.Outcome
	stdout   map[string]string
	requests []runner.Request
}

// NewFakeCommandRunner creates a runner where every command succeeds by default.
func NewFakeCommandRunner() *FakeCommandRunner {
	return &FakeCommandRunner{
		outcomes: make(map[string]models.Outcome),
		stdout:   make(map[string]string),
	}
}

// SetOutcome sets the outcome for a command line.
func (f *FakeCommandRunner) SetOutcome(cmd string, outcome models.Outcome) {
	f.outcomes[cmd] = outcome
}

// SetStdout sets the stdout for a command line.
func (f *FakeCommandRunner) SetStdout(cmd, out string) {
	f.stdout[cmd] = out
}

// Run returns the configured outcome for the joined command line.
func (f *FakeCommandRunner) Run(ctx context.Context, req runner.Request) models.InvocationResult {
	f.requests = append(f.requests, req)
	line := strings.Join(req.Command, " ")

	outcome, ok := f.outcomes[line]
	if !ok {
		outcome = models.OutcomeSuccess
	}
	if ctx.Err() != nil {
		outcome = models.OutcomeCanceled
	}

	result := models.InvocationResult{
		Command:     req.Command,
		Description: req.Description,
		StartTime:   time.Now(),
		Duration:    1500 * time.Millisecond,
		Outcome:     outcome,
		Stdout:      f.stdout[line],
	}
	switch outcome {
	case models.OutcomeSuccess:
		code := 0
		result.ExitCode = &code
	case models.OutcomeNonzeroExit:
		code := 1
		result.ExitCode = &code
		result.Stderr = "failed"
	case models.OutcomeTimeout:
		result.Error = runner.TimeoutMessage(req.Timeout)
	default:
		result.Error = "exec: not found"
	}
	return result
}

// Commands returns every executed command line in order.
func (f *FakeCommandRunner) Commands() []string {
	cmds := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		cmds = append(cmds, strings.Join(r.Command, " "))
	}
	return cmds
}

// newTestEnv builds an Env rooted at dir with a fake runner and no-op sleeps.
func newTestEnv(dir string) (Env, *FakeCommandRunner, *[]time.Duration) {
	cfg := config.DefaultConfig()
	cfg.ResolveDefaults("/work/ghostwire")
	fake := NewFakeCommandRunner()
	var slept []time.Duration
	env := Env{
		Config: cfg,
		Root:   dir,
		Runner: fake,
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return ctx.Err()
		},
	}
	return env, fake, &slept
}

// UnitTestCommandLine is the unit test command joined the way the fake runner keys it.
func UnitTestCommandLine(env Env) string {
	return strings.Join(UnitTestCommand(env), " ")
}
