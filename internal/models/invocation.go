package models

import (
	"fmt"
	"strings"
	"time"
)

// Outcome classifies how a single command invocation ended.
type Outcome string

// Invocation outcome constants
const (
	OutcomeSuccess     Outcome = "success"      // Exit code 0
	OutcomeNonzeroExit Outcome = "nonzero_exit" // Process ran but exited non-zero
	OutcomeTimeout     Outcome = "timeout"      // Killed after exceeding its time bound
	OutcomeLaunchError Outcome = "launch_error" // Process could not be started
	OutcomeCanceled    Outcome = "canceled"     // Parent context canceled (user interrupt)
)

// InvocationResult is the recorded outcome of one external command execution.
// It is populated once by the command runner and treated as immutable afterwards.
type InvocationResult struct {
	Command     []string      // Ordered command tokens
	Description string        // Human-readable description
	StartTime   time.Time     // When the command was launched
	Duration    time.Duration // Wall-clock time until exit, timeout or launch failure
	Outcome     Outcome       // Tagged outcome
	ExitCode    *int          // Exit code when the process ran to completion
	Stdout      string        // Captured standard output
	Stderr      string        // Captured standard error
	Error       string        // Timeout marker or launch error text
}

// Success reports whether the command exited with status 0.
func (r InvocationResult) Success() bool {
	return r.Outcome == OutcomeSuccess
}

// CommandLine returns the command tokens joined with spaces.
func (r InvocationResult) CommandLine() string {
	return strings.Join(r.Command, " ")
}

// ErrorText returns the most useful failure description for reports.
// Launch errors and timeouts carry an explicit message; a non-zero exit
// falls back to stderr, then to the exit code itself.
func (r InvocationResult) ErrorText() string {
	if r.Error != "" {
		return r.Error
	}
	if stderr := strings.TrimSpace(r.Stderr); stderr != "" {
		return stderr
	}
	if r.ExitCode != nil && *r.ExitCode != 0 {
		return fmt.Sprintf("exit code %d", *r.ExitCode)
	}
	return ""
}

// ToolResult pairs a tool key with its invocation result.
type ToolResult struct {
	Tool   string
	Result InvocationResult
}

// ToolResults is an ordered mapping of tool key to result, used by the
// multi-tool stages (code quality, security).
type ToolResults []ToolResult

// Get returns the result recorded for tool, if any.
func (tr ToolResults) Get(tool string) (InvocationResult, bool) {
	for _, r := range tr {
		if r.Tool == tool {
			return r.Result, true
		}
	}
	return InvocationResult{}, false
}

// Failed returns the keys of tools whose invocation did not succeed.
func (tr ToolResults) Failed() []string {
	var failed []string
	for _, r := range tr {
		if !r.Result.Success() {
			failed = append(failed, r.Tool)
		}
	}
	return failed
}
