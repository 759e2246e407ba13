package models

import (
	"errors"
	"time"
)

// Run State category keys
const (
	CategoryDependencies = "dependencies"
	CategoryUnitTests    = "unit_tests"
	CategoryCodeQuality  = "code_quality"
	CategorySecurity     = "security_checks"
	CategoryIntegration  = "integration_tests"
)

// Stage skip and failure reasons
const (
	ReasonNoTestsDir          = "No tests directory found"
	ReasonNoComposeFile       = "No docker-compose.yml found"
	ReasonStartServicesFailed = "Failed to start services"
	ReasonIntegrationDisabled = "Integration tests disabled"
)

// ErrParseNotImplemented is returned alongside the ParseResult stub; structured
// parsing of test runner output is a known gap.
var ErrParseNotImplemented = errors.New("test results parsing not implemented")

// ParseResult is the outcome of the structured test-result parsing hook.
// Parsed is always false: the hook exists but does not parse anything.
type ParseResult struct {
	Parsed bool
	Note   string
}

// StageResult is the outcome of a single-invocation stage (unit or integration tests).
type StageResult struct {
	Success    bool
	Skipped    bool              // Precondition absent; not counted as a run failure
	Reason     string            // Why the stage was skipped or aborted
	Invocation *InvocationResult // Main command, nil when skipped or aborted early
	Setup      *InvocationResult // Service start-up (integration only)
	Teardown   *InvocationResult // Service teardown (integration only), never affects Success
	Parsed     *ParseResult      // Parse hook result (unit tests only)
}

// Description returns the invocation description or the reason when none ran.
func (s StageResult) Description() string {
	if s.Invocation != nil {
		return s.Invocation.Description
	}
	return s.Reason
}

// Counted reports whether this stage participates in the overall success rate.
func (s *StageResult) Counted() bool {
	return s != nil && !s.Skipped
}

// SkippedStage builds a skipped stage result with the given reason.
func SkippedStage(reason string) *StageResult {
	return &StageResult{Success: false, Skipped: true, Reason: reason}
}

// FailedStage builds a failed stage result with the given reason.
func FailedStage(reason string) *StageResult {
	return &StageResult{Success: false, Reason: reason}
}

// RunState accumulates the results of a single orchestrator run.
// It is filled in stage order and consumed once by the report generator.
type RunState struct {
	RunID        string
	Timestamp    string
	ProjectName  string
	StartedAt    time.Time
	Dependencies *DependencyReport
	UnitTests    *StageResult
	CodeQuality  ToolResults
	Security     ToolResults
	Integration  *StageResult
	ReportPath   string
	LogPath      string
	ResultsDir   string
	LogsDir      string
	ReportsDir   string
	Duration     time.Duration
}

// TopLevelStages returns the stages that carry their own success flag, in run order.
// Nested tool mappings (code quality, security) are not included.
func (rs *RunState) TopLevelStages() []NamedStage {
	var stages []NamedStage
	if rs.UnitTests != nil {
		stages = append(stages, NamedStage{Name: CategoryUnitTests, Result: rs.UnitTests})
	}
	if rs.Integration != nil {
		stages = append(stages, NamedStage{Name: CategoryIntegration, Result: rs.Integration})
	}
	return stages
}

// Invocations returns every invocation recorded in the run, tagged by category.
func (rs *RunState) Invocations() []CategorizedInvocation {
	var out []CategorizedInvocation
	addStage := func(category string, s *StageResult) {
		if s == nil {
			return
		}
		steps := []struct {
			tool string
			inv  *InvocationResult
		}{{"setup", s.Setup}, {"tests", s.Invocation}, {"teardown", s.Teardown}}
		for _, step := range steps {
			if step.inv != nil {
				out = append(out, CategorizedInvocation{Category: category, Tool: step.tool, Result: *step.inv})
			}
		}
	}
	addStage(CategoryUnitTests, rs.UnitTests)
	for _, tr := range rs.CodeQuality {
		out = append(out, CategorizedInvocation{Category: CategoryCodeQuality, Tool: tr.Tool, Result: tr.Result})
	}
	for _, tr := range rs.Security {
		out = append(out, CategorizedInvocation{Category: CategorySecurity, Tool: tr.Tool, Result: tr.Result})
	}
	addStage(CategoryIntegration, rs.Integration)
	return out
}

// NamedStage pairs a category key with its stage result.
type NamedStage struct {
	Name   string
	Result *StageResult
}

// CategorizedInvocation is a flattened invocation with its category and tool key.
type CategorizedInvocation struct {
	Category string
	Tool     string
	Result   InvocationResult
}
