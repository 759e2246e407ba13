package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/qasuite/internal/models"
)

var generatedAt = time.Date(2025, 6, 1, 14, 30, 5, 0, time.UTC)

func invocation(desc string, outcome models.Outcome, d time.Duration) models.InvocationResult {
	r := models.InvocationResult{Description: desc, Outcome: outcome, Duration: d}
	switch outcome {
	case models.OutcomeSuccess:
		code := 0
		r.ExitCode = &code
	case models.OutcomeNonzeroExit:
		code := 2
		r.ExitCode = &code
		r.Stderr = "2 failed, 10 passed\nsecond line"
	case models.OutcomeTimeout:
		r.Error = "Command timed out after 5 minutes"
	}
	return r
}

func stageOf(success bool) *models.StageResult {
	outcome := models.OutcomeSuccess
	if !success {
		outcome = models.OutcomeNonzeroExit
	}
	inv := invocation("stage", outcome, time.Second)
	return &models.StageResult{Success: success, Invocation: &inv}
}

func stages(results ...bool) []models.NamedStage {
	out := make([]models.NamedStage, 0, len(results))
	for i, ok := range results {
		out = append(out, models.NamedStage{Name: fmt.Sprintf("s%d", i), Result: stageOf(ok)})
	}
	return out
}

func TestRateOf(t *testing.T) {
	tests := []struct {
		name        string
		stages      []models.NamedStage
		wantString  string
		wantTier    Tier
		wantPercent float64
	}{
		{"four stages three passing", stages(true, true, true, false), "75.0% (3/4)", TierFailing, 75},
		{"all passing", stages(true, true), "100.0% (2/2)", TierAllPassed, 100},
		{"exactly eighty", stages(true, true, true, true, false), "80.0% (4/5)", TierMostPassed, 80},
		{"eight of eleven", stages(true, true, true, false, true, true, true, false, true, false, true), "72.7% (8/11)", TierFailing, 800.0 / 11},
		{"nine of ten", stages(true, true, true, true, true, true, true, true, true, false), "90.0% (9/10)", TierMostPassed, 90},
		{"one third", stages(true, false, false), "33.3% (1/3)", TierFailing, 100.0 / 3},
		{"none passing", stages(false, false), "0.0% (0/2)", TierFailing, 0},
		{"no stages", nil, "0.0% (0/0)", TierNoTests, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RateOf(tt.stages)
			assert.Equal(t, tt.wantString, r.String())
			assert.Equal(t, tt.wantTier, r.Tier())
			assert.InDelta(t, tt.wantPercent, r.Percent(), 0.001)
		})
	}
}

func TestRateOf_FourStagesThreePassing(t *testing.T) {
	// 75% sits below the 80% threshold
	r := RateOf(stages(true, true, true, false))
	assert.Equal(t, "75.0% (3/4)", r.String())
	assert.NotEqual(t, TierAllPassed, r.Tier())
	assert.Equal(t, "🚨 Significant test failures detected", r.Tier().StatusLine())
}

func TestRateOf_SkippedStagesAreNotCounted(t *testing.T) {
	named := []models.NamedStage{
		{Name: models.CategoryUnitTests, Result: stageOf(true)},
		{Name: models.CategoryIntegration, Result: models.SkippedStage(models.ReasonNoComposeFile)},
	}

	r := RateOf(named)
	assert.Equal(t, Rate{Passed: 1, Total: 1}, r)
	assert.Equal(t, TierAllPassed, r.Tier())
}

func TestRateOf_AbortedStageCountsAsFailure(t *testing.T) {
	named := []models.NamedStage{
		{Name: models.CategoryUnitTests, Result: stageOf(true)},
		{Name: models.CategoryIntegration, Result: models.FailedStage(models.ReasonStartServicesFailed)},
	}

	assert.Equal(t, Rate{Passed: 1, Total: 2}, RateOf(named))
}

func TestTierStatusLines(t *testing.T) {
	assert.Equal(t, "🎉 All tests passed!", TierAllPassed.StatusLine())
	assert.Equal(t, "⚠️ Most tests passed, some issues to address", TierMostPassed.StatusLine())
	assert.Equal(t, "🚨 Significant test failures detected", TierFailing.StatusLine())
	assert.Equal(t, "No tests were run", TierNoTests.StatusLine())
}

func TestSuccessRate_IgnoresNestedToolMappings(t *testing.T) {
	rs := &models.RunState{
		UnitTests: stageOf(true),
		CodeQuality: models.ToolResults{
			{Tool: "black", Result: invocation("Black", models.OutcomeNonzeroExit, 0)},
		},
		Security: models.ToolResults{
			{Tool: "bandit", Result: invocation("Bandit", models.OutcomeTimeout, 0)},
		},
	}

	assert.Equal(t, Rate{Passed: 1, Total: 1}, SuccessRate(rs))
}

func happyRunState() *models.RunState {
	unit := invocation("Unit Tests", models.OutcomeSuccess, 12340*time.Millisecond)
	return &models.RunState{
		RunID:       "run-1",
		Timestamp:   "20250601_143005",
		ProjectName: "ghostwire",
		Dependencies: &models.DependencyReport{
			Records: []models.DependencyRecord{
				{Tool: "pytest", Installed: true, Version: "pytest 8.2.0"},
				{Tool: "black", Installed: true, Version: "black, 24.4.2 (compiled: yes)\nPython (CPython) 3.12.3"},
			},
		},
		UnitTests: &models.StageResult{Success: true, Invocation: &unit},
		CodeQuality: models.ToolResults{
			{Tool: "black", Result: invocation("Black Code Formatting Check", models.OutcomeSuccess, time.Second)},
			{Tool: "mypy", Result: invocation("MyPy Type Checking", models.OutcomeSuccess, time.Second)},
		},
		Security: models.ToolResults{
			{Tool: "bandit", Result: invocation("Bandit Security Scan", models.OutcomeSuccess, time.Second)},
			{Tool: "safety", Result: invocation("Safety Vulnerability Check", models.OutcomeSuccess, time.Second)},
		},
		Integration: models.SkippedStage(models.ReasonNoComposeFile),
		ResultsDir:  "/work/ghostwire/test_results",
		LogsDir:     "/work/ghostwire/logs",
		ReportsDir:  "/work/ghostwire/reports",
	}
}

func TestRender_HappyPathWithoutComposeFile(t *testing.T) {
	out := Render(happyRunState(), generatedAt)

	assert.True(t, strings.HasPrefix(out, "# 🧪 Comprehensive Test Report - ghostwire\n"))
	assert.Contains(t, out, "Generated: 2025-06-01 14:30:05\n")
	assert.Contains(t, out, "Timestamp: 20250601_143005\n")
	assert.Contains(t, out, "- ✅ **pytest**: pytest 8.2.0\n")
	assert.Contains(t, out, "- ✅ **black**: black, 24.4.2 (compiled: yes) …\n")
	assert.NotContains(t, out, "Missing Dependencies")

	assert.Contains(t, out, "- ✅ **Unit Tests**: Unit Tests\n  - Duration: 12.34s\n")
	assert.Contains(t, out, "- 🔍 **Code Quality Checks**:\n  - ✅ Black Code Formatting Check\n  - ✅ MyPy Type Checking\n")
	assert.Contains(t, out, "- 🔒 **Security Checks**:\n  - ✅ Bandit Security Scan\n  - ✅ Safety Vulnerability Check\n")
	assert.Contains(t, out, "- 🔗 **Integration Tests**: ⏭️ Skipped\n  - Reason: No docker-compose.yml found\n")

	assert.Contains(t, out, "- Test Results: `/work/ghostwire/test_results/`\n")
	assert.Contains(t, out, "- **Success Rate**: 100.0% (1/1)\n")
	assert.Contains(t, out, "- **Status**: 🎉 All tests passed!\n")
}

func TestRender_Failures(t *testing.T) {
	rs := happyRunState()
	unit := invocation("Unit Tests", models.OutcomeNonzeroExit, time.Second)
	rs.UnitTests = &models.StageResult{Success: false, Invocation: &unit}
	rs.Dependencies.Records = append(rs.Dependencies.Records, models.DependencyRecord{Tool: "safety"})
	rs.Dependencies.Missing = []string{"safety"}
	rs.Security[0].Result = invocation("Bandit Security Scan", models.OutcomeTimeout, 0)
	rs.Integration = models.FailedStage(models.ReasonStartServicesFailed)

	out := Render(rs, generatedAt)

	assert.Contains(t, out, "- ❌ **safety**: Not installed\n")
	assert.Contains(t, out, "\n⚠️ **Missing Dependencies**: safety\n")
	assert.Contains(t, out, "- ❌ **Unit Tests**: Unit Tests\n  - Error: 2 failed, 10 passed …\n")
	assert.Contains(t, out, "  - ❌ Bandit Security Scan\n    - Error: Command timed out after 5 minutes\n")
	assert.Contains(t, out, "- 🔗 **Integration Tests**: ❌\n  - Reason: Failed to start services\n")
	assert.Contains(t, out, "- **Success Rate**: 0.0% (0/2)\n")
	assert.Contains(t, out, "- **Status**: 🚨 Significant test failures detected\n")
}

func TestRender_NoTestsRun(t *testing.T) {
	rs := &models.RunState{
		ProjectName: "empty",
		Timestamp:   "20250601_143005",
		UnitTests:   models.SkippedStage(models.ReasonNoTestsDir),
		Integration: models.SkippedStage(models.ReasonNoComposeFile),
	}

	out := Render(rs, generatedAt)

	assert.Contains(t, out, "- ⏭️ **Unit Tests**: Skipped\n  - Reason: No tests directory found\n")
	assert.NotContains(t, out, "Success Rate")
	assert.Contains(t, out, "- **Status**: No tests were run\n")
}

func TestRender_ParseHookNoteAndTeardownFailure(t *testing.T) {
	rs := happyRunState()
	rs.UnitTests.Parsed = &models.ParseResult{Parsed: false, Note: "Test results parsing not implemented yet"}
	tests := invocation("Integration Tests", models.OutcomeSuccess, 3*time.Second)
	down := invocation("Stop Docker Services", models.OutcomeNonzeroExit, 0)
	rs.Integration = &models.StageResult{Success: true, Invocation: &tests, Teardown: &down}

	out := Render(rs, generatedAt)

	assert.Contains(t, out, "  - Parsed Results: Test results parsing not implemented yet\n")
	assert.Contains(t, out, "- 🔗 **Integration Tests**: ✅\n  - Duration: 3.00s\n  - Teardown: 2 failed, 10 passed …\n")
	assert.Contains(t, out, "- **Success Rate**: 100.0% (2/2)\n")
}

func TestWriteAndReadSummary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "comprehensive-test-report-20250601_143005.md")

	rs := happyRunState()
	unit := invocation("Unit Tests", models.OutcomeNonzeroExit, time.Second)
	rs.UnitTests = &models.StageResult{Invocation: &unit}
	tests := invocation("Integration Tests", models.OutcomeSuccess, time.Second)
	rs.Integration = &models.StageResult{Success: true, Invocation: &tests}

	require.NoError(t, Write(rs, path, generatedAt))

	summary, err := ReadSummary(path)
	require.NoError(t, err)
	assert.Equal(t, path, summary.Path)
	assert.Equal(t, "20250601_143005", summary.Timestamp)
	assert.Equal(t, "50.0% (1/2)", summary.SuccessRate)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, "🚨 Significant test failures detected", summary.Status)
}

func TestParseSummary_NoTestsRun(t *testing.T) {
	rs := &models.RunState{ProjectName: "p", Timestamp: "20250101_000000"}

	summary, err := ParseSummary([]byte(Render(rs, generatedAt)))
	require.NoError(t, err)
	assert.Empty(t, summary.SuccessRate)
	assert.Equal(t, "No tests were run", summary.Status)
}

func TestParseSummary_Errors(t *testing.T) {
	_, err := ParseSummary([]byte("# Just a title\n\nSome text.\n"))
	assert.ErrorContains(t, err, "no overall status section")

	_, err = ParseSummary([]byte("## 📊 Overall Status\n\nNothing here.\n"))
	assert.ErrorContains(t, err, "no entries")

	_, err = ReadSummary(filepath.Join(t.TempDir(), "missing.md"))
	assert.ErrorContains(t, err, "read report")
}

func TestLatestReport(t *testing.T) {
	dir := t.TempDir()

	_, err := LatestReport(dir)
	require.Error(t, err)

	older := filepath.Join(dir, "comprehensive-test-report-20250101_000000.md")
	newer := filepath.Join(dir, "comprehensive-test-report-20250102_000000.md")
	reserved := filepath.Join(dir, "comprehensive-test-report-20250103_000000.md")
	require.NoError(t, os.WriteFile(older, []byte("old"), 0644))
	require.NoError(t, os.WriteFile(newer, []byte("new"), 0644))
	require.NoError(t, os.WriteFile(reserved, nil, 0644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	got, err := LatestReport(dir)
	require.NoError(t, err)
	assert.Equal(t, newer, got)
}
