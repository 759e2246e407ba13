// Package report renders the run state into the markdown report and reads
// the overall status back out of previously generated reports.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrison/qasuite/internal/filelock"
	"github.com/harrison/qasuite/internal/models"
)

// Tier is the overall status bucket derived from the success rate.
type Tier int

const (
	TierNoTests    Tier = iota // No evaluable stages
	TierAllPassed              // 100%
	TierMostPassed             // >= 80%
	TierFailing                // < 80%
)

// warningThreshold is the lowest success rate still reported as "most passed".
const warningThreshold = 80.0

// StatusLine returns the report's status text for the tier.
func (t Tier) StatusLine() string {
	switch t {
	case TierAllPassed:
		return "🎉 All tests passed!"
	case TierMostPassed:
		return "⚠️ Most tests passed, some issues to address"
	case TierFailing:
		return "🚨 Significant test failures detected"
	default:
		return "No tests were run"
	}
}

// Rate is the overall pass ratio across evaluable top-level stages.
type Rate struct {
	Passed int
	Total  int
}

// Percent returns 100*Passed/Total, or 0 when nothing was evaluated.
func (r Rate) Percent() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Passed) / float64(r.Total) * 100
}

// String formats the rate as it appears in the report, e.g. "75.0% (3/4)".
func (r Rate) String() string {
	return fmt.Sprintf("%.1f%% (%d/%d)", r.Percent(), r.Passed, r.Total)
}

// Tier selects the status bucket at the 100/80 thresholds.
func (r Rate) Tier() Tier {
	switch {
	case r.Total == 0:
		return TierNoTests
	case r.Passed == r.Total:
		return TierAllPassed
	case r.Percent() >= warningThreshold:
		return TierMostPassed
	default:
		return TierFailing
	}
}

// RateOf computes the success rate for a set of top-level stages.
// Skipped stages are neither passes nor failures.
func RateOf(stages []models.NamedStage) Rate {
	var r Rate
	for _, s := range stages {
		if !s.Result.Counted() {
			continue
		}
		r.Total++
		if s.Result.Success {
			r.Passed++
		}
	}
	return r
}

// SuccessRate computes the overall rate of a run. Only stages with their own
// success flag (unit and integration tests) count; the per-tool mappings of
// code quality and security are reported but not counted.
func SuccessRate(rs *models.RunState) Rate {
	return RateOf(rs.TopLevelStages())
}

// Write renders the run state and atomically replaces the file at path.
func Write(rs *models.RunState, path string, generatedAt time.Time) error {
	if err := filelock.AtomicWrite(path, []byte(Render(rs, generatedAt))); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Render produces the markdown report for a run.
func Render(rs *models.RunState, generatedAt time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# 🧪 Comprehensive Test Report - %s\n", rs.ProjectName)
	fmt.Fprintf(&sb, "Generated: %s\n", generatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Timestamp: %s\n", rs.Timestamp)
	if rs.RunID != "" {
		fmt.Fprintf(&sb, "Run ID: %s\n", rs.RunID)
	}
	sb.WriteString("\n## 📋 Test Summary\n\n### Dependencies\n")
	writeDependencies(&sb, rs.Dependencies)

	sb.WriteString("\n### Test Results\n")
	writeUnitTests(&sb, rs.UnitTests)
	writeToolResults(&sb, "🔍", "Code Quality Checks", rs.CodeQuality)
	writeToolResults(&sb, "🔒", "Security Checks", rs.Security)
	writeIntegration(&sb, rs.Integration)

	sb.WriteString("\n## 📁 Generated Files\n")
	fmt.Fprintf(&sb, "- Test Results: `%s/`\n", rs.ResultsDir)
	fmt.Fprintf(&sb, "- Logs: `%s/`\n", rs.LogsDir)
	fmt.Fprintf(&sb, "- Reports: `%s/`\n", rs.ReportsDir)

	sb.WriteString("\n## 🎯 Recommendations\n")
	sb.WriteString("1. Address any failed tests immediately\n")
	sb.WriteString("2. Fix code quality issues\n")
	sb.WriteString("3. Resolve security vulnerabilities\n")
	sb.WriteString("4. Ensure all dependencies are properly installed\n")
	sb.WriteString("5. Review integration test failures\n")

	sb.WriteString("\n## 📊 Overall Status\n")
	rate := SuccessRate(rs)
	if rate.Total > 0 {
		fmt.Fprintf(&sb, "- **Success Rate**: %s\n", rate)
	}
	fmt.Fprintf(&sb, "- **Status**: %s\n", rate.Tier().StatusLine())

	return sb.String()
}

func glyph(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

func writeDependencies(sb *strings.Builder, deps *models.DependencyReport) {
	if deps == nil {
		return
	}
	for _, d := range deps.Records {
		version := d.Version
		if !d.Installed || version == "" {
			version = "Not installed"
		}
		fmt.Fprintf(sb, "- %s **%s**: %s\n", glyph(d.Installed), d.Tool, firstLine(version))
	}
	if len(deps.Missing) > 0 {
		fmt.Fprintf(sb, "\n⚠️ **Missing Dependencies**: %s\n", strings.Join(deps.Missing, ", "))
	}
}

func writeUnitTests(sb *strings.Builder, ut *models.StageResult) {
	if ut == nil {
		return
	}
	if ut.Skipped {
		sb.WriteString("- ⏭️ **Unit Tests**: Skipped\n")
		fmt.Fprintf(sb, "  - Reason: %s\n", ut.Reason)
		return
	}

	fmt.Fprintf(sb, "- %s **Unit Tests**: %s\n", glyph(ut.Success), ut.Description())
	switch {
	case ut.Success && ut.Invocation != nil:
		fmt.Fprintf(sb, "  - Duration: %.2fs\n", ut.Invocation.Duration.Seconds())
	case ut.Invocation != nil:
		fmt.Fprintf(sb, "  - Error: %s\n", firstLine(ut.Invocation.ErrorText()))
	default:
		fmt.Fprintf(sb, "  - Reason: %s\n", ut.Reason)
	}
	if ut.Parsed != nil && !ut.Parsed.Parsed {
		fmt.Fprintf(sb, "  - Parsed Results: %s\n", ut.Parsed.Note)
	}
}

func writeToolResults(sb *strings.Builder, icon, title string, results models.ToolResults) {
	if results == nil {
		return
	}
	fmt.Fprintf(sb, "\n- %s **%s**:\n", icon, title)
	for _, tr := range results {
		fmt.Fprintf(sb, "  - %s %s\n", glyph(tr.Result.Success()), tr.Result.Description)
		if tr.Result.Error != "" {
			fmt.Fprintf(sb, "    - Error: %s\n", firstLine(tr.Result.Error))
		}
	}
}

func writeIntegration(sb *strings.Builder, it *models.StageResult) {
	if it == nil {
		return
	}
	if it.Skipped {
		sb.WriteString("\n- 🔗 **Integration Tests**: ⏭️ Skipped\n")
		fmt.Fprintf(sb, "  - Reason: %s\n", it.Reason)
		return
	}

	fmt.Fprintf(sb, "\n- 🔗 **Integration Tests**: %s\n", glyph(it.Success))
	if it.Success {
		if it.Invocation != nil {
			fmt.Fprintf(sb, "  - Duration: %.2fs\n", it.Invocation.Duration.Seconds())
		}
	} else if it.Reason != "" {
		fmt.Fprintf(sb, "  - Reason: %s\n", it.Reason)
	} else if it.Invocation != nil {
		fmt.Fprintf(sb, "  - Error: %s\n", firstLine(it.Invocation.ErrorText()))
	}
	if it.Teardown != nil && !it.Teardown.Success() {
		fmt.Fprintf(sb, "  - Teardown: %s\n", firstLine(it.Teardown.ErrorText()))
	}
}

// firstLine keeps multi-line tool output from breaking the list structure.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]) + " …"
	}
	return s
}
