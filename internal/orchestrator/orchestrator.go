// Package orchestrator runs the qasuite stages in their fixed order, writes
// the markdown report and records the run in the history store.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/harrison/qasuite/internal/history"
	"github.com/harrison/qasuite/internal/logger"
	"github.com/harrison/qasuite/internal/models"
	"github.com/harrison/qasuite/internal/report"
	"github.com/harrison/qasuite/internal/stages"
	"github.com/harrison/qasuite/internal/workspace"
)

// Recorder stores a finished run. *history.Store implements it.
type Recorder interface {
	RecordRun(ctx context.Context, run *history.RunRecord, invocations []models.CategorizedInvocation) error
}

// Orchestrator drives one run. Env is shared by every stage.
type Orchestrator struct {
	Env       stages.Env
	Workspace *workspace.Workspace
	History   Recorder // nil disables run history
	Now       func() time.Time
}

// Summary is what a completed run hands back to the CLI.
type Summary struct {
	State        *models.RunState
	Rate         report.Rate
	ReportPath   string
	FailedChecks []string // "<category>" or "<category>/<tool>" keys that failed
}

// Failed reports whether any evaluated check failed. Skipped stages never count.
func (s *Summary) Failed() bool {
	return len(s.FailedChecks) > 0
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func (o *Orchestrator) log() logger.Logger {
	if o.Env.Logger == nil {
		return logger.Nop{}
	}
	return o.Env.Logger
}

// Run executes dependencies, unit tests, code quality, security and
// integration in that order. Stage failures are recorded, not returned; the
// only errors are an interrupt (ctx canceled between stages) and a report
// that cannot be written.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	log := o.log()
	ws := o.Workspace
	start := o.now()

	rs := &models.RunState{
		RunID:       ws.RunID,
		Timestamp:   ws.Timestamp,
		ProjectName: o.Env.Config.ProjectName,
		StartedAt:   start,
		ReportPath:  ws.ReportPath,
		LogPath:     ws.LogPath,
		ResultsDir:  ws.ResultsDir,
		LogsDir:     ws.LogsDir,
		ReportsDir:  ws.ReportsDir,
	}

	log.LogInfo("🚀 Starting comprehensive test suite...")

	steps := []func(){
		func() { rs.Dependencies = stages.CheckDependencies(ctx, o.Env) },
		func() { rs.UnitTests = stages.RunUnitTests(ctx, o.Env) },
		func() { rs.CodeQuality = stages.RunCodeQuality(ctx, o.Env) },
		func() { rs.Security = stages.RunSecurity(ctx, o.Env) },
		func() { rs.Integration = stages.RunIntegration(ctx, o.Env) },
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("test suite interrupted: %w", err)
		}
		step()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("test suite interrupted: %w", err)
	}

	rs.Duration = o.now().Sub(start)

	log.LogInfo("📝 Generating test report...")
	if err := report.Write(rs, ws.ReportPath, o.now()); err != nil {
		return nil, err
	}
	log.LogInfo(fmt.Sprintf("📊 Test report generated: %s", ws.ReportPath))

	summary := &Summary{
		State:        rs,
		Rate:         report.SuccessRate(rs),
		ReportPath:   ws.ReportPath,
		FailedChecks: failedChecks(rs),
	}

	o.record(ctx, summary)

	log.LogInfo("🎉 Comprehensive test suite completed!")
	log.LogInfo(fmt.Sprintf("⏱️ Total duration: %.2fs", rs.Duration.Seconds()))
	log.LogInfo(fmt.Sprintf("📊 Report generated: %s", ws.ReportPath))

	return summary, nil
}

// record writes the run to the history store. Failures are logged, never returned.
func (o *Orchestrator) record(ctx context.Context, s *Summary) {
	if o.History == nil {
		return
	}
	rs := s.State
	run := &history.RunRecord{
		RunID:       rs.RunID,
		Project:     rs.ProjectName,
		Timestamp:   rs.Timestamp,
		StartedAt:   rs.StartedAt,
		Duration:    rs.Duration,
		Passed:      s.Rate.Passed,
		Total:       s.Rate.Total,
		SuccessRate: s.Rate.Percent(),
		Status:      s.Rate.Tier().StatusLine(),
		FailedTools: append(rs.CodeQuality.Failed(), rs.Security.Failed()...),
		ReportPath:  rs.ReportPath,
	}
	if err := o.History.RecordRun(ctx, run, rs.Invocations()); err != nil {
		o.log().LogWarn(fmt.Sprintf("⚠️ Failed to record run history: %v", err))
		return
	}
	o.log().LogDebug(fmt.Sprintf("Recorded run %s in history", rs.RunID))
}

func failedChecks(rs *models.RunState) []string {
	var failed []string
	for _, s := range rs.TopLevelStages() {
		if s.Result.Counted() && !s.Result.Success {
			failed = append(failed, s.Name)
		}
	}
	for _, tool := range rs.CodeQuality.Failed() {
		failed = append(failed, models.CategoryCodeQuality+"/"+tool)
	}
	for _, tool := range rs.Security.Failed() {
		failed = append(failed, models.CategorySecurity+"/"+tool)
	}
	return failed
}
