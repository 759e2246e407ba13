package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/harrison/qasuite/internal/models"
	"github.com/harrison/qasuite/internal/runner"
)

// CheckDependencies probes every configured tool with "<tool> --version".
// A missing tool is recorded, never fatal.
func CheckDependencies(ctx context.Context, env Env) *models.DependencyReport {
	log := env.log()
	log.LogInfo("🔍 Checking dependencies...")

	report := &models.DependencyReport{}
	for _, tool := range env.Config.Dependencies {
		result := env.Runner.Run(ctx, runner.Request{
			Command:     []string{tool, "--version"},
			Description: fmt.Sprintf("%s version check", tool),
			Timeout:     env.Config.ProbeTimeout,
			Quiet:       true,
		})

		record := models.DependencyRecord{Tool: tool}
		if result.Success() {
			record.Installed = true
			record.Version = probeVersion(result)
		} else {
			report.Missing = append(report.Missing, tool)
		}
		report.Records = append(report.Records, record)
	}

	if len(report.Missing) > 0 {
		log.LogWarn(fmt.Sprintf("⚠️ Missing dependencies: %s", strings.Join(report.Missing, ", ")))
	} else {
		log.LogInfo("✅ All dependencies are installed")
	}

	return report
}

// probeVersion extracts the version banner. Some tools print it on stderr.
func probeVersion(result models.InvocationResult) string {
	if v := strings.TrimSpace(result.Stdout); v != "" {
		return v
	}
	return strings.TrimSpace(result.Stderr)
}
