package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/qasuite/internal/compose"
	"github.com/harrison/qasuite/internal/config"
	"github.com/harrison/qasuite/internal/models"
)

// ReasonInterrupted is recorded when the run is canceled during the settle wait.
const ReasonInterrupted = "Interrupted while waiting for services"

// composeCommand builds "<compose> [-f file] <args...>". The -f flag is only
// passed for a non-default descriptor name so the default invocation stays plain.
func composeCommand(cfg *config.Config, args ...string) []string {
	cmd := append([]string(nil), cfg.ComposeCommand...)
	if cfg.ComposeFile != config.DefaultConfig().ComposeFile {
		cmd = append(cmd, "-f", cfg.ComposeFile)
	}
	return append(cmd, args...)
}

// IntegrationTestCommand builds the pytest invocation for integration-marked tests.
func IntegrationTestCommand(env Env) []string {
	cfg := env.Config
	return []string{
		cfg.Python, "-m", "pytest",
		strings.TrimSuffix(cfg.TestsDir, "/") + "/",
		"-m", "integration",
		"-v",
	}
}

// RunIntegration starts the compose services, waits a fixed settle period,
// runs the integration tests and always tears the services down again.
// If the services fail to start, neither the tests nor the teardown run.
func RunIntegration(ctx context.Context, env Env) *models.StageResult {
	log := env.log()
	cfg := env.Config

	if cfg.SkipIntegration {
		log.LogInfo("⏭️ Integration tests disabled, skipping")
		return models.SkippedStage(models.ReasonIntegrationDisabled)
	}

	log.LogInfo("🔗 Running integration tests...")

	composePath := env.path(cfg.ComposeFile)
	if _, err := os.Stat(composePath); err != nil {
		name := filepath.Base(cfg.ComposeFile)
		log.LogWarn(fmt.Sprintf("⚠️ No %s found, skipping integration tests", name))
		return models.SkippedStage(fmt.Sprintf("No %s found", name))
	}

	if descriptor, err := compose.Load(composePath); err != nil {
		log.LogWarn(fmt.Sprintf("Could not read services from %s: %v", cfg.ComposeFile, err))
	} else {
		log.LogDebug(fmt.Sprintf("Compose services: %s", strings.Join(descriptor.ServiceNames(), ", ")))
	}

	log.LogInfo("🚀 Starting services for integration tests...")
	setup := env.Runner.Run(ctx, env.request(composeCommand(cfg, "up", "-d"), "Start Docker Services"))
	if !setup.Success() {
		stage := models.FailedStage(models.ReasonStartServicesFailed)
		stage.Setup = &setup
		return stage
	}

	stage := &models.StageResult{Setup: &setup}

	if err := env.sleep(ctx, cfg.SettleDelay); err != nil {
		stage.Reason = ReasonInterrupted
	} else {
		result := env.Runner.Run(ctx, env.request(IntegrationTestCommand(env), "Integration Tests"))
		stage.Invocation = &result
		stage.Success = result.Success()
	}

	// Teardown must still run after an interrupt, so it ignores ctx cancellation.
	teardown := env.Runner.Run(context.WithoutCancel(ctx), env.request(composeCommand(cfg, "down"), "Stop Docker Services"))
	stage.Teardown = &teardown
	if !teardown.Success() {
		log.LogWarn(fmt.Sprintf("Failed to stop services: %s", teardown.ErrorText()))
	}

	return stage
}
