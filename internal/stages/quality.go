package stages

import (
	"context"
	"fmt"

	"github.com/harrison/qasuite/internal/models"
)

// Check is one tool invocation inside a multi-tool stage.
type Check struct {
	Tool        string
	Description string
	Command     []string
}

// CodeQualityChecks returns the fixed, ordered list of code quality tools.
func CodeQualityChecks(env Env) []Check {
	pkg := env.Config.Package
	return []Check{
		{"black", "Black Code Formatting Check", []string{"black", "--check", "--diff", "."}},
		{"isort", "isort Import Sorting Check", []string{"isort", "--check-only", "--diff", "."}},
		{"flake8_errors", "Flake8 Linting (Errors)", []string{
			"flake8", ".", "--count", "--select=E9,F63,F7,F82", "--show-source", "--statistics",
		}},
		{"flake8_style", "Flake8 Style Check", []string{
			"flake8", ".", "--count", "--exit-zero", "--max-complexity=10", "--max-line-length=88", "--statistics",
		}},
		{"mypy", "MyPy Type Checking", []string{"mypy", fmt.Sprintf("%s/", pkg), "--ignore-missing-imports"}},
	}
}

// SecurityChecks returns the fixed, ordered list of security scanners.
// Each writes machine-readable JSON into the results directory.
func SecurityChecks(env Env) []Check {
	pkg := env.Config.Package
	return []Check{
		{"bandit", "Bandit Security Scan", []string{
			"bandit", "-r", fmt.Sprintf("%s/", pkg), "-f", "json", "-o", env.resultFile("bandit-results.json"),
		}},
		{"safety", "Safety Vulnerability Check", []string{
			"safety", "check", "--json", "--output", env.resultFile("safety-results.json"),
		}},
	}
}

// RunCodeQuality runs every code quality tool. A failing tool never stops the next one.
func RunCodeQuality(ctx context.Context, env Env) models.ToolResults {
	env.log().LogInfo("🔍 Running code quality checks...")
	return runChecks(ctx, env, CodeQualityChecks(env))
}

// RunSecurity runs both security scanners. A failing scanner never stops the other.
func RunSecurity(ctx context.Context, env Env) models.ToolResults {
	env.log().LogInfo("🔒 Running security checks...")
	return runChecks(ctx, env, SecurityChecks(env))
}

func runChecks(ctx context.Context, env Env, checks []Check) models.ToolResults {
	results := make(models.ToolResults, 0, len(checks))
	for _, c := range checks {
		result := env.Runner.Run(ctx, env.request(c.Command, c.Description))
		results = append(results, models.ToolResult{Tool: c.Tool, Result: result})
	}
	return results
}
