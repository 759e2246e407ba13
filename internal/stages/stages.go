// Package stages implements the individual phases of a qasuite run.
//
// Each stage is a plain function of (ctx, Env) that returns its own result
// value; none of them mutate shared state. The orchestrator calls them in a
// fixed order and stores what they return in the run state.
package stages

import (
	"context"
	"path/filepath"
	"time"

	"github.com/harrison/qasuite/internal/config"
	"github.com/harrison/qasuite/internal/logger"
	"github.com/harrison/qasuite/internal/runner"
)

// Env carries everything a stage needs. It replaces ambient object state:
// the same Env is passed to every stage of a run.
type Env struct {
	Config *config.Config
	Root   string // Project root; preconditions are resolved against it
	Runner runner.CommandRunner
	Logger logger.Logger
	Sleep  func(ctx context.Context, d time.Duration) error
}

func (e Env) log() logger.Logger {
	if e.Logger == nil {
		return logger.Nop{}
	}
	return e.Logger
}

func (e Env) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep == nil {
		return runner.Sleep(ctx, d)
	}
	return e.Sleep(ctx, d)
}

// path resolves a config-relative path against the project root.
func (e Env) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(e.Root, rel)
}

// resultFile returns the path handed to a tool for its output file.
// Commands run in the project root, so the config-relative path is kept as is.
func (e Env) resultFile(name string) string {
	return filepath.Join(e.Config.ResultsDir, name)
}

func (e Env) request(command []string, description string) runner.Request {
	return runner.Request{
		Command:     command,
		Description: description,
		Timeout:     e.Config.CommandTimeout,
	}
}
