// Package workspace prepares the output directories of a run and allocates
// its timestamped log and report paths.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/qasuite/internal/config"
	"github.com/harrison/qasuite/internal/filelock"
)

// TimestampLayout is the run timestamp used in file names.
const TimestampLayout = "20060102_150405"

// lockWait bounds how long a run waits for another run's allocation.
const lockWait = 10 * time.Second

// maxSuffix bounds the collision suffix search within a single second.
const maxSuffix = 1000

// Workspace holds the absolute output locations of one run.
type Workspace struct {
	RunID      string
	Root       string
	Timestamp  string // Unique per run; may carry a -N suffix
	ResultsDir string
	LogsDir    string
	ReportsDir string
	LogPath    string
	ReportPath string
}

// Prepare creates the results, logs and reports directories under root and
// reserves a log/report pair that no other run has used. Allocation happens
// under a file lock, and the report file is created empty to claim its name.
func Prepare(ctx context.Context, root string, cfg *config.Config, now time.Time) (*Workspace, error) {
	ws := &Workspace{
		RunID:      uuid.NewString(),
		Root:       root,
		ResultsDir: resolve(root, cfg.ResultsDir),
		LogsDir:    resolve(root, cfg.LogsDir),
		ReportsDir: resolve(root, cfg.ReportsDir),
	}

	for _, dir := range []string{ws.ResultsDir, ws.LogsDir, ws.ReportsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	base := now.Format(TimestampLayout)
	lockPath := filepath.Join(ws.ReportsDir, ".qasuite.lock")

	err := filelock.WithLock(ctx, lockPath, lockWait, func() error {
		for n := 1; n <= maxSuffix; n++ {
			ts := base
			if n > 1 {
				ts = fmt.Sprintf("%s-%d", base, n)
			}
			logPath := filepath.Join(ws.LogsDir, LogFileName(ts))
			reportPath := filepath.Join(ws.ReportsDir, ReportFileName(ts))

			if exists(logPath) {
				continue
			}
			f, err := os.OpenFile(reportPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
			if errors.Is(err, os.ErrExist) {
				continue
			}
			if err != nil {
				return fmt.Errorf("reserve report file: %w", err)
			}
			f.Close()

			ws.Timestamp = ts
			ws.LogPath = logPath
			ws.ReportPath = reportPath
			return nil
		}
		return fmt.Errorf("no free report name for timestamp %s", base)
	})
	if err != nil {
		return nil, err
	}

	return ws, nil
}

// LogFileName returns the per-run log file name.
func LogFileName(ts string) string {
	return fmt.Sprintf("test-suite-%s.log", ts)
}

// ReportFileName returns the per-run report file name.
func ReportFileName(ts string) string {
	return fmt.Sprintf("comprehensive-test-report-%s.md", ts)
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
