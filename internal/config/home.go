package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeDirName is the per-project directory holding config, locks and history
const HomeDirName = ".qasuite"

// GetHome returns the qasuite home directory
// Priority order:
//  1. QASUITE_HOME environment variable (if set)
//  2. .qasuite under the given project root
//
// The directory is created if it doesn't exist
func GetHome(projectRoot string) (string, error) {
	home := os.Getenv("QASUITE_HOME")
	if home == "" {
		home = filepath.Join(projectRoot, HomeDirName)
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create qasuite home directory: %w", err)
	}

	return home, nil
}

// HistoryDBPath returns the path of the run history database
// An explicit history.db_path wins; otherwise $QASUITE_HOME/history.db
func (c *Config) HistoryDBPath(projectRoot string) (string, error) {
	if c.History.DBPath != "" {
		if filepath.IsAbs(c.History.DBPath) {
			return c.History.DBPath, nil
		}
		return filepath.Join(projectRoot, c.History.DBPath), nil
	}

	home, err := GetHome(projectRoot)
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "history.db"), nil
}
