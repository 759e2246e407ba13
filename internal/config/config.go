package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

// HistoryConfig controls the SQLite run history store
type HistoryConfig struct {
	// Enabled records every run in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database (empty = $QASUITE_HOME/history.db)
	DBPath string `yaml:"db_path"`
}

// Config represents qasuite configuration options
type Config struct {
	// ProjectName is shown in the report title (empty = working directory name)
	ProjectName string `yaml:"project_name"`

	// Package is the source package checked by coverage, mypy and bandit
	Package string `yaml:"package"`

	// TestsDir must exist for the unit test stage to run
	TestsDir string `yaml:"tests_dir"`

	// ComposeFile must exist for the integration stage to run
	ComposeFile string `yaml:"compose_file"`

	// ComposeCommand is the container orchestration CLI, e.g. ["docker", "compose"]
	ComposeCommand []string `yaml:"compose_command"`

	// Python is the interpreter used to invoke pytest
	Python string `yaml:"python"`

	// CommandTimeout bounds each check invocation
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// ProbeTimeout bounds each dependency version probe
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// SettleDelay is the fixed wait between starting services and running integration tests
	SettleDelay time.Duration `yaml:"settle_delay"`

	// ResultsDir receives tool output files (JUnit XML, scanner JSON)
	ResultsDir string `yaml:"results_dir"`

	// LogsDir receives the per-run log file
	LogsDir string `yaml:"logs_dir"`

	// ReportsDir receives the per-run markdown report
	ReportsDir string `yaml:"reports_dir"`

	// Dependencies lists the tools probed with --version
	Dependencies []string `yaml:"dependencies"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// Strict makes any failed check produce a non-zero exit code
	Strict bool `yaml:"strict"`

	// SkipIntegration records the integration stage as skipped without probing
	SkipIntegration bool `yaml:"skip_integration"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultDependencies is the fixed set of tools probed before a run
var DefaultDependencies = []string{"pytest", "black", "flake8", "mypy", "bandit", "safety"}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		TestsDir:       "tests",
		ComposeFile:    "docker-compose.yml",
		ComposeCommand: []string{"docker-compose"},
		Python:         "python",
		CommandTimeout: 5 * time.Minute,
		ProbeTimeout:   10 * time.Second,
		SettleDelay:    10 * time.Second,
		ResultsDir:     "test_results",
		LogsDir:        "logs",
		ReportsDir:     "reports",
		Dependencies:   append([]string(nil), DefaultDependencies...),
		LogLevel:       "info",
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are strings in YAML ("5m", "10s")
	type yamlConfig struct {
		ProjectName     string        `yaml:"project_name"`
		Package         string        `yaml:"package"`
		TestsDir        string        `yaml:"tests_dir"`
		ComposeFile     string        `yaml:"compose_file"`
		ComposeCommand  []string      `yaml:"compose_command"`
		Python          string        `yaml:"python"`
		CommandTimeout  string        `yaml:"command_timeout"`
		ProbeTimeout    string        `yaml:"probe_timeout"`
		SettleDelay     string        `yaml:"settle_delay"`
		ResultsDir      string        `yaml:"results_dir"`
		LogsDir         string        `yaml:"logs_dir"`
		ReportsDir      string        `yaml:"reports_dir"`
		Dependencies    []string      `yaml:"dependencies"`
		LogLevel        string        `yaml:"log_level"`
		Strict          bool          `yaml:"strict"`
		SkipIntegration bool          `yaml:"skip_integration"`
		History         HistoryConfig `yaml:"history"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeString(&cfg.ProjectName, yamlCfg.ProjectName)
	mergeString(&cfg.Package, yamlCfg.Package)
	mergeString(&cfg.TestsDir, yamlCfg.TestsDir)
	mergeString(&cfg.ComposeFile, yamlCfg.ComposeFile)
	mergeString(&cfg.Python, yamlCfg.Python)
	mergeString(&cfg.ResultsDir, yamlCfg.ResultsDir)
	mergeString(&cfg.LogsDir, yamlCfg.LogsDir)
	mergeString(&cfg.ReportsDir, yamlCfg.ReportsDir)
	mergeString(&cfg.LogLevel, yamlCfg.LogLevel)

	if len(yamlCfg.ComposeCommand) > 0 {
		cfg.ComposeCommand = yamlCfg.ComposeCommand
	}
	if len(yamlCfg.Dependencies) > 0 {
		cfg.Dependencies = yamlCfg.Dependencies
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"command_timeout", yamlCfg.CommandTimeout, &cfg.CommandTimeout},
		{"probe_timeout", yamlCfg.ProbeTimeout, &cfg.ProbeTimeout},
		{"settle_delay", yamlCfg.SettleDelay, &cfg.SettleDelay},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s format %q: %w", d.name, d.value, err)
		}
		*d.dst = parsed
	}

	if yamlCfg.Strict {
		cfg.Strict = true
	}
	if yamlCfg.SkipIntegration {
		cfg.SkipIntegration = true
	}

	// history.enabled defaults to true, so only an explicit key may turn it off
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if section, ok := rawMap["history"].(map[string]interface{}); ok {
			if _, exists := section["enabled"]; exists {
				cfg.History.Enabled = yamlCfg.History.Enabled
			}
			if _, exists := section["db_path"]; exists {
				cfg.History.DBPath = yamlCfg.History.DBPath
			}
		}
	}

	return cfg, nil
}

func mergeString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// LoadConfigFromDir loads configuration from .qasuite/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, HomeDirName, "config.yaml")
	return LoadConfig(configPath)
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(logLevel *string, strict *bool, skipIntegration *bool, historyEnabled *bool) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if strict != nil {
		c.Strict = *strict
	}
	if skipIntegration != nil {
		c.SkipIntegration = *skipIntegration
	}
	if historyEnabled != nil {
		c.History.Enabled = *historyEnabled
	}
}

// ResolveDefaults fills values derived from the project directory
// ProjectName defaults to the directory name and Package to its importable form
func (c *Config) ResolveDefaults(projectRoot string) {
	base := filepath.Base(projectRoot)
	if c.ProjectName == "" {
		c.ProjectName = base
	}
	if c.Package == "" {
		c.Package = packageName(base)
	}
}

// packageName converts a directory name into a Python package name.
// Names that would not start with a letter or underscore get a "pkg_" prefix.
func packageName(dir string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return '_'
	}, strings.ToLower(strings.TrimSpace(dir)))
	if name == "" {
		return "src"
	}
	if first := []rune(name)[0]; !unicode.IsLetter(first) && first != '_' {
		name = "pkg_" + name
	}
	return name
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.CommandTimeout <= 0 {
		return fmt.Errorf("command_timeout must be > 0, got %v", c.CommandTimeout)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout must be > 0, got %v", c.ProbeTimeout)
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle_delay must be >= 0, got %v", c.SettleDelay)
	}

	dirs := map[string]string{
		"tests_dir":   c.TestsDir,
		"results_dir": c.ResultsDir,
		"logs_dir":    c.LogsDir,
		"reports_dir": c.ReportsDir,
	}
	for name, value := range dirs {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
	}

	if c.ComposeFile == "" {
		return fmt.Errorf("compose_file cannot be empty")
	}
	if len(c.ComposeCommand) == 0 || c.ComposeCommand[0] == "" {
		return fmt.Errorf("compose_command cannot be empty")
	}
	if c.Python == "" {
		return fmt.Errorf("python cannot be empty")
	}

	for _, dep := range c.Dependencies {
		if strings.TrimSpace(dep) == "" {
			return fmt.Errorf("dependencies cannot contain empty tool names")
		}
	}

	return nil
}
