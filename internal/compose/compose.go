// Package compose reads the container-orchestration descriptor used by the
// integration stage. Only the service names are needed; everything else in
// the file is left to the compose CLI.
package compose

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// File is the subset of a compose descriptor qasuite cares about.
type File struct {
	Path     string
	Services map[string]Service
}

// Service is a single compose service entry. Build-only services have no image.
type Service struct {
	Image string `yaml:"image"`
}

// Load parses the compose descriptor at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compose file: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes compose YAML. A descriptor without services is an error,
// since "up -d" would have nothing to start.
func Parse(path string, data []byte) (*File, error) {
	var raw struct {
		Services map[string]Service `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse compose file %s: %w", path, err)
	}
	if len(raw.Services) == 0 {
		return nil, fmt.Errorf("compose file %s defines no services", path)
	}
	return &File{Path: path, Services: raw.Services}, nil
}

// ServiceNames returns the service names in sorted order.
func (f *File) ServiceNames() []string {
	names := make([]string, 0, len(f.Services))
	for name := range f.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
