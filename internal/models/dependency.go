package models

// DependencyRecord describes whether a required tool is available.
type DependencyRecord struct {
	Tool      string
	Installed bool
	Version   string // Empty when not installed
}

// DependencyReport is the outcome of the dependency check stage.
type DependencyReport struct {
	Records []DependencyRecord // In probe order
	Missing []string           // Tools whose probe failed
}

// AllInstalled reports whether every probed tool was found.
func (d *DependencyReport) AllInstalled() bool {
	return d != nil && len(d.Missing) == 0
}
