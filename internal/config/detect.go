package config

import (
	"os"
	"path/filepath"
)

// markerFiles maps ecosystem marker files to their ecosystem tag,
// checked in a fixed order so detection is deterministic.
var markerFiles = []struct {
	file      string
	ecosystem Ecosystem
}{
	{"Cargo.toml", EcosystemRust},
	{"go.mod", EcosystemGo},
	{"package.json", EcosystemNode},
	{"pyproject.toml", EcosystemPython},
}

// Detect scans the immediate subdirectories of root for known ecosystem
// marker files and returns one ProjectConfig per detected project.
// It is best-effort: unreadable directories are skipped.
func Detect(root string) []ProjectConfig {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	var (
		projects []ProjectConfig
		seen     = make(map[string]struct{}, len(entries))
	)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		name := entry.Name()
		for _, marker := range markerFiles {
			if _, err := os.Stat(filepath.Join(root, name, marker.file)); err != nil {
				continue
			}

			if _, ok := seen[name]; ok {
				continue
			}

			seen[name] = struct{}{}
			projects = append(projects, ProjectConfig{
				Name: name,
				Type: marker.ecosystem,
				Path: name,
			})
		}
	}

	return projects
}
