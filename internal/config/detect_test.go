package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDetect finds projects by their ecosystem marker files.
func TestDetect(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "rusty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "rusty", "Cargo.toml"), []byte("[package]\n"), 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "svc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "svc", "go.mod"), []byte("module svc\n"), 0o644))

	// A file at root level must not be detected as a project.
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o644))

	projects := Detect(root)
	require.Len(t, projects, 2)

	byName := make(map[string]ProjectConfig, len(projects))
	for _, p := range projects {
		byName[p.Name] = p
	}

	require.Equal(t, EcosystemRust, byName["rusty"].Type)
	require.Equal(t, EcosystemGo, byName["svc"].Type)
	require.Equal(t, "svc", byName["svc"].Path)
}

// TestDetect_MissingRoot returns nothing for an unreadable root.
func TestDetect_MissingRoot(t *testing.T) {
	t.Parallel()

	require.Empty(t, Detect(filepath.Join(t.TempDir(), "nope")))
}
