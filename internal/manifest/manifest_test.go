package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/shippo/internal/config"
)

// sample returns a small manifest with every section populated.
func sample() *Manifest {
	return &Manifest{
		ShippoVersion: "0.1.0",
		GeneratedAt:   time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		Project: Project{
			RepoURL: StringPtr("https://example.com/acme/demo.git"),
			Commit:  StringPtr("abc123"),
			Version: "v1.0.0",
		},
		Packages: []Package{
			{
				Name: "demo",
				Type: config.EcosystemRust,
				Path: ".",
				Targets: []Target{
					{
						Target: "native",
						Artifacts: []Artifact{
							{Filename: "demo-v1.0.0-native.tar.gz", Bytes: 128, SHA256: "aa"},
						},
						Sbom:       &Artifact{Filename: "demo-v1.0.0-native-sbom.cdx.json", Bytes: 64, SHA256: "bb"},
						Signatures: []Signature{{Filename: "demo-v1.0.0-native.tar.gz.sig", Method: "gpg"}},
					},
				},
			},
		},
		Tooling:  Tooling{Go: StringPtr("go version go1.25 linux/amd64")},
		BuildEnv: BuildEnv{OS: "linux", Arch: "amd64", CI: false},
	}
}

// TestToJSON_Deterministic serializes the same manifest twice and compares bytes.
func TestToJSON_Deterministic(t *testing.T) {
	t.Parallel()

	m := sample()

	a, err := m.ToJSON()
	require.NoError(t, err)

	b, err := m.ToJSON()
	require.NoError(t, err)

	require.Equal(t, a, b)
}

// TestToJSON_SortedTopLevelKeys checks the fixed key order of the document.
func TestToJSON_SortedTopLevelKeys(t *testing.T) {
	t.Parallel()

	out, err := sample().ToJSON()
	require.NoError(t, err)

	var generic map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &generic))

	keys := make([]string, 0, len(generic))
	for k := range generic {
		keys = append(keys, k)
	}

	require.True(t, sort.StringsAreSorted(keys) || len(keys) == 0)
	require.ElementsMatch(t,
		[]string{"build_env", "generated_at", "packages", "project", "shippo_version", "tooling"},
		keys)

	// Sorted order must hold in the raw byte stream, not just the parsed map.
	require.Less(t,
		indexOf(t, out, `"build_env"`),
		indexOf(t, out, `"generated_at"`))
	require.Less(t,
		indexOf(t, out, `"generated_at"`),
		indexOf(t, out, `"packages"`))
	require.Less(t,
		indexOf(t, out, `"project"`),
		indexOf(t, out, `"shippo_version"`))
}

// indexOf returns the byte offset of needle, failing the test when absent.
func indexOf(t *testing.T, data []byte, needle string) int {
	t.Helper()

	idx := -1
	for i := 0; i+len(needle) <= len(data); i++ {
		if string(data[i:i+len(needle)]) == needle {
			idx = i
			break
		}
	}

	require.GreaterOrEqual(t, idx, 0, "expected %s in manifest JSON", needle)

	return idx
}

// TestLoadRoundtrip writes a manifest and reads it back.
func TestLoadRoundtrip(t *testing.T) {
	t.Parallel()

	m := sample()

	out, err := m.ToJSON()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), Filename)
	require.NoError(t, os.WriteFile(path, out, 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, m.ShippoVersion, loaded.ShippoVersion)
	require.Equal(t, m.Project.Version, loaded.Project.Version)
	require.Len(t, loaded.Packages, 1)
	require.Equal(t, m.Packages[0].Targets[0].Artifacts[0].SHA256,
		loaded.Packages[0].Targets[0].Artifacts[0].SHA256)
	require.NotNil(t, loaded.Packages[0].Targets[0].Sbom)
}

// TestStringPtr maps empty strings to nil.
func TestStringPtr(t *testing.T) {
	t.Parallel()

	require.Nil(t, StringPtr(""))
	require.Equal(t, "x", *StringPtr("x"))
}
