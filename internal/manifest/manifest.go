package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/shippo/internal/config"
)

// Filename is the manifest file name inside the bundle directory.
const Filename = "manifest.json"

// Artifact describes one physical file written to the bundle directory.
type Artifact struct {
	// Filename is relative to the bundle directory.
	Filename string `json:"filename"`
	// Bytes is the file size.
	Bytes int64 `json:"bytes"`
	// SHA256 is the hex-encoded content hash.
	SHA256 string `json:"sha256"`
}

// Signature records one signature attempt, real or placeholder.
type Signature struct {
	// Filename is the detached signature file, relative to the bundle directory.
	Filename string `json:"filename"`
	// Method is the signing method the package was configured with.
	Method string `json:"method"`
}

// Target groups the artifacts produced for one build target.
type Target struct {
	Target     string      `json:"target"`
	Artifacts  []Artifact  `json:"artifacts"`
	Sbom       *Artifact   `json:"sbom"`
	Signatures []Signature `json:"signatures"`
}

// Package groups the targets of one released package.
type Package struct {
	Name    string           `json:"name"`
	Type    config.Ecosystem `json:"type"`
	Path    string           `json:"path"`
	Targets []Target         `json:"targets"`
}

// Project carries release-level repository metadata.
// RepoURL and Commit stay null when the VCS oracle had no answer.
type Project struct {
	RepoURL *string `json:"repo_url"`
	Commit  *string `json:"commit"`
	Version string  `json:"version"`
}

// Tooling is the best-effort snapshot of detected toolchain versions.
type Tooling struct {
	Rust   *string `json:"rust"`
	Go     *string `json:"go"`
	Node   *string `json:"node"`
	Python *string `json:"python"`
}

// BuildEnv describes the machine that produced the bundle.
type BuildEnv struct {
	OS   string `json:"os"`
	Arch string `json:"arch"`
	CI   bool   `json:"ci"`
}

// Manifest is the single persisted description of a release bundle.
// It is the unit consumed by verification and publishing.
type Manifest struct {
	ShippoVersion string    `json:"shippo_version"`
	GeneratedAt   time.Time `json:"generated_at"`
	Project       Project   `json:"project"`
	Packages      []Package `json:"packages"`
	Tooling       Tooling   `json:"tooling"`
	BuildEnv      BuildEnv  `json:"build_env"`
}

// ToJSON serializes the manifest with object keys in sorted order, so
// re-serializing an unchanged manifest is byte-identical. The embedded
// timestamp is the only field that varies between generations.
func (m *Manifest) ToJSON() ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}

	// encoding/json emits map keys sorted, so a map round trip
	// normalizes key order at every level.
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("normalize manifest: %w", err)
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(generic); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	return buf.Bytes(), nil
}

// Load reads and deserializes a manifest file.
func Load(path string) (*Manifest, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(contents, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	return &m, nil
}

// StringPtr returns a pointer to s, or nil when s is empty.
// Missing repository metadata serializes as JSON null.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
