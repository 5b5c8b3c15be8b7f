package pack

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/oshokin/shippo/internal/manifest"
)

var errEmptyToolOutput = errors.New("tool produced no version output")

// ToolProbe reports the version string of one installed toolchain.
type ToolProbe interface {
	Version(ctx context.Context, tool string, args ...string) (string, error)
}

// ExecProbe asks each tool for its version on the command line.
type ExecProbe struct{}

// Version runs the tool and returns the first line of its output.
func (ExecProbe) Version(ctx context.Context, tool string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, tool, args...).Output()
	if err != nil {
		return "", fmt.Errorf("probe %s: %w", tool, err)
	}

	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	if line == "" {
		return "", fmt.Errorf("probe %s: %w", tool, errEmptyToolOutput)
	}

	return strings.TrimSpace(line), nil
}

// snapshotTooling collects the installed toolchain versions. A tool that is
// missing or fails to answer stays null in the manifest.
func snapshotTooling(ctx context.Context, probe ToolProbe) manifest.Tooling {
	version := func(tool string, args ...string) *string {
		value, err := probe.Version(ctx, tool, args...)
		if err != nil {
			return nil
		}

		return manifest.StringPtr(value)
	}

	return manifest.Tooling{
		Rust:   version("rustc", "--version"),
		Go:     version("go", "version"),
		Node:   version("node", "--version"),
		Python: version("python", "--version"),
	}
}
