package vcs

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// errEmptyOutput is returned when git succeeds but prints nothing useful.
var errEmptyOutput = errors.New("git returned empty output")

// Git implements Service by shelling out to the git binary.
// Every call blocks until git exits; there are no retries.
type Git struct {
	// dir is the working directory for git commands; empty means the process cwd.
	dir string
}

// NewGit returns a Service backed by the git binary running in dir.
func NewGit(dir string) *Git {
	return &Git{dir: dir}
}

// CurrentCommit returns the hash of HEAD.
func (g *Git) CurrentCommit(ctx context.Context) (string, error) {
	return g.run(ctx, "rev-parse", "HEAD")
}

// RepoURL returns the origin remote URL.
func (g *Git) RepoURL(ctx context.Context) (string, error) {
	return g.run(ctx, "config", "--get", "remote.origin.url")
}

// LatestTag returns the most recent tag reachable from HEAD.
func (g *Git) LatestTag(ctx context.Context) (string, error) {
	return g.run(ctx, "describe", "--tags", "--abbrev=0")
}

// Changelog returns the commit log between prev and curr.
// Mode "conventional" yields bullet subjects, anything else short hash plus subject.
func (g *Git) Changelog(ctx context.Context, prev, curr, mode string) (string, error) {
	format := changelogFormat(mode)

	cmd := exec.CommandContext(ctx, "git", "log", prev+".."+curr, "--pretty=format:"+format)
	cmd.Dir = g.dir

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git log %s..%s: %w", prev, curr, err)
	}

	return string(out), nil
}

// changelogFormat maps a changelog mode onto a git pretty format.
func changelogFormat(mode string) string {
	if mode == "conventional" {
		return "* %s"
	}

	return "%h %s"
}

// run executes a git subcommand and returns its trimmed stdout.
func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}

	value := strings.TrimSpace(string(out))
	if value == "" {
		return "", errEmptyOutput
	}

	return value, nil
}
