package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/oshokin/shippo/internal/config"
	"github.com/oshokin/shippo/internal/logger"
	"github.com/oshokin/shippo/internal/plan"
)

// TargetNative is the pseudo-target meaning "whatever the host toolchain produces".
const TargetNative = "native"

var (
	// errNoArtifacts is returned when a build succeeds but leaves nothing to package.
	errNoArtifacts = errors.New("build produced no artifacts")
	// errFrontendDirMissing is returned when a frontend build dir does not appear.
	errFrontendDirMissing = errors.New("frontend build directory not found after build")
)

// Command is one external toolchain invocation.
type Command struct {
	// Dir is the working directory of the command.
	Dir string
	// Env is extra environment appended to the inherited one.
	Env map[string]string
	// Name is the executable to run.
	Name string
	// Args are the command arguments.
	Args []string
}

// Runner executes external toolchain commands. The default implementation
// spawns real processes; tests substitute a recording fake.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands through os/exec, inheriting stdio so toolchain
// output lands in the operator's terminal. Calls block until the process
// exits; a hung toolchain hangs the run.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, cmd Command) error {
	proc := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	proc.Dir = cmd.Dir
	proc.Stdout = os.Stdout
	proc.Stderr = os.Stderr
	proc.Env = os.Environ()

	for key, value := range cmd.Env {
		proc.Env = append(proc.Env, key+"="+value)
	}

	if err := proc.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", cmd.Name, strings.Join(cmd.Args, " "), err)
	}

	return nil
}

// BuiltTarget is the raw output of building one target of one package.
type BuiltTarget struct {
	// Target is the target identifier the artifacts were built for.
	Target string
	// Artifacts are paths to produced files or directories.
	Artifacts []string
}

// Builder invokes the native toolchain of each ecosystem.
// Build failures are fatal and opaque to the rest of the pipeline.
type Builder struct {
	runner Runner
	// root is the workspace directory package paths are relative to.
	root string
}

// New returns a Builder rooted at the given workspace directory.
// A nil runner defaults to ExecRunner.
func New(root string, runner Runner) *Builder {
	if runner == nil {
		runner = ExecRunner{}
	}

	return &Builder{runner: runner, root: root}
}

// Build produces raw artifacts for every target of the package plan.
// Dispatch over the ecosystem tag is closed; config validation guarantees
// the tag is one of the supported four.
func (b *Builder) Build(ctx context.Context, pkg *plan.PackagePlan, version string) ([]BuiltTarget, error) {
	ctx = logger.WithKV(ctx, "package", pkg.Name)

	outputs := make([]BuiltTarget, 0, len(pkg.Targets))

	for _, target := range pkg.Targets {
		logger.InfoKV(ctx, "Building target", "target", target, "ecosystem", string(pkg.Ecosystem))

		var (
			built BuiltTarget
			err   error
		)

		switch pkg.Ecosystem {
		case config.EcosystemRust:
			built, err = b.buildRust(ctx, pkg, target)
		case config.EcosystemGo:
			built, err = b.buildGo(ctx, pkg, target, version)
		case config.EcosystemNode:
			built, err = b.buildNode(ctx, pkg, target)
		case config.EcosystemPython:
			built, err = b.buildPython(ctx, pkg, target)
		default:
			err = fmt.Errorf("unsupported ecosystem %q", pkg.Ecosystem)
		}

		if err != nil {
			return nil, fmt.Errorf("build %s for %s: %w", pkg.Name, target, err)
		}

		outputs = append(outputs, built)
	}

	return outputs, nil
}

// packageDir resolves the package path against the workspace root.
func (b *Builder) packageDir(pkg *plan.PackagePlan) string {
	return filepath.Join(b.root, pkg.Path)
}

// shellCommand wraps a raw shell line in the platform shell.
func shellCommand(dir string, env map[string]string, line string) Command {
	if runtime.GOOS == "windows" {
		return Command{Dir: dir, Env: env, Name: "cmd", Args: []string{"/C", line}}
	}

	return Command{Dir: dir, Env: env, Name: "sh", Args: []string{"-c", line}}
}

// toolAvailable reports whether an executable is resolvable on PATH.
func toolAvailable(name string) bool {
	_, err := exec.LookPath(name)

	return err == nil
}

// listDir returns the entries of dir joined with it; missing dirs yield nil.
func listDir(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	return paths
}

// isExecutable reports whether path looks like a runnable binary.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	if runtime.GOOS == "windows" {
		return strings.EqualFold(filepath.Ext(path), ".exe")
	}

	return info.Mode().Perm()&0o111 != 0
}
