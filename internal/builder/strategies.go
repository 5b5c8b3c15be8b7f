package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/shippo/internal/config"
	"github.com/oshokin/shippo/internal/plan"
)

// useCrossEnv forces cross-rs for rust cross-compilation.
const useCrossEnv = "SHIPPO_USE_CROSS"

// buildRust runs cargo (or cross for non-native targets) in release mode and
// collects the executables from the target directory.
func (b *Builder) buildRust(ctx context.Context, pkg *plan.PackagePlan, target string) (BuiltTarget, error) {
	dir := b.packageDir(pkg)

	_, forceCross := os.LookupEnv(useCrossEnv)
	useCross := target != TargetNative && (forceCross || toolAvailable("cross"))

	var cmd Command

	switch {
	case useCross:
		cmd = Command{Dir: dir, Env: pkg.Env, Name: "cross", Args: []string{"build", "--release", "--target", target}}
	case target != TargetNative:
		cmd = Command{Dir: dir, Env: pkg.Env, Name: "cargo", Args: []string{"build", "--release", "--target", target}}
	default:
		cmd = Command{Dir: dir, Env: pkg.Env, Name: "cargo", Args: []string{"build", "--release"}}
	}

	if err := b.runner.Run(ctx, cmd); err != nil {
		return BuiltTarget{}, err
	}

	binaryDir := filepath.Join(dir, "target", "release")
	if target != TargetNative {
		binaryDir = filepath.Join(dir, "target", target, "release")
	}

	var artifacts []string

	for _, path := range listDir(binaryDir) {
		if isExecutable(path) {
			artifacts = append(artifacts, path)
		}
	}

	if len(artifacts) == 0 {
		return BuiltTarget{}, fmt.Errorf("%s: %w", pkg.Name, errNoArtifacts)
	}

	return BuiltTarget{Target: target, Artifacts: artifacts}, nil
}

// buildGo runs `go build` with GOOS/GOARCH derived from the target string
// and the release version injected through ldflags.
func (b *Builder) buildGo(ctx context.Context, pkg *plan.PackagePlan, target, version string) (BuiltTarget, error) {
	dir := b.packageDir(pkg)

	env := make(map[string]string, len(pkg.Env)+2)
	for key, value := range pkg.Env {
		env[key] = value
	}

	if goos, goarch, ok := splitGoTarget(target); ok {
		env["GOOS"] = goos
		env["GOARCH"] = goarch
	}

	cmd := Command{
		Dir:  dir,
		Env:  env,
		Name: "go",
		Args: []string{"build", "-ldflags", fmt.Sprintf("-X main.version=%s -X main.commit=", version)},
	}

	if err := b.runner.Run(ctx, cmd); err != nil {
		return BuiltTarget{}, err
	}

	var artifacts []string

	bin := filepath.Join(dir, pkg.Name)
	if _, err := os.Stat(bin); err == nil {
		artifacts = append(artifacts, bin)
	}

	return BuiltTarget{Target: target, Artifacts: artifacts}, nil
}

// splitGoTarget parses "linux-amd64" or "linux/amd64" into GOOS and GOARCH.
// The native pseudo-target keeps the host defaults.
func splitGoTarget(target string) (goos, goarch string, ok bool) {
	if target == TargetNative {
		return "", "", false
	}

	parts := strings.FieldsFunc(target, func(r rune) bool {
		return r == '-' || r == '/'
	})
	if len(parts) < 2 {
		return "", "", false
	}

	return parts[0], parts[1], true
}

// buildNode installs dependencies and either produces a frontend asset
// directory or bundles a standalone executable, per the node sub-config.
func (b *Builder) buildNode(ctx context.Context, pkg *plan.PackagePlan, target string) (BuiltTarget, error) {
	dir := b.packageDir(pkg)

	nodeCfg := pkg.Node
	if nodeCfg == nil {
		nodeCfg = &config.NodeConfig{Mode: config.NodeModeCLIBinary}
	}

	if err := b.runner.Run(ctx, Command{Dir: dir, Env: pkg.Env, Name: "npm", Args: []string{"ci"}}); err != nil {
		return BuiltTarget{}, err
	}

	if nodeCfg.Mode == config.NodeModeFrontend {
		return b.buildNodeFrontend(ctx, pkg, nodeCfg, dir, target)
	}

	return b.buildNodeBinary(ctx, pkg, nodeCfg, dir, target)
}

// buildNodeFrontend runs the configured build command and returns the
// produced asset directory as a single directory artifact.
func (b *Builder) buildNodeFrontend(
	ctx context.Context,
	pkg *plan.PackagePlan,
	nodeCfg *config.NodeConfig,
	dir, target string,
) (BuiltTarget, error) {
	var buildCmd Command

	if nodeCfg.Frontend != nil && nodeCfg.Frontend.BuildCmd != "" {
		buildCmd = shellCommand(dir, pkg.Env, nodeCfg.Frontend.BuildCmd)
	} else {
		buildCmd = Command{Dir: dir, Env: pkg.Env, Name: "npm", Args: []string{"run", "build"}}
	}

	if err := b.runner.Run(ctx, buildCmd); err != nil {
		return BuiltTarget{}, err
	}

	buildDir := "dist"
	if nodeCfg.Frontend != nil && nodeCfg.Frontend.BuildDir != "" {
		buildDir = nodeCfg.Frontend.BuildDir
	}

	buildPath := filepath.Join(dir, buildDir)
	if _, err := os.Stat(buildPath); err != nil {
		return BuiltTarget{}, fmt.Errorf("%w: %s", errFrontendDirMissing, buildDir)
	}

	return BuiltTarget{Target: target, Artifacts: []string{buildPath}}, nil
}

// buildNodeBinary bundles the entry script into an executable with the
// configured tool and picks up outputs named after the package.
func (b *Builder) buildNodeBinary(
	ctx context.Context,
	pkg *plan.PackagePlan,
	nodeCfg *config.NodeConfig,
	dir, target string,
) (BuiltTarget, error) {
	binary := nodeCfg.Binary
	if binary == nil {
		binary = &config.NodeBinaryConfig{Tool: "pkg", Entry: "index.js", Targets: []string{target}}
	}

	tool := binary.Tool
	if tool == "" {
		tool = "pkg"
	}

	entry := binary.Entry
	if entry == "" {
		entry = "index.js"
	}

	args := []string{entry}
	if len(binary.Targets) > 0 {
		args = append(args, "--targets", strings.Join(binary.Targets, ","))
	}

	if err := b.runner.Run(ctx, Command{Dir: dir, Env: pkg.Env, Name: tool, Args: args}); err != nil {
		return BuiltTarget{}, err
	}

	var artifacts []string

	for _, path := range listDir(dir) {
		if strings.Contains(filepath.Base(path), pkg.Name) && isExecutable(path) {
			artifacts = append(artifacts, path)
		}
	}

	if len(artifacts) == 0 {
		return BuiltTarget{}, fmt.Errorf("%s: %w", pkg.Name, errNoArtifacts)
	}

	return BuiltTarget{Target: target, Artifacts: artifacts}, nil
}

// buildPython builds either a pyinstaller executable or a wheel, collecting
// whatever lands in the dist directory.
func (b *Builder) buildPython(ctx context.Context, pkg *plan.PackagePlan, target string) (BuiltTarget, error) {
	dir := b.packageDir(pkg)

	pyCfg := pkg.Python
	if pyCfg == nil {
		pyCfg = &config.PythonConfig{Mode: "wheel"}
	}

	if pyCfg.Mode == "pyinstaller" {
		args := []string{"--noconfirm"}

		entry := "main.py"

		if pi := pyCfg.PyInstaller; pi != nil {
			if pi.Entry != "" {
				entry = pi.Entry
			}

			if pi.Mode == "" || pi.Mode == "onefile" {
				args = append(args, "--onefile")
			}

			for _, hidden := range pi.HiddenImports {
				args = append(args, "--hidden-import", hidden)
			}
		} else {
			args = append(args, "--onefile")
		}

		args = append(args, entry)

		if err := b.runner.Run(ctx, Command{Dir: dir, Env: pkg.Env, Name: "pyinstaller", Args: args}); err != nil {
			return BuiltTarget{}, err
		}
	} else {
		cmd := Command{Dir: dir, Env: pkg.Env, Name: "python", Args: []string{"-m", "build"}}
		if err := b.runner.Run(ctx, cmd); err != nil {
			return BuiltTarget{}, err
		}
	}

	return BuiltTarget{Target: target, Artifacts: listDir(filepath.Join(dir, "dist"))}, nil
}
