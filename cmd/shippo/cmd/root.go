package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/shippo/internal/config"
	"github.com/oshokin/shippo/internal/logger"
	"github.com/oshokin/shippo/internal/service/release"
	"github.com/oshokin/shippo/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// onlyPackage restricts commands to a single package by name.
	onlyPackage string

	// tagOverride replaces the resolved release version.
	tagOverride string

	// outputDir receives the release bundle.
	outputDir string

	// verbose switches the global logger to debug level.
	verbose bool

	// dryRun stops the release command before publishing.
	dryRun bool

	// draft and noDraft override the configured draft flag.
	draft   bool
	noDraft bool

	// prerelease marks the created release as a prerelease.
	prerelease bool

	// keyringPath optionally enables in-process signature verification.
	keyringPath string

	// rootCmd represents the base command of the release orchestrator.
	rootCmd = &cobra.Command{
		Use:   "shippo",
		Short: "Polyglot release-packaging orchestrator",
		Long: "Shippo builds, packages, signs and publishes release bundles " +
			"for rust, go, node and python projects from one declarative configuration.",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				logger.SetLevel(zapcore.DebugLevel)
			}
		},
	}
)

// Execute runs the shippo CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&onlyPackage, "only", "", "operate on a single package by name")
	flags.StringVar(&tagOverride, "tag", "", "override the resolved version/tag")
	flags.StringVarP(&outputDir, "output", "o", release.DefaultOutputDir, "bundle output directory")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&dryRun, "dry-run", false, "stop the release command before publishing")
	flags.BoolVar(&draft, "draft", false, "force a draft release")
	flags.BoolVar(&noDraft, "no-draft", false, "force a non-draft release")
	flags.BoolVar(&prerelease, "prerelease", false, "mark the release as a prerelease")
	flags.StringVar(&keyringPath, "keyring", "", "public keyring file for signature verification")
}

// commandContext returns a context cancelled by SIGTERM/SIGINT.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// serviceOptions collects the persistent flags into pipeline options.
func serviceOptions() release.Options {
	opts := release.Options{
		ConfigPath:  configPath,
		OutputDir:   outputDir,
		Only:        onlyPackage,
		Tag:         tagOverride,
		DryRun:      dryRun,
		Prerelease:  prerelease,
		KeyringPath: keyringPath,
	}

	// --no-draft beats --draft when both are set.
	if draft {
		value := true
		opts.Draft = &value
	}

	if noDraft {
		value := false
		opts.Draft = &value
	}

	return opts
}
