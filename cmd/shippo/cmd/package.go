package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/shippo/internal/logger"
	"github.com/oshokin/shippo/internal/service/release"
)

// packageCmd builds everything and assembles the release bundle.
var packageCmd = &cobra.Command{
	Use:   "package",
	Short: "Build and package artifacts into the output directory",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := commandContext()
		defer stop()

		opts := serviceOptions()

		bundleManifest, err := release.New().Package(ctx, opts)
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Packaging finished",
			"version", bundleManifest.Project.Version,
			"packages", len(bundleManifest.Packages),
			"output", opts.OutputDir)

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(packageCmd)
}
