package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/shippo/internal/logger"
	"github.com/oshokin/shippo/internal/service/release"
)

// buildCmd builds every package of the plan without packaging.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build all packages with their native toolchains",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := commandContext()
		defer stop()

		releasePlan, outputs, err := release.New().Build(ctx, serviceOptions())
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Build finished",
			"version", releasePlan.Version,
			"packages", len(releasePlan.Packages),
			"outputs", len(outputs))

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(buildCmd)
}
