package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/shippo/internal/service/release"
)

// releaseCmd runs the full pipeline: build, package and publish.
var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Build, package and publish a release",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := commandContext()
		defer stop()

		return release.New().Release(ctx, serviceOptions())
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(releaseCmd)
}
