package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/shippo/internal/service/release"
)

// verifyCmd re-checks the bundle in the output directory against its manifest.
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the bundle manifest, checksums and signatures",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := commandContext()
		defer stop()

		return release.New().Verify(ctx, serviceOptions())
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(verifyCmd)
}
