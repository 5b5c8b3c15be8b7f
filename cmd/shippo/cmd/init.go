package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/shippo/internal/service/release"
)

// initCmd detects projects and writes a starter configuration.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Detect projects and generate a default configuration",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := commandContext()
		defer stop()

		return release.New().Init(ctx, serviceOptions())
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(initCmd)
}
