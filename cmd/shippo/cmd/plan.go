package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oshokin/shippo/internal/service/release"
)

// planJSON switches plan output to machine-readable form.
var planJSON bool

// planCmd resolves and prints the execution plan without building anything.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the resolved execution plan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := commandContext()
		defer stop()

		releasePlan, err := release.New().Plan(ctx, serviceOptions())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()

		if planJSON {
			encoded, err := json.MarshalIndent(releasePlan, "", "  ")
			if err != nil {
				return fmt.Errorf("encode plan: %w", err)
			}

			fmt.Fprintln(out, string(encoded))

			return nil
		}

		fmt.Fprintf(out, "Plan for version %s\n", releasePlan.Version)

		for _, pkg := range releasePlan.Packages {
			fmt.Fprintf(out, "- %s (%s) targets: %s\n",
				pkg.Name, pkg.Ecosystem, strings.Join(pkg.Targets, ", "))
		}

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	planCmd.Flags().BoolVar(&planJSON, "json", false, "print the plan as JSON")
	rootCmd.AddCommand(planCmd)
}
