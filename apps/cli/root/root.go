package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the Assessio admin CLI. Subcommands
// (migrate, org) are attached here from wire.go.
var rootCmd = &cobra.Command{
	Use:           "assessio",
	Short:         "Assessio admin CLI",
	Long:          "Administrative utilities for Assessio (schema migrations, organization provisioning).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
