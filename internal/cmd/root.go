package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "ecp",
	Short:        "Docker Ecosystem container pipeline tools.",
	Long:         `Build, validate, promote and clean up the Docker Ecosystem image fleet.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
