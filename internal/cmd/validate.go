package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/pipeline"
)

var validateFamily = pipeline.ValidateFamily

var validateCmd = &cobra.Command{
	Use:   "validate <family>",
	Short: "Validate the staged stage set of one family.",
	Long: `Confirm every declared stage of the family has a staged manifest and
assert the stage-specific runtime properties (tool presence/absence,
size ordering) before the family may be promoted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("error getting cwd: %w", err)
		}

		cfg, err := pipeline.LoadConfig(cwd)
		if err != nil {
			return err
		}
		if err := cfg.Require(pipeline.EnvRegistryPrefix, pipeline.EnvStagingSuffix); err != nil {
			return err
		}

		family, err := cfg.FamilyByName(args[0])
		if err != nil {
			return err
		}

		_, err = validateFamily(cfg, family)
		return err
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
