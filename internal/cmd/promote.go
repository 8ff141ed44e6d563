package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/pipeline"
)

var runPromotion = pipeline.Promote

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Promote staged artifacts to the stable tag namespaces.",
	Long: `Re-tag every family's validated staging artifacts under the stable tag
names derived from the release version (technical, full release, latest),
then sync them to the mirror registry when one is configured. Promotion
is a pure re-tagging operation: no image content changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("error getting cwd: %w", err)
		}

		cfg, err := pipeline.LoadConfig(cwd)
		if err != nil {
			return err
		}
		if err := cfg.Require(pipeline.EnvRegistryPrefix, pipeline.EnvStagingSuffix, pipeline.EnvReleaseVersion); err != nil {
			return err
		}

		if family, _ := cmd.Flags().GetString("family"); family != "" {
			f, err := cfg.FamilyByName(family)
			if err != nil {
				return err
			}
			cfg.Families = []pipeline.Family{f}
		}

		_, err = runPromotion(cfg)
		return err
	},
}

func init() {
	rootCmd.AddCommand(promoteCmd)
	promoteCmd.Flags().String("family", "", "Promote only this family")
}
