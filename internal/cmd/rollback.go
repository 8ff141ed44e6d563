package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/pipeline"
)

var runRollback = pipeline.Rollback

var rollbackCmd = &cobra.Command{
	Use:   "rollback <target-tag>",
	Short: "Re-point the stable latest tags at a historical tag.",
	Long: `Disaster recovery: re-point every family's latest tags back to a
previously promoted tag (e.g. "1.0.5"). The target is verified before any
tag changes; afterwards each family is rolled back independently so one
failure never blocks recovering the others. Never run automatically.`,
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
		if err := cfg.Require(pipeline.EnvRegistryPrefix); err != nil {
			return err
		}

		return runRollback(cfg, args[0])
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}
