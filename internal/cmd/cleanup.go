package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/pipeline"
	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/registry"
)

var newRegistryClient = func(cfg pipeline.Config) registry.Client {
	return registry.NewClient(cfg.RegistryAPI, cfg.ProjectID, cfg.Token)
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete the staging tags of one pipeline run.",
	Long: `Delete the commit-scoped staging tags of the configured suffix from the
primary registry and sweep manifests no tag references. Staging tags that
are already gone count as satisfied. Stable tags are never touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("error getting cwd: %w", err)
		}

		cfg, err := pipeline.LoadConfig(cwd)
		if err != nil {
			return err
		}
		err = cfg.Require(pipeline.EnvRegistryPrefix, pipeline.EnvStagingSuffix,
			pipeline.EnvRegistryAPI, pipeline.EnvProjectID, pipeline.EnvToken)
		if err != nil {
			return err
		}

		_, err = pipeline.CleanupStaging(context.Background(), newRegistryClient(cfg), cfg)
		return err
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
