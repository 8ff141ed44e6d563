package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/pipeline"
	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/util"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline <family>",
	Short: "Run the full lifecycle for one family.",
	Long: `Run build, validate, promote and cleanup sequentially for one family.
The exit status reflects build, validation and promotion only; cleanup
failures are logged as warnings.`,
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
		err = cfg.Require(pipeline.EnvRegistryPrefix, pipeline.EnvStagingSuffix, pipeline.EnvReleaseVersion)
		if err != nil {
			return err
		}

		family, err := cfg.FamilyByName(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("=== Pipeline run %s: family %s ===\n", cfg.RunID, family.Name)

		entries, err := buildFamily(cfg, family, family.StageNames(), true)
		if err != nil {
			return err
		}
		if err := util.WriteBuildResult("", entries); err != nil {
			return err
		}

		if _, err := validateFamily(cfg, family); err != nil {
			return err
		}

		cfg.Families = []pipeline.Family{family}
		if _, err := runPromotion(cfg); err != nil {
			return err
		}

		// Cleanup is best-effort: its failures never change the exit code.
		cleanupErr := cfg.Require(pipeline.EnvRegistryAPI, pipeline.EnvProjectID, pipeline.EnvToken)
		if cleanupErr == nil {
			_, cleanupErr = pipeline.CleanupStaging(context.Background(), newRegistryClient(cfg), cfg)
		}
		if cleanupErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: staging cleanup skipped or failed: %v\n", cleanupErr)
		}

		fmt.Printf("=== Pipeline run %s complete ===\n", cfg.RunID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
}
