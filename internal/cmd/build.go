package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/docker"
	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/pipeline"
	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/util"
)

// Swappable for tests.
var (
	dockerBuild   = docker.Build
	createBuilder = docker.CreateBuilder
	removeBuilder = docker.RemoveBuilder
)

var buildCmd = &cobra.Command{
	Use:   "build <family>",
	Short: "Build the staging images of one family.",
	Long: `Build one image family with buildx, one build per declared stage,
staged under the commit-scoped tag. Each stage gets its own builder
instance so caches of differently-targeted builds never mix.`,
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

		stage, _ := cmd.Flags().GetString("stage")
		push, _ := cmd.Flags().GetBool("push")
		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			cfg.DryRun = true
		}

		stages := family.StageNames()
		if stage != "" {
			if family.StageByName(stage) == nil {
				return fmt.Errorf("family %s declares no stage %q", family.Name, stage)
			}
			stages = []string{stage}
		}

		entries, err := buildFamily(cfg, family, stages, push)
		if err != nil {
			return err
		}
		return util.WriteBuildResult("", entries)
	},
}

// buildFamily builds the requested stages of one family. Builds are never
// retried; the first failure surfaces to the operator.
func buildFamily(cfg pipeline.Config, family pipeline.Family, stages []string, push bool) ([]util.BuildEntry, error) {
	var entries []util.BuildEntry
	for _, st := range stages {
		builder := docker.BuilderName(family.Name, st, cfg.RunID)
		if !cfg.DryRun {
			if err := createBuilder(builder); err != nil {
				return nil, err
			}
		}

		staged, err := dockerBuild(docker.BuildOptions{
			ContextRoot:  cfg.ContextRoot,
			Path:         family.Path,
			Family:       family.Name,
			VersionTag:   family.Version + cfg.StagingSuffix,
			Stage:        st,
			Registry:     cfg.RegistryPrefix,
			Platform:     cfg.Platform,
			Builder:      builder,
			CacheMode:    string(cfg.CacheMode),
			CacheVersion: family.Version,
			Push:         push,
			DryRun:       cfg.DryRun,
		})
		// Each stage's builder is released as soon as its build finishes,
		// whatever the outcome, so earlier builders never linger.
		if !cfg.DryRun {
			removeBuilder(builder)
		}
		if err != nil {
			return nil, err
		}
		fmt.Printf("Staged %s\n", staged.Ref)
		entries = append(entries, util.BuildEntry{Family: staged.Family, Stage: staged.Stage, Tag: staged.Ref})
	}
	return entries, nil
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().String("stage", "", "Build only this stage (default: all declared stages)")
	buildCmd.Flags().Bool("push", true, "Push staging tags to the registry (false loads locally)")
	buildCmd.Flags().Bool("dry-run", false, "Log the build commands without running them")
}
