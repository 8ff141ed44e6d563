package pipeline

import (
	"fmt"
	"os"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/crane"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/docker"
	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/util"
)

// Swappable for tests.
var (
	craneManifest = func(ref string) ([]byte, error) {
		return crane.Manifest(ref, crane.WithAuthFromKeychain(authn.DefaultKeychain))
	}
	toolPresent = docker.ToolPresent
	imageSize   = docker.ImageSize
	pullImage   = docker.Pull
)

// ValidationReport collects the non-fatal findings of one family
// validation. Warnings never block promotion.
type ValidationReport struct {
	Family   string
	Warnings []string
}

func (r *ValidationReport) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateFamily checks the staged artifacts of one family before
// promotion. Every declared stage must have a manifest in the registry; a
// missing stage fails immediately, naming the stage, without running any
// runtime assertion. Tool assertions run in ephemeral containers; size
// ordering across stages (prod ≤ dev ≤ test) is checked last and only
// warns, since build nondeterminism can invert it without a real defect.
func ValidateFamily(cfg Config, f Family) (*ValidationReport, error) {
	report := &ValidationReport{Family: f.Name}

	fmt.Printf("=== Validating %s (suffix %s) ===\n", f.Name, cfg.StagingSuffix)

	for _, stage := range f.StageNames() {
		ref := f.StagingRef(cfg.RegistryPrefix, cfg.StagingSuffix, stage)
		if _, err := craneManifest(ref); err != nil {
			name := stage
			if name == "" {
				name = "single"
			}
			return report, fmt.Errorf("family %s: stage %s missing: no manifest for %s: %w", f.Name, name, ref, err)
		}
		fmt.Printf("  stage %-8s manifest ok\n", displayStage(stage))
	}

	for _, stage := range f.Stages {
		ref := f.StagingRef(cfg.RegistryPrefix, cfg.StagingSuffix, stage.Name)
		// Runtime assertions need the image locally; push-mode builds
		// leave nothing in the daemon.
		err := util.Retry(pushAttempts, pushBaseDelay, "pull "+ref, func() error {
			return pullImage(ref)
		})
		if err != nil {
			return report, fmt.Errorf("family %s: pulling %s: %w", f.Name, ref, err)
		}
		if err := assertStageTools(ref, stage, report); err != nil {
			return report, fmt.Errorf("family %s: %w", f.Name, err)
		}
	}

	checkSizeOrdering(cfg, f, report)

	for _, w := range report.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	fmt.Printf("=== %s validated (%d warnings) ===\n", f.Name, len(report.Warnings))
	return report, nil
}

func assertStageTools(ref string, stage Stage, report *ValidationReport) error {
	for _, tool := range stage.Require {
		present, err := toolPresent(ref, tool)
		if err != nil {
			return err
		}
		if !present {
			return fmt.Errorf("stage %s: required tool %s is missing in %s", stage.Name, tool, ref)
		}
	}
	for _, tool := range stage.Forbid {
		present, err := toolPresent(ref, tool)
		if err != nil {
			return err
		}
		if present {
			return fmt.Errorf("stage %s: forbidden tool %s is present in %s", stage.Name, tool, ref)
		}
	}
	for _, tool := range stage.Warn {
		present, err := toolPresent(ref, tool)
		if err != nil {
			return err
		}
		if present {
			report.warnf("stage %s: %s is present in %s (discouraged)", stage.Name, tool, ref)
		}
	}
	return nil
}

// checkSizeOrdering verifies prod ≤ dev ≤ test in declared stage order.
func checkSizeOrdering(cfg Config, f Family, report *ValidationReport) {
	if len(f.Stages) < 2 {
		return
	}
	var (
		prevSize  int64 = -1
		prevStage string
	)
	for _, stage := range f.Stages {
		ref := f.StagingRef(cfg.RegistryPrefix, cfg.StagingSuffix, stage.Name)
		size, err := imageSize(ref)
		if err != nil {
			report.warnf("size check skipped for %s: %v", ref, err)
			return
		}
		fmt.Printf("  stage %-8s size %d bytes\n", stage.Name, size)
		if prevSize >= 0 && size < prevSize {
			report.warnf("size ordering violated for %s: %s (%d) < %s (%d)",
				f.Name, stage.Name, size, prevStage, prevSize)
		}
		prevSize, prevStage = size, stage.Name
	}
}

func displayStage(stage string) string {
	if stage == "" {
		return "single"
	}
	return stage
}
