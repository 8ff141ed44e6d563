// Package docker wraps the docker CLI surface the pipeline consumes:
// buildx builds with target stages, builder instance lifecycle, and
// ephemeral container runs for stage assertions.
package docker

import (
	"fmt"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/util"
)

// BuilderName derives the deterministic buildx builder name for one
// (family, stage) pair within one pipeline run. Scoping the builder per
// stage keeps build caches of differently-targeted builds of the same
// Dockerfile from contaminating each other.
func BuilderName(family, stage, runID string) string {
	if stage == "" {
		stage = "single"
	}
	return fmt.Sprintf("ecp-%s-%s-%s", family, stage, runID)
}

// CreateBuilder ensures a buildx builder with the given name exists.
// An existing builder is selected rather than recreated, so the call is
// idempotent within a run. Creation failure is fatal for the build: there
// is no fallback to the default builder, which would break cache isolation.
func CreateBuilder(name string) error {
	if _, err := util.RunOutput("docker", "buildx", "inspect", name); err == nil {
		return nil
	}
	if err := util.RunCommand("docker", "buildx", "create", "--name", name, "--driver", "docker-container"); err != nil {
		return fmt.Errorf("creating builder %s: %w", name, err)
	}
	return nil
}

// RemoveBuilder removes the builder. Best-effort cleanup: a builder that
// no longer exists is not an error.
func RemoveBuilder(name string) {
	_, _ = util.RunOutput("docker", "buildx", "rm", name)
}
