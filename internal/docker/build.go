package docker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/util"
)

// BuildOptions describes one buildx invocation for one image family,
// optionally targeting a named Dockerfile stage.
type BuildOptions struct {
	// ContextRoot/Path is the build context; the Dockerfile must exist at
	// ContextRoot/Path/Dockerfile.
	ContextRoot string
	Path        string
	Family      string
	// VersionTag is the tag without the stage part, e.g. "8.3-abc123"
	// for a staging build or "8.3" for a plain one.
	VersionTag string
	// Stage, when set, is passed as the build target, restricting the
	// build to that stage's layers and dependencies.
	Stage    string
	Registry string
	Platform string
	Builder  string
	// CacheMode is "default", "disabled" or "enabled" (see pipeline.CacheMode).
	CacheMode string
	// CacheVersion is the stable technical version used to derive cache
	// sources when CacheMode is "enabled".
	CacheVersion string
	// Push pushes the result to the registry; otherwise it is loaded into
	// the local daemon.
	Push      bool
	DryRun    bool
	ExtraArgs []string
}

// StagingTag is the artifact record of one successful (or dry-run) build.
type StagingTag struct {
	Ref     string
	Family  string
	Stage   string
	Context string
	BuiltAt time.Time
}

// Build runs one buildx build and returns the staged artifact. A missing
// Dockerfile is fatal and non-retryable, and builds are never retried: a
// failed build signals a source or configuration defect that must surface
// to the operator.
func Build(opts BuildOptions) (*StagingTag, error) {
	contextDir := filepath.Join(opts.ContextRoot, opts.Path)
	dockerfile := filepath.Join(contextDir, "Dockerfile")
	if _, err := os.Stat(dockerfile); err != nil {
		return nil, fmt.Errorf("missing Dockerfile for family %s: %s", opts.Family, dockerfile)
	}

	tag := opts.VersionTag
	if opts.Stage != "" {
		tag = tag + "-" + opts.Stage
	}
	ref := fmt.Sprintf("%s/%s:%s", opts.Registry, opts.Family, tag)

	args := []string{"buildx", "build"}
	if opts.Builder != "" {
		args = append(args, "--builder", opts.Builder)
	}
	if opts.Platform != "" {
		args = append(args, "--platform", opts.Platform)
	}
	args = append(args, "-t", ref)
	if opts.Stage != "" {
		args = append(args, "--target", opts.Stage)
	}
	args = append(args, cacheArgs(opts)...)
	if opts.Push {
		args = append(args, "--push")
	} else {
		args = append(args, "--load")
	}
	args = append(args, opts.ExtraArgs...)
	args = append(args, contextDir)

	staged := &StagingTag{
		Ref:     ref,
		Family:  opts.Family,
		Stage:   opts.Stage,
		Context: contextDir,
		BuiltAt: time.Now(),
	}

	if opts.DryRun {
		fmt.Printf("DRY RUN: docker %s\n", strings.Join(args, " "))
		return staged, nil
	}

	if err := util.RunCommand("docker", args...); err != nil {
		return nil, fmt.Errorf("build failed for %s: %w", ref, err)
	}
	return staged, nil
}

// cacheArgs translates the cache mode into buildx flags. "enabled" reuses
// layers from the stable technical and latest tags of the same stage and
// exports inline cache so subsequent builds can reuse this one.
func cacheArgs(opts BuildOptions) []string {
	switch opts.CacheMode {
	case "disabled":
		return []string{"--no-cache"}
	case "enabled":
		stage := ""
		if opts.Stage != "" {
			stage = "-" + opts.Stage
		}
		current := fmt.Sprintf("%s/%s:%s%s", opts.Registry, opts.Family, opts.CacheVersion, stage)
		latest := fmt.Sprintf("%s/%s:latest%s", opts.Registry, opts.Family, stage)
		return []string{
			"--cache-from", "type=registry,ref=" + current,
			"--cache-from", "type=registry,ref=" + latest,
			"--cache-to", "type=inline",
		}
	}
	return nil
}
