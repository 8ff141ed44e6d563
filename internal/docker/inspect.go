package docker

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/util"
)

// docker run reserves these exit codes for its own failures (daemon
// unreachable, image unpullable, entrypoint not runnable). Anything else
// is the probe shell reporting on the tool itself.
const (
	dockerRunError      = 125
	dockerNotExecutable = 126
)

// ToolPresent runs a short-lived container from ref and checks whether the
// named tool resolves on PATH. A non-zero exit from the probe shell means
// the tool is absent; a docker-level exit code or any other failure
// (daemon down, image unpullable) is a real error, never a verdict.
func ToolPresent(ref, tool string) (bool, error) {
	out, err := util.RunOutput("docker", "run", "--rm", "--entrypoint", "sh", ref, "-c", "command -v "+tool)
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		switch exitErr.ExitCode() {
		case dockerRunError, dockerNotExecutable:
		default:
			return false, nil
		}
	}
	return false, fmt.Errorf("probing %s for %s: %w (%s)", ref, tool, err, strings.TrimSpace(out))
}

// ImageSize returns the size in bytes the local daemon reports for ref.
// The image must be present locally (built with --load, or pulled by an
// earlier assertion run).
func ImageSize(ref string) (int64, error) {
	out, err := util.RunOutput("docker", "image", "inspect", "--format", "{{.Size}}", ref)
	if err != nil {
		return 0, fmt.Errorf("inspecting %s: %w", ref, err)
	}
	size, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected size output for %s: %q", ref, out)
	}
	return size, nil
}

// Pull pulls ref into the local daemon.
func Pull(ref string) error {
	return util.RunCommand("docker", "pull", ref)
}
