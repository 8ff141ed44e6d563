package util

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const BuildResultFilename = "build_result.json"

// BuildResult records the staging tags produced by one build invocation.
// It is written next to the build context and consumed by the pipeline
// driver and by CI jobs that need the exact staged references.
type BuildResult struct {
	Builds []BuildEntry `json:"builds"`
}

type BuildEntry struct {
	Family string `json:"family"`
	Stage  string `json:"stage,omitempty"`
	Tag    string `json:"tag"`
}

// ReadBuildResult reads build_result.json from the given directory (or cwd if empty).
func ReadBuildResult(dir string) (*BuildResult, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, err
		}
	}
	path := filepath.Join(dir, BuildResultFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var res BuildResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// WriteBuildResult writes build_result.json to the given directory (or cwd if empty).
func WriteBuildResult(dir string, entries []BuildEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return err
		}
	}
	path := filepath.Join(dir, BuildResultFilename)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", BuildResultFilename, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Error closing %s: %v\n", BuildResultFilename, closeErr)
		}
	}()
	if err := json.NewEncoder(f).Encode(BuildResult{Builds: entries}); err != nil {
		return fmt.Errorf("error writing %s: %w", BuildResultFilename, err)
	}
	return nil
}

// TagFor returns the staged tag recorded for the given family and stage.
func (r *BuildResult) TagFor(family, stage string) (string, error) {
	for _, b := range r.Builds {
		if b.Family == family && b.Stage == stage {
			return b.Tag, nil
		}
	}
	return "", fmt.Errorf("no build recorded for %s stage %q", family, stage)
}
