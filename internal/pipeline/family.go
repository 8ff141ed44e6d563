package pipeline

import "fmt"

// Stage is one named Dockerfile build target within a family, together
// with the runtime assertions the integrity validator enforces on it.
type Stage struct {
	Name string `yaml:"name"`
	// Require lists tools that must be installed in the stage image.
	Require []string `yaml:"require,omitempty"`
	// Forbid lists tools whose presence fails validation.
	Forbid []string `yaml:"forbid,omitempty"`
	// Warn lists tools whose presence is discouraged but tolerated
	// (e.g. a package manager shipped in a production image).
	Warn []string `yaml:"warn,omitempty"`
}

// Family is one logical product line: a build context plus the ordered
// list of stages it declares. Immutable once loaded.
type Family struct {
	Name    string  `yaml:"name"`
	Path    string  `yaml:"path"`
	Version string  `yaml:"version"`
	Stages  []Stage `yaml:"stages,omitempty"`
}

// StageNames returns the declared stage names, or a single empty name for
// single-stage families so callers can range uniformly.
func (f Family) StageNames() []string {
	if len(f.Stages) == 0 {
		return []string{""}
	}
	names := make([]string, len(f.Stages))
	for i, s := range f.Stages {
		names[i] = s.Name
	}
	return names
}

// StageByName returns the declared stage, or nil for unknown/empty names.
func (f Family) StageByName(name string) *Stage {
	for i := range f.Stages {
		if f.Stages[i].Name == name {
			return &f.Stages[i]
		}
	}
	return nil
}

// Ref builds a full image reference under prefix: prefix/name:tag[-stage].
func (f Family) Ref(prefix, tag, stage string) string {
	if stage != "" {
		tag = tag + "-" + stage
	}
	return fmt.Sprintf("%s/%s:%s", prefix, f.Name, tag)
}

// StagingRef is the commit-scoped staging reference for one stage,
// e.g. prefix/php:8.3-abc123-prod for suffix "-abc123".
func (f Family) StagingRef(prefix, suffix, stage string) string {
	return f.Ref(prefix, f.Version+suffix, stage)
}

// StagingTags returns the staging tag names (without repository) the family
// produces for one suffix, one per stage. The garbage collector deletes
// exactly these names, which is what guarantees it never touches tags of
// another run or the stable namespace.
func (f Family) StagingTags(suffix string) []string {
	var tags []string
	for _, stage := range f.StageNames() {
		tag := f.Version + suffix
		if stage != "" {
			tag = tag + "-" + stage
		}
		tags = append(tags, tag)
	}
	return tags
}

// StableTagSet is the set of stable references produced for one
// (family, stage) pair during promotion. All three must end up pointing at
// the digest of the staging artifact.
type StableTagSet struct {
	Family string
	Stage  string
	// Technical, Release and Latest are full references, in push order:
	// the most specific tag is pushed first so a partial failure leaves
	// the most-specific tag most likely consistent with intent.
	Technical string
	Release   string
	Latest    string
	// Digest of the staging artifact the set was promoted from.
	Digest string
}

// Refs returns the references in mandatory push order.
func (s StableTagSet) Refs() []string {
	return []string{s.Technical, s.Release, s.Latest}
}

// NewStableTagSet computes the three stable references for one stage of a
// family under the given release version.
func NewStableTagSet(f Family, prefix string, release Version, stage string) StableTagSet {
	return StableTagSet{
		Family:    f.Name,
		Stage:     stage,
		Technical: f.Ref(prefix, f.Version, stage),
		Release:   f.Ref(prefix, release.Full(), stage),
		Latest:    f.Ref(prefix, "latest", stage),
	}
}
