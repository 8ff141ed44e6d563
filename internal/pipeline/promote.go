package pipeline

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/crane"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/util"
)

// Swappable for tests.
var (
	craneDigest = func(ref string) (string, error) {
		return crane.Digest(ref, crane.WithAuthFromKeychain(authn.DefaultKeychain))
	}
	craneCopy = func(src, dst string) error {
		return crane.Copy(src, dst, crane.WithAuthFromKeychain(authn.DefaultKeychain))
	}
)

const (
	pushAttempts  = 3
	pushBaseDelay = 2 * time.Second
)

// PromotionResult is the outcome for one family.
type PromotionResult struct {
	Family string
	Sets   []StableTagSet
	Err    error
}

// Promote republishes the staged artifacts of every configured family
// under their stable tag names. Families are independent: a failure in one
// is recorded and the next family is still attempted, but the run as a
// whole fails if any family failed. Re-running with the same staging
// artifacts converges on the same tag→digest mapping.
func Promote(cfg Config) ([]PromotionResult, error) {
	release, err := ParseVersion(cfg.ReleaseVersion)
	if err != nil {
		return nil, err
	}

	fmt.Printf("=== Promoting release %s (suffix %s) ===\n", release, cfg.StagingSuffix)

	results := make([]PromotionResult, 0, len(cfg.Families))
	failed := 0
	for _, f := range cfg.Families {
		sets, err := promoteFamily(cfg, f, release)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "Error: family %s not promoted: %v\n", f.Name, err)
		}
		results = append(results, PromotionResult{Family: f.Name, Sets: sets, Err: err})
	}

	fmt.Println("=== Promotion summary ===")
	for _, r := range results {
		status := "promoted"
		if r.Err != nil {
			status = "FAILED"
		}
		fmt.Printf("  %-12s %s\n", r.Family, status)
	}

	if failed > 0 {
		return results, fmt.Errorf("%d of %d families failed promotion", failed, len(cfg.Families))
	}
	return results, nil
}

// promoteFamily promotes every stage of one family. A family with multiple
// stages counts as promoted only when all stages succeed.
func promoteFamily(cfg Config, f Family, release Version) ([]StableTagSet, error) {
	var sets []StableTagSet
	for _, stage := range f.StageNames() {
		set, err := promoteStage(cfg, f, release, stage)
		if err != nil {
			return sets, err
		}
		sets = append(sets, *set)
	}
	if cfg.MirrorPrefix != "" && !cfg.DryRun {
		syncMirror(cfg, f, sets)
	}
	return sets, nil
}

// promoteStage moves one (family, stage) pair through the promotion
// lifecycle. Tag pushes are strictly ordered (technical, release, latest)
// and the first failed push aborts the set: the partial state is surfaced
// in the error rather than silently accepted.
func promoteStage(cfg Config, f Family, release Version, stage string) (*StableTagSet, error) {
	m := NewPromotion(f.Name, stage)
	stagingRef := f.StagingRef(cfg.RegistryPrefix, cfg.StagingSuffix, stage)

	if cfg.DryRun {
		set := NewStableTagSet(f, cfg.RegistryPrefix, release, stage)
		fmt.Printf("DRY RUN: would promote %s -> %s\n", stagingRef, strings.Join(set.Refs(), ", "))
		return &set, nil
	}

	// Promotion never fabricates an artifact: the staged image must be
	// resolvable before any stable tag is touched.
	digest, err := craneDigest(stagingRef)
	if err != nil {
		_ = m.To(StateFailed)
		return nil, fmt.Errorf("staging artifact %s not found: %w", stagingRef, err)
	}
	if err := m.To(StateValidated); err != nil {
		return nil, err
	}

	set := NewStableTagSet(f, cfg.RegistryPrefix, release, stage)
	set.Digest = digest
	if err := m.To(StatePromoting); err != nil {
		return nil, err
	}

	var pushed []string
	for _, ref := range set.Refs() {
		fmt.Printf("  %s -> %s\n", stagingRef, ref)
		err := util.Retry(pushAttempts, pushBaseDelay, "push "+ref, func() error {
			return craneCopy(stagingRef, ref)
		})
		if err != nil {
			_ = m.To(StateFailed)
			if len(pushed) > 0 {
				return nil, fmt.Errorf("partial promotion of %s/%s: pushed [%s] before %s failed: %w",
					f.Name, displayStage(stage), strings.Join(pushed, ", "), ref, err)
			}
			return nil, fmt.Errorf("promoting %s/%s: %w", f.Name, displayStage(stage), err)
		}
		pushed = append(pushed, ref)
	}

	if err := m.To(StatePromoted); err != nil {
		return nil, err
	}
	return &set, nil
}

// syncMirror copies the promoted stable tags to the mirror registry.
// Best-effort: mirror failures are warnings and never change the outcome.
func syncMirror(cfg Config, f Family, sets []StableTagSet) {
	for _, set := range sets {
		for _, ref := range set.Refs() {
			mirrorRef := rewritePrefix(ref, cfg.RegistryPrefix, cfg.MirrorPrefix)
			err := util.Retry(pushAttempts, pushBaseDelay, "mirror "+mirrorRef, func() error {
				return craneCopy(ref, mirrorRef)
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: mirror sync failed for %s: %v\n", mirrorRef, err)
			}
		}
	}
}

func rewritePrefix(ref, from, to string) string {
	if rest, ok := strings.CutPrefix(ref, from+"/"); ok {
		return to + "/" + rest
	}
	return ref
}

// VerifyPromotion re-resolves every tag of the given sets and reports any
// tag whose digest differs from the staging digest. Used by tests and by
// operators to confirm a promotion converged.
func VerifyPromotion(sets []StableTagSet) error {
	var errs []error
	for _, set := range sets {
		for _, ref := range set.Refs() {
			digest, err := craneDigest(ref)
			if err != nil {
				errs = append(errs, fmt.Errorf("resolving %s: %w", ref, err))
				continue
			}
			if set.Digest != "" && digest != set.Digest {
				errs = append(errs, fmt.Errorf("%s points at %s, want %s", ref, digest, set.Digest))
			}
		}
	}
	return errors.Join(errs...)
}
