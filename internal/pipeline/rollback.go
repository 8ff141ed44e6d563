package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/util"
)

// Rollback re-points the stable latest tags of every family back to a
// previously promoted historical tag. It never touches staging tags and is
// only ever invoked manually by an operator.
//
// Unlike promotion, rollback favors maximum recovery: each family is
// independent, and a failure on one is reported but does not stop the
// others. The target tag is verified on a representative family before any
// tag is modified, so a mistyped target aborts with nothing changed.
func Rollback(cfg Config, target string) error {
	if len(cfg.Families) == 0 {
		return fmt.Errorf("no image families configured")
	}

	fmt.Printf("=== Rolling back latest to %s ===\n", target)

	rep := cfg.Families[0]
	repRef := rep.Ref(cfg.RegistryPrefix, target, rep.StageNames()[0])
	if _, err := craneManifest(repRef); err != nil {
		return fmt.Errorf("target tag %s not found (checked %s), aborting before any change: %w", target, repRef, err)
	}

	if cfg.DryRun {
		fmt.Printf("DRY RUN: target %s verified, no tags changed\n", target)
		return nil
	}

	var failures []string
	for _, f := range cfg.Families {
		if err := rollbackFamily(cfg, f, target); err != nil {
			failures = append(failures, f.Name)
			fmt.Fprintf(os.Stderr, "Error: rollback of %s failed: %v\n", f.Name, err)
			continue
		}
		fmt.Printf("  %-12s rolled back\n", f.Name)
	}

	if len(failures) > 0 {
		return fmt.Errorf("rollback incomplete: %s failed (others recovered)", strings.Join(failures, ", "))
	}
	fmt.Println("=== Rollback complete ===")
	return nil
}

func rollbackFamily(cfg Config, f Family, target string) error {
	for _, stage := range f.StageNames() {
		src := f.Ref(cfg.RegistryPrefix, target, stage)
		dst := f.Ref(cfg.RegistryPrefix, "latest", stage)
		fmt.Printf("  %s -> %s\n", src, dst)
		err := util.Retry(pushAttempts, pushBaseDelay, "rollback "+dst, func() error {
			return craneCopy(src, dst)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
