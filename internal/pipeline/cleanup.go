package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/registry"
	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/util"
)

// retryAPI applies the standard bounded backoff to one registry API call.
// A not-found answer is definitive and surfaces immediately: only
// transport-level failures are worth retrying.
func retryAPI(op string, fn func() error) error {
	var last error
	err := util.Retry(pushAttempts, pushBaseDelay, op, func() error {
		last = fn()
		if errors.Is(last, registry.ErrNotFound) {
			return nil
		}
		return last
	})
	if err != nil {
		return err
	}
	return last
}

// CleanupResult reports what the staging garbage collector did.
type CleanupResult struct {
	Deleted   int
	Skipped   int
	Dangling  int
	TotalSize int64
}

// CleanupStaging deletes the commit-scoped staging tags of one pipeline
// run and sweeps dangling manifests. Tag names are constructed exactly
// from the family catalog, so tags of other runs and the stable namespace
// are never candidates. A tag the registry no longer has counts as
// skipped, not as an error; only API/transport failures surface.
func CleanupStaging(ctx context.Context, client registry.Client, cfg Config) (CleanupResult, error) {
	var res CleanupResult

	fmt.Printf("=== Cleaning staging tags (suffix %s) ===\n", cfg.StagingSuffix)

	var repos []registry.Repository
	err := retryAPI("list repositories", func() error {
		var err error
		repos, err = client.Repositories(ctx)
		return err
	})
	if err != nil {
		return res, err
	}
	byName := make(map[string]registry.Repository, len(repos))
	for _, r := range repos {
		byName[r.Name] = r
	}

	var errs []error
	for _, f := range cfg.Families {
		repo, ok := byName[f.Name]
		if !ok {
			// Family never pushed; nothing staged to delete.
			res.Skipped += len(f.StagingTags(cfg.StagingSuffix))
			continue
		}
		for _, tag := range f.StagingTags(cfg.StagingSuffix) {
			err := retryAPI("delete tag "+tag, func() error {
				return client.DeleteTag(ctx, repo.ID, tag)
			})
			switch {
			case err == nil:
				fmt.Printf("  deleted %s:%s\n", f.Name, tag)
				res.Deleted++
			case errors.Is(err, registry.ErrNotFound):
				res.Skipped++
			default:
				errs = append(errs, fmt.Errorf("deleting %s:%s: %w", f.Name, tag, err))
			}
		}
	}

	for _, repo := range repos {
		size, dangling, err := sweepRepository(ctx, client, repo)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		res.TotalSize += size
		res.Dangling += dangling
	}

	fmt.Printf("=== Cleanup done: %d deleted, %d skipped, %d dangling manifests removed ===\n",
		res.Deleted, res.Skipped, res.Dangling)
	fmt.Printf("Total registry size: %s\n", formatBytes(res.TotalSize))

	return res, errors.Join(errs...)
}

// sweepRepository deletes manifests no tag references and totals the
// repository's tagged size. The size figure is informational only.
func sweepRepository(ctx context.Context, client registry.Client, repo registry.Repository) (int64, int, error) {
	var tags []registry.Tag
	err := retryAPI("list tags of "+repo.Name, func() error {
		var err error
		tags, err = client.Tags(ctx, repo.ID)
		return err
	})
	if err != nil {
		return 0, 0, fmt.Errorf("repository %s: %w", repo.Name, err)
	}
	var size int64
	tagged := make(map[string]bool, len(tags))
	for _, t := range tags {
		size += t.TotalSize
		tagged[t.Digest] = true
	}

	var manifests []registry.Manifest
	err = retryAPI("list manifests of "+repo.Name, func() error {
		var err error
		manifests, err = client.Manifests(ctx, repo.ID)
		return err
	})
	if err != nil {
		return size, 0, fmt.Errorf("repository %s: %w", repo.Name, err)
	}

	dangling := 0
	for _, m := range manifests {
		if tagged[m.Digest] {
			continue
		}
		err := retryAPI("delete manifest "+m.Digest, func() error {
			return client.DeleteManifest(ctx, repo.ID, m.Digest)
		})
		switch {
		case err == nil:
			fmt.Printf("  deleted dangling manifest %s@%s\n", repo.Name, m.Digest)
			dangling++
		case errors.Is(err, registry.ErrNotFound):
			// Already gone.
		default:
			fmt.Fprintf(os.Stderr, "Warning: deleting dangling manifest %s@%s: %v\n", repo.Name, m.Digest, err)
		}
	}
	return size, dangling, nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
