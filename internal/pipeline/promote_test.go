package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/util"
)

type copyCall struct {
	src, dst string
}

// fakeCrane replaces the crane digest/copy functions with an in-memory
// tag→digest map so promotion can be exercised against a fixture registry.
type fakeCrane struct {
	digests   map[string]string
	copies    []copyCall
	failCopy  map[string]error
	failCount map[string]int
}

func installFakeCrane(t *testing.T, staged map[string]string) *fakeCrane {
	t.Helper()
	f := &fakeCrane{
		digests:   staged,
		failCopy:  map[string]error{},
		failCount: map[string]int{},
	}

	oldDigest, oldCopy, oldSleep := craneDigest, craneCopy, util.SleepFn
	craneDigest = func(ref string) (string, error) {
		if d, ok := f.digests[ref]; ok {
			return d, nil
		}
		return "", fmt.Errorf("MANIFEST_UNKNOWN: %s", ref)
	}
	craneCopy = func(src, dst string) error {
		f.copies = append(f.copies, copyCall{src, dst})
		if err, ok := f.failCopy[dst]; ok {
			f.failCount[dst]++
			return err
		}
		d, ok := f.digests[src]
		if !ok {
			return fmt.Errorf("MANIFEST_UNKNOWN: %s", src)
		}
		f.digests[dst] = d
		return nil
	}
	util.SleepFn = func(time.Duration) {}
	t.Cleanup(func() {
		craneDigest, craneCopy, util.SleepFn = oldDigest, oldCopy, oldSleep
	})
	return f
}

func promoteConfig(families ...Family) Config {
	return Config{
		RegistryPrefix: testPrefix,
		StagingSuffix:  "-abc123",
		ReleaseVersion: "v1.1.0",
		Families:       families,
	}
}

func TestPromote_ThreeTagsPerStage(t *testing.T) {
	php := phpFamily()
	fake := installFakeCrane(t, map[string]string{
		testPrefix + "/php:8.3-abc123-prod": "sha256:aaa",
		testPrefix + "/php:8.3-abc123-dev":  "sha256:bbb",
		testPrefix + "/php:8.3-abc123-test": "sha256:ccc",
	})

	results, err := Promote(promoteConfig(php))
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Sets, 3)

	// Every stable tag resolves to the staging digest: promotion is pure
	// re-tagging, no image content changes.
	for _, ref := range []string{"8.3-prod", "1.1.0-prod", "latest-prod"} {
		assert.Equal(t, "sha256:aaa", fake.digests[testPrefix+"/php:"+ref])
	}
	for _, ref := range []string{"8.3-dev", "1.1.0-dev", "latest-dev"} {
		assert.Equal(t, "sha256:bbb", fake.digests[testPrefix+"/php:"+ref])
	}
	for _, ref := range []string{"8.3-test", "1.1.0-test", "latest-test"} {
		assert.Equal(t, "sha256:ccc", fake.digests[testPrefix+"/php:"+ref])
	}

	require.NoError(t, VerifyPromotion(results[0].Sets))
}

func TestPromote_PushOrderWithinStage(t *testing.T) {
	php := phpFamily()
	php.Stages = php.Stages[:1] // prod only
	fake := installFakeCrane(t, map[string]string{
		testPrefix + "/php:8.3-abc123-prod": "sha256:aaa",
	})

	_, err := Promote(promoteConfig(php))
	require.NoError(t, err)

	var dsts []string
	for _, c := range fake.copies {
		dsts = append(dsts, c.dst)
	}
	assert.Equal(t, []string{
		testPrefix + "/php:8.3-prod",
		testPrefix + "/php:1.1.0-prod",
		testPrefix + "/php:latest-prod",
	}, dsts)
}

func TestPromote_MissingStagingArtifactIsFatal(t *testing.T) {
	fake := installFakeCrane(t, map[string]string{})

	_, err := Promote(promoteConfig(phpFamily()))
	require.Error(t, err)
	assert.Empty(t, fake.copies, "no tag may be pushed when the staging artifact is missing")
}

func TestPromote_AbortOnFirstFailedPush(t *testing.T) {
	php := phpFamily()
	php.Stages = php.Stages[:1]
	fake := installFakeCrane(t, map[string]string{
		testPrefix + "/php:8.3-abc123-prod": "sha256:aaa",
	})
	// Second tag in the set fails on every attempt.
	fake.failCopy[testPrefix+"/php:1.1.0-prod"] = fmt.Errorf("connection reset")

	results, err := Promote(promoteConfig(php))
	require.Error(t, err)
	require.Error(t, results[0].Err)

	// Partial state is surfaced loudly: the first tag was updated, the
	// failed and remaining tags were not.
	assert.Contains(t, results[0].Err.Error(), "partial promotion")
	assert.Contains(t, results[0].Err.Error(), testPrefix+"/php:8.3-prod")
	assert.Equal(t, "sha256:aaa", fake.digests[testPrefix+"/php:8.3-prod"])
	_, latestPushed := fake.digests[testPrefix+"/php:latest-prod"]
	assert.False(t, latestPushed, "latest must not be pushed after an earlier tag failed")
}

func TestPromote_PushRetriedWithBackoff(t *testing.T) {
	php := phpFamily()
	php.Stages = php.Stages[:1]
	fake := installFakeCrane(t, map[string]string{
		testPrefix + "/php:8.3-abc123-prod": "sha256:aaa",
	})
	fake.failCopy[testPrefix+"/php:1.1.0-prod"] = fmt.Errorf("i/o timeout")

	_, err := Promote(promoteConfig(php))
	require.Error(t, err)
	assert.Equal(t, pushAttempts, fake.failCount[testPrefix+"/php:1.1.0-prod"])
}

func TestPromote_FamiliesAreIndependent(t *testing.T) {
	php := phpFamily()
	db := Family{Name: "database", Path: "database", Version: "mysql-8.0"}
	// php staged artifacts are absent; database is fine.
	fake := installFakeCrane(t, map[string]string{
		testPrefix + "/database:mysql-8.0-abc123": "sha256:ddd",
	})

	results, err := Promote(promoteConfig(php, db))
	require.Error(t, err, "overall run fails when any family failed")
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, "sha256:ddd", fake.digests[testPrefix+"/database:latest"])
}

func TestPromote_Idempotent(t *testing.T) {
	php := phpFamily()
	fake := installFakeCrane(t, map[string]string{
		testPrefix + "/php:8.3-abc123-prod": "sha256:aaa",
		testPrefix + "/php:8.3-abc123-dev":  "sha256:bbb",
		testPrefix + "/php:8.3-abc123-test": "sha256:ccc",
	})

	_, err := Promote(promoteConfig(php))
	require.NoError(t, err)
	first := make(map[string]string, len(fake.digests))
	for k, v := range fake.digests {
		first[k] = v
	}

	_, err = Promote(promoteConfig(php))
	require.NoError(t, err)
	assert.Equal(t, first, fake.digests, "second run converges on the same tag→digest mapping")
}

func TestPromote_MirrorFailureIsWarningOnly(t *testing.T) {
	php := phpFamily()
	php.Stages = php.Stages[:1]
	fake := installFakeCrane(t, map[string]string{
		testPrefix + "/php:8.3-abc123-prod": "sha256:aaa",
	})
	fake.failCopy["docker.io/zairakai/php:latest-prod"] = fmt.Errorf("denied")

	cfg := promoteConfig(php)
	cfg.MirrorPrefix = "docker.io/zairakai"

	_, err := Promote(cfg)
	require.NoError(t, err, "mirror sync is best-effort")
	assert.Equal(t, "sha256:aaa", fake.digests["docker.io/zairakai/php:8.3-prod"])
	assert.Equal(t, "sha256:aaa", fake.digests["docker.io/zairakai/php:1.1.0-prod"])
}

func TestPromote_MalformedReleaseRejectedBeforeRegistryCalls(t *testing.T) {
	fake := installFakeCrane(t, map[string]string{})
	cfg := promoteConfig(phpFamily())
	cfg.ReleaseVersion = "release-1"

	_, err := Promote(cfg)
	require.Error(t, err)
	assert.Empty(t, fake.copies)
}

func TestPromote_DryRun(t *testing.T) {
	fake := installFakeCrane(t, map[string]string{})
	cfg := promoteConfig(phpFamily())
	cfg.DryRun = true

	_, err := Promote(cfg)
	require.NoError(t, err)
	assert.Empty(t, fake.copies)
}
