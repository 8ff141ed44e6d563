package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/util"
)

func rollbackConfig() Config {
	return Config{
		RegistryPrefix: testPrefix,
		Families: []Family{
			phpFamily(),
			{Name: "database", Path: "database", Version: "mysql-8.0"},
		},
	}
}

// installRollbackFakes wires the manifest check and copy fns used by
// Rollback. existing lists the refs the registry knows.
func installRollbackFakes(t *testing.T, existing ...string) (*[]copyCall, map[string]error) {
	t.Helper()
	known := map[string]bool{}
	for _, ref := range existing {
		known[ref] = true
	}
	var copies []copyCall
	failCopy := map[string]error{}

	oldManifest, oldCopy, oldSleep := craneManifest, craneCopy, util.SleepFn
	craneManifest = func(ref string) ([]byte, error) {
		if known[ref] {
			return []byte(`{}`), nil
		}
		return nil, fmt.Errorf("MANIFEST_UNKNOWN: %s", ref)
	}
	craneCopy = func(src, dst string) error {
		copies = append(copies, copyCall{src, dst})
		return failCopy[dst]
	}
	util.SleepFn = func(time.Duration) {}
	t.Cleanup(func() {
		craneManifest, craneCopy, util.SleepFn = oldManifest, oldCopy, oldSleep
	})
	return &copies, failCopy
}

func TestRollback_MissingTargetAbortsBeforeAnyPush(t *testing.T) {
	copies, _ := installRollbackFakes(t) // nothing exists

	err := Rollback(rollbackConfig(), "9.9.9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aborting before any change")
	assert.Empty(t, *copies, "no push may be attempted for an unknown target")
}

func TestRollback_RepointsLatestPerStage(t *testing.T) {
	copies, _ := installRollbackFakes(t, testPrefix+"/php:1.0.5-prod")

	err := Rollback(rollbackConfig(), "1.0.5")
	require.NoError(t, err)

	var got []copyCall
	got = append(got, *copies...)
	assert.Contains(t, got, copyCall{testPrefix + "/php:1.0.5-prod", testPrefix + "/php:latest-prod"})
	assert.Contains(t, got, copyCall{testPrefix + "/php:1.0.5-dev", testPrefix + "/php:latest-dev"})
	assert.Contains(t, got, copyCall{testPrefix + "/php:1.0.5-test", testPrefix + "/php:latest-test"})
	assert.Contains(t, got, copyCall{testPrefix + "/database:1.0.5", testPrefix + "/database:latest"})
}

func TestRollback_FamiliesAreIndependent(t *testing.T) {
	copies, failCopy := installRollbackFakes(t, testPrefix+"/php:1.0.5-prod")
	failCopy[testPrefix+"/php:latest-dev"] = fmt.Errorf("denied")

	err := Rollback(rollbackConfig(), "1.0.5")
	require.Error(t, err, "a failed family is still reported")
	assert.Contains(t, err.Error(), "php")
	assert.NotContains(t, err.Error(), "database,")

	// database was still recovered despite the php failure.
	assert.Contains(t, *copies, copyCall{testPrefix + "/database:1.0.5", testPrefix + "/database:latest"})
}

func TestRollback_DryRun(t *testing.T) {
	copies, _ := installRollbackFakes(t, testPrefix+"/php:1.0.5-prod")

	cfg := rollbackConfig()
	cfg.DryRun = true
	require.NoError(t, Rollback(cfg, "1.0.5"))
	assert.Empty(t, *copies)
}
