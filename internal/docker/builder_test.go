package docker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/util"
)

func TestBuilderName(t *testing.T) {
	assert.Equal(t, "ecp-php-prod-run42", BuilderName("php", "prod", "run42"))
	assert.Equal(t, "ecp-database-single-run42", BuilderName("database", "", "run42"))
	// Deterministic: same inputs, same name.
	assert.Equal(t, BuilderName("php", "dev", "run42"), BuilderName("php", "dev", "run42"))
}

func TestCreateBuilder_ExistingIsReused(t *testing.T) {
	var created [][]string
	oldOut, oldRun := util.RunOutputFn, util.RunCommandFn
	util.RunOutputFn = func(name string, args ...string) (string, error) {
		return "Name: ecp-php-prod-run42", nil // inspect succeeds
	}
	util.RunCommandFn = func(name string, args ...string) error {
		created = append(created, append([]string{name}, args...))
		return nil
	}
	t.Cleanup(func() { util.RunOutputFn, util.RunCommandFn = oldOut, oldRun })

	require.NoError(t, CreateBuilder("ecp-php-prod-run42"))
	assert.Empty(t, created, "existing builder must be selected, not recreated")
}

func TestCreateBuilder_CreatesWhenMissing(t *testing.T) {
	var created [][]string
	oldOut, oldRun := util.RunOutputFn, util.RunCommandFn
	util.RunOutputFn = func(name string, args ...string) (string, error) {
		return "", fmt.Errorf("no builder found")
	}
	util.RunCommandFn = func(name string, args ...string) error {
		created = append(created, append([]string{name}, args...))
		return nil
	}
	t.Cleanup(func() { util.RunOutputFn, util.RunCommandFn = oldOut, oldRun })

	require.NoError(t, CreateBuilder("ecp-php-prod-run42"))
	require.Len(t, created, 1)
	assert.Equal(t, []string{"docker", "buildx", "create", "--name", "ecp-php-prod-run42", "--driver", "docker-container"}, created[0])
}

func TestCreateBuilder_CreationFailureIsFatal(t *testing.T) {
	oldOut, oldRun := util.RunOutputFn, util.RunCommandFn
	util.RunOutputFn = func(name string, args ...string) (string, error) {
		return "", fmt.Errorf("no builder found")
	}
	util.RunCommandFn = func(name string, args ...string) error {
		return fmt.Errorf("cannot connect to the Docker daemon")
	}
	t.Cleanup(func() { util.RunOutputFn, util.RunCommandFn = oldOut, oldRun })

	err := CreateBuilder("ecp-php-prod-run42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating builder ecp-php-prod-run42")
}

func TestRemoveBuilder_BestEffort(t *testing.T) {
	old := util.RunOutputFn
	util.RunOutputFn = func(name string, args ...string) (string, error) {
		return "", fmt.Errorf("no such builder")
	}
	t.Cleanup(func() { util.RunOutputFn = old })

	// Must not panic or surface the not-found condition.
	RemoveBuilder("ecp-php-prod-run42")
}
