package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrefix = "registry.example.com/zairakai/docker-ecosystem"

func phpFamily() Family {
	return Family{
		Name: "php", Path: "php", Version: "8.3",
		Stages: []Stage{
			{Name: "prod", Forbid: []string{"xdebug"}},
			{Name: "dev", Require: []string{"xdebug"}},
			{Name: "test", Require: []string{"phpunit"}},
		},
	}
}

func TestStagingRef(t *testing.T) {
	f := phpFamily()
	assert.Equal(t, testPrefix+"/php:8.3-abc123-prod", f.StagingRef(testPrefix, "-abc123", "prod"))

	single := Family{Name: "database", Path: "database", Version: "mysql-8.0"}
	assert.Equal(t, testPrefix+"/database:mysql-8.0-abc123", single.StagingRef(testPrefix, "-abc123", ""))
}

func TestStagingTags(t *testing.T) {
	f := phpFamily()
	assert.Equal(t, []string{"8.3-abc123-prod", "8.3-abc123-dev", "8.3-abc123-test"}, f.StagingTags("-abc123"))

	single := Family{Name: "web", Version: "nginx-1.27"}
	assert.Equal(t, []string{"nginx-1.27-abc123"}, single.StagingTags("-abc123"))
}

func TestStageNames_SingleStage(t *testing.T) {
	single := Family{Name: "services", Version: "1.0"}
	assert.Equal(t, []string{""}, single.StageNames())
}

func TestNewStableTagSet(t *testing.T) {
	f := phpFamily()
	release, err := ParseVersion("v1.1.0")
	require.NoError(t, err)

	set := NewStableTagSet(f, testPrefix, release, "prod")
	assert.Equal(t, []string{
		testPrefix + "/php:8.3-prod",
		testPrefix + "/php:1.1.0-prod",
		testPrefix + "/php:latest-prod",
	}, set.Refs())
}

func TestNewStableTagSet_SingleStage(t *testing.T) {
	f := Family{Name: "database", Version: "mysql-8.0"}
	release, err := ParseVersion("v1.1.0")
	require.NoError(t, err)

	set := NewStableTagSet(f, testPrefix, release, "")
	assert.Equal(t, []string{
		testPrefix + "/database:mysql-8.0",
		testPrefix + "/database:1.1.0",
		testPrefix + "/database:latest",
	}, set.Refs())
}

func TestStageByName(t *testing.T) {
	f := phpFamily()
	require.NotNil(t, f.StageByName("dev"))
	assert.Equal(t, []string{"xdebug"}, f.StageByName("dev").Require)
	assert.Nil(t, f.StageByName("qa"))
	assert.Nil(t, f.StageByName(""))
}
