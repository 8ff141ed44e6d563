package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildResult_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	entries := []BuildEntry{
		{Family: "php", Stage: "prod", Tag: "registry.example.com/php:8.3-abc123-prod"},
		{Family: "php", Stage: "dev", Tag: "registry.example.com/php:8.3-abc123-dev"},
		{Family: "database", Tag: "registry.example.com/database:mysql-8.0-abc123"},
	}
	require.NoError(t, WriteBuildResult(dir, entries))

	res, err := ReadBuildResult(dir)
	require.NoError(t, err)
	assert.Equal(t, entries, res.Builds)
}

func TestBuildResult_TagFor(t *testing.T) {
	res := &BuildResult{Builds: []BuildEntry{
		{Family: "php", Stage: "prod", Tag: "a"},
		{Family: "database", Tag: "b"},
	}}

	tag, err := res.TagFor("php", "prod")
	require.NoError(t, err)
	assert.Equal(t, "a", tag)

	tag, err = res.TagFor("database", "")
	require.NoError(t, err)
	assert.Equal(t, "b", tag)

	_, err = res.TagFor("php", "test")
	assert.Error(t, err)
}

func TestWriteBuildResult_NoEntriesWritesNothing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteBuildResult(dir, nil))

	_, err := ReadBuildResult(dir)
	assert.Error(t, err, "no file expected for an empty build")
}

func TestReadBuildResult_Missing(t *testing.T) {
	_, err := ReadBuildResult(t.TempDir())
	assert.Error(t, err)
}
