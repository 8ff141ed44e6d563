package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion_Full(t *testing.T) {
	v, err := ParseVersion("v1.2.3")
	require.NoError(t, err)
	assert.Equal(t, 1, v.Major)
	assert.Equal(t, 2, v.Minor)
	assert.Equal(t, 3, v.Patch)
	assert.True(t, v.HasPatch)
	assert.Equal(t, "1.2.3", v.Full())
	assert.Equal(t, "1.2", v.MajorMinor())
}

func TestParseVersion_NoPrefix(t *testing.T) {
	v, err := ParseVersion("2.10.0")
	require.NoError(t, err)
	assert.Equal(t, "2.10.0", v.Full())
}

func TestParseVersion_LenientPatch(t *testing.T) {
	// "1.2" is accepted; the source format is lenient about the patch
	// component and Full() keeps the two-component form.
	v, err := ParseVersion("1.2")
	require.NoError(t, err)
	assert.False(t, v.HasPatch)
	assert.Equal(t, "1.2", v.Full())
	assert.Equal(t, "1.2", v.MajorMinor())
	assert.Equal(t, 1, v.Major)
}

func TestParseVersion_Malformed(t *testing.T) {
	for _, s := range []string{"", "v", "1", "1.x", "1.2.3.4", "a.b.c", "1..3", "-1.2.3", "1.-2"} {
		_, err := ParseVersion(s)
		assert.Error(t, err, "input %q", s)
	}
}
