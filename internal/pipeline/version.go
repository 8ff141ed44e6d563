package pipeline

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed release version. The "v" prefix is accepted and
// stripped, and the patch component is optional ("1.2" is valid and keeps
// Full() == "1.2"). Non-numeric components are rejected before any
// registry call is made.
type Version struct {
	Major    int
	Minor    int
	Patch    int
	HasPatch bool
}

// ParseVersion parses strings like "v1.2.3", "1.2.3" or "1.2".
func ParseVersion(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	trimmed := strings.TrimPrefix(raw, "v")
	if trimmed == raw {
		trimmed = strings.TrimPrefix(raw, "V")
	}
	if trimmed == "" {
		return Version{}, fmt.Errorf("empty release version")
	}

	parts := strings.Split(trimmed, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Version{}, fmt.Errorf("malformed release version %q: want major.minor[.patch]", s)
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || p == "" || n < 0 {
			return Version{}, fmt.Errorf("malformed release version %q: component %q is not a number", s, p)
		}
		nums[i] = n
	}

	v := Version{Major: nums[0], Minor: nums[1]}
	if len(nums) == 3 {
		v.Patch = nums[2]
		v.HasPatch = true
	}
	return v, nil
}

// Full returns the full version string without the "v" prefix,
// e.g. "1.2.3", or "1.2" when no patch component was supplied.
func (v Version) Full() string {
	if v.HasPatch {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	return v.MajorMinor()
}

// MajorMinor returns "major.minor", e.g. "1.2".
func (v Version) MajorMinor() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

func (v Version) String() string {
	return v.Full()
}
