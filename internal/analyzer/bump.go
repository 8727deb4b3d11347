// Package analyzer derives the release bump from commit history using an
// ordered, first-match-wins rule table.
package analyzer

import (
	"fmt"
	"strings"
)

// BumpLevel is the magnitude of a semantic version increment.
// The numeric order is the total order Major > Minor > Patch > None.
type BumpLevel int

const (
	None BumpLevel = iota
	Patch
	Minor
	Major
)

// String returns the lowercase name of the level.
func (b BumpLevel) String() string {
	switch b {
	case Patch:
		return "patch"
	case Minor:
		return "minor"
	case Major:
		return "major"
	default:
		return "none"
	}
}

// ParseBumpLevel parses a configured release level. "false", "0" and the
// empty string are accepted as None so that `release: false` in YAML works
// after weak decoding.
func ParseBumpLevel(s string) (BumpLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "false", "0":
		return None, nil
	case "patch":
		return Patch, nil
	case "minor":
		return Minor, nil
	case "major":
		return Major, nil
	default:
		return None, fmt.Errorf("invalid release level %q (valid: none, patch, minor, major)", s)
	}
}

// Max returns the larger of two levels.
func Max(a, b BumpLevel) BumpLevel {
	if a > b {
		return a
	}
	return b
}
