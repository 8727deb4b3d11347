package analyzer

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// DefaultInitialVersion is used when no release tag exists yet.
const DefaultInitialVersion = "1.0.0"

// NextVersion applies bump to last. With no previous release the initial
// version is returned as-is, whatever the bump.
func NextVersion(last *semver.Version, bump BumpLevel, initial string) (*semver.Version, error) {
	if bump == None {
		return nil, fmt.Errorf("no release level to apply")
	}
	if last == nil {
		if initial == "" {
			initial = DefaultInitialVersion
		}
		v, err := semver.StrictNewVersion(initial)
		if err != nil {
			return nil, fmt.Errorf("parsing initial version %q: %w", initial, err)
		}
		return v, nil
	}

	var next semver.Version
	switch bump {
	case Major:
		next = last.IncMajor()
	case Minor:
		next = last.IncMinor()
	default:
		next = last.IncPatch()
	}
	return &next, nil
}
