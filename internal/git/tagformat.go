package git

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// VersionPlaceholder is substituted with the bare version in tag formats.
const VersionPlaceholder = "{{VERSION}}"

// TagFormat renders and recognizes release tags such as "v1.2.3".
type TagFormat struct {
	prefix string
	suffix string
}

// ParseTagFormat validates a tag template. It must contain the version
// placeholder exactly once.
func ParseTagFormat(format string) (TagFormat, error) {
	if n := strings.Count(format, VersionPlaceholder); n != 1 {
		return TagFormat{}, fmt.Errorf("tag format %q must contain %s exactly once (found %d)", format, VersionPlaceholder, n)
	}
	prefix, suffix, _ := strings.Cut(format, VersionPlaceholder)
	if strings.ContainsAny(prefix+suffix, " ~^:?*[\\") {
		return TagFormat{}, fmt.Errorf("tag format %q contains characters not allowed in git refs", format)
	}
	return TagFormat{prefix: prefix, suffix: suffix}, nil
}

// MustParseTagFormat is like ParseTagFormat but panics on error.
func MustParseTagFormat(format string) TagFormat {
	f, err := ParseTagFormat(format)
	if err != nil {
		panic(err)
	}
	return f
}

// Render returns the tag name for version.
func (f TagFormat) Render(v *semver.Version) string {
	return f.prefix + v.String() + f.suffix
}

// Parse extracts the version from a tag name. Tags that do not follow the
// format or carry an invalid version return false.
func (f TagFormat) Parse(tag string) (*semver.Version, bool) {
	if !strings.HasPrefix(tag, f.prefix) || !strings.HasSuffix(tag, f.suffix) {
		return nil, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(tag, f.prefix), f.suffix)
	if raw == "" {
		return nil, false
	}
	v, err := semver.StrictNewVersion(raw)
	if err != nil {
		return nil, false
	}
	return v, true
}

// String returns the template form.
func (f TagFormat) String() string {
	return f.prefix + VersionPlaceholder + f.suffix
}
