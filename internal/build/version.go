// Package build holds version information stamped in at link time.
package build

import (
	"fmt"
	"runtime"
)

var (
	// Set via -ldflags "-X github.com/ariel-frischer/shipver/internal/build.Version=..."
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// IsDevBuild returns true if running a development build (not a release).
func IsDevBuild() bool {
	return Version == "dev"
}

// Info returns a one-line description of the binary.
func Info() string {
	return fmt.Sprintf("shipver %s (commit %s, built %s, %s/%s)", Version, Commit, BuildDate, runtime.GOOS, runtime.GOARCH)
}
