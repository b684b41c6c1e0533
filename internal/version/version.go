// Package version provides build-time version information.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X plant-rover/internal/version.Version=..."
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the build information on one line.
func String() string {
	return fmt.Sprintf("plant-rover %s (commit %s, built %s, %s)", Version, GitCommit, BuildTime, runtime.Version())
}
