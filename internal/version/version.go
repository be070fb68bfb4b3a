// Package version holds build-time version information for the aicentral
// binaries. The variables are injected at link time via -ldflags:
//
// -X github.com/IAprender-dev/Iaprender-sub006/internal/version.Version=v0.1.0
// -X github.com/IAprender-dev/Iaprender-sub006/internal/version.Commit=abc1234
// -X github.com/IAprender-dev/Iaprender-sub006/internal/version.Date=2026-08-30T00:00:00Z
//
// so local builds without ldflags still produce sensible output.
package version

import "fmt"

// Set at link time; defaults cover plain `go build`.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns a single-line human-readable version string.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}

// Short returns just the version tag, e.g. "v0.1.0" or "dev".
func Short() string {
	return Version
}
