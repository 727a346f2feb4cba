// Package version provides build-time version information.
package version

import "fmt"

// These variables are set at build time using -ldflags
var (
	// Version is the semantic version
	Version = "0.1.0"

	// BuildTime is the UTC time when the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// Name is the application name used in logs and request headers.
const Name = "nest-selector"

// String returns a one-line description for startup logs.
func String() string {
	return fmt.Sprintf("%s v%s (commit %s, built %s)", Name, Version, GitCommit, BuildTime)
}

// UserAgent returns the User-Agent sent to the simulation service.
func UserAgent() string {
	return Name + "/" + Version
}
