// Package version reports build information.
package version

import "fmt"

// Set at build time with -ldflags "-X tokibot/pkg/version.Version=...".
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const appName = "tokibot"

// GetVersion returns the short version.
func GetVersion() string {
	return Version
}

// GetFullVersion returns a user-facing build string. Development builds
// include the commit and build time.
func GetFullVersion() string {
	if Version == "dev" {
		return fmt.Sprintf("%s/%s (commit: %s, built: %s)", appName, Version, GitCommit, BuildTime)
	}
	return fmt.Sprintf("%s/%s", appName, Version)
}
