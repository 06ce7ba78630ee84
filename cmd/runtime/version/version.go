// Package version reports the build version injected with -ldflags.
package version

import "fmt"

var (
	gitCommit = "unknown"
	buildDate = "unknown"
	gitTag    = "dev"
)

// Get returns the version string printed by --version.
func Get() string {
	return fmt.Sprintf("%s/%s built at %s", gitTag, gitCommit, buildDate)
}
