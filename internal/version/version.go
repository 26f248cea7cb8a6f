package version

import "fmt"

// These variables are set at build time via
// -ldflags "-X github.com/aidroute/deployer/internal/version.Release=... -X ...GitCommit=...".
var (
	// Release is the release version (e.g., "v1.0.0").
	Release = "dev"
	// GitCommit is the short git commit hash.
	GitCommit = "unknown"
)

// GetRelease returns the release version.
func GetRelease() string {
	return Release
}

// GetGitCommit returns the git commit hash.
func GetGitCommit() string {
	return GitCommit
}

// UserAgent identifies the deployer to remote APIs.
func UserAgent() string {
	return fmt.Sprintf("aidroute-deployer/%s (%s)", Release, GitCommit)
}
