// Package version holds build metadata set via -ldflags.
package version

// Set with: -ldflags "-X github.com/mandalnilabja/pollinate/internal/version.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "none"
)
