// Package version holds build metadata injected via -ldflags at build time.
package version

// Version and Commit default to "dev" and "unknown" for local builds; release builds set
// them with -ldflags "-X github.com/wisbric/nova/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
)
