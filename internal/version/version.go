// Package version holds the build version, set at link time with
// -ldflags "-X github.com/ndewijer/portfolio-performance/internal/version.Version=...".
package version

// Version is the running build.
var Version = "dev"
