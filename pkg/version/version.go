// Package version contains the version of the worldtick binaries.
package version

// Version is the current version of this code. It is set at build time
// via -ldflags.
var Version = "v0.0.0-dev"
