// Package version carries build metadata, set with -ldflags -X
package version

var (
	Version = "0.1.0"
	Commit  = "unknown"
	Date    = "unknown"
)
