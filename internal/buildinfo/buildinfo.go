// Package buildinfo holds the version stamped into the binary at link time.
package buildinfo

import "fmt"

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// String formats the build information on one line.
func String() string {
	return fmt.Sprintf("SyncthingTray Version: %s, Commit: %s, BuiltAt: %s", Version, Commit, BuildDate)
}
