// Package main provides the entry point for SyncthingTray, the tray utility that starts, watches
// and stops the Syncthing daemon.
package main

import (
	"fmt"
	"os"

	"github.com/syncthingtray/syncthingtray/internal/buildinfo"
	"github.com/syncthingtray/syncthingtray/internal/logging"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
