// Package desktopctl holds the small desktop integration helpers: well-known paths,
// locating the syncthing binary and handing URLs and folders to the OS.
package desktopctl

import (
	"os"
	"path/filepath"
)

// AppDirName is the per-user directory the tray keeps its files in.
const AppDirName = "SyncthingTray"

// AppDir returns the per-user data directory.
func AppDir() string {
	base := os.Getenv("LOCALAPPDATA")
	if base == "" {
		if d, err := os.UserConfigDir(); err == nil && d != "" {
			base = d
		}
	}
	if base == "" {
		base = "."
	}
	return filepath.Join(base, AppDirName)
}

// DefaultSettingsPath is where settings.yaml lives unless overridden.
func DefaultSettingsPath() string {
	return filepath.Join(AppDir(), "settings.yaml")
}

// LogsDir is where the rotating log file is written.
func LogsDir() string {
	return filepath.Join(AppDir(), "logs")
}
