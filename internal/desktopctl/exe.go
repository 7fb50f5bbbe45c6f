package desktopctl

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// lookPath is swapped out in tests.
var lookPath = exec.LookPath

// DiscoverExecutable looks for a syncthing binary in PATH and in the usual
// install locations. It returns "" when none is found.
func DiscoverExecutable(processName string) string {
	if processName == "" {
		processName = "syncthing"
	}
	exeName := processName
	if runtime.GOOS == "windows" && filepath.Ext(exeName) == "" {
		exeName += ".exe"
	}
	if p, err := lookPath(exeName); err == nil {
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	for _, dir := range candidateDirs() {
		p := filepath.Join(dir, exeName)
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			return p
		}
	}
	return ""
}

func candidateDirs() []string {
	switch runtime.GOOS {
	case "windows":
		var dirs []string
		if v := os.Getenv("LOCALAPPDATA"); v != "" {
			dirs = append(dirs, filepath.Join(v, "Syncthing"), filepath.Join(v, "Programs", "Syncthing"))
		}
		if v := os.Getenv("ProgramFiles"); v != "" {
			dirs = append(dirs, filepath.Join(v, "Syncthing"))
		}
		return dirs
	case "darwin":
		return []string{"/usr/local/bin", "/opt/homebrew/bin", "/Applications/Syncthing.app/Contents/Resources/syncthing"}
	default:
		dirs := []string{"/usr/local/bin", "/usr/bin"}
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, filepath.Join(home, ".local", "bin"))
		}
		return dirs
	}
}
