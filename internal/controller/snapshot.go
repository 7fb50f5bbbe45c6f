package controller

import (
	"time"

	"github.com/syncthingtray/syncthingtray/internal/trayicon"
)

// Color is the status indicator color.
type Color string

const (
	Green Color = "green"
	Red   Color = "red"
)

const (
	StatusRunning    = "RUNNING"
	StatusNotRunning = "NOT RUNNING"
)

// Snapshot is the UI-visible state published after every tick and every action.
type Snapshot struct {
	Running     bool          `json:"running"`
	StatusText  string        `json:"status"`
	StatusColor Color         `json:"status-color"`
	Icon        trayicon.Kind `json:"-"`

	CanStart      bool `json:"can-start"`
	CanStop       bool `json:"can-stop"`
	CanToggleBoot bool `json:"can-toggle-boot"`

	ExecutablePath  string `json:"executable-path"`
	PathValid       bool   `json:"path-valid"`
	StartOnBoot     bool   `json:"start-on-boot"`
	MinimizeOnStart bool   `json:"minimize-on-start"`
	WebURL          string `json:"web-url"`

	// OwnedPID is the pid of the daemon this tray started, 0 when it runs on its own or not at all.
	OwnedPID  int    `json:"owned-pid,omitempty"`
	LastError string `json:"last-error,omitempty"`

	UpdatedAt time.Time `json:"updated-at"`
}

func (s Snapshot) sameAs(o Snapshot) bool {
	s.UpdatedAt, o.UpdatedAt = time.Time{}, time.Time{}
	return s == o
}

// buildSnapshot derives the action flags. Stop needs no executable path, so a daemon running
// outside the tray can always be stopped.
func buildSnapshot(running, pathValid bool) Snapshot {
	s := Snapshot{
		Running:       running,
		PathValid:     pathValid,
		CanStart:      pathValid && !running,
		CanStop:       running,
		CanToggleBoot: pathValid,
	}
	if running {
		s.StatusText, s.StatusColor, s.Icon = StatusRunning, Green, trayicon.Running
	} else {
		s.StatusText, s.StatusColor, s.Icon = StatusNotRunning, Red, trayicon.Stopped
	}
	return s
}
