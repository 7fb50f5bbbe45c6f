// Package tray is the notification-area front-end: the status icon and the menu.
package tray

import (
	"context"
	"errors"

	"github.com/syncthingtray/syncthingtray/internal/controller"
	"github.com/syncthingtray/syncthingtray/internal/trayicon"
)

// AppName is shown as the tray title and tooltip prefix.
const AppName = "SyncthingTray"

// HiddenNotice is shown when the panel is hidden to the tray.
const HiddenNotice = "SyncthingTray is down here if you need me."

// ErrUnsupported is returned by Run in builds without a tray icon.
var ErrUnsupported = errors.New("tray icon not supported in this build")

// Actions is what the menu asks the control loop to do.
type Actions interface {
	StartProcess(ctx context.Context) error
	StopProcess(ctx context.Context) error
	SetStartOnBoot(ctx context.Context, enabled bool) error
	SetMinimizeOnStart(ctx context.Context, enabled bool) error
}

// Callbacks are the menu entries that act outside the control loop. Nil entries are hidden.
type Callbacks struct {
	ShowPanel func()
	OpenWeb   func() error
	OpenLogs  func() error
	// Exit is called when the user picks Exit, before the tray quits.
	Exit func()
}

// menuState is what the menu shows for a snapshot.
type menuState struct {
	icon            trayicon.Kind
	tooltip         string
	status          string
	startEnabled    bool
	stopEnabled     bool
	bootEnabled     bool
	bootChecked     bool
	minimizeChecked bool
}

func stateFor(s controller.Snapshot) menuState {
	st := menuState{
		icon:            s.Icon,
		tooltip:         AppName + " - " + s.StatusText,
		status:          "Syncthing: " + s.StatusText,
		startEnabled:    s.CanStart,
		stopEnabled:     s.CanStop,
		bootEnabled:     s.CanToggleBoot,
		bootChecked:     s.StartOnBoot,
		minimizeChecked: s.MinimizeOnStart,
	}
	if s.LastError != "" {
		st.tooltip += "\n" + s.LastError
	}
	if !s.PathValid {
		st.status += " (set executable path)"
	}
	return st
}
