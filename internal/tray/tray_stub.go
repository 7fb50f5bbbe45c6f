//go:build !(windows || darwin || (linux && systray))

package tray

import (
	log "github.com/sirupsen/logrus"
	"github.com/syncthingtray/syncthingtray/internal/controller"
	"github.com/syncthingtray/syncthingtray/internal/logging"
)

// Supported reports whether this build has a tray icon. Linux builds need the systray tag and the
// GTK/appindicator development libraries.
const Supported = false

// Tray is a no-op stand-in for builds without a tray icon.
type Tray struct{}

// New returns a Tray whose Run fails with ErrUnsupported.
func New(Actions, Callbacks) *Tray {
	return &Tray{}
}

// Run returns ErrUnsupported immediately.
func (t *Tray) Run(func()) error {
	return ErrUnsupported
}

func (t *Tray) Quit() {}

func (t *Tray) Render(controller.Snapshot) {}

func (t *Tray) AppendOutput([]logging.LogEntry) {}

func (t *Tray) Notify(title, message string) {
	log.WithField("title", title).Info(message)
}
