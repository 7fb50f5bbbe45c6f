//go:build windows || darwin || (linux && systray)

package tray

import (
	"context"
	"sync"
	"time"

	"github.com/getlantern/systray"
	log "github.com/sirupsen/logrus"
	"github.com/syncthingtray/syncthingtray/internal/controller"
	"github.com/syncthingtray/syncthingtray/internal/logging"
	"github.com/syncthingtray/syncthingtray/internal/trayicon"
)

const actionTimeout = 30 * time.Second

type items struct {
	status   *systray.MenuItem
	notice   *systray.MenuItem
	show     *systray.MenuItem
	start    *systray.MenuItem
	stop     *systray.MenuItem
	web      *systray.MenuItem
	logs     *systray.MenuItem
	boot     *systray.MenuItem
	minimize *systray.MenuItem
	exit     *systray.MenuItem
}

// Tray implements controller.View on top of systray. systray's setters are safe to call from any
// goroutine, so Render applies state directly.
type Tray struct {
	actions Actions
	cb      Callbacks

	mu      sync.Mutex
	ready   bool
	items   items
	last    controller.Snapshot
	hasLast bool
	pending string
}

// New returns a Tray; Run shows it.
func New(actions Actions, cb Callbacks) *Tray {
	return &Tray{actions: actions, cb: cb}
}

// Supported reports whether this build has a tray icon.
const Supported = true

// Run shows the tray icon and blocks until Quit. It must be called from the main goroutine.
func (t *Tray) Run(onExit func()) error {
	systray.Run(t.onReady, func() {
		if onExit != nil {
			onExit()
		}
	})
	return nil
}

// Quit removes the icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetIcon(trayicon.Icon(trayicon.Stopped))
	systray.SetTitle(AppName)
	systray.SetTooltip(AppName)

	var it items
	it.status = systray.AddMenuItem("Syncthing: "+controller.StatusNotRunning, "Daemon status")
	it.status.Disable()
	it.notice = systray.AddMenuItem("", "")
	it.notice.Disable()
	it.notice.Hide()
	systray.AddSeparator()

	if t.cb.ShowPanel != nil {
		it.show = systray.AddMenuItem("Show panel", "Open the control panel")
	}
	it.start = systray.AddMenuItem("Start", "Start Syncthing")
	it.stop = systray.AddMenuItem("Stop", "Stop Syncthing")
	if t.cb.OpenWeb != nil {
		it.web = systray.AddMenuItem("Open web interface", "Open the Syncthing web interface")
	}
	if t.cb.OpenLogs != nil {
		it.logs = systray.AddMenuItem("Open logs folder", "Open the folder with the tray log files")
	}
	systray.AddSeparator()
	it.boot = systray.AddMenuItemCheckbox("Start on boot", "Run at login and start Syncthing", false)
	it.minimize = systray.AddMenuItemCheckbox("Minimize on start", "Keep the panel hidden at launch", false)
	systray.AddSeparator()
	it.exit = systray.AddMenuItem("Exit", "Stop Syncthing and exit")

	t.mu.Lock()
	t.items = it
	t.ready = true
	last, hasLast, pending := t.last, t.hasLast, t.pending
	t.pending = ""
	t.mu.Unlock()
	if hasLast {
		t.apply(last)
	}
	if pending != "" {
		t.showNotice(it, pending)
	}

	go t.clickLoop(it)
}

func (t *Tray) clickLoop(it items) {
	showCh := clicked(it.show)
	webCh := clicked(it.web)
	logsCh := clicked(it.logs)
	for {
		select {
		case <-showCh:
			t.cb.ShowPanel()
		case <-it.start.ClickedCh:
			t.runAction("Start", t.actions.StartProcess)
		case <-it.stop.ClickedCh:
			t.runAction("Stop", t.actions.StopProcess)
		case <-webCh:
			if err := t.cb.OpenWeb(); err != nil {
				t.Notify("Open web interface", err.Error())
			}
		case <-logsCh:
			if err := t.cb.OpenLogs(); err != nil {
				t.Notify("Open logs folder", err.Error())
			}
		case <-it.boot.ClickedCh:
			enabled := !it.boot.Checked()
			t.runAction("Start on boot", func(ctx context.Context) error {
				return t.actions.SetStartOnBoot(ctx, enabled)
			})
		case <-it.minimize.ClickedCh:
			enabled := !it.minimize.Checked()
			t.runAction("Minimize on start", func(ctx context.Context) error {
				return t.actions.SetMinimizeOnStart(ctx, enabled)
			})
		case <-it.exit.ClickedCh:
			log.Debug("tray: exit requested")
			if t.cb.Exit != nil {
				t.cb.Exit()
			}
			systray.Quit()
			return
		}
	}
}

// clicked returns the item's click channel, or nil (never ready) for an absent item.
func clicked(item *systray.MenuItem) <-chan struct{} {
	if item == nil {
		return nil
	}
	return item.ClickedCh
}

// runAction runs fn off the click loop so the menu stays responsive; failures become a notice.
func (t *Tray) runAction(label string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			t.Notify(label+" failed", err.Error())
		}
	}()
}

// Render implements controller.View.
func (t *Tray) Render(s controller.Snapshot) {
	t.mu.Lock()
	t.last, t.hasLast = s, true
	ready := t.ready
	t.mu.Unlock()
	if ready {
		t.apply(s)
	}
}

func (t *Tray) apply(s controller.Snapshot) {
	st := stateFor(s)
	t.mu.Lock()
	it := t.items
	t.mu.Unlock()

	systray.SetIcon(trayicon.Icon(st.icon))
	systray.SetTooltip(st.tooltip)
	it.status.SetTitle(st.status)
	setEnabled(it.start, st.startEnabled)
	setEnabled(it.stop, st.stopEnabled)
	setEnabled(it.boot, st.bootEnabled)
	setChecked(it.boot, st.bootChecked)
	setChecked(it.minimize, st.minimizeChecked)
	if st.startEnabled || st.stopEnabled {
		it.notice.Hide()
	}
}

// AppendOutput implements controller.View; the tray does not show output.
func (t *Tray) AppendOutput([]logging.LogEntry) {}

// Notify shows a notice line at the top of the menu and in the tooltip.
func (t *Tray) Notify(title, message string) {
	log.WithField("title", title).Info(message)
	text := message
	if title != "" {
		text = title + ": " + message
	}
	t.mu.Lock()
	ready, it := t.ready, t.items
	if !ready {
		t.pending = text
	}
	t.mu.Unlock()
	if ready {
		t.showNotice(it, text)
	}
}

func (t *Tray) showNotice(it items, text string) {
	it.notice.SetTitle(text)
	it.notice.Show()
	systray.SetTooltip(AppName + "\n" + text)
}

func setEnabled(item *systray.MenuItem, enabled bool) {
	if enabled {
		item.Enable()
	} else {
		item.Disable()
	}
}

func setChecked(item *systray.MenuItem, checked bool) {
	if checked {
		item.Check()
	} else {
		item.Uncheck()
	}
}
