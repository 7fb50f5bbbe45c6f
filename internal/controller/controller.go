// Package controller runs the control loop: the single goroutine that owns the supervisor, polls
// the daemon's state on every tick and publishes snapshots to the tray, the panel and the control
// API.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/syncthingtray/syncthingtray/internal/autostart"
	apperrors "github.com/syncthingtray/syncthingtray/internal/errors"
	"github.com/syncthingtray/syncthingtray/internal/logging"
	"github.com/syncthingtray/syncthingtray/internal/metrics"
	"github.com/syncthingtray/syncthingtray/internal/settings"
	"github.com/syncthingtray/syncthingtray/internal/supervisor"
)

// DefaultDrainMax caps how many output lines one tick moves into the log buffer.
const DefaultDrainMax = 4096

// ErrUnavailable is returned by actions posted after the control loop has stopped.
var ErrUnavailable = apperrors.New(apperrors.KindUnavailable, "control loop is not running", nil)

// Supervisor is the subset of *supervisor.Supervisor the control loop drives.
type Supervisor interface {
	IsRunning() bool
	Start(path string) (bool, error)
	Stop() (supervisor.StopMethod, error)
	Reap() (supervisor.Exit, bool)
	Drain(max int) []supervisor.Line
	OwnedPID() int
	ProcessName() string
	SetProcessName(name string)
}

// View receives state from the control loop. Calls are made on the control goroutine; a View must
// hand the data to its own thread and return quickly.
type View interface {
	Render(Snapshot)
	AppendOutput([]logging.LogEntry)
	Notify(title, message string)
}

// Options configures a Controller.
type Options struct {
	Supervisor Supervisor
	Store      settings.Store
	// Autostart may be nil, in which case the stored start-on-boot flag is used as is and toggling
	// it fails.
	Autostart autostart.Registrar
	// Scheduler defaults to a TickerScheduler at the configured poll interval.
	Scheduler Scheduler
	// Output defaults to a RingBuffer of logging.DefaultBufferSize entries.
	Output   *logging.RingBuffer
	DrainMax int
	// AfterLoad adjusts settings after every load, e.g. to apply environment overrides.
	AfterLoad func(*settings.Settings)
	// Validate defaults to settings.ValidExecutable.
	Validate func(string) bool
}

type action struct {
	fn     func() error
	result chan error
}

// Controller owns the supervisor on a single goroutine (Run). All exported methods are safe for
// concurrent use.
type Controller struct {
	sup       Supervisor
	store     settings.Store
	registrar autostart.Registrar
	sched     Scheduler
	output    *logging.RingBuffer
	drainMax  int
	afterLoad func(*settings.Settings)
	validate  func(string) bool

	actions chan action
	done    chan struct{}
	started atomic.Bool

	// Owned by the control goroutine. stored is what the store holds; cfg is stored plus the
	// AfterLoad overlay and any unsaved path edit. Only stored is ever written back.
	stored    settings.Settings
	cfg       settings.Settings
	pathValid bool
	lastErr   string
	pending   []logging.LogEntry

	mu    sync.RWMutex
	snap  Snapshot
	views []View
}

// New returns a Controller. Run must be called to start the control loop.
func New(opts Options) *Controller {
	c := &Controller{
		sup:       opts.Supervisor,
		store:     opts.Store,
		registrar: opts.Autostart,
		sched:     opts.Scheduler,
		output:    opts.Output,
		drainMax:  opts.DrainMax,
		afterLoad: opts.AfterLoad,
		validate:  opts.Validate,
		actions:   make(chan action),
		done:      make(chan struct{}),
		cfg:       settings.Default(),
	}
	if c.output == nil {
		c.output = logging.NewRingBuffer(logging.DefaultBufferSize)
	}
	if c.drainMax <= 0 {
		c.drainMax = DefaultDrainMax
	}
	if c.validate == nil {
		c.validate = settings.ValidExecutable
	}
	c.snap = buildSnapshot(false, false)
	return c
}

// Attach registers a view and renders the current snapshot into it. The returned func detaches it.
func (c *Controller) Attach(v View) (detach func()) {
	c.mu.Lock()
	c.views = append(c.views, v)
	snap := c.snap
	c.mu.Unlock()
	v.Render(snap)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, existing := range c.views {
			if existing == v {
				c.views = append(c.views[:i], c.views[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns the last published state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Output returns the newest n captured lines, or all of them when n <= 0.
func (c *Controller) Output(n int) []logging.LogEntry {
	if n <= 0 {
		return c.output.GetEntries()
	}
	return c.output.GetRecentEntries(n)
}

// OutputAfter returns the captured lines with a sequence number greater than seq.
func (c *Controller) OutputAfter(seq uint64) []logging.LogEntry {
	return c.output.EntriesAfter(seq)
}

// Done is closed when Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Run executes the startup hook, then polls until ctx is cancelled, then executes the shutdown
// hook. It must be called once.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("controller: Run called twice")
	}
	defer close(c.done)

	c.startup()

	sched := c.sched
	if sched == nil {
		sched = NewTickerScheduler(c.cfg.PollInterval)
		c.sched = sched
	}
	defer sched.Stop()

	log.WithField("interval", c.cfg.PollInterval).Debug("control loop started")
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case <-sched.C():
			c.tick()
		case a := <-c.actions:
			err := a.fn()
			c.collectOutput()
			c.publish()
			a.result <- err
		}
	}
}

// do runs fn on the control goroutine and waits for it.
func (c *Controller) do(ctx context.Context, fn func() error) error {
	a := action{fn: fn, result: make(chan error, 1)}
	select {
	case c.actions <- a:
	case <-c.done:
		return ErrUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-a.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) startup() {
	c.loadSettings()

	if c.registrar != nil {
		on, err := c.registrar.GetStartup()
		if err != nil {
			c.fail(apperrors.New(apperrors.KindAutostart, "read start-on-boot registration", err))
			c.notify("Start on boot", "Could not read the start-on-boot registration: "+err.Error())
		} else if on != c.cfg.StartOnBoot {
			_ = c.update(func(s *settings.Settings) { s.StartOnBoot = on })
		}
	}

	running := c.sup.IsRunning()
	if c.cfg.StartOnBoot && c.pathValid && !running {
		log.Info("start on boot: launching daemon")
		if err := c.startDaemon(); err != nil {
			c.notify("Could not start "+c.sup.ProcessName(), err.Error())
		}
	}
	c.collectOutput()
	c.publish()
}

func (c *Controller) shutdown() {
	c.collectOutput()
	if c.sup.IsRunning() {
		log.Info("shutting down: stopping daemon")
		if err := c.stopDaemon(); err != nil {
			log.WithError(err).Warn("stop on shutdown failed")
		}
	}
	c.collectOutput()
	c.publish()
}

func (c *Controller) tick() {
	metrics.ObservePoll()
	c.collectOutput()
	c.publish()
}

// collectOutput moves pending lines into the log buffer and reports an owned child that exited
// on its own.
func (c *Controller) collectOutput() {
	entries := append(c.pending, c.drain()...)
	c.pending = nil
	if exit, ok := c.sup.Reap(); ok {
		entries = append(entries, c.drain()...)
		metrics.ObserveExit()
		text := fmt.Sprintf("%s (pid %d) exited with code %d after %s", c.sup.ProcessName(), exit.PID, exit.Code, exit.Runtime.Round(time.Millisecond))
		if exit.Err != nil {
			text += ": " + exit.Err.Error()
		}
		log.WithFields(log.Fields{"pid": exit.PID, "code": exit.Code}).Info("daemon exited")
		entries = append(entries, c.output.Append(logging.LogEntry{Stream: logging.System, Text: text}))
	}
	if len(entries) == 0 {
		return
	}
	for _, v := range c.viewList() {
		v.AppendOutput(entries)
	}
}

// systemLine records a tray-generated line; it reaches the views with the next output flush.
func (c *Controller) systemLine(text string) {
	c.pending = append(c.pending, c.output.Append(logging.LogEntry{Stream: logging.System, Text: text}))
}

func (c *Controller) drain() []logging.LogEntry {
	lines := c.sup.Drain(c.drainMax)
	if len(lines) == 0 {
		return nil
	}
	var nOut, nErr int
	entries := make([]logging.LogEntry, 0, len(lines))
	for _, l := range lines {
		if l.Stream == logging.Stderr {
			nErr++
		} else {
			nOut++
		}
		entries = append(entries, c.output.Append(logging.LogEntry{Timestamp: l.Time, Stream: l.Stream, Text: l.Text}))
	}
	metrics.ObserveOutput(string(logging.Stdout), nOut)
	metrics.ObserveOutput(string(logging.Stderr), nErr)
	return entries
}

// publish samples the running state and pushes a snapshot to the views when it changed.
func (c *Controller) publish() {
	running := c.sup.IsRunning()
	owned := c.sup.OwnedPID()
	metrics.SetState(running, owned != 0)

	snap := buildSnapshot(running, c.pathValid)
	snap.ExecutablePath = c.cfg.ExecutablePath
	snap.StartOnBoot = c.cfg.StartOnBoot
	snap.MinimizeOnStart = c.cfg.MinimizeOnStart
	snap.WebURL = c.cfg.WebURL
	snap.OwnedPID = owned
	snap.LastError = c.lastErr
	snap.UpdatedAt = time.Now()

	c.mu.Lock()
	changed := !snap.sameAs(c.snap)
	c.snap = snap
	views := append([]View(nil), c.views...)
	c.mu.Unlock()

	if !changed {
		return
	}
	for _, v := range views {
		v.Render(snap)
	}
}

func (c *Controller) viewList() []View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]View(nil), c.views...)
}

func (c *Controller) notify(title, message string) {
	for _, v := range c.viewList() {
		v.Notify(title, message)
	}
}

func (c *Controller) fail(err error) {
	c.lastErr = err.Error()
	metrics.ObserveFailure(string(apperrors.KindOf(err)))
	log.WithError(err).Warn("action failed")
}

func (c *Controller) loadSettings() {
	cfg, err := c.store.Load()
	switch {
	case err == nil:
	case errors.Is(err, settings.ErrNotFound):
		log.Debug("no settings stored yet, using defaults")
		cfg = settings.Default()
	default:
		appErr := apperrors.New(apperrors.KindSettings, "load settings", err)
		c.fail(appErr)
		c.notify("Settings", "Could not load settings, using defaults: "+err.Error())
		cfg = settings.Default()
	}
	c.applyStored(cfg)
}

// applyStored makes cfg the stored settings and derives the effective ones from it.
func (c *Controller) applyStored(cfg settings.Settings) {
	cfg.Normalize()
	c.stored = cfg
	eff := cfg
	if c.afterLoad != nil {
		c.afterLoad(&eff)
		eff.Normalize()
	}
	c.apply(eff)
}

func (c *Controller) apply(cfg settings.Settings) {
	if c.sched != nil && cfg.PollInterval != c.cfg.PollInterval {
		c.sched.Reset(cfg.PollInterval)
	}
	if cfg.ProcessName != c.sup.ProcessName() {
		c.sup.SetProcessName(cfg.ProcessName)
	}
	c.cfg = cfg
	c.pathValid = c.validate(cfg.ExecutablePath)
	if !c.pathValid {
		log.WithField("path", cfg.ExecutablePath).Debug("executable path not set or invalid, actions disabled")
	}
}

// update applies a user edit to both the effective and the stored settings and saves the latter.
func (c *Controller) update(fn func(*settings.Settings)) error {
	fn(&c.cfg)
	fn(&c.stored)
	return c.save()
}

func (c *Controller) save() error {
	if err := c.store.Save(c.stored); err != nil {
		appErr := apperrors.New(apperrors.KindSettings, "save settings", err)
		c.fail(appErr)
		return appErr
	}
	return nil
}

func (c *Controller) startDaemon() error {
	if !c.pathValid {
		log.Debug("start ignored: executable path not set or invalid")
		return nil
	}
	if c.sup.OwnedPID() != 0 {
		return nil
	}
	if c.sup.IsRunning() {
		err := apperrors.New(apperrors.KindLaunch, fmt.Sprintf("%s is already running", c.sup.ProcessName()), nil)
		c.fail(err)
		return err
	}
	started, err := c.sup.Start(c.cfg.ExecutablePath)
	if err != nil {
		c.fail(err)
		return err
	}
	c.lastErr = ""
	if started {
		metrics.ObserveStart()
		c.systemLine(fmt.Sprintf("started %s (pid %d)", c.cfg.ExecutablePath, c.sup.OwnedPID()))
	}
	return nil
}

func (c *Controller) stopDaemon() error {
	method, err := c.sup.Stop()
	if err != nil {
		c.fail(err)
		return err
	}
	c.lastErr = ""
	metrics.ObserveStop(string(method))
	c.systemLine(fmt.Sprintf("stopped %s (by %s)", c.sup.ProcessName(), method))
	return nil
}

// StartProcess launches the daemon. Without a valid executable path it does nothing.
func (c *Controller) StartProcess(ctx context.Context) error {
	return c.do(ctx, c.startDaemon)
}

// StopProcess stops the daemon, through the owned handle when this tray started it and by process
// name otherwise.
func (c *Controller) StopProcess(ctx context.Context) error {
	return c.do(ctx, c.stopDaemon)
}

// SetExecutablePath changes the daemon path. A valid path is saved immediately; an invalid one is
// kept for display only, disables the actions and is not saved.
func (c *Controller) SetExecutablePath(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	return c.do(ctx, func() error {
		if !c.validate(path) {
			c.cfg.ExecutablePath = path
			c.pathValid = false
			log.WithField("path", path).Info("executable path invalid, not saved")
			return nil
		}
		c.pathValid = true
		return c.update(func(s *settings.Settings) { s.ExecutablePath = path })
	})
}

// SetStartOnBoot changes the run-at-login registration. On failure the setting is left unchanged.
func (c *Controller) SetStartOnBoot(ctx context.Context, enabled bool) error {
	return c.do(ctx, func() error {
		if !c.pathValid {
			return apperrors.New(apperrors.KindConfig, "set a valid executable path first", nil)
		}
		if c.registrar == nil {
			err := apperrors.New(apperrors.KindAutostart, "start on boot is not supported on this platform", nil)
			c.fail(err)
			return err
		}
		if err := c.registrar.SetStartup(enabled); err != nil {
			appErr := apperrors.New(apperrors.KindAutostart, "change start-on-boot registration", err)
			c.fail(appErr)
			return appErr
		}
		c.lastErr = ""
		return c.update(func(s *settings.Settings) { s.StartOnBoot = enabled })
	})
}

// SetMinimizeOnStart changes whether the panel stays hidden when the tray launches.
func (c *Controller) SetMinimizeOnStart(ctx context.Context, enabled bool) error {
	return c.do(ctx, func() error {
		return c.update(func(s *settings.Settings) { s.MinimizeOnStart = enabled })
	})
}

// ReloadSettings re-reads the store, e.g. after the file changed on disk. An unsaved invalid path
// edit survives unless the stored path itself changed.
func (c *Controller) ReloadSettings(ctx context.Context) error {
	return c.do(ctx, func() error {
		cfg, err := c.store.Load()
		if err != nil {
			appErr := apperrors.New(apperrors.KindSettings, "reload settings", err)
			c.fail(appErr)
			return appErr
		}
		pending := ""
		if !c.pathValid {
			pending = c.cfg.ExecutablePath
		}
		prevStoredPath := c.stored.ExecutablePath
		c.applyStored(cfg)
		if pending != "" && c.stored.ExecutablePath == prevStoredPath {
			c.cfg.ExecutablePath = pending
			c.pathValid = c.validate(pending)
		}
		log.Debug("settings reloaded")
		return nil
	})
}

// Settings returns a copy of the active settings.
func (c *Controller) Settings(ctx context.Context) (settings.Settings, error) {
	var out settings.Settings
	err := c.do(ctx, func() error {
		out = c.cfg
		return nil
	})
	return out, err
}
