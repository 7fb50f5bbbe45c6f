// Package supervisor launches, observes and stops the single daemon process the tray manages.
//
// A Supervisor is owned by one goroutine (the control loop) and is not safe for concurrent use.
// The only work it hands to other goroutines is reading the child's output pipes and reaping the
// child; those goroutines talk back exclusively through channels.
package supervisor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	apperrors "github.com/syncthingtray/syncthingtray/internal/errors"
)

const (
	// DefaultProcessName is the fixed identifier of the supervised daemon.
	DefaultProcessName = "syncthing"
	// DefaultLineBuffer is the capacity of the output line channel.
	DefaultLineBuffer = 4096
	// DefaultExitTimeout bounds how long Stop waits for a killed process to disappear.
	DefaultExitTimeout = 5 * time.Second
)

// Options configures a Supervisor. Zero values select the defaults.
type Options struct {
	// ProcessName is used for running-state queries and the name-based stop fallback.
	ProcessName string
	// Table is the process table; GopsutilTable when nil.
	Table ProcessTable
	// Args are passed to the executable on start.
	Args []string
	// Env is appended to the tray's environment for the child.
	Env []string
	// LineBuffer is the capacity of the output channel.
	LineBuffer int
	// ExitTimeout bounds the wait after a kill.
	ExitTimeout time.Duration
}

// StopMethod records how a stop request found its target.
type StopMethod string

const (
	StopByHandle StopMethod = "handle"
	StopByName   StopMethod = "name"
)

// Supervisor manages the daemon process.
type Supervisor struct {
	name        string
	table       ProcessTable
	args        []string
	env         []string
	exitTimeout time.Duration

	lines  chan Line
	handle *Handle
}

// New returns a Supervisor configured by opts.
func New(opts Options) *Supervisor {
	s := &Supervisor{
		name:        strings.TrimSpace(opts.ProcessName),
		table:       opts.Table,
		args:        opts.Args,
		env:         opts.Env,
		exitTimeout: opts.ExitTimeout,
	}
	if s.name == "" {
		s.name = DefaultProcessName
	}
	if s.table == nil {
		s.table = GopsutilTable{}
	}
	if s.exitTimeout <= 0 {
		s.exitTimeout = DefaultExitTimeout
	}
	size := opts.LineBuffer
	if size <= 0 {
		size = DefaultLineBuffer
	}
	s.lines = make(chan Line, size)
	return s
}

// SetProcessName changes the identifier for later queries; empty selects DefaultProcessName. An
// owned handle is kept.
func (s *Supervisor) SetProcessName(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultProcessName
	}
	s.name = name
}

// ProcessName returns the identifier used for name-based queries.
func (s *Supervisor) ProcessName() string {
	return s.name
}

// IsRunning reports whether any process with the supervised name is alive, no matter who started
// it. A failed scan is logged and reported as not running.
func (s *Supervisor) IsRunning() bool {
	running, err := s.table.Running(s.name)
	if err != nil {
		log.WithError(err).Debug("process table query failed")
		return false
	}
	return running
}

// Start launches the executable at path. An empty or missing path is a no-op, as is a start while
// this supervisor still owns a live process. started reports whether a process was created.
func (s *Supervisor) Start(path string) (started bool, err error) {
	path = strings.TrimSpace(path)
	if path == "" {
		log.Debug("start ignored: executable path not configured")
		return false, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.WithField("path", path).Debug("start ignored: executable not found")
			return false, nil
		}
		return false, apperrors.New(apperrors.KindLaunch, "start "+filepath.Base(path), err).WithDetail("path", path)
	}
	if s.handle != nil {
		if !s.handle.hasExited() {
			log.WithField("pid", s.handle.pid).Debug("start ignored: process already owned")
			return false, nil
		}
		s.handle = nil
	}

	h, err := launch(path, s.args, s.env, s.lines)
	if err != nil {
		return false, apperrors.New(apperrors.KindLaunch, "start "+filepath.Base(path), err).WithDetail("path", path)
	}
	s.handle = h
	log.WithFields(log.Fields{"pid": h.pid, "path": path}).Info("daemon started")
	return true, nil
}

// Stop terminates the daemon. A process this supervisor started is killed through its handle,
// after its output delivery is detached; the handle is cleared even when the kill fails. Without
// an owned handle every process carrying the supervised name is killed, which can also hit an
// unrelated process that happens to share the name.
func (s *Supervisor) Stop() (StopMethod, error) {
	if h := s.handle; h != nil {
		s.handle = nil
		h.detach()
		if err := h.kill(); err != nil {
			msg := fmt.Sprintf("stop %s (pid %d)", s.name, h.pid)
			if errors.Is(err, os.ErrProcessDone) {
				msg = fmt.Sprintf("%s: process already exited", msg)
			}
			return StopByHandle, apperrors.New(apperrors.KindTerminate, msg, err).WithDetail("pid", h.pid)
		}
		if !h.waitExit(s.exitTimeout) {
			log.WithField("pid", h.pid).Warn("killed daemon has not exited yet")
		}
		log.WithField("pid", h.pid).Info("daemon stopped")
		return StopByHandle, nil
	}

	killed, err := s.table.KillByName(s.name)
	if err != nil {
		return StopByName, apperrors.New(apperrors.KindTerminate, fmt.Sprintf("stop %s", s.name), err).WithDetail("killed", killed)
	}
	if killed == 0 {
		return StopByName, apperrors.New(apperrors.KindTerminate, fmt.Sprintf("stop %s: no running process found", s.name), nil)
	}
	s.waitGone()
	log.WithFields(log.Fields{"name": s.name, "count": killed}).Info("daemon stopped by name")
	return StopByName, nil
}

// waitGone polls until no process with the name remains or the exit timeout passes.
func (s *Supervisor) waitGone() {
	deadline := time.Now().Add(s.exitTimeout)
	for time.Now().Before(deadline) {
		running, err := s.table.Running(s.name)
		if err != nil || !running {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	log.WithField("name", s.name).Warn("killed daemon still listed in process table")
}

// Reap clears the owned handle if its process exited on its own and describes the exit.
func (s *Supervisor) Reap() (Exit, bool) {
	h := s.handle
	if h == nil || !h.hasExited() {
		return Exit{}, false
	}
	s.handle = nil
	return h.exit(), true
}

// Owned returns the owned handle, or nil when this supervisor did not start the running process.
func (s *Supervisor) Owned() *Handle {
	return s.handle
}

// OwnedPID returns the pid of the owned process, or 0.
func (s *Supervisor) OwnedPID() int {
	if s.handle == nil {
		return 0
	}
	return s.handle.pid
}

// Lines exposes the output channel. Lines must be consumed by the owner goroutine only.
func (s *Supervisor) Lines() <-chan Line {
	return s.lines
}

// Drain removes up to max pending lines without blocking, in the order they were read.
// max <= 0 drains everything currently queued.
func (s *Supervisor) Drain(max int) []Line {
	var out []Line
	for max <= 0 || len(out) < max {
		select {
		case l := <-s.lines:
			out = append(out, l)
		default:
			return out
		}
	}
	return out
}
