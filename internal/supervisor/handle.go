package supervisor

import (
	"bufio"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/syncthingtray/syncthingtray/internal/logging"
)

// Line is one line of output read from the supervised process.
type Line struct {
	PID    int
	Stream logging.Stream
	Text   string
	Time   time.Time
}

// Exit describes how an owned process ended.
type Exit struct {
	PID     int
	Code    int
	Err     error
	Runtime time.Duration
}

// Handle is an exclusively owned reference to a process this supervisor started.
type Handle struct {
	cmd     *exec.Cmd
	pid     int
	path    string
	started time.Time

	exited   chan struct{}
	state    *os.ProcessState
	waitErr  error
	exitedAt time.Time

	detached   chan struct{}
	detachOnce sync.Once
	readers    sync.WaitGroup
}

// launch starts path with stdout and stderr on pipes whose lines are sent to out.
func launch(path string, args, env []string, out chan<- Line) (*Handle, error) {
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return nil, err
	}

	cmd := exec.Command(path, args...)
	cmd.Stdout = outW
	cmd.Stderr = errW
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	setSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		outR.Close()
		outW.Close()
		errR.Close()
		errW.Close()
		return nil, err
	}
	// The child holds its own copies of the write ends.
	outW.Close()
	errW.Close()

	h := &Handle{
		cmd:      cmd,
		pid:      cmd.Process.Pid,
		path:     path,
		started:  time.Now(),
		exited:   make(chan struct{}),
		detached: make(chan struct{}),
	}
	h.readers.Add(2)
	go h.read(outR, logging.Stdout, out)
	go h.read(errR, logging.Stderr, out)
	go func() {
		state, err := cmd.Process.Wait()
		h.state = state
		h.waitErr = err
		h.exitedAt = time.Now()
		close(h.exited)
	}()
	return h, nil
}

// read forwards lines from r until EOF. After detach the pipe is still drained so the child never
// blocks on a full pipe, but nothing more is delivered.
func (h *Handle) read(r *os.File, stream logging.Stream, out chan<- Line) {
	defer h.readers.Done()
	defer r.Close()

	br := bufio.NewReader(r)
	for {
		text, err := br.ReadString('\n')
		if text != "" {
			text = strings.TrimRight(text, "\r\n")
			if !h.isDetached() {
				line := Line{PID: h.pid, Stream: stream, Text: text, Time: time.Now()}
				select {
				case out <- line:
				case <-h.detached:
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				log.WithError(err).WithField("stream", stream).Debug("output reader stopped")
			}
			return
		}
	}
}

// PID returns the process id.
func (h *Handle) PID() int {
	return h.pid
}

// Path returns the executable the process was started from.
func (h *Handle) Path() string {
	return h.path
}

// StartedAt returns when the process was launched.
func (h *Handle) StartedAt() time.Time {
	return h.started
}

// Exited returns a channel closed once the process has been reaped.
func (h *Handle) Exited() <-chan struct{} {
	return h.exited
}

func (h *Handle) hasExited() bool {
	select {
	case <-h.exited:
		return true
	default:
		return false
	}
}

func (h *Handle) detach() {
	h.detachOnce.Do(func() { close(h.detached) })
}

func (h *Handle) isDetached() bool {
	select {
	case <-h.detached:
		return true
	default:
		return false
	}
}

func (h *Handle) kill() error {
	if h.hasExited() {
		return os.ErrProcessDone
	}
	return killProcess(h.cmd.Process)
}

// waitExit blocks until the process is reaped or timeout elapses.
func (h *Handle) waitExit(timeout time.Duration) bool {
	select {
	case <-h.exited:
		return true
	case <-time.After(timeout):
		return false
	}
}

// exit must only be called after Exited is closed.
func (h *Handle) exit() Exit {
	e := Exit{PID: h.pid, Err: h.waitErr, Code: -1, Runtime: h.exitedAt.Sub(h.started)}
	if h.state != nil {
		e.Code = h.state.ExitCode()
	}
	return e
}
