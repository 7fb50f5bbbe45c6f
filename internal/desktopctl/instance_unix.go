//go:build unix

package desktopctl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Instance holds an exclusive flock on <dir>/<name>.lock for the life of the tray.
type Instance struct {
	f *os.File
}

// AcquireInstance locks <dir>/<name>.lock without blocking.
func AcquireInstance(dir, name string) (*Instance, error) {
	if name == "" {
		name = AppDirName
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name+".lock"), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("lock %s: %w", f.Name(), err)
	}
	_ = f.Truncate(0)
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	return &Instance{f: f}, nil
}

// Release unlocks and closes the lock file. Safe to call more than once.
func (i *Instance) Release() {
	if i == nil || i.f == nil {
		return
	}
	_ = unix.Flock(int(i.f.Fd()), unix.LOCK_UN)
	_ = i.f.Close()
	i.f = nil
}
