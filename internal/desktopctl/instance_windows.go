//go:build windows

package desktopctl

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// Instance holds the named mutex that keeps a second tray from starting in this session.
type Instance struct {
	handle windows.Handle
}

// AcquireInstance takes the per-session mutex for name. dir is unused on Windows.
func AcquireInstance(dir, name string) (*Instance, error) {
	if name == "" {
		name = AppDirName
	}
	ptr, err := windows.UTF16PtrFromString(`Local\` + name + "_SingleInstance")
	if err != nil {
		return nil, fmt.Errorf("invalid mutex name: %w", err)
	}
	h, err := windows.CreateMutex(nil, false, ptr)
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		_ = windows.CloseHandle(h)
		return nil, ErrAlreadyRunning
	}
	if err != nil {
		return nil, fmt.Errorf("CreateMutex: %w", err)
	}
	return &Instance{handle: h}, nil
}

// Release drops the mutex. Safe to call more than once.
func (i *Instance) Release() {
	if i == nil || i.handle == 0 {
		return
	}
	_ = windows.CloseHandle(i.handle)
	i.handle = 0
}
