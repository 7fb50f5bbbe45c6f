package desktopctl

import "errors"

// ErrAlreadyRunning is returned by AcquireInstance when another tray holds the lock.
var ErrAlreadyRunning = errors.New("another SyncthingTray instance is already running")
