//go:build windows

package autostart

import (
	"errors"
	"strings"

	"golang.org/x/sys/windows/registry"
)

const windowsRunKeyPath = `Software\Microsoft\Windows\CurrentVersion\Run`

type runKeyRegistrar struct {
	entry Entry
}

// New returns the HKCU Run-key registrar.
func New(entry Entry) Registrar {
	return &runKeyRegistrar{entry: entry}
}

func (r *runKeyRegistrar) GetStartup() (bool, error) {
	appName := strings.TrimSpace(r.entry.AppName)
	if appName == "" {
		return false, errors.New("app name is required")
	}
	k, err := registry.OpenKey(registry.CURRENT_USER, windowsRunKeyPath, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer k.Close()
	s, _, err := k.GetStringValue(appName)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return strings.TrimSpace(s) != "", nil
}

func (r *runKeyRegistrar) SetStartup(enabled bool) error {
	if err := r.entry.validate(); err != nil {
		return err
	}
	if !enabled {
		k, err := registry.OpenKey(registry.CURRENT_USER, windowsRunKeyPath, registry.SET_VALUE)
		if err != nil {
			if errors.Is(err, registry.ErrNotExist) {
				return nil
			}
			return err
		}
		defer k.Close()
		if err := k.DeleteValue(r.entry.AppName); err != nil && !errors.Is(err, registry.ErrNotExist) {
			return err
		}
		return nil
	}
	k, _, err := registry.CreateKey(registry.CURRENT_USER, windowsRunKeyPath, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()
	return k.SetStringValue(r.entry.AppName, quoteWindowsCommand(r.entry.Exe, r.entry.Args))
}
