//go:build !windows && !darwin

package autostart

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// xdgRegistrar writes an XDG autostart desktop entry.
type xdgRegistrar struct {
	entry Entry
	dir   string
}

// New returns the XDG autostart registrar for the current user.
func New(entry Entry) Registrar {
	dir := ""
	if base, err := os.UserConfigDir(); err == nil {
		dir = filepath.Join(base, "autostart")
	}
	return &xdgRegistrar{entry: entry, dir: dir}
}

func (x *xdgRegistrar) path() (string, error) {
	if x.dir == "" {
		return "", errors.New("user config directory not available")
	}
	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(x.entry.AppName), " ", "-"))
	if name == "" {
		return "", errors.New("app name is required")
	}
	return filepath.Join(x.dir, name+".desktop"), nil
}

func (x *xdgRegistrar) GetStartup() (bool, error) {
	p, err := x.path()
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.EqualFold(line, "Hidden=true") || strings.EqualFold(line, "X-GNOME-Autostart-enabled=false") {
			return false, nil
		}
	}
	return true, nil
}

func (x *xdgRegistrar) SetStartup(enabled bool) error {
	if err := x.entry.validate(); err != nil {
		return err
	}
	p, err := x.path()
	if err != nil {
		return err
	}
	if !enabled {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(x.dir, 0o755); err != nil {
		return fmt.Errorf("create autostart dir: %w", err)
	}
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s\n", x.entry.AppName)
	fmt.Fprintf(&b, "Exec=%s\n", quoteDesktopExec(x.entry.Exe, x.entry.Args))
	b.WriteString("Terminal=false\n")
	b.WriteString("Hidden=false\n")
	b.WriteString("X-GNOME-Autostart-enabled=true\n")
	return os.WriteFile(p, []byte(b.String()), 0o644)
}
