//go:build darwin

package autostart

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// launchAgentRegistrar writes a per-user LaunchAgent property list.
type launchAgentRegistrar struct {
	entry Entry
	dir   string
}

// New returns the LaunchAgent registrar for the current user.
func New(entry Entry) Registrar {
	dir := ""
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, "Library", "LaunchAgents")
	}
	return &launchAgentRegistrar{entry: entry, dir: dir}
}

func (l *launchAgentRegistrar) label() string {
	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(l.entry.AppName), " ", ""))
	return "net.syncthingtray." + name
}

func (l *launchAgentRegistrar) path() (string, error) {
	if l.dir == "" {
		return "", errors.New("home directory not available")
	}
	if strings.TrimSpace(l.entry.AppName) == "" {
		return "", errors.New("app name is required")
	}
	return filepath.Join(l.dir, l.label()+".plist"), nil
}

func (l *launchAgentRegistrar) GetStartup() (bool, error) {
	p, err := l.path()
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *launchAgentRegistrar) SetStartup(enabled bool) error {
	if err := l.entry.validate(); err != nil {
		return err
	}
	p, err := l.path()
	if err != nil {
		return err
	}
	if !enabled {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create LaunchAgents dir: %w", err)
	}

	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n")
	b.WriteString("<plist version=\"1.0\">\n<dict>\n")
	b.WriteString("\t<key>Label</key>\n\t<string>" + escapeXML(l.label()) + "</string>\n")
	b.WriteString("\t<key>ProgramArguments</key>\n\t<array>\n")
	for _, a := range append([]string{l.entry.Exe}, l.entry.Args...) {
		b.WriteString("\t\t<string>" + escapeXML(a) + "</string>\n")
	}
	b.WriteString("\t</array>\n")
	b.WriteString("\t<key>RunAtLoad</key>\n\t<true/>\n")
	b.WriteString("</dict>\n</plist>\n")
	return os.WriteFile(p, []byte(b.String()), 0o644)
}

func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
