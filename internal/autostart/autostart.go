// Package autostart registers the tray to run at user login.
package autostart

import (
	"fmt"
	"strings"
)

// Registrar reads and changes the run-at-login registration.
type Registrar interface {
	SetStartup(enabled bool) error
	GetStartup() (bool, error)
}

// Entry is what gets registered: the program to run and its arguments.
type Entry struct {
	// AppName identifies the registration (registry value name, desktop file and launch agent
	// label).
	AppName string
	// Exe is the absolute path of the tray binary.
	Exe string
	// Args are passed to Exe at login.
	Args []string
}

func (e Entry) validate() error {
	if strings.TrimSpace(e.AppName) == "" {
		return fmt.Errorf("app name is required")
	}
	if strings.TrimSpace(e.Exe) == "" {
		return fmt.Errorf("autostart command is required")
	}
	return nil
}

// quoteWindowsCommand renders exe and args as a single Run-key command line.
func quoteWindowsCommand(exe string, args []string) string {
	quoted := make([]string, 0, 1+len(args))
	quoted = append(quoted, `"`+strings.ReplaceAll(exe, `"`, `\"`)+`"`)
	for _, a := range args {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if strings.ContainsAny(a, " \t") {
			quoted = append(quoted, `"`+strings.ReplaceAll(a, `"`, `\"`)+`"`)
		} else {
			quoted = append(quoted, a)
		}
	}
	return strings.Join(quoted, " ")
}

// quoteDesktopExec renders exe and args for the Exec key of a desktop entry.
func quoteDesktopExec(exe string, args []string) string {
	parts := make([]string, 0, 1+len(args))
	for _, a := range append([]string{exe}, args...) {
		if a == "" {
			continue
		}
		if strings.ContainsAny(a, " \t\n\"'\\$`") {
			r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)
			a = `"` + r.Replace(a) + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
