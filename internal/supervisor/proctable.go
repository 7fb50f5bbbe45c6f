package supervisor

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessTable answers running-state queries against the host process table and kills processes
// by name. Implementations perform a one-shot scan per call.
type ProcessTable interface {
	// Running reports whether any live process has the given name.
	Running(name string) (bool, error)
	// KillByName kills every live process with the given name, except the caller itself, and
	// returns how many were signalled.
	KillByName(name string) (int, error)
}

// GopsutilTable is the ProcessTable backed by the host process list.
type GopsutilTable struct{}

func (GopsutilTable) Running(name string) (bool, error) {
	procs, err := process.Processes()
	if err != nil {
		return false, fmt.Errorf("list processes: %w", err)
	}
	for _, p := range procs {
		if matchesName(p, name) {
			return true, nil
		}
	}
	return false, nil
}

func (GopsutilTable) KillByName(name string) (int, error) {
	procs, err := process.Processes()
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}
	self := int32(os.Getpid())
	killed := 0
	var errs []error
	for _, p := range procs {
		if p.Pid == self || !matchesName(p, name) {
			continue
		}
		if err := p.Kill(); err != nil {
			errs = append(errs, fmt.Errorf("kill pid %d: %w", p.Pid, err))
			continue
		}
		killed++
	}
	return killed, errors.Join(errs...)
}

func matchesName(p *process.Process, want string) bool {
	name, err := p.Name()
	if err != nil {
		// Processes we cannot inspect are not ours to report or kill.
		return false
	}
	if !SameName(name, want) {
		return false
	}
	if status, err := p.Status(); err == nil {
		for _, s := range status {
			if s == process.Zombie {
				return false
			}
		}
	}
	return true
}

// SameName compares two process image names the way the host does: an ".exe" suffix is ignored,
// and on Windows the comparison is case-insensitive.
func SameName(a, b string) bool {
	return sameName(a, b, runtime.GOOS == "windows")
}

func sameName(a, b string, foldCase bool) bool {
	a, b = trimExe(a), trimExe(b)
	if a == "" || b == "" {
		return false
	}
	if foldCase {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func trimExe(name string) string {
	name = strings.TrimSpace(name)
	if len(name) > 4 && strings.EqualFold(name[len(name)-4:], ".exe") {
		return name[:len(name)-4]
	}
	return name
}
