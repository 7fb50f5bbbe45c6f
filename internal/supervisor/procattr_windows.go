//go:build windows

package supervisor

import (
	"os"
	"os/exec"
	"syscall"
)

// setSysProcAttr sets Windows-specific process attributes to hide the console window.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}

func killProcess(p *os.Process) error {
	return p.Kill()
}
