//go:build !windows && !darwin

package desktopctl

import "os/exec"

// ShowNotification uses notify-send when the desktop provides it and is a no-op otherwise.
func ShowNotification(title, message string) error {
	bin, err := lookPath("notify-send")
	if err != nil {
		return nil
	}
	return exec.Command(bin, "--app-name="+AppDirName, title, message).Run()
}
