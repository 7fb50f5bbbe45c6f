//go:build darwin

package desktopctl

import "os/exec"

// ShowNotification posts a Notification Center banner through osascript.
func ShowNotification(title, message string) error {
	script := "display notification " + appleScriptQuote(message) + " with title " + appleScriptQuote(title)
	return exec.Command("osascript", "-e", script).Run()
}
