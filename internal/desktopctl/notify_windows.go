//go:build windows

package desktopctl

import (
	"bytes"
	"encoding/xml"
	"os/exec"
	"syscall"
)

const createNoWindow = 0x08000000

// ShowNotification shows a Windows toast through PowerShell; no COM registration is needed on
// Windows 10 and later.
func ShowNotification(title, message string) error {
	var body bytes.Buffer
	body.WriteString(`<toast><visual><binding template="ToastGeneric"><text>`)
	_ = xml.EscapeText(&body, []byte(title))
	body.WriteString(`</text><text>`)
	_ = xml.EscapeText(&body, []byte(message))
	body.WriteString(`</text></binding></visual></toast>`)

	script := `[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
$xml = New-Object Windows.Data.Xml.Dom.XmlDocument
$xml.LoadXml(` + psQuote(body.String()) + `)
$toast = [Windows.UI.Notifications.ToastNotification]::new($xml)
[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier(` + psQuote(AppDirName) + `).Show($toast)`

	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-Command", script)
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true, CreationFlags: createNoWindow}
	return cmd.Run()
}
