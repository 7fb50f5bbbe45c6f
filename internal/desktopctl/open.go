package desktopctl

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/pkg/browser"
)

func init() {
	// The launcher's own chatter must not reach the terminal the panel draws on.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// openURL and openFile are swapped out in tests.
var (
	openURL  = browser.OpenURL
	openFile = browser.OpenFile
)

// OpenBrowser opens an http(s) URL in the user's default browser.
func OpenBrowser(raw string) error {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", raw)
	}
	return openURL(u.String())
}

// OpenFolder opens a directory in the platform file manager.
func OpenFolder(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("folder path is empty")
	}
	return openFile(path)
}
