// Package settings holds the tray configuration and its persistence. The Settings value is passed
// explicitly to the control loop; there is no process-wide settings singleton.
package settings

import (
	"os"
	"strings"
	"time"
)

const (
	// DefaultProcessName is the image name of the supervised daemon.
	DefaultProcessName = "syncthing"
	// DefaultWebURL is the daemon's local web interface.
	DefaultWebURL = "http://127.0.0.1:8080"
	// DefaultPollInterval is the status polling period.
	DefaultPollInterval = time.Second
	// MinPollInterval bounds how often the process table is scanned.
	MinPollInterval = 100 * time.Millisecond
)

// Settings is the persisted tray configuration.
type Settings struct {
	// ExecutablePath is the daemon binary to launch. Empty means not configured.
	ExecutablePath string `yaml:"executable-path" json:"executable-path"`

	// StartOnBoot mirrors the run-at-login registration and enables auto-start of the daemon.
	StartOnBoot bool `yaml:"start-on-boot" json:"start-on-boot"`

	// MinimizeOnStart keeps the panel hidden when the tray launches.
	MinimizeOnStart bool `yaml:"minimize-on-start" json:"minimize-on-start"`

	// ProcessName is the name used for running-state queries and name-based termination.
	ProcessName string `yaml:"process-name,omitempty" json:"process-name,omitempty"`

	// WebURL is opened by "open web interface".
	WebURL string `yaml:"web-url,omitempty" json:"web-url,omitempty"`

	// PollInterval is the status polling period.
	PollInterval time.Duration `yaml:"poll-interval,omitempty" json:"poll-interval,omitempty"`

	// LogLevel selects the application log level (debug, info, warn, error, quiet).
	LogLevel string `yaml:"log-level,omitempty" json:"log-level,omitempty"`

	// LoggingToFile writes application logs to a rotating file next to the settings file.
	LoggingToFile bool `yaml:"logging-to-file,omitempty" json:"logging-to-file,omitempty"`

	// LogsMaxSizeMB caps a single log file before rotation.
	LogsMaxSizeMB int `yaml:"logs-max-size-mb,omitempty" json:"logs-max-size-mb,omitempty"`

	// ControlListen is the loopback address of the HTTP control API. Empty disables it.
	ControlListen string `yaml:"control-listen,omitempty" json:"control-listen,omitempty"`
}

// Default returns the settings used when nothing is persisted yet.
func Default() Settings {
	return Settings{
		ProcessName:  DefaultProcessName,
		WebURL:       DefaultWebURL,
		PollInterval: DefaultPollInterval,
		LogLevel:     "info",
	}
}

// Normalize fills zero values with defaults and trims string fields.
func (s *Settings) Normalize() {
	s.ExecutablePath = strings.TrimSpace(s.ExecutablePath)
	s.ProcessName = strings.TrimSpace(s.ProcessName)
	if s.ProcessName == "" {
		s.ProcessName = DefaultProcessName
	}
	s.WebURL = strings.TrimSpace(s.WebURL)
	if s.WebURL == "" {
		s.WebURL = DefaultWebURL
	}
	if s.PollInterval <= 0 {
		s.PollInterval = DefaultPollInterval
	} else if s.PollInterval < MinPollInterval {
		s.PollInterval = MinPollInterval
	}
	s.ControlListen = strings.TrimSpace(s.ControlListen)
}

// ValidExecutable reports whether path is non-empty and names an existing regular file.
func ValidExecutable(path string) bool {
	path = strings.TrimSpace(path)
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// ApplyEnv overrides fields from SYNCTHINGTRAY_* environment variables.
func (s *Settings) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("SYNCTHINGTRAY_EXECUTABLE")); v != "" {
		s.ExecutablePath = v
	}
	if v := strings.TrimSpace(os.Getenv("SYNCTHINGTRAY_WEB_URL")); v != "" {
		s.WebURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SYNCTHINGTRAY_CONTROL_LISTEN")); v != "" {
		s.ControlListen = v
	}
	if v := strings.TrimSpace(os.Getenv("SYNCTHINGTRAY_LOG_LEVEL")); v != "" {
		s.LogLevel = v
	}
}
