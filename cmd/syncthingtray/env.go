package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/syncthingtray/syncthingtray/internal/desktopctl"
	"github.com/syncthingtray/syncthingtray/internal/logging"
	"github.com/syncthingtray/syncthingtray/internal/settings"
)

func (g *globalFlags) resolvedSettingsPath() string {
	if p := strings.TrimSpace(g.settingsPath); p != "" {
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return desktopctl.DefaultSettingsPath()
}

// loadDotEnv loads .env from the settings directory and the working directory. Variables already
// set in the environment win.
func loadDotEnv(settingsPath string) {
	candidates := []string{filepath.Join(filepath.Dir(settingsPath), ".env")}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, ".env"))
	}
	for _, p := range candidates {
		if err := godotenv.Load(p); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.WithError(err).Warnf("failed to load %s", p)
			}
			continue
		}
		log.Debugf("loaded environment from %s", p)
	}
}

// loadSettings reads the settings file and returns the stored settings next to the effective
// ones (stored plus environment overrides). Only the stored copy may be saved back. With
// firstRun, a missing file is created with a discovered syncthing binary; read-only commands pass
// false and leave the disk alone.
func loadSettings(g *globalFlags, firstRun bool) (store *settings.FileStore, stored, effective settings.Settings, err error) {
	path := g.resolvedSettingsPath()
	loadDotEnv(path)
	store = settings.NewFileStore(path)

	stored, err = store.Load()
	switch {
	case err == nil:
	case errors.Is(err, settings.ErrNotFound):
		err = nil
		stored = settings.Default()
		if firstRun {
			stored.ExecutablePath = desktopctl.DiscoverExecutable(stored.ProcessName)
			if stored.ExecutablePath != "" {
				log.WithField("path", stored.ExecutablePath).Info("first run: found syncthing")
			}
			if errSave := store.Save(stored); errSave != nil {
				log.WithError(errSave).Warn("failed to write initial settings")
			}
		}
	default:
		return store, settings.Default(), settings.Default(), err
	}
	stored.Normalize()
	effective = stored
	effective.ApplyEnv()
	effective.Normalize()

	level := effective.LogLevel
	if g.logLevel != "" {
		level = g.logLevel
	}
	logging.SetLogLevel(level)
	return store, stored, effective, nil
}
