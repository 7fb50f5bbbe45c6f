package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Settings
		want Settings
	}{
		{
			name: "zero value gets defaults",
			in:   Settings{},
			want: Settings{ProcessName: DefaultProcessName, WebURL: DefaultWebURL, PollInterval: DefaultPollInterval},
		},
		{
			name: "trims strings",
			in:   Settings{ExecutablePath: "  /opt/syncthing  ", ProcessName: " st ", WebURL: " http://x ", PollInterval: 2 * time.Second},
			want: Settings{ExecutablePath: "/opt/syncthing", ProcessName: "st", WebURL: "http://x", PollInterval: 2 * time.Second},
		},
		{
			name: "clamps tiny poll interval",
			in:   Settings{PollInterval: time.Millisecond},
			want: Settings{ProcessName: DefaultProcessName, WebURL: DefaultWebURL, PollInterval: MinPollInterval},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			got.Normalize()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidExecutable(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "syncthing")
	require.NoError(t, os.WriteFile(file, []byte("#!/bin/sh\n"), 0o755))

	assert.True(t, ValidExecutable(file))
	assert.True(t, ValidExecutable("  "+file+"  "))
	assert.False(t, ValidExecutable(""))
	assert.False(t, ValidExecutable("   "))
	assert.False(t, ValidExecutable(filepath.Join(dir, "missing")))
	assert.False(t, ValidExecutable(dir), "a directory is not an executable")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SYNCTHINGTRAY_EXECUTABLE", "/usr/bin/syncthing")
	t.Setenv("SYNCTHINGTRAY_WEB_URL", "http://127.0.0.1:8384")
	t.Setenv("SYNCTHINGTRAY_CONTROL_LISTEN", "127.0.0.1:8390")
	t.Setenv("SYNCTHINGTRAY_LOG_LEVEL", "")

	s := Default()
	s.ApplyEnv()
	assert.Equal(t, "/usr/bin/syncthing", s.ExecutablePath)
	assert.Equal(t, "http://127.0.0.1:8384", s.WebURL)
	assert.Equal(t, "127.0.0.1:8390", s.ControlListen)
	assert.Equal(t, "info", s.LogLevel)
}

func TestFileStore_LoadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "settings.yaml"))
	s, err := store.Load()
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, Default(), s)
}

func TestFileStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	store := NewFileStore(path)

	want := Default()
	want.ExecutablePath = "/usr/local/bin/syncthing"
	want.StartOnBoot = true
	want.MinimizeOnStart = true
	want.PollInterval = 1500 * time.Millisecond

	require.NoError(t, store.Save(want))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileStore_LoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	yml := `
executable-path: /opt/syncthing/syncthing
start-on-boot: true
poll-interval: 3s
control-listen: 127.0.0.1:8390
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	s, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "/opt/syncthing/syncthing", s.ExecutablePath)
	assert.True(t, s.StartOnBoot)
	assert.False(t, s.MinimizeOnStart)
	assert.Equal(t, 3*time.Second, s.PollInterval)
	assert.Equal(t, DefaultProcessName, s.ProcessName)
	assert.Equal(t, DefaultWebURL, s.WebURL)
	assert.Equal(t, "127.0.0.1:8390", s.ControlListen)
}

func TestFileStore_LoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))
	s, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestFileStore_LoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("executable-path: [unterminated"), 0o644))
	s, err := NewFileStore(path).Load()
	assert.Error(t, err)
	assert.Equal(t, Default(), s)
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore(Settings{ExecutablePath: "/a"})
	s, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "/a", s.ExecutablePath)

	s.StartOnBoot = true
	require.NoError(t, m.Save(s))
	got, _ := m.Load()
	assert.True(t, got.StartOnBoot)
	assert.Equal(t, 1, m.Saves())
}

func TestWatch_NotifiesOnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := NewFileStore(path)
	require.NoError(t, store.Save(Default()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func() { changed <- struct{}{} })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	s := Default()
	s.ExecutablePath = "/changed"
	require.NoError(t, store.Save(s))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the change")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
