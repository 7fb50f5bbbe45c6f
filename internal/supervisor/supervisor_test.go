package supervisor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/syncthingtray/syncthingtray/internal/errors"
	"github.com/syncthingtray/syncthingtray/internal/logging"
)

// fakeTable simulates processes started outside this supervisor.
type fakeTable struct {
	mu      sync.Mutex
	running map[string]int
	listErr error
	killErr error
	kills   int
}

func newFakeTable() *fakeTable {
	return &fakeTable{running: make(map[string]int)}
}

func (f *fakeTable) register(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running[name]++
}

func (f *fakeTable) Running(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return false, f.listErr
	}
	return f.running[name] > 0, nil
}

func (f *fakeTable) KillByName(name string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.killErr != nil {
		return 0, f.killErr
	}
	n := f.running[name]
	delete(f.running, name)
	f.kills += n
	return n, nil
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script children are not supported on windows")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

// uniqueName stays under the 15 byte limit of /proc/<pid>/comm.
func uniqueName() string {
	return fmt.Sprintf("stt%d", time.Now().UnixNano()%1_000_000_000)
}

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

const loopScript = "while :; do sleep 0.1; done\n"

func TestStart_EmptyOrMissingPathIsNoop(t *testing.T) {
	table := newFakeTable()
	sup := New(Options{Table: table})

	for _, path := range []string{"", "   ", filepath.Join(t.TempDir(), "missing", "syncthing")} {
		started, err := sup.Start(path)
		assert.NoError(t, err, "path %q", path)
		assert.False(t, started, "path %q", path)
		assert.Nil(t, sup.Owned())
		assert.False(t, sup.IsRunning())
	}
}

func TestStart_LaunchFailureIsReported(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()
	notExec := filepath.Join(dir, "syncthing")
	require.NoError(t, os.WriteFile(notExec, []byte("#!/bin/sh\n"), 0o644))

	sup := New(Options{Table: newFakeTable()})
	for _, path := range []string{notExec, dir} {
		started, err := sup.Start(path)
		require.Error(t, err, "path %q", path)
		assert.False(t, started)
		assert.Equal(t, apperrors.KindLaunch, apperrors.KindOf(err))
		assert.Nil(t, sup.Owned())
	}
}

func TestIsRunning_TableErrorReportsNotRunning(t *testing.T) {
	table := newFakeTable()
	table.register(DefaultProcessName)
	table.listErr = errors.New("access denied")
	sup := New(Options{Table: table})
	assert.False(t, sup.IsRunning())
}

func TestStartStop_OwnedProcess(t *testing.T) {
	skipWithoutShell(t)
	name := uniqueName()
	path := writeScript(t, name, loopScript)
	sup := New(Options{ProcessName: name})

	require.False(t, sup.IsRunning())
	started, err := sup.Start(path)
	require.NoError(t, err)
	require.True(t, started)
	require.NotNil(t, sup.Owned())

	require.Eventually(t, sup.IsRunning, 2*time.Second, 50*time.Millisecond)

	again, err := sup.Start(path)
	assert.NoError(t, err)
	assert.False(t, again, "second start while owned must be a no-op")

	method, err := sup.Stop()
	require.NoError(t, err)
	assert.Equal(t, StopByHandle, method)
	assert.Nil(t, sup.Owned())
	assert.False(t, sup.IsRunning())
}

func TestStop_ImmediatelyAfterStart(t *testing.T) {
	skipWithoutShell(t)
	name := uniqueName()
	path := writeScript(t, name, loopScript)
	sup := New(Options{ProcessName: name})

	started, err := sup.Start(path)
	require.NoError(t, err)
	require.True(t, started)

	method, err := sup.Stop()
	require.NoError(t, err)
	assert.Equal(t, StopByHandle, method)
	assert.Nil(t, sup.Owned())
	assert.False(t, sup.IsRunning())
}

func TestStop_ByNameWhenNotOwned(t *testing.T) {
	table := newFakeTable()
	table.register(DefaultProcessName)
	sup := New(Options{Table: table, ExitTimeout: time.Second})

	require.True(t, sup.IsRunning())
	method, err := sup.Stop()
	require.NoError(t, err)
	assert.Equal(t, StopByName, method)
	assert.Equal(t, 1, table.kills)
	assert.False(t, sup.IsRunning())
}

func TestStop_ByNameNothingRunning(t *testing.T) {
	sup := New(Options{Table: newFakeTable()})
	method, err := sup.Stop()
	require.Error(t, err)
	assert.Equal(t, StopByName, method)
	assert.Equal(t, apperrors.KindTerminate, apperrors.KindOf(err))
}

func TestStop_ByNameKillFails(t *testing.T) {
	table := newFakeTable()
	table.register(DefaultProcessName)
	table.killErr = errors.New("operation not permitted")
	sup := New(Options{Table: table})

	_, err := sup.Stop()
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTerminate, apperrors.KindOf(err))
	assert.ErrorContains(t, err, "operation not permitted")
}

func TestStop_AfterSelfExitClearsHandle(t *testing.T) {
	skipWithoutShell(t)
	name := uniqueName()
	path := writeScript(t, name, "exit 0\n")
	sup := New(Options{ProcessName: name})

	_, err := sup.Start(path)
	require.NoError(t, err)
	h := sup.Owned()
	require.NotNil(t, h)
	select {
	case <-h.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("script did not exit")
	}

	method, err := sup.Stop()
	require.Error(t, err)
	assert.Equal(t, StopByHandle, method)
	assert.Equal(t, apperrors.KindTerminate, apperrors.KindOf(err))
	assert.ErrorIs(t, err, os.ErrProcessDone)
	assert.Nil(t, sup.Owned(), "handle is cleared even when the kill fails")
}

func TestReap_SelfExit(t *testing.T) {
	skipWithoutShell(t)
	name := uniqueName()
	path := writeScript(t, name, "echo bye\nexit 3\n")
	sup := New(Options{ProcessName: name})

	_, err := sup.Start(path)
	require.NoError(t, err)

	var exit Exit
	require.Eventually(t, func() bool {
		var ok bool
		exit, ok = sup.Reap()
		return ok
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, 3, exit.Code)
	assert.Nil(t, sup.Owned())
	assert.False(t, sup.IsRunning())

	_, ok := sup.Reap()
	assert.False(t, ok, "nothing left to reap")
}

func TestOutput_OrderPreservedUnderBurst(t *testing.T) {
	skipWithoutShell(t)
	const n = 2000
	name := uniqueName()
	path := writeScript(t, name, fmt.Sprintf(`i=0
while [ $i -lt %d ]; do
  echo "out $i"
  echo "err $i" >&2
  i=$((i+1))
done
`, n))
	// A small channel forces the readers to block until the test drains.
	sup := New(Options{ProcessName: name, LineBuffer: 16})

	_, err := sup.Start(path)
	require.NoError(t, err)

	var stdout, stderr []string
	deadline := time.Now().Add(20 * time.Second)
	for len(stdout)+len(stderr) < 2*n && time.Now().Before(deadline) {
		lines := sup.Drain(0)
		if len(lines) == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		for _, l := range lines {
			switch l.Stream {
			case logging.Stdout:
				stdout = append(stdout, l.Text)
			case logging.Stderr:
				stderr = append(stderr, l.Text)
			default:
				t.Fatalf("unexpected stream %q", l.Stream)
			}
		}
	}

	require.Len(t, stdout, n)
	require.Len(t, stderr, n)
	for i := 0; i < n; i++ {
		if stdout[i] != fmt.Sprintf("out %d", i) {
			t.Fatalf("stdout[%d] = %q", i, stdout[i])
		}
		if stderr[i] != fmt.Sprintf("err %d", i) {
			t.Fatalf("stderr[%d] = %q", i, stderr[i])
		}
	}
}

func TestStop_DetachesOutput(t *testing.T) {
	skipWithoutShell(t)
	name := uniqueName()
	path := writeScript(t, name, "while :; do echo tick; sleep 0.01; done\n")
	sup := New(Options{ProcessName: name})

	_, err := sup.Start(path)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(sup.Lines()) > 0 }, 3*time.Second, 10*time.Millisecond)

	_, err = sup.Stop()
	require.NoError(t, err)
	sup.Drain(0)

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, sup.Drain(0), "no output may be delivered after stop")
}

func TestDrain_RespectsMax(t *testing.T) {
	sup := New(Options{Table: newFakeTable(), LineBuffer: 8})
	for i := 0; i < 5; i++ {
		sup.lines <- Line{Text: fmt.Sprint(i)}
	}
	first := sup.Drain(2)
	require.Len(t, first, 2)
	assert.Equal(t, "0", first[0].Text)
	rest := sup.Drain(0)
	require.Len(t, rest, 3)
	assert.Equal(t, "4", rest[2].Text)
	assert.Empty(t, sup.Drain(0))
}

func TestSyncthingScenario(t *testing.T) {
	const path = "/usr/local/bin/syncthing"
	if _, err := os.Stat(path); err != nil {
		t.Skip("syncthing not installed at " + path)
	}
	sup := New(Options{Args: []string{"--no-browser"}})
	if sup.IsRunning() {
		t.Skip("a syncthing instance is already running")
	}

	_, err := sup.Start(path)
	require.NoError(t, err)
	require.Eventually(t, sup.IsRunning, 2*time.Second, 100*time.Millisecond)

	_, err = sup.Stop()
	require.NoError(t, err)
	assert.False(t, sup.IsRunning())
}

func TestSameName(t *testing.T) {
	tests := []struct {
		a, b     string
		foldCase bool
		want     bool
	}{
		{"syncthing", "syncthing", false, true},
		{"syncthing.exe", "syncthing", true, true},
		{"Syncthing.EXE", "syncthing", true, true},
		{"Syncthing", "syncthing", false, false},
		{"syncthing-inotify", "syncthing", false, false},
		{"", "syncthing", false, false},
		{".exe", ".exe", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, sameName(tt.a, tt.b, tt.foldCase))
		})
	}
}
