package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncthingtray/syncthingtray/internal/controller"
	"github.com/syncthingtray/syncthingtray/internal/logging"
)

type fakeActions struct {
	calls    []string
	path     string
	boot     bool
	minimize bool
	err      error
}

func (f *fakeActions) StartProcess(context.Context) error {
	f.calls = append(f.calls, "start")
	return f.err
}

func (f *fakeActions) StopProcess(context.Context) error {
	f.calls = append(f.calls, "stop")
	return f.err
}

func (f *fakeActions) SetExecutablePath(_ context.Context, p string) error {
	f.calls = append(f.calls, "path")
	f.path = p
	return f.err
}

func (f *fakeActions) SetStartOnBoot(_ context.Context, on bool) error {
	f.calls = append(f.calls, "boot")
	f.boot = on
	return f.err
}

func (f *fakeActions) SetMinimizeOnStart(_ context.Context, on bool) error {
	f.calls = append(f.calls, "minimize")
	f.minimize = on
	return f.err
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func stopped(pathValid bool) controller.Snapshot {
	return controller.Snapshot{
		StatusText:     controller.StatusNotRunning,
		StatusColor:    controller.Red,
		CanStart:       pathValid,
		CanToggleBoot:  pathValid,
		PathValid:      pathValid,
		ExecutablePath: "/usr/bin/syncthing",
		WebURL:         "http://127.0.0.1:8080",
	}
}

// press applies msg and, when it started an action, runs the action and feeds its result in.
func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd != nil && m.busy {
		if res, ok := cmd().(actionResultMsg); ok {
			next, _ = m.Update(res)
			m = next.(Model)
		}
	}
	return m
}

func TestStartKey_OnlyWhenAllowed(t *testing.T) {
	a := &fakeActions{}
	m := NewModel(a, nil, stopped(false), nil)

	m = press(t, m, runes("s"))
	assert.Empty(t, a.calls, "start must be disabled without a valid path")

	m = press(t, m, SnapshotMsg(stopped(true)))
	m = press(t, m, runes("s"))
	assert.Equal(t, []string{"start"}, a.calls)
	assert.Equal(t, "start done", m.message)
	assert.False(t, m.busy)
}

func TestStopKey_OnlyWhenRunning(t *testing.T) {
	a := &fakeActions{}
	m := NewModel(a, nil, stopped(true), nil)
	m = press(t, m, runes("x"))
	assert.Empty(t, a.calls)

	running := stopped(true)
	running.Running, running.StatusText, running.CanStart, running.CanStop = true, controller.StatusRunning, false, true
	m = press(t, m, SnapshotMsg(running))
	m = press(t, m, runes("x"))
	assert.Equal(t, []string{"stop"}, a.calls)
	assert.Contains(t, m.View(), controller.StatusRunning)
}

func TestActionFailureIsShown(t *testing.T) {
	a := &fakeActions{err: errors.New("permission denied")}
	m := NewModel(a, nil, stopped(true), nil)
	m = press(t, m, runes("s"))
	assert.True(t, m.msgErr)
	assert.Contains(t, m.message, "start failed: permission denied")
	assert.Contains(t, m.View(), "permission denied")
}

func TestBusyBlocksSecondAction(t *testing.T) {
	a := &fakeActions{}
	m := NewModel(a, nil, stopped(true), nil)
	next, cmd := m.Update(runes("s"))
	require.NotNil(t, cmd)
	m = next.(Model)
	_, cmd2 := m.Update(runes("s"))
	assert.Nil(t, cmd2)
}

func TestToggles(t *testing.T) {
	a := &fakeActions{}
	m := NewModel(a, nil, stopped(true), nil)

	m = press(t, m, runes("b"))
	assert.True(t, a.boot)
	m = press(t, m, runes("m"))
	assert.True(t, a.minimize)

	noPath := stopped(false)
	m = press(t, m, SnapshotMsg(noPath))
	a.calls = nil
	press(t, m, runes("b"))
	assert.Empty(t, a.calls, "start on boot needs a valid path")
}

func TestEditPath(t *testing.T) {
	a := &fakeActions{}
	m := NewModel(a, nil, stopped(false), nil)

	m = press(t, m, runes("p"))
	require.True(t, m.editing)
	assert.Equal(t, "/usr/bin/syncthing", m.input.Value())

	m.input.SetValue("")
	m = press(t, m, runes("/opt/st"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.editing)
	assert.Equal(t, "/opt/st", a.path)

	m = press(t, m, runes("p"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.editing)
	assert.Equal(t, []string{"path"}, a.calls)
}

func TestHideAndQuit(t *testing.T) {
	m := NewModel(&fakeActions{}, nil, stopped(true), nil)

	next, cmd := m.Update(runes("h"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, ExitHide, next.(Model).Result())

	next, cmd = m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, ExitQuit, next.(Model).Result())
}

func TestOpenWeb(t *testing.T) {
	var opened string
	m := NewModel(&fakeActions{}, func(u string) error { opened = u; return nil }, stopped(true), nil)
	press(t, m, runes("o"))
	assert.Equal(t, "http://127.0.0.1:8080", opened)

	m = NewModel(&fakeActions{}, func(string) error { return errors.New("no browser") }, stopped(true), nil)
	m = press(t, m, runes("o"))
	assert.Contains(t, m.message, "no browser")
}

func TestOutputIsAppendedInOrder(t *testing.T) {
	initial := []logging.LogEntry{{Stream: logging.Stdout, Text: "first"}}
	m := NewModel(&fakeActions{}, nil, stopped(true), initial)
	m = press(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = press(t, m, OutputMsg{
		{Stream: logging.Stdout, Text: "second"},
		{Stream: logging.Stderr, Text: "third"},
		{Stream: logging.System, Text: "syncthing exited"},
	})

	require.Len(t, m.lines, 4)
	assert.Equal(t, "first", m.lines[0])
	assert.Equal(t, "second", m.lines[1])
	assert.Contains(t, m.lines[2], "third")
	assert.Contains(t, m.lines[3], "syncthing exited")
	assert.Contains(t, m.View(), "second")
}

func TestOutputIsBounded(t *testing.T) {
	m := NewModel(&fakeActions{}, nil, stopped(true), nil)
	batch := make(OutputMsg, maxOutputLines+10)
	for i := range batch {
		batch[i] = logging.LogEntry{Stream: logging.Stdout, Text: strings.Repeat("x", i%5+1)}
	}
	m = press(t, m, batch)
	assert.Len(t, m.lines, maxOutputLines)
}

func TestNoticeIsShown(t *testing.T) {
	m := NewModel(&fakeActions{}, nil, stopped(true), nil)
	m = press(t, m, NoticeMsg{Title: "Settings", Message: "could not load"})
	assert.Contains(t, m.View(), "Settings: could not load")
}

func TestViewShowsInvalidPath(t *testing.T) {
	snap := stopped(false)
	snap.ExecutablePath = "/missing/syncthing"
	m := NewModel(&fakeActions{}, nil, snap, nil)
	assert.Contains(t, m.View(), "/missing/syncthing (not found)")
}

func TestProgramView_DoesNotBlock(t *testing.T) {
	v := newProgramView()
	for i := 0; i < viewQueueSize+50; i++ {
		v.Render(controller.Snapshot{})
	}
	assert.Len(t, v.queue, viewQueueSize)
	v.close()
	v.Notify("a", "b")
}
