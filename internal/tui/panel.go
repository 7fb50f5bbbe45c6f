// Package tui is the terminal control panel: daemon status, the captured output and the settings
// toggles, driven by snapshots from the control loop.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/syncthingtray/syncthingtray/internal/controller"
	"github.com/syncthingtray/syncthingtray/internal/logging"
)

const (
	maxOutputLines = 2000
	actionTimeout  = 30 * time.Second
	headerHeight   = 8
)

// Actions is what the panel asks the control loop to do.
type Actions interface {
	StartProcess(ctx context.Context) error
	StopProcess(ctx context.Context) error
	SetExecutablePath(ctx context.Context, path string) error
	SetStartOnBoot(ctx context.Context, enabled bool) error
	SetMinimizeOnStart(ctx context.Context, enabled bool) error
}

// Exit is why the panel closed.
type Exit int

const (
	// ExitHide leaves the tray running.
	ExitHide Exit = iota
	// ExitQuit ends the application.
	ExitQuit
)

// SnapshotMsg carries a new controller snapshot into the program.
type SnapshotMsg controller.Snapshot

// OutputMsg carries newly captured output lines.
type OutputMsg []logging.LogEntry

// NoticeMsg is a notification from the control loop.
type NoticeMsg struct {
	Title   string
	Message string
}

// actionResultMsg is sent when an action posted to the control loop completes.
type actionResultMsg struct {
	label string
	err   error
}

// Model is the panel's bubbletea model.
type Model struct {
	actions Actions
	openURL func(string) error

	snap  controller.Snapshot
	lines []string

	keys     KeyMap
	help     help.Model
	viewport viewport.Model
	input    textinput.Model
	editing  bool

	busy    bool
	message string
	msgErr  bool

	width  int
	height int
	ready  bool
	exit   Exit
}

// NewModel returns a panel showing snap and the already captured output.
func NewModel(actions Actions, openURL func(string) error, snap controller.Snapshot, output []logging.LogEntry) Model {
	in := textinput.New()
	in.Placeholder = "/path/to/syncthing"
	in.CharLimit = 4096
	in.Prompt = "> "

	m := Model{
		actions:  actions,
		openURL:  openURL,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		viewport: viewport.New(80, 10),
		input:    in,
		width:    80,
		height:   24,
	}
	m.applySnapshot(snap)
	m.appendOutput(output)
	return m
}

// Result reports how the panel was closed.
func (m Model) Result() Exit {
	return m.exit
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m *Model) applySnapshot(s controller.Snapshot) {
	m.snap = s
	m.keys.applySnapshot(s.CanStart && !m.busy, s.CanStop && !m.busy, s.CanToggleBoot && !m.busy)
}

func (m *Model) appendOutput(entries []logging.LogEntry) {
	if len(entries) == 0 {
		return
	}
	atBottom := m.viewport.AtBottom()
	for _, e := range entries {
		m.lines = append(m.lines, renderEntry(e))
	}
	if over := len(m.lines) - maxOutputLines; over > 0 {
		m.lines = append([]string(nil), m.lines[over:]...)
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func renderEntry(e logging.LogEntry) string {
	switch e.Stream {
	case logging.Stderr:
		return StderrStyle.Render(e.Text)
	case logging.System:
		return SystemStyle.Render("» " + e.Text)
	default:
		return e.Text
	}
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	vh := h - headerHeight - 4
	if vh < 3 {
		vh = 3
	}
	m.viewport.Width = w - 2
	m.viewport.Height = vh
	m.input.Width = w - 8
	m.help.Width = w
	m.ready = true
}

func (m Model) runAction(label string, fn func(context.Context) error) (Model, tea.Cmd) {
	m.busy = true
	m.message = label + "..."
	m.msgErr = false
	m.applySnapshot(m.snap)
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionResultMsg{label: label, err: fn(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case SnapshotMsg:
		m.applySnapshot(controller.Snapshot(msg))
		return m, nil

	case OutputMsg:
		m.appendOutput(msg)
		return m, nil

	case NoticeMsg:
		m.message = msg.Title + ": " + msg.Message
		m.msgErr = true
		return m, nil

	case actionResultMsg:
		m.busy = false
		if msg.err != nil {
			m.message = fmt.Sprintf("%s failed: %v", msg.label, msg.err)
			m.msgErr = true
		} else {
			m.message = msg.label + " done"
			m.msgErr = false
		}
		m.applySnapshot(m.snap)
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditor(msg)
		}
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		m.editing = false
		m.input.Blur()
		path := strings.TrimSpace(m.input.Value())
		return m.runAction("set path", func(ctx context.Context) error {
			return m.actions.SetExecutablePath(ctx, path)
		})
	case key.Matches(msg, m.keys.Cancel):
		m.editing = false
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.exit = ExitQuit
		return m, tea.Quit
	case key.Matches(msg, m.keys.Hide):
		m.exit = ExitHide
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if m.busy {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Start):
		return m.runAction("start", m.actions.StartProcess)
	case key.Matches(msg, m.keys.Stop):
		return m.runAction("stop", m.actions.StopProcess)
	case key.Matches(msg, m.keys.ToggleBoot):
		enabled := !m.snap.StartOnBoot
		return m.runAction("start on boot", func(ctx context.Context) error {
			return m.actions.SetStartOnBoot(ctx, enabled)
		})
	case key.Matches(msg, m.keys.ToggleMinimize):
		enabled := !m.snap.MinimizeOnStart
		return m.runAction("minimize on start", func(ctx context.Context) error {
			return m.actions.SetMinimizeOnStart(ctx, enabled)
		})
	case key.Matches(msg, m.keys.EditPath):
		m.editing = true
		m.input.SetValue(m.snap.ExecutablePath)
		m.input.CursorEnd()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.OpenWeb):
		if m.openURL != nil {
			if err := m.openURL(m.snap.WebURL); err != nil {
				m.message, m.msgErr = "open web interface failed: "+err.Error(), true
			}
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("SyncthingTray"))
	b.WriteString("\n\n")

	badge := StoppedBadge.Render(m.snap.StatusText)
	if m.snap.Running {
		badge = RunningBadge.Render(m.snap.StatusText)
	}
	status := badge
	if m.snap.OwnedPID != 0 {
		status += " " + Muted(fmt.Sprintf("pid %d", m.snap.OwnedPID))
	}
	b.WriteString(LabelStyle.Render("Status") + status + "\n")

	path := m.snap.ExecutablePath
	switch {
	case path == "":
		path = Error("not set (press p)")
	case !m.snap.PathValid:
		path = Error(path + " (not found)")
	default:
		path = ValueStyle.Render(path)
	}
	b.WriteString(LabelStyle.Render("Executable") + path + "\n")
	b.WriteString(LabelStyle.Render("Web UI") + ValueStyle.Render(m.snap.WebURL) + "\n")
	b.WriteString(LabelStyle.Render("Options") +
		ValueStyle.Render(checkbox(m.snap.StartOnBoot)+" start on boot  "+checkbox(m.snap.MinimizeOnStart)+" minimize on start") + "\n")

	switch {
	case m.message != "" && m.msgErr:
		b.WriteString(Error(m.message))
	case m.message != "":
		b.WriteString(Success(m.message))
	case m.snap.LastError != "":
		b.WriteString(Error(m.snap.LastError))
	}
	b.WriteString("\n")

	if m.editing {
		b.WriteString(FocusedInputStyle.Render(m.input.View()))
		b.WriteString("\n")
		b.WriteString(m.help.View(editorKeys{submit: m.keys.Submit, cancel: m.keys.Cancel}))
		return b.String()
	}

	b.WriteString(OutputBoxStyle.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return lipgloss.NewStyle().MaxWidth(m.width).Render(b.String())
}
