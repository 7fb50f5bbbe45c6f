package tui

import (
	"context"
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/syncthingtray/syncthingtray/internal/controller"
	"github.com/syncthingtray/syncthingtray/internal/logging"
)

const viewQueueSize = 1024

// Source is the control loop as seen by the panel.
type Source interface {
	Actions
	Snapshot() controller.Snapshot
	Output(n int) []logging.LogEntry
	Attach(v controller.View) (detach func())
}

// Options configures Run.
type Options struct {
	// OpenURL opens the web interface; nil disables the key.
	OpenURL func(string) error
	// Input and Output default to the terminal.
	Input  io.Reader
	Output io.Writer
	// AltScreen renders full-screen.
	AltScreen bool
}

// programView forwards control loop updates into a running program. Render, AppendOutput and
// Notify never block the control loop: messages are queued and sent in order by one goroutine.
type programView struct {
	queue chan tea.Msg
	once  sync.Once
	done  chan struct{}
}

func newProgramView() *programView {
	return &programView{queue: make(chan tea.Msg, viewQueueSize), done: make(chan struct{})}
}

func (v *programView) enqueue(msg tea.Msg) {
	select {
	case <-v.done:
	case v.queue <- msg:
	default:
		log.Debug("panel update queue full, dropping update")
	}
}

func (v *programView) Render(s controller.Snapshot)      { v.enqueue(SnapshotMsg(s)) }
func (v *programView) AppendOutput(e []logging.LogEntry) { v.enqueue(OutputMsg(e)) }
func (v *programView) Notify(title, message string) {
	v.enqueue(NoticeMsg{Title: title, Message: message})
}
func (v *programView) close() { v.once.Do(func() { close(v.done) }) }

func (v *programView) forward(p *tea.Program) {
	for {
		select {
		case <-v.done:
			return
		case msg := <-v.queue:
			p.Send(msg)
		}
	}
}

// Run shows the panel until the user hides it, quits, or ctx is cancelled. Cancellation reports
// ExitQuit.
func Run(ctx context.Context, src Source, opts Options) (Exit, error) {
	model := NewModel(src, opts.OpenURL, src.Snapshot(), src.Output(maxOutputLines))

	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	p := tea.NewProgram(model, progOpts...)

	view := newProgramView()
	detach := src.Attach(view)
	go view.forward(p)
	defer func() {
		detach()
		view.close()
	}()

	final, err := p.Run()
	if ctx.Err() != nil {
		return ExitQuit, nil
	}
	if err != nil {
		return ExitQuit, fmt.Errorf("failed to run panel: %w", err)
	}
	if fm, ok := final.(Model); ok {
		return fm.Result(), nil
	}
	return ExitQuit, nil
}
