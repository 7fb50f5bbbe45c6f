package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the panel.
type KeyMap struct {
	Start          key.Binding
	Stop           key.Binding
	EditPath       key.Binding
	ToggleBoot     key.Binding
	ToggleMinimize key.Binding
	OpenWeb        key.Binding
	Hide           key.Binding
	Quit           key.Binding
	Help           key.Binding

	// Path editor
	Submit key.Binding
	Cancel key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start"),
		),
		Stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop"),
		),
		EditPath: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "executable path"),
		),
		ToggleBoot: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "start on boot"),
		),
		ToggleMinimize: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "minimize on start"),
		),
		OpenWeb: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "web interface"),
		),
		Hide: key.NewBinding(
			key.WithKeys("h", "esc"),
			key.WithHelp("h", "hide to tray"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "exit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "save"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.OpenWeb, k.Hide, k.Quit, k.Help}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Stop, k.OpenWeb},
		{k.EditPath, k.ToggleBoot, k.ToggleMinimize},
		{k.Hide, k.Quit, k.Help},
	}
}

// editorKeys is the help shown while the path editor has focus.
type editorKeys struct {
	submit, cancel key.Binding
}

func (e editorKeys) ShortHelp() []key.Binding  { return []key.Binding{e.submit, e.cancel} }
func (e editorKeys) FullHelp() [][]key.Binding { return [][]key.Binding{e.ShortHelp()} }

// applySnapshot enables only the actions the current state allows.
func (k *KeyMap) applySnapshot(canStart, canStop, canToggleBoot bool) {
	k.Start.SetEnabled(canStart)
	k.Stop.SetEnabled(canStop)
	k.ToggleBoot.SetEnabled(canToggleBoot)
}
