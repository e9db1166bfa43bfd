package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	edit    key.Binding
	submit  key.Binding
	back    key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "tracks")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.edit, k.submit, k.back},
		{k.restart, k.quit},
	}
}
