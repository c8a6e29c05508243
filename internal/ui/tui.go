// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for player UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// CommandKind identifies a user action from the TUI
type CommandKind int

const (
	CommandPause CommandKind = iota
	CommandResume
	CommandStop
	CommandVolume
	CommandQuit
)

// Command is a user action for the player
type Command struct {
	Kind   CommandKind
	Volume int
	Muted  bool
}

// Controls carries user commands from the TUI to the player
type Controls struct {
	Commands chan Command
}

// NewControls creates a new control channel set
func NewControls() *Controls {
	return &Controls{
		Commands: make(chan Command, 10),
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls, volume int) Model {
	return Model{
		volume:   volume,
		state:    "idle",
		controls: controls,
	}
}

// Run creates the TUI program; the caller starts it
func Run(controls *Controls, volume int) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(controls, volume), tea.WithAltScreen())
	return p, nil
}
