package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// NewProgram builds the Bubble Tea program for one run. events is the
// message stream of a reporting.TUIReporter; abort is invoked when the user
// quits while scenarios are still executing so the caller can cancel the
// run. The view renders inline rather than on the alternate screen, leaving
// the final frame in the terminal scrollback.
func NewProgram(events <-chan tea.Msg, abort func()) *tea.Program {
	return tea.NewProgram(initialModel(events, abort))
}
