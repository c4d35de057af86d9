package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// eventsClosedMsg signals that the reporter closed the event channel.
type eventsClosedMsg struct{}

// waitForRunEvent returns a tea.Cmd that delivers the next message from the
// reporter channel. Update re-issues it after every delivery so the pump
// stays alive for the whole run.
func waitForRunEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return msg
	}
}
