package reporting

import (
	tea "github.com/charmbracelet/bubbletea"

	"specrun/pkg/logging"
)

// RunEventMsg is the tea.Msg wrapping a run event for the TUI.
type RunEventMsg struct {
	Event Event
}

var _ tea.Msg = RunEventMsg{}

// TUIReporter forwards run events to the TUI message loop. Step events may
// be dropped when the TUI falls behind; scenario and run events are always
// delivered so the displayed totals stay correct.
type TUIReporter struct {
	buffer *BufferedChannel
}

// NewTUIReporter creates a reporter with the given buffer size.
func NewTUIReporter(bufferSize int) *TUIReporter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &TUIReporter{
		buffer: NewBufferedChannel(bufferSize, RunEventStrategy{}),
	}
}

// Attach subscribes the reporter to the bus.
func (t *TUIReporter) Attach(bus EventBus) *EventSubscription {
	return bus.Subscribe(nil, t.Handle)
}

// Handle processes a single event.
func (t *TUIReporter) Handle(event Event) {
	if !t.buffer.Send(RunEventMsg{Event: event}) && severityRank[event.Severity()] >= severityRank[SeverityWarn] {
		logging.Warn("TUIReporter", "TUI buffer full, dropped %s event", event.Type())
	}
}

// Messages returns the channel the TUI consumes.
func (t *TUIReporter) Messages() <-chan tea.Msg {
	return t.buffer.Channel()
}

// Stats exposes delivery metrics for diagnostics.
func (t *TUIReporter) Stats() ChannelStats {
	return t.buffer.Stats()
}

// Close closes the underlying buffer. Call only after the run has finished
// publishing events.
func (t *TUIReporter) Close() {
	t.buffer.Close()
}
