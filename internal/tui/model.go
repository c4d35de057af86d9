package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"specrun/internal/color"
	"specrun/internal/results"
)

// MessageType selects the styling of the transient status line.
type MessageType int

const (
	StatusInfo MessageType = iota
	StatusSuccess
	StatusError
)

// featureProgress tracks how far one feature of the run plan has advanced.
type featureProgress struct {
	path      string
	name      string
	scenarios int
	started   bool
	done      int
	failed    int
}

// displayName prefers the feature name and falls back to its path, which is
// all a feature without a Feature: title has.
func (f featureProgress) displayName() string {
	if f.name != "" {
		return f.name
	}
	return f.path
}

// model is the Bubble Tea model behind the live run view. Counters are
// advisory while the run is going (the feed may drop events under
// pressure); once the run.finished event arrives the summary it carries is
// the authoritative result.
type model struct {
	events <-chan tea.Msg
	abort  func()

	spinner spinner.Model
	width   int

	running  bool
	finished bool
	closed   bool

	concurrency int
	features    []featureProgress
	scenarios   int
	done        int
	passed      int
	failed      int
	skipped     int
	undefined   int
	timedOut    int

	activity string
	failures []results.ScenarioResult
	summary  *results.RunSummary

	statusMessage     string
	statusMessageType MessageType
	statusClearCancel chan struct{}
}

// initialModel constructs the model for a run whose events arrive on events.
// abort is called when the user quits while the run is still going.
func initialModel(events <-chan tea.Msg, abort func()) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = color.InfoStyle

	return model{
		events:  events,
		abort:   abort,
		spinner: s,
		width:   80,
	}
}

// Init starts the spinner and the event pump.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForRunEvent(m.events))
}
