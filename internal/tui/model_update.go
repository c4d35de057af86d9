package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"specrun/internal/reporting"
	"specrun/internal/results"
	"specrun/pkg/logging"
)

// clearStatusMsg removes the transient status line again.
type clearStatusMsg struct{}

// setStatusMessage updates the status line and schedules clearing it after
// the given duration. A still-pending clear from an earlier message is
// cancelled so it cannot wipe the newer one.
func (m *model) setStatusMessage(message string, msgType MessageType, clearAfter time.Duration) tea.Cmd {
	m.statusMessage = message
	m.statusMessageType = msgType

	if m.statusClearCancel != nil {
		close(m.statusClearCancel)
	}
	m.statusClearCancel = make(chan struct{})
	captured := m.statusClearCancel

	return tea.Tick(clearAfter, func(time.Time) tea.Msg {
		select {
		case <-captured:
			return nil
		default:
			return clearStatusMsg{}
		}
	})
}

// Update handles all incoming messages.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case reporting.RunEventMsg:
		m.applyRunEvent(msg.Event)
		return m, waitForRunEvent(m.events)

	case eventsClosedMsg:
		m.closed = true
		return m, nil

	case clearStatusMsg:
		m.statusMessage = ""
		return m, nil
	}

	return m, nil
}

// handleKey processes the shortcuts the run view supports.
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		if !m.finished && m.abort != nil {
			m.abort()
		}
		return m, tea.Quit

	case "c":
		text := m.failureSummary()
		if text == "" {
			return m, m.setStatusMessage("No failures to copy", StatusInfo, 2*time.Second)
		}
		if err := clipboard.WriteAll(text); err != nil {
			logging.Error("TUI", err, "Failed to copy failure summary")
			return m, m.setStatusMessage("Copy failed", StatusError, 3*time.Second)
		}
		return m, m.setStatusMessage("Failure summary copied", StatusSuccess, 3*time.Second)
	}

	return m, nil
}

// applyRunEvent folds one run event into the view state.
func (m *model) applyRunEvent(ev reporting.Event) {
	switch ev := ev.(type) {
	case reporting.RunStartedEvent:
		m.running = true
		m.concurrency = ev.Concurrency
		m.scenarios = ev.Scenarios
		m.features = make([]featureProgress, 0, len(ev.Plan))
		for _, plan := range ev.Plan {
			m.features = append(m.features, featureProgress{
				path:      plan.Path,
				name:      plan.Name,
				scenarios: plan.Scenarios,
			})
		}

	case reporting.FeatureStartedEvent:
		if ev.FeatureIndex >= 0 && ev.FeatureIndex < len(m.features) {
			m.features[ev.FeatureIndex].started = true
		}

	case reporting.StepStartedEvent:
		m.activity = strings.TrimSpace(ev.Keyword + " " + ev.Text)

	case reporting.ScenarioFinishedEvent:
		m.recordScenario(ev.Result)

	case reporting.RunFinishedEvent:
		m.finished = true
		m.activity = ""
		m.summary = ev.Summary
	}
}

// recordScenario updates the counters and the failure list for one result.
// The bucketing mirrors the collector: a failed scenario whose steps timed
// out counts as timed out, everything else lands in exactly one column.
func (m *model) recordScenario(res results.ScenarioResult) {
	m.done++
	switch {
	case res.Status == results.ScenarioPassed:
		m.passed++
	case res.Status == results.ScenarioSkipped:
		m.skipped++
	case res.Status == results.ScenarioUndefined:
		m.undefined++
	case res.Status == results.ScenarioFailed && res.TimedOut():
		m.timedOut++
	default:
		m.failed++
	}

	broken := res.Status != results.ScenarioPassed && res.Status != results.ScenarioSkipped
	if broken {
		m.failures = append(m.failures, res)
	}

	if res.FeatureIndex >= 0 && res.FeatureIndex < len(m.features) {
		f := &m.features[res.FeatureIndex]
		f.done++
		if broken {
			f.failed++
		}
	}
}

// failureSummary renders every broken scenario as plain text, one block per
// scenario followed by its non-passing steps. This is what the c key puts
// on the clipboard.
func (m model) failureSummary() string {
	if len(m.failures) == 0 {
		return ""
	}

	var b strings.Builder
	for _, res := range m.failures {
		fmt.Fprintf(&b, "%s [%s]", res.Ref(), res.Status)
		if res.Reason != "" {
			fmt.Fprintf(&b, ": %s", res.Reason)
		}
		b.WriteByte('\n')
		for _, step := range res.Steps {
			if step.Status == results.StepPassed || step.Status == results.StepSkipped {
				continue
			}
			fmt.Fprintf(&b, "  %s %s [%s]", step.Keyword, step.Text, step.Status)
			if step.Reason != "" {
				fmt.Fprintf(&b, ": %s", step.Reason)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
