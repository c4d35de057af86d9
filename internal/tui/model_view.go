package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"specrun/internal/color"
)

// maxVisibleFailures caps the failure list so the view stays small on big
// runs; the clipboard copy always carries the full list.
const maxVisibleFailures = 5

// View renders the run view: header, per-feature progress, the step
// currently executing, the failure list, and a footer with counters and
// shortcuts.
func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if len(m.features) > 0 {
		b.WriteString("\n")
		b.WriteString(m.renderFeatures())
	}

	if m.activity != "" && !m.finished {
		b.WriteString("\n  ")
		b.WriteString(color.MutedStyle.Render(truncate("> "+m.activity, m.width-2)))
		b.WriteString("\n")
	}

	if len(m.failures) > 0 {
		b.WriteString("\n")
		b.WriteString(m.renderFailures())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	b.WriteString("\n")
	return b.String()
}

func (m model) renderHeader() string {
	title := color.HeaderStyle.Render("specrun")

	switch {
	case m.finished && m.summary != nil:
		verdict := color.SuccessStyle.Render("✓ run passed")
		if m.summary.Failing() {
			verdict = color.ErrorStyle.Render("✗ run failed")
		}
		return fmt.Sprintf("%s %s in %s", title, verdict, m.summary.Duration.Round(time.Millisecond))

	case m.running:
		progress := fmt.Sprintf("%d/%d scenarios", m.done, m.scenarios)
		if m.concurrency > 1 {
			progress += fmt.Sprintf(", %d workers", m.concurrency)
		}
		return fmt.Sprintf("%s %s %s", m.spinner.View(), title, color.MutedStyle.Render(progress))

	default:
		return fmt.Sprintf("%s %s %s", m.spinner.View(), title, color.MutedStyle.Render("waiting for the run to start"))
	}
}

// renderFeatures lists every feature of the plan in source order with a
// completion marker and its scenario progress.
func (m model) renderFeatures() string {
	nameWidth := 0
	for _, f := range m.features {
		if w := runewidth.StringWidth(f.displayName()); w > nameWidth {
			nameWidth = w
		}
	}
	if limit := m.width - 16; limit > 0 && nameWidth > limit {
		nameWidth = limit
	}

	var b strings.Builder
	for _, f := range m.features {
		marker := color.MutedStyle.Render("·")
		switch {
		case f.scenarios > 0 && f.done >= f.scenarios && f.failed > 0:
			marker = color.ErrorStyle.Render("✗")
		case f.scenarios > 0 && f.done >= f.scenarios:
			marker = color.SuccessStyle.Render("✓")
		case f.started:
			marker = m.spinner.View()
		}

		name := runewidth.FillRight(runewidth.Truncate(f.displayName(), nameWidth, "…"), nameWidth)
		fmt.Fprintf(&b, "  %s %s  %d/%d\n", marker, name, f.done, f.scenarios)
	}
	return b.String()
}

func (m model) renderFailures() string {
	var b strings.Builder
	b.WriteString("  " + color.ErrorStyle.Render("Failures") + "\n")
	for i, res := range m.failures {
		if i == maxVisibleFailures {
			more := fmt.Sprintf("… and %d more", len(m.failures)-maxVisibleFailures)
			b.WriteString("    " + color.MutedStyle.Render(more) + "\n")
			break
		}
		line := res.Ref()
		if res.Reason != "" {
			line += ": " + res.Reason
		}
		fmt.Fprintf(&b, "    %s %s\n", color.ErrorStyle.Render("✗"), truncate(line, m.width-6))
	}
	return b.String()
}

func (m model) renderFooter() string {
	var parts []string

	if m.running || m.finished {
		parts = append(parts, m.renderCounts())
	}
	if m.statusMessage != "" {
		style := color.InfoStyle
		switch m.statusMessageType {
		case StatusSuccess:
			style = color.SuccessStyle
		case StatusError:
			style = color.ErrorStyle
		}
		parts = append(parts, style.Render(m.statusMessage))
	}

	help := "q quit"
	if !m.finished {
		help = "q abort"
	}
	if len(m.failures) > 0 {
		help += " • c copy failures"
	}
	parts = append(parts, color.MutedStyle.Render(help))

	return "  " + strings.Join(parts, "   ")
}

// renderCounts shows the scenario columns, preferring the authoritative
// summary once the run has finished over the live counters.
func (m model) renderCounts() string {
	passed, failed, skipped, undefined, timedOut := m.passed, m.failed, m.skipped, m.undefined, m.timedOut
	if m.summary != nil {
		s := m.summary.Scenarios
		passed, failed, skipped, undefined, timedOut = s.Passed, s.Failed, s.Skipped, s.Undefined, s.TimedOut
	}

	segs := []string{color.SuccessStyle.Render(fmt.Sprintf("%d passed", passed))}
	if failed > 0 {
		segs = append(segs, color.ErrorStyle.Render(fmt.Sprintf("%d failed", failed)))
	}
	if timedOut > 0 {
		segs = append(segs, color.ErrorStyle.Render(fmt.Sprintf("%d timed out", timedOut)))
	}
	if undefined > 0 {
		segs = append(segs, color.WarningStyle.Render(fmt.Sprintf("%d undefined", undefined)))
	}
	if skipped > 0 {
		segs = append(segs, color.MutedStyle.Render(fmt.Sprintf("%d skipped", skipped)))
	}
	return strings.Join(segs, " • ")
}

// truncate clips s to the given display width, appending an ellipsis when
// something was cut.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
