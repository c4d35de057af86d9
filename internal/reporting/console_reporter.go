package reporting

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"

	"specrun/internal/color"
	"specrun/internal/results"
)

// Verbosity selects how much detail the console reporter prints.
type Verbosity int

const (
	// VerbosityQuiet prints failures and the final summary only.
	VerbosityQuiet Verbosity = iota
	// VerbosityNormal prints one line per scenario, with step detail for
	// scenarios that did not pass.
	VerbosityNormal
	// VerbosityVerbose prints every step of every scenario.
	VerbosityVerbose
)

const defaultReportWidth = 100

// ConsoleReporter renders scenario results to a writer in source order.
// Scenarios execute concurrently and finish out of order; the reporter
// buffers results that arrive ahead of their turn and flushes each
// feature's scenarios strictly in the order they appear in the feature
// files. Output is therefore identical for any execution interleaving.
type ConsoleReporter struct {
	mu        sync.Mutex
	w         io.Writer
	verbosity Verbosity
	width     int

	plan    []FeaturePlan
	pending map[scenarioKey]results.ScenarioResult
	cursor  scenarioKey
	started bool
}

type scenarioKey struct {
	feature  int
	scenario int
}

// NewConsoleReporter creates a reporter writing to w.
func NewConsoleReporter(w io.Writer, verbosity Verbosity) *ConsoleReporter {
	return &ConsoleReporter{
		w:         w,
		verbosity: verbosity,
		width:     defaultReportWidth,
		pending:   make(map[scenarioKey]results.ScenarioResult),
	}
}

// Attach subscribes the reporter to the bus.
func (c *ConsoleReporter) Attach(bus EventBus) *EventSubscription {
	return bus.Subscribe(FilterByType(
		EventTypeRunStarted,
		EventTypeScenarioFinished,
		EventTypeRunFinished,
	), c.Handle)
}

// Handle processes a single event.
func (c *ConsoleReporter) Handle(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e := event.(type) {
	case RunStartedEvent:
		c.begin(e)
	case ScenarioFinishedEvent:
		key := scenarioKey{feature: e.Result.FeatureIndex, scenario: e.Result.ScenarioIndex}
		c.pending[key] = e.Result
		c.flush()
	case RunFinishedEvent:
		c.drain()
		c.finish(e)
	}
}

func (c *ConsoleReporter) begin(e RunStartedEvent) {
	c.plan = e.Plan
	c.cursor = scenarioKey{}
	c.started = true
	if c.verbosity >= VerbosityNormal {
		fmt.Fprintf(c.w, "🧪 Running %d feature(s), %d scenario(s), concurrency %d\n",
			e.Features, e.Scenarios, e.Concurrency)
	}
}

// flush prints every buffered result that is next in source order, advancing
// the cursor feature by feature.
func (c *ConsoleReporter) flush() {
	for c.cursor.feature < len(c.plan) {
		if c.plan[c.cursor.feature].Scenarios == 0 {
			c.cursor.feature++
			c.cursor.scenario = 0
			continue
		}
		res, ok := c.pending[c.cursor]
		if !ok {
			return
		}
		delete(c.pending, c.cursor)

		if c.cursor.scenario == 0 {
			c.printFeatureHeader(c.plan[c.cursor.feature])
		}
		c.printScenario(res)

		c.cursor.scenario++
		if c.cursor.scenario >= c.plan[c.cursor.feature].Scenarios {
			c.cursor.feature++
			c.cursor.scenario = 0
		}
	}
}

// drain prints whatever is still buffered, in source order. After a normal
// run nothing is left; this keeps the output complete if a result for an
// earlier slot never arrived.
func (c *ConsoleReporter) drain() {
	if len(c.pending) == 0 {
		return
	}
	keys := make([]scenarioKey, 0, len(c.pending))
	for k := range c.pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].feature != keys[j].feature {
			return keys[i].feature < keys[j].feature
		}
		return keys[i].scenario < keys[j].scenario
	})
	for _, k := range keys {
		c.printScenario(c.pending[k])
		delete(c.pending, k)
	}
}

func (c *ConsoleReporter) printFeatureHeader(plan FeaturePlan) {
	if c.verbosity < VerbosityNormal {
		return
	}
	name := plan.Name
	if name == "" {
		name = plan.Path
	}
	fmt.Fprintf(c.w, "\n%s %s\n",
		color.HeaderStyle.Render("Feature:"),
		color.HeaderStyle.Render(name)+" "+color.MutedStyle.Render("("+plan.Path+")"))
}

func (c *ConsoleReporter) printScenario(res results.ScenarioResult) {
	if c.verbosity == VerbosityQuiet {
		if res.Status.Failing() {
			fmt.Fprintf(c.w, "%s %s: %s\n", statusSymbol(res.Status), res.Ref(),
				color.ErrorStyle.Render(res.Reason))
		}
		return
	}

	fmt.Fprintf(c.w, "  %s %s %s\n",
		statusSymbol(res.Status),
		res.Name,
		color.MutedStyle.Render("("+formatDuration(res.Duration)+")"))

	showSteps := c.verbosity >= VerbosityVerbose || !res.Status.Passed()
	if showSteps {
		for i := range res.Steps {
			c.printStep(&res.Steps[i])
		}
	}
	for _, hookErr := range res.HookErrors {
		fmt.Fprintf(c.w, "%s\n", wrapIndent("💥 hook: "+hookErr, c.width, "     "))
	}
	if res.TeardownError != "" {
		fmt.Fprintf(c.w, "%s\n", wrapIndent("💥 teardown: "+res.TeardownError, c.width, "     "))
	}
	if res.Reason != "" && len(res.Steps) == 0 && len(res.HookErrors) == 0 {
		fmt.Fprintf(c.w, "%s\n", wrapIndent("↳ "+res.Reason, c.width, "     "))
	}
}

func (c *ConsoleReporter) printStep(step *results.StepResult) {
	fmt.Fprintf(c.w, "     %s %s %s %s\n",
		stepSymbol(step.Status),
		color.MutedStyle.Render(step.Keyword),
		step.Text,
		color.MutedStyle.Render("("+formatDuration(step.Duration)+")"))

	if step.Reason != "" {
		style := color.ErrorStyle
		if step.Status == results.StepUndefined {
			style = color.WarningStyle
		}
		fmt.Fprintf(c.w, "%s\n", style.Render(wrapIndent("↳ "+step.Reason, c.width, "        ")))
	}
	for _, candidate := range step.Candidates {
		fmt.Fprintf(c.w, "        %s\n", color.WarningStyle.Render("• "+candidate))
	}
}

func (c *ConsoleReporter) finish(e RunFinishedEvent) {
	s := e.Summary
	if c.verbosity == VerbosityQuiet {
		if s.Failing() {
			fmt.Fprintf(c.w, "❌ %d/%d scenario(s) failed\n",
				s.Scenarios.Failed+s.Scenarios.TimedOut, s.Scenarios.Total)
		} else {
			fmt.Fprintf(c.w, "✅ All %d scenario(s) passed\n", s.Scenarios.Total)
		}
		return
	}

	fmt.Fprintf(c.w, "\n🏁 Run complete in %s\n", formatDuration(s.Duration))
	fmt.Fprintf(c.w, "📊 Results:\n")
	fmt.Fprintf(c.w, "   Features:  %s\n", statsLine(s.Features))
	fmt.Fprintf(c.w, "   Scenarios: %s\n", statsLine(s.Scenarios))
	fmt.Fprintf(c.w, "   Steps:     %s\n", statsLine(s.Steps))

	if len(s.FailedScenarios) > 0 {
		fmt.Fprintf(c.w, "\n❌ Failed scenarios:\n")
		for _, ref := range s.FailedScenarios {
			fmt.Fprintf(c.w, "   %s\n", color.ErrorStyle.Render(ref))
		}
	}
	if s.Steps.Undefined > 0 {
		note := fmt.Sprintf("❓ %d undefined step(s); run 'specrun steps' to list registered patterns", s.Steps.Undefined)
		fmt.Fprintf(c.w, "\n%s\n", color.WarningStyle.Render(note))
	}
	if s.Failing() {
		fmt.Fprintf(c.w, "\n💔 Run failed\n")
	} else {
		fmt.Fprintf(c.w, "\n🎉 Run passed\n")
	}
}

// statsLine renders one stats row, omitting zero columns after passed.
func statsLine(s results.Stats) string {
	parts := []string{
		fmt.Sprintf("%d total", s.Total),
		color.SuccessStyle.Render(fmt.Sprintf("%d passed", s.Passed)),
	}
	if s.Failed > 0 {
		parts = append(parts, color.ErrorStyle.Render(fmt.Sprintf("%d failed", s.Failed)))
	}
	if s.TimedOut > 0 {
		parts = append(parts, color.ErrorStyle.Render(fmt.Sprintf("%d timed out", s.TimedOut)))
	}
	if s.Undefined > 0 {
		parts = append(parts, color.WarningStyle.Render(fmt.Sprintf("%d undefined", s.Undefined)))
	}
	if s.Skipped > 0 {
		parts = append(parts, color.MutedStyle.Render(fmt.Sprintf("%d skipped", s.Skipped)))
	}
	return strings.Join(parts, ", ")
}

func statusSymbol(status results.ScenarioStatus) string {
	switch status {
	case results.ScenarioPassed:
		return "✅"
	case results.ScenarioFailed:
		return "❌"
	case results.ScenarioSkipped:
		return "⏭️"
	case results.ScenarioUndefined:
		return "❓"
	case results.ScenarioErroredInHooks:
		return "💥"
	default:
		return "❓"
	}
}

func stepSymbol(status results.StepStatus) string {
	switch status {
	case results.StepPassed:
		return "✅"
	case results.StepFailed, results.StepAmbiguous, results.StepTimedOut:
		return "❌"
	case results.StepSkipped:
		return "⏭️"
	case results.StepUndefined:
		return "❓"
	default:
		return "❓"
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}

// wrapIndent wraps text to the given display width, prefixing every line
// with indent. Width is measured in terminal cells so wide runes and emoji
// count correctly.
func wrapIndent(text string, width int, indent string) string {
	avail := width - runewidth.StringWidth(indent)
	if avail < 16 {
		avail = 16
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			out = append(out, indent)
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			if runewidth.StringWidth(current)+1+runewidth.StringWidth(word) > avail {
				out = append(out, indent+current)
				current = word
				continue
			}
			current += " " + word
		}
		out = append(out, indent+current)
	}
	return strings.Join(out, "\n")
}
