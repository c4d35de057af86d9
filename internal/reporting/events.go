package reporting

import (
	"fmt"
	"time"

	"specrun/internal/results"
)

// EventType defines the type of event
type EventType string

const (
	// Run lifecycle events
	EventTypeRunStarted  EventType = "run.started"
	EventTypeRunFinished EventType = "run.finished"

	// Feature boundary events
	EventTypeFeatureStarted  EventType = "feature.started"
	EventTypeFeatureFinished EventType = "feature.finished"

	// Scenario lifecycle events
	EventTypeScenarioStarted  EventType = "scenario.started"
	EventTypeScenarioFinished EventType = "scenario.finished"

	// Step lifecycle events
	EventTypeStepStarted  EventType = "step.started"
	EventTypeStepFinished EventType = "step.finished"
)

// EventSeverity indicates the importance/severity of an event
type EventSeverity string

const (
	SeverityDebug EventSeverity = "debug"
	SeverityInfo  EventSeverity = "info"
	SeverityWarn  EventSeverity = "warn"
	SeverityError EventSeverity = "error"
)

// severityRank orders severities for minimum-severity filtering.
var severityRank = map[EventSeverity]int{
	SeverityDebug: 0,
	SeverityInfo:  1,
	SeverityWarn:  2,
	SeverityError: 3,
}

// Event is the base interface for everything published on the run bus.
// Scenarios execute concurrently, so events from different scenarios
// interleave; reporters restore source order from the feature and scenario
// indices carried by the events.
type Event interface {
	// Type returns the event type
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time

	// Severity returns the event severity
	Severity() EventSeverity

	// RunID correlates every event of one run
	RunID() string

	// String returns a human-readable description of the event
	String() string
}

// BaseEvent provides common event functionality
type BaseEvent struct {
	EventType     EventType     `json:"type"`
	EventTime     time.Time     `json:"timestamp"`
	EventSeverity EventSeverity `json:"severity"`
	Run           string        `json:"runId"`
}

// Type implements Event interface
func (e BaseEvent) Type() EventType { return e.EventType }

// Timestamp implements Event interface
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }

// Severity implements Event interface
func (e BaseEvent) Severity() EventSeverity { return e.EventSeverity }

// RunID implements Event interface
func (e BaseEvent) RunID() string { return e.Run }

// String implements Event interface
func (e BaseEvent) String() string { return string(e.EventType) }

func newBase(t EventType, runID string, severity EventSeverity) BaseEvent {
	return BaseEvent{
		EventType:     t,
		EventTime:     time.Now(),
		EventSeverity: severity,
		Run:           runID,
	}
}

// FeaturePlan describes one feature of the run in source order. The full
// plan travels on the run.started event so reporters know up front how many
// scenarios each feature contributes.
type FeaturePlan struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Scenarios int    `json:"scenarios"`
}

// RunStartedEvent opens the stream: exactly one per run, published before
// any scenario begins.
type RunStartedEvent struct {
	BaseEvent
	Plan        []FeaturePlan `json:"plan"`
	Features    int           `json:"features"`
	Scenarios   int           `json:"scenarios"`
	Concurrency int           `json:"concurrency"`
}

// String returns a human-readable description
func (e RunStartedEvent) String() string {
	return fmt.Sprintf("run started: %d feature(s), %d scenario(s), concurrency %d",
		e.Features, e.Scenarios, e.Concurrency)
}

// NewRunStartedEvent creates a new run start event from the run plan.
func NewRunStartedEvent(runID string, plan []FeaturePlan, concurrency int) RunStartedEvent {
	scenarios := 0
	for _, f := range plan {
		scenarios += f.Scenarios
	}
	return RunStartedEvent{
		BaseEvent:   newBase(EventTypeRunStarted, runID, SeverityInfo),
		Plan:        plan,
		Features:    len(plan),
		Scenarios:   scenarios,
		Concurrency: concurrency,
	}
}

// RunFinishedEvent closes the stream and carries the final summary. It is
// published after every scenario result, so a subscriber that saw it has
// seen the whole run.
type RunFinishedEvent struct {
	BaseEvent
	Summary *results.RunSummary `json:"summary"`
}

// String returns a human-readable description
func (e RunFinishedEvent) String() string {
	return fmt.Sprintf("run finished in %s: %d/%d scenario(s) passed",
		e.Summary.Duration.Round(time.Millisecond), e.Summary.Scenarios.Passed, e.Summary.Scenarios.Total)
}

// NewRunFinishedEvent creates the closing event of a run.
func NewRunFinishedEvent(runID string, summary *results.RunSummary) RunFinishedEvent {
	severity := SeverityInfo
	if summary.Failing() {
		severity = SeverityError
	}
	return RunFinishedEvent{
		BaseEvent: newBase(EventTypeRunFinished, runID, severity),
		Summary:   summary,
	}
}

// FeatureStartedEvent fires once per feature, before its first scenario
// starts executing.
type FeatureStartedEvent struct {
	BaseEvent
	FeatureIndex int    `json:"featureIndex"`
	Path         string `json:"path"`
	Name         string `json:"name"`
	Scenarios    int    `json:"scenarios"`
}

// String returns a human-readable description
func (e FeatureStartedEvent) String() string {
	return fmt.Sprintf("feature started: %s (%s)", e.Name, e.Path)
}

// NewFeatureStartedEvent creates a feature boundary event.
func NewFeatureStartedEvent(runID string, featureIndex int, path, name string, scenarios int) FeatureStartedEvent {
	return FeatureStartedEvent{
		BaseEvent:    newBase(EventTypeFeatureStarted, runID, SeverityDebug),
		FeatureIndex: featureIndex,
		Path:         path,
		Name:         name,
		Scenarios:    scenarios,
	}
}

// FeatureFinishedEvent fires once per feature, after its last scenario
// result is known.
type FeatureFinishedEvent struct {
	BaseEvent
	FeatureIndex int    `json:"featureIndex"`
	Path         string `json:"path"`
	Name         string `json:"name"`
}

// String returns a human-readable description
func (e FeatureFinishedEvent) String() string {
	return fmt.Sprintf("feature finished: %s (%s)", e.Name, e.Path)
}

// NewFeatureFinishedEvent creates a feature boundary event.
func NewFeatureFinishedEvent(runID string, featureIndex int, path, name string) FeatureFinishedEvent {
	return FeatureFinishedEvent{
		BaseEvent:    newBase(EventTypeFeatureFinished, runID, SeverityDebug),
		FeatureIndex: featureIndex,
		Path:         path,
		Name:         name,
	}
}

// ScenarioStartedEvent fires when a worker picks up a scenario and begins
// its World setup.
type ScenarioStartedEvent struct {
	BaseEvent
	FeatureIndex  int      `json:"featureIndex"`
	ScenarioIndex int      `json:"scenarioIndex"`
	FeaturePath   string   `json:"featurePath"`
	Name          string   `json:"name"`
	Tags          []string `json:"tags,omitempty"`
}

// String returns a human-readable description
func (e ScenarioStartedEvent) String() string {
	return fmt.Sprintf("scenario started: %s (%s)", e.Name, e.FeaturePath)
}

// NewScenarioStartedEvent creates a scenario start event.
func NewScenarioStartedEvent(runID string, featureIndex, scenarioIndex int, featurePath, name string, tags []string) ScenarioStartedEvent {
	return ScenarioStartedEvent{
		BaseEvent:     newBase(EventTypeScenarioStarted, runID, SeverityDebug),
		FeatureIndex:  featureIndex,
		ScenarioIndex: scenarioIndex,
		FeaturePath:   featurePath,
		Name:          name,
		Tags:          tags,
	}
}

// ScenarioFinishedEvent carries the complete, immutable result of one
// scenario, including every step result.
type ScenarioFinishedEvent struct {
	BaseEvent
	Result results.ScenarioResult `json:"result"`
}

// String returns a human-readable description
func (e ScenarioFinishedEvent) String() string {
	return fmt.Sprintf("scenario %s: %s (%s)", e.Result.Status, e.Result.Name, e.Result.FeaturePath)
}

// NewScenarioFinishedEvent creates a scenario completion event.
func NewScenarioFinishedEvent(runID string, result results.ScenarioResult) ScenarioFinishedEvent {
	return ScenarioFinishedEvent{
		BaseEvent: newBase(EventTypeScenarioFinished, runID, scenarioSeverity(result.Status)),
		Result:    result,
	}
}

// StepStartedEvent fires when a step handler is about to be invoked.
type StepStartedEvent struct {
	BaseEvent
	FeatureIndex  int    `json:"featureIndex"`
	ScenarioIndex int    `json:"scenarioIndex"`
	Scenario      string `json:"scenario"`
	Keyword       string `json:"keyword"`
	Text          string `json:"text"`
}

// String returns a human-readable description
func (e StepStartedEvent) String() string {
	return fmt.Sprintf("step started: %s %s", e.Keyword, e.Text)
}

// NewStepStartedEvent creates a step start event.
func NewStepStartedEvent(runID string, featureIndex, scenarioIndex int, scenario, keyword, text string) StepStartedEvent {
	return StepStartedEvent{
		BaseEvent:     newBase(EventTypeStepStarted, runID, SeverityDebug),
		FeatureIndex:  featureIndex,
		ScenarioIndex: scenarioIndex,
		Scenario:      scenario,
		Keyword:       keyword,
		Text:          text,
	}
}

// StepFinishedEvent carries the result of one step.
type StepFinishedEvent struct {
	BaseEvent
	FeatureIndex  int                `json:"featureIndex"`
	ScenarioIndex int                `json:"scenarioIndex"`
	Scenario      string             `json:"scenario"`
	Result        results.StepResult `json:"result"`
}

// String returns a human-readable description
func (e StepFinishedEvent) String() string {
	return fmt.Sprintf("step %s: %s %s", e.Result.Status, e.Result.Keyword, e.Result.Text)
}

// NewStepFinishedEvent creates a step completion event.
func NewStepFinishedEvent(runID string, featureIndex, scenarioIndex int, scenario string, result results.StepResult) StepFinishedEvent {
	return StepFinishedEvent{
		BaseEvent:     newBase(EventTypeStepFinished, runID, stepSeverity(result.Status)),
		FeatureIndex:  featureIndex,
		ScenarioIndex: scenarioIndex,
		Scenario:      scenario,
		Result:        result,
	}
}

// scenarioSeverity maps a scenario outcome onto an event severity.
func scenarioSeverity(status results.ScenarioStatus) EventSeverity {
	switch status {
	case results.ScenarioFailed, results.ScenarioErroredInHooks:
		return SeverityError
	case results.ScenarioUndefined:
		return SeverityWarn
	default:
		return SeverityInfo
	}
}

// stepSeverity maps a step outcome onto an event severity.
func stepSeverity(status results.StepStatus) EventSeverity {
	switch status {
	case results.StepFailed, results.StepAmbiguous, results.StepTimedOut:
		return SeverityError
	case results.StepUndefined:
		return SeverityWarn
	default:
		return SeverityDebug
	}
}
