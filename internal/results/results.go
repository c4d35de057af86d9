// Package results defines the immutable outcome types produced by a run:
// per-step and per-scenario results, per-feature aggregates, per-level
// stats and the final run summary. Values here are built once by the
// collector and never mutated after being finalized.
package results

import (
	"encoding/json"
	"fmt"
	"time"

	"specrun/internal/gherkin"
)

// StepStatus is the outcome class of a single step.
type StepStatus int

const (
	// StepPassed means the handler completed without error.
	StepPassed StepStatus = iota
	// StepFailed means the handler returned an error or panicked.
	StepFailed
	// StepSkipped means the step never ran: an earlier step in the scenario
	// did not pass, or the handler signalled an explicit skip.
	StepSkipped
	// StepUndefined means no registered pattern matched the step text.
	StepUndefined
	// StepAmbiguous means more than one registered pattern matched.
	StepAmbiguous
	// StepTimedOut means the handler did not resolve within the configured
	// per-step timeout.
	StepTimedOut
)

// String returns the lowercase status token used in reports.
func (s StepStatus) String() string {
	switch s {
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	case StepUndefined:
		return "undefined"
	case StepAmbiguous:
		return "ambiguous"
	case StepTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("StepStatus(%d)", int(s))
	}
}

// MarshalJSON emits the status token rather than the numeric value.
func (s StepStatus) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// UnmarshalJSON parses the status token, so reports written by the JSON
// reporter can be read back.
func (s *StepStatus) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		return err
	}
	switch token {
	case "passed":
		*s = StepPassed
	case "failed":
		*s = StepFailed
	case "skipped":
		*s = StepSkipped
	case "undefined":
		*s = StepUndefined
	case "ambiguous":
		*s = StepAmbiguous
	case "timed_out":
		*s = StepTimedOut
	default:
		return fmt.Errorf("unknown step status %q", token)
	}
	return nil
}

// Passed reports whether the step succeeded.
func (s StepStatus) Passed() bool { return s == StepPassed }

// ScenarioStatus is the terminal state of a scenario.
type ScenarioStatus int

const (
	// ScenarioPassed means every step passed and no hook failed.
	ScenarioPassed ScenarioStatus = iota
	// ScenarioFailed means a step failed, was ambiguous, or timed out, or
	// World setup failed.
	ScenarioFailed
	// ScenarioSkipped means a handler signalled an explicit skip before any
	// failure, or the scenario was never started because of fail-fast.
	ScenarioSkipped
	// ScenarioUndefined means a step had no matching pattern and nothing
	// failed outright.
	ScenarioUndefined
	// ScenarioErroredInHooks means all executed steps passed but a
	// Before/After hook failed.
	ScenarioErroredInHooks
)

// String returns the lowercase status token used in reports.
func (s ScenarioStatus) String() string {
	switch s {
	case ScenarioPassed:
		return "passed"
	case ScenarioFailed:
		return "failed"
	case ScenarioSkipped:
		return "skipped"
	case ScenarioUndefined:
		return "undefined"
	case ScenarioErroredInHooks:
		return "errored_in_hooks"
	default:
		return fmt.Sprintf("ScenarioStatus(%d)", int(s))
	}
}

// MarshalJSON emits the status token rather than the numeric value.
func (s ScenarioStatus) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// UnmarshalJSON parses the status token, so reports written by the JSON
// reporter can be read back.
func (s *ScenarioStatus) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		return err
	}
	switch token {
	case "passed":
		*s = ScenarioPassed
	case "failed":
		*s = ScenarioFailed
	case "skipped":
		*s = ScenarioSkipped
	case "undefined":
		*s = ScenarioUndefined
	case "errored_in_hooks":
		*s = ScenarioErroredInHooks
	default:
		return fmt.Errorf("unknown scenario status %q", token)
	}
	return nil
}

// Passed reports whether the scenario succeeded.
func (s ScenarioStatus) Passed() bool { return s == ScenarioPassed }

// Failing reports whether the status fails a run. Skipped scenarios do not
// fail the run; Undefined scenarios fail it only per the run's
// undefined-steps policy, which the summary evaluates.
func (s ScenarioStatus) Failing() bool {
	return s == ScenarioFailed || s == ScenarioErroredInHooks
}

// StepResult is the finalized outcome of one step.
type StepResult struct {
	// Keyword is the keyword as written ("Given", "And", "*").
	Keyword string `json:"keyword"`
	// Class is the resolved keyword class ("Given", "When" or "Then").
	Class string `json:"class"`
	Text  string `json:"text"`
	// FromBackground marks steps that came from the feature's Background.
	FromBackground bool       `json:"fromBackground,omitempty"`
	Status         StepStatus `json:"status"`
	// Reason holds the failure detail for non-passed steps.
	Reason string `json:"reason,omitempty"`
	// Candidates lists every conflicting pattern when Status is
	// StepAmbiguous.
	Candidates []string         `json:"candidates,omitempty"`
	Location   gherkin.Location `json:"location"`
	StartedAt  time.Time        `json:"startedAt,omitempty"`
	Duration   time.Duration    `json:"duration,omitempty"`
}

// ScenarioResult is the finalized outcome of one scenario.
type ScenarioResult struct {
	// FeatureIndex and ScenarioIndex locate the scenario in the run's
	// source order; reporters rely on them to restore ordering.
	FeatureIndex  int `json:"featureIndex"`
	ScenarioIndex int `json:"scenarioIndex"`

	FeaturePath string   `json:"featurePath"`
	FeatureName string   `json:"featureName"`
	Name        string   `json:"name"`
	Tags        []string `json:"tags,omitempty"`

	Status ScenarioStatus `json:"status"`
	// Reason is the first failing reason (step failure, hook failure or
	// World setup failure).
	Reason string `json:"reason,omitempty"`
	// HookErrors collects every Before/After hook failure in order.
	HookErrors []string `json:"hookErrors,omitempty"`
	// TeardownError records a World dispose failure. It does not change
	// Status.
	TeardownError string `json:"teardownError,omitempty"`

	Steps     []StepResult  `json:"steps"`
	StartedAt time.Time     `json:"startedAt,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// Ref renders a short "path: name" reference for failure listings.
func (r *ScenarioResult) Ref() string {
	return fmt.Sprintf("%s: %s", r.FeaturePath, r.Name)
}

// TimedOut reports whether the scenario failed because of a step timeout.
func (r *ScenarioResult) TimedOut() bool {
	for i := range r.Steps {
		if r.Steps[i].Status == StepTimedOut {
			return true
		}
	}
	return false
}

// FeatureResult aggregates the scenarios of one feature.
type FeatureResult struct {
	Path      string           `json:"path"`
	Name      string           `json:"name"`
	Status    ScenarioStatus   `json:"status"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// Stats counts outcomes at one level (features, scenarios or steps),
// mirroring the per-level totals of the run summary.
type Stats struct {
	Total     int `json:"total"`
	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Undefined int `json:"undefined"`
	TimedOut  int `json:"timedOut"`
}

// Failing reports whether this level saw a hard failure.
func (s Stats) Failing() bool { return s.Failed > 0 || s.TimedOut > 0 }

// RunSummary is the final aggregate of a run.
type RunSummary struct {
	RunID     string        `json:"runId"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`

	Features  Stats `json:"features"`
	Scenarios Stats `json:"scenarios"`
	Steps     Stats `json:"steps"`

	// FeatureResults holds the full per-feature detail in source order.
	FeatureResults []FeatureResult `json:"featureResults"`
	// FailedScenarios lists "path: name" references of every failing
	// scenario, in source order.
	FailedScenarios []string `json:"failedScenarios,omitempty"`

	// UndefinedFatal records the run's undefined-steps policy so that
	// Failing and ExitCode are self-contained.
	UndefinedFatal bool `json:"undefinedFatal"`
}

// Failing reports whether the run failed: any failed or hook-errored
// scenario, or, when the undefined-steps policy is fatal, any undefined
// step.
func (s *RunSummary) Failing() bool {
	if s.Scenarios.Failing() {
		return true
	}
	if s.UndefinedFatal && (s.Scenarios.Undefined > 0 || s.Steps.Undefined > 0) {
		return true
	}
	return false
}

// ExitCode maps the summary onto the process exit status: 0 when the run
// passed, 1 when it failed.
func (s *RunSummary) ExitCode() int {
	if s.Failing() {
		return 1
	}
	return 0
}
