package stepdef

import (
	"context"
	"errors"

	"specrun/internal/gherkin"
)

// ErrSkip is the sentinel a handler returns to skip the rest of its
// scenario without failing it. The step and all remaining steps are marked
// skipped, After-hooks still run, and the scenario does not fail the run.
var ErrSkip = errors.New("scenario skipped")

// Handler is a step implementation. It receives the scenario's World and
// the step's captured arguments through the StepContext, and reports
// failure by returning an error. The context is cancelled when the step's
// timeout elapses or the run is interrupted; long-running handlers should
// honor it.
type Handler func(ctx context.Context, sc *StepContext) error

// StepContext carries everything a handler may need about the step being
// executed. It is valid only for the duration of the handler call.
type StepContext struct {
	// World is the scenario's private state, created by the run's
	// WorldFactory. Exactly one World exists per scenario; steps of the
	// same scenario see each other's mutations, steps of different
	// scenarios never do.
	World interface{}
	// Args are the pattern's capture groups in positional order. Literal
	// patterns yield no args.
	Args []string

	// Keyword is the step keyword as written ("Given", "And", "*").
	Keyword string
	// Class is the resolved keyword class.
	Class gherkin.KeywordType
	// Text is the step text that was matched.
	Text string
	// Table is the step's attached data table, if any.
	Table *gherkin.DataTable
	// DocString is the step's attached doc string, if any.
	DocString *gherkin.DocString
}

// HookFunc runs before or after a scenario's steps. Hook failures are
// recorded on the scenario outcome; they never abort sibling scenarios or
// the run.
type HookFunc func(ctx context.Context, sc *ScenarioContext) error

// ScenarioContext describes the scenario a hook runs around.
type ScenarioContext struct {
	// World is the scenario's state. For Before-hooks it is freshly
	// created; for After-hooks it reflects all step mutations.
	World interface{}

	FeaturePath string
	FeatureName string
	Name        string
	// Tags is the scenario's effective tag set (feature tags plus scenario
	// tags).
	Tags []string
}
