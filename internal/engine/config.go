package engine

import "time"

// DefaultConcurrency is the scenario parallelism used when the
// configuration does not set one.
const DefaultConcurrency = 4

// RunConfig defines the execution parameters of a single run.
type RunConfig struct {
	// Tags filters scenarios by a tag expression such as
	// "@smoke and not @wip", evaluated against the union of feature and
	// scenario tags. Empty selects every scenario.
	Tags string `yaml:"tags,omitempty"`
	// NameFilter selects scenarios whose name matches this regular
	// expression. Empty selects every scenario.
	NameFilter string `yaml:"name,omitempty"`
	// Concurrency is the maximum number of scenarios in flight at once.
	// Zero or negative falls back to DefaultConcurrency.
	Concurrency int `yaml:"concurrency,omitempty"`
	// FailFast stops scheduling new scenarios after the first failure.
	// Scenarios already in flight finish normally and are reported.
	FailFast bool `yaml:"fail_fast,omitempty"`
	// StepTimeout bounds each step handler invocation. A handler that does
	// not resolve in time fails its scenario with a timed-out step. Zero
	// disables the per-step timeout.
	StepTimeout time.Duration `yaml:"step_timeout,omitempty"`
	// UndefinedStepsOk downgrades undefined steps from run failures to
	// reported-only outcomes. By default an undefined step fails the run,
	// so missing glue cannot pass silently.
	UndefinedStepsOk bool `yaml:"undefined_steps_ok,omitempty"`
}

func (c RunConfig) normalized() RunConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}
