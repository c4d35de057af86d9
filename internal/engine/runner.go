package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"specrun/internal/gherkin"
	"specrun/internal/reporting"
	"specrun/internal/results"
	"specrun/internal/stepdef"
	"specrun/internal/tags"
	"specrun/pkg/logging"
)

const subsystem = "Executor"

// disposeTimeout bounds World teardown. Teardown runs on a fresh context so
// it still completes when the run context is already cancelled.
const disposeTimeout = 30 * time.Second

// errStepTimeout marks a handler that did not resolve within the configured
// per-step budget.
var errStepTimeout = errors.New("step timed out")

// Runner executes parsed features against a frozen step registry. Create it
// with NewRunner, subscribe reporters on Bus, then call Run.
type Runner struct {
	registry *stepdef.Registry
	factory  WorldFactory
	bus      reporting.EventBus
	cfg      RunConfig

	tagFilter tags.Expr
	nameRe    *regexp.Regexp
}

// NewRunner validates the configuration and builds a Runner. A nil factory
// falls back to MapWorldFactory, a nil bus gets a private one.
func NewRunner(registry *stepdef.Registry, factory WorldFactory, bus reporting.EventBus, cfg RunConfig) (*Runner, error) {
	if registry == nil {
		return nil, errors.New("engine: nil step registry")
	}
	if factory == nil {
		factory = MapWorldFactory{}
	}
	if bus == nil {
		bus = reporting.NewEventBus()
	}
	cfg = cfg.normalized()

	tagFilter := tags.True()
	if cfg.Tags != "" {
		parsed, err := tags.Parse(cfg.Tags)
		if err != nil {
			return nil, fmt.Errorf("engine: tag filter: %w", err)
		}
		tagFilter = parsed
	}
	var nameRe *regexp.Regexp
	if cfg.NameFilter != "" {
		re, err := regexp.Compile(cfg.NameFilter)
		if err != nil {
			return nil, fmt.Errorf("engine: name filter: %w", err)
		}
		nameRe = re
	}

	return &Runner{
		registry:  registry,
		factory:   factory,
		bus:       bus,
		cfg:       cfg,
		tagFilter: tagFilter,
		nameRe:    nameRe,
	}, nil
}

// Bus returns the event bus the Runner publishes on. Reporters subscribe
// here before Run is called.
func (r *Runner) Bus() reporting.EventBus { return r.bus }

// unit is one schedulable scenario together with its position in the run
// plan. Indices refer to the filtered plan, not the raw parse, so reporters
// can restore source order from them.
type unit struct {
	feature       *gherkin.Feature
	scenario      *gherkin.Scenario
	featureIndex  int
	scenarioIndex int
	tags          []string
}

// featureTracker coordinates feature boundary events across the scenario
// goroutines of one feature: the first scenario to start emits
// feature.started, the last to finish emits feature.finished.
type featureTracker struct {
	planned   int
	started   atomic.Bool
	remaining atomic.Int32
}

// Run executes every scenario selected by the configured filters and
// returns the aggregated summary. Scenario failures surface through the
// summary, not the returned error; the error is non-nil only when the run
// context was cancelled before completion.
func (r *Runner) Run(ctx context.Context, features []*gherkin.Feature) (*results.RunSummary, error) {
	units, plan := r.plan(features)
	runID := uuid.NewString()

	collector := reporting.NewCollector()
	sub := collector.Attach(r.bus)
	defer r.bus.Unsubscribe(sub)

	logging.Info(subsystem, "Starting run %s: %d feature(s), %d scenario(s), concurrency %d",
		runID, len(plan), len(units), r.cfg.Concurrency)
	r.bus.Publish(reporting.NewRunStartedEvent(runID, plan, r.cfg.Concurrency))

	trackers := make([]*featureTracker, len(plan))
	for i, f := range plan {
		trackers[i] = &featureTracker{planned: f.Scenarios}
		trackers[i].remaining.Store(int32(f.Scenarios))
	}

	var failed atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for _, u := range units {
		g.Go(func() error {
			r.runScenario(gctx, runID, u, trackers[u.featureIndex], &failed)
			return nil
		})
	}
	_ = g.Wait()

	summary := collector.Summarize(!r.cfg.UndefinedStepsOk)
	r.bus.Publish(reporting.NewRunFinishedEvent(runID, summary))

	logging.Info(subsystem, "Run %s finished in %s: %d/%d scenario(s) passed",
		runID, summary.Duration.Round(time.Millisecond), summary.Scenarios.Passed, summary.Scenarios.Total)

	return summary, ctx.Err()
}

// plan filters scenarios by tag expression and name and lays out the
// execution order. Features whose scenarios are all filtered out disappear
// from the plan entirely.
func (r *Runner) plan(features []*gherkin.Feature) ([]unit, []reporting.FeaturePlan) {
	var units []unit
	var plan []reporting.FeaturePlan
	for _, f := range features {
		fi := len(plan)
		count := 0
		for _, scn := range f.Scenarios {
			etags := effectiveTags(f.Tags, scn.Tags)
			if !r.tagFilter.Evaluate(etags) {
				continue
			}
			if r.nameRe != nil && !r.nameRe.MatchString(scn.Name) {
				continue
			}
			units = append(units, unit{
				feature:       f,
				scenario:      scn,
				featureIndex:  fi,
				scenarioIndex: count,
				tags:          etags,
			})
			count++
		}
		if count > 0 {
			plan = append(plan, reporting.FeaturePlan{Path: f.Path, Name: f.Name, Scenarios: count})
		}
	}
	return units, plan
}

// effectiveTags unions feature and scenario tags, feature tags first,
// without duplicates.
func effectiveTags(featureTags, scenarioTags []string) []string {
	if len(featureTags) == 0 && len(scenarioTags) == 0 {
		return nil
	}
	merged := make([]string, 0, len(featureTags)+len(scenarioTags))
	seen := make(map[string]bool, len(featureTags)+len(scenarioTags))
	for _, t := range featureTags {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	for _, t := range scenarioTags {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	return merged
}

// runScenario is the per-goroutine entry point: it decides whether the
// scenario actually executes (fail-fast and cancellation produce skipped
// results without running anything), publishes the scenario result, and
// maintains the feature boundary events.
func (r *Runner) runScenario(ctx context.Context, runID string, u unit, tracker *featureTracker, failed *atomic.Bool) {
	if tracker.started.CompareAndSwap(false, true) {
		r.bus.Publish(reporting.NewFeatureStartedEvent(runID, u.featureIndex, u.feature.Path, u.feature.Name, tracker.planned))
	}

	res := results.ScenarioResult{
		FeatureIndex:  u.featureIndex,
		ScenarioIndex: u.scenarioIndex,
		FeaturePath:   u.feature.Path,
		FeatureName:   u.feature.Name,
		Name:          u.scenario.Name,
		Tags:          u.tags,
	}

	switch {
	case ctx.Err() != nil:
		res.Status = results.ScenarioSkipped
		res.Reason = "run cancelled"
		res.Steps = skippedSteps(scenarioSteps(u), "run cancelled")
	case r.cfg.FailFast && failed.Load():
		res.Status = results.ScenarioSkipped
		res.Reason = "not started: an earlier scenario failed and fail-fast is on"
		res.Steps = skippedSteps(scenarioSteps(u), "")
	default:
		r.executeScenario(ctx, runID, u, &res)
	}

	if res.Status.Failing() || (!r.cfg.UndefinedStepsOk && res.Status == results.ScenarioUndefined) {
		failed.Store(true)
	}

	logging.Debug(subsystem, "Scenario %q finished: %s", u.scenario.Name, res.Status)
	r.bus.Publish(reporting.NewScenarioFinishedEvent(runID, res))

	if tracker.remaining.Add(-1) == 0 {
		r.bus.Publish(reporting.NewFeatureFinishedEvent(runID, u.featureIndex, u.feature.Path, u.feature.Name))
	}
}

// executeScenario runs the full lifecycle of one scenario: World setup,
// Before-hooks, Background and scenario steps, After-hooks, World teardown.
func (r *Runner) executeScenario(ctx context.Context, runID string, u unit, res *results.ScenarioResult) {
	res.StartedAt = time.Now()
	defer func() { res.Duration = time.Since(res.StartedAt) }()

	r.bus.Publish(reporting.NewScenarioStartedEvent(runID, u.featureIndex, u.scenarioIndex, u.feature.Path, u.scenario.Name, u.tags))

	sc := &stepdef.ScenarioContext{
		FeaturePath: u.feature.Path,
		FeatureName: u.feature.Name,
		Name:        u.scenario.Name,
		Tags:        u.tags,
	}

	world, err := r.factory.Setup(ctx, sc)
	if err != nil {
		res.Status = results.ScenarioFailed
		res.Reason = fmt.Sprintf("world setup failed: %v", err)
		res.Steps = skippedSteps(scenarioSteps(u), "world setup failed")
		return
	}
	sc.World = world

	// The World is disposed exactly once per successful Setup, whatever
	// hooks and steps do. Teardown gets a fresh context so it still runs
	// when the run context is already cancelled.
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), disposeTimeout)
		defer cancel()
		if derr := r.factory.Dispose(dctx, world); derr != nil {
			logging.Error(subsystem, derr, "World teardown failed for scenario %q", u.scenario.Name)
			res.TeardownError = derr.Error()
		}
	}()

	steps := scenarioSteps(u)
	if r.runHooks(ctx, r.registry.BeforeHooks(), "before", sc, res) {
		r.runSteps(ctx, runID, u, sc, steps, res)
	} else {
		res.Steps = skippedSteps(steps, "not run: a before-hook failed")
	}

	// After-hooks run whatever the steps did, mirroring the guaranteed
	// teardown of the World itself.
	r.runHooks(ctx, r.registry.AfterHooks(), "after", sc, res)

	res.Status = scenarioOutcome(res.Steps, len(res.HookErrors) > 0)
	if res.Reason == "" && len(res.HookErrors) > 0 {
		res.Reason = res.HookErrors[0]
	}
}

// runHooks invokes the hooks matching the scenario's tags in registration
// order. Before-hooks stop at the first failure; After-hooks all run, since
// each may release resources independently. It reports whether every hook
// passed.
func (r *Runner) runHooks(ctx context.Context, hooks []*stepdef.Hook, phase string, sc *stepdef.ScenarioContext, res *results.ScenarioResult) bool {
	ok := true
	for _, h := range hooks {
		if !h.Matches(sc.Tags) {
			continue
		}
		if err := invokeHook(ctx, h, sc); err != nil {
			res.HookErrors = append(res.HookErrors, fmt.Sprintf("%s hook: %v", phase, err))
			ok = false
			if phase == "before" {
				break
			}
		}
	}
	return ok
}

// invokeHook shields the runner from panicking hooks.
func invokeHook(ctx context.Context, h *stepdef.Hook, sc *stepdef.ScenarioContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return h.Run(ctx, sc)
}

// runSteps executes the scenario's steps in order. The first step that does
// not pass stops execution; the remaining steps are recorded as skipped so
// the summary accounts for every planned step.
func (r *Runner) runSteps(ctx context.Context, runID string, u unit, sc *stepdef.ScenarioContext, steps []plannedStep, res *results.ScenarioResult) {
	skipRemaining := false
	for _, ps := range steps {
		sr := newStepResult(ps)

		if skipRemaining {
			sr.Status = results.StepSkipped
		} else {
			r.runStep(ctx, runID, u, sc, ps, &sr)
			if sr.Status != results.StepPassed {
				skipRemaining = true
				if res.Reason == "" && sr.Status != results.StepSkipped {
					res.Reason = sr.Reason
				}
			}
		}

		res.Steps = append(res.Steps, sr)
		r.bus.Publish(reporting.NewStepFinishedEvent(runID, u.featureIndex, u.scenarioIndex, u.scenario.Name, sr))
	}
}

// runStep resolves one step against the registry and executes it. Undefined
// and ambiguous lookups never invoke a handler.
func (r *Runner) runStep(ctx context.Context, runID string, u unit, sc *stepdef.ScenarioContext, ps plannedStep, sr *results.StepResult) {
	match := r.registry.Match(ps.step.Text, ps.step.Type)
	switch match.Kind {
	case stepdef.Undefined:
		sr.Status = results.StepUndefined
		sr.Reason = fmt.Sprintf("no step definition matches %q", ps.step.Text)
		return
	case stepdef.Ambiguous:
		sr.Status = results.StepAmbiguous
		sr.Reason = fmt.Sprintf("%d step definitions match %q", len(match.Candidates), ps.step.Text)
		sr.Candidates = match.Candidates
		return
	}

	r.bus.Publish(reporting.NewStepStartedEvent(runID, u.featureIndex, u.scenarioIndex, u.scenario.Name, ps.step.Keyword, ps.step.Text))

	sr.StartedAt = time.Now()
	err := r.invokeStep(ctx, match, ps.step, sc)
	sr.Duration = time.Since(sr.StartedAt)

	switch {
	case err == nil:
		sr.Status = results.StepPassed
	case errors.Is(err, stepdef.ErrSkip):
		sr.Status = results.StepSkipped
		sr.Reason = "skipped by step handler"
	// Handlers that honor their context surface the deadline themselves;
	// both shapes mean the step blew its budget.
	case errors.Is(err, errStepTimeout), errors.Is(err, context.DeadlineExceeded):
		sr.Status = results.StepTimedOut
		sr.Reason = fmt.Sprintf("timed out after %s", r.cfg.StepTimeout)
	default:
		sr.Status = results.StepFailed
		sr.Reason = err.Error()
	}
}

// invokeStep runs the matched handler, converting panics into errors and
// enforcing the per-step timeout. On timeout the handler goroutine is
// abandoned with a cancelled context; well-behaved handlers notice and
// return promptly.
func (r *Runner) invokeStep(ctx context.Context, match stepdef.MatchResult, step *gherkin.Step, sc *stepdef.ScenarioContext) error {
	stepCtx := &stepdef.StepContext{
		World:     sc.World,
		Args:      match.Args,
		Keyword:   step.Keyword,
		Class:     step.Type,
		Text:      step.Text,
		Table:     step.Table,
		DocString: step.DocString,
	}

	invoke := func(ctx context.Context) (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		return match.Pattern.Invoke(ctx, stepCtx)
	}

	if r.cfg.StepTimeout <= 0 {
		return invoke(ctx)
	}

	tctx, cancel := context.WithTimeout(ctx, r.cfg.StepTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- invoke(tctx) }()

	select {
	case err := <-done:
		return err
	case <-tctx.Done():
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return errStepTimeout
		}
		return tctx.Err()
	}
}

// plannedStep pairs a step with its provenance: Background steps run first
// in every scenario of the feature.
type plannedStep struct {
	step           *gherkin.Step
	fromBackground bool
}

func scenarioSteps(u unit) []plannedStep {
	var steps []plannedStep
	if u.feature.Background != nil {
		for _, s := range u.feature.Background.Steps {
			steps = append(steps, plannedStep{step: s, fromBackground: true})
		}
	}
	for _, s := range u.scenario.Steps {
		steps = append(steps, plannedStep{step: s})
	}
	return steps
}

func newStepResult(ps plannedStep) results.StepResult {
	return results.StepResult{
		Keyword:        ps.step.Keyword,
		Class:          ps.step.Type.String(),
		Text:           ps.step.Text,
		FromBackground: ps.fromBackground,
		Location:       ps.step.Location,
	}
}

// skippedSteps builds placeholder results for steps that never ran, so the
// summary still accounts for every planned step.
func skippedSteps(steps []plannedStep, reason string) []results.StepResult {
	out := make([]results.StepResult, len(steps))
	for i, ps := range steps {
		out[i] = newStepResult(ps)
		out[i].Status = results.StepSkipped
		out[i].Reason = reason
	}
	return out
}

// scenarioOutcome folds step results and hook failures into the scenario
// status. Step failures dominate hook failures; hook failures dominate
// undefined and skipped steps; undefined dominates skipped.
func scenarioOutcome(steps []results.StepResult, hooksFailed bool) results.ScenarioStatus {
	var failed, undefined, skipped bool
	for i := range steps {
		switch steps[i].Status {
		case results.StepFailed, results.StepAmbiguous, results.StepTimedOut:
			failed = true
		case results.StepUndefined:
			undefined = true
		case results.StepSkipped:
			skipped = true
		}
	}
	switch {
	case failed:
		return results.ScenarioFailed
	case hooksFailed:
		return results.ScenarioErroredInHooks
	case undefined:
		return results.ScenarioUndefined
	case skipped:
		return results.ScenarioSkipped
	default:
		return results.ScenarioPassed
	}
}
