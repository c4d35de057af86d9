package reporting

import (
	"sort"
	"sync"
	"time"

	"specrun/internal/results"
)

// Collector folds the event stream into the final RunSummary. It subscribes
// to the bus as a synchronous handler, so once the executor has published
// the last scenario result the collector is guaranteed to have seen it.
type Collector struct {
	mu        sync.Mutex
	runID     string
	startedAt time.Time
	scenarios []results.ScenarioResult
}

// NewCollector creates an empty collector for one run.
func NewCollector() *Collector {
	return &Collector{}
}

// Attach subscribes the collector to the bus.
func (c *Collector) Attach(bus EventBus) *EventSubscription {
	return bus.Subscribe(FilterByType(EventTypeRunStarted, EventTypeScenarioFinished), c.Handle)
}

// Handle records one event. Only run.started and scenario.finished carry
// information the summary needs; everything else is ignored.
func (c *Collector) Handle(event Event) {
	switch e := event.(type) {
	case RunStartedEvent:
		c.mu.Lock()
		c.runID = e.RunID()
		c.startedAt = e.Timestamp()
		c.mu.Unlock()
	case ScenarioFinishedEvent:
		c.mu.Lock()
		c.scenarios = append(c.scenarios, e.Result)
		c.mu.Unlock()
	}
}

// Summarize folds every recorded scenario result into a RunSummary. Results
// are regrouped by feature and restored to source order regardless of the
// order in which scenarios finished.
func (c *Collector) Summarize(undefinedFatal bool) *results.RunSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	ordered := append([]results.ScenarioResult(nil), c.scenarios...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].FeatureIndex != ordered[j].FeatureIndex {
			return ordered[i].FeatureIndex < ordered[j].FeatureIndex
		}
		return ordered[i].ScenarioIndex < ordered[j].ScenarioIndex
	})

	summary := &results.RunSummary{
		RunID:          c.runID,
		StartedAt:      c.startedAt,
		UndefinedFatal: undefinedFatal,
	}
	if !c.startedAt.IsZero() {
		summary.Duration = time.Since(c.startedAt)
	}

	var features []results.FeatureResult
	positions := make(map[int]int)
	for _, sc := range ordered {
		pos, seen := positions[sc.FeatureIndex]
		if !seen {
			pos = len(features)
			positions[sc.FeatureIndex] = pos
			features = append(features, results.FeatureResult{
				Path: sc.FeaturePath,
				Name: sc.FeatureName,
			})
		}
		features[pos].Scenarios = append(features[pos].Scenarios, sc)
	}

	for i := range features {
		b := featureBucket(&features[i])
		features[i].Status = bucketStatus(b)
		bump(&summary.Features, b)
	}
	for i := range ordered {
		sc := &ordered[i]
		bump(&summary.Scenarios, scenarioBucket(sc))
		for j := range sc.Steps {
			bump(&summary.Steps, stepBucket(&sc.Steps[j]))
		}
		if sc.Status.Failing() {
			summary.FailedScenarios = append(summary.FailedScenarios, sc.Ref())
		}
	}
	summary.FeatureResults = features
	return summary
}

// outcomeBucket classifies an outcome into exactly one stats column. The
// ordering encodes the fold priority: failure classes outrank undefined,
// undefined outranks skipped, skipped outranks passed.
type outcomeBucket int

const (
	bucketPassed outcomeBucket = iota
	bucketSkipped
	bucketUndefined
	bucketTimedOut
	bucketFailed
)

func bump(stats *results.Stats, b outcomeBucket) {
	stats.Total++
	switch b {
	case bucketPassed:
		stats.Passed++
	case bucketSkipped:
		stats.Skipped++
	case bucketUndefined:
		stats.Undefined++
	case bucketTimedOut:
		stats.TimedOut++
	case bucketFailed:
		stats.Failed++
	}
}

func stepBucket(s *results.StepResult) outcomeBucket {
	switch s.Status {
	case results.StepPassed:
		return bucketPassed
	case results.StepSkipped:
		return bucketSkipped
	case results.StepUndefined:
		return bucketUndefined
	case results.StepTimedOut:
		return bucketTimedOut
	default: // failed or ambiguous
		return bucketFailed
	}
}

func scenarioBucket(r *results.ScenarioResult) outcomeBucket {
	switch r.Status {
	case results.ScenarioPassed:
		return bucketPassed
	case results.ScenarioSkipped:
		return bucketSkipped
	case results.ScenarioUndefined:
		return bucketUndefined
	case results.ScenarioErroredInHooks:
		return bucketFailed
	default: // ScenarioFailed
		if r.TimedOut() {
			return bucketTimedOut
		}
		return bucketFailed
	}
}

// featureBucket is the worst bucket among the feature's scenarios.
func featureBucket(f *results.FeatureResult) outcomeBucket {
	worst := bucketPassed
	for i := range f.Scenarios {
		if b := scenarioBucket(&f.Scenarios[i]); b > worst {
			worst = b
		}
	}
	return worst
}

func bucketStatus(b outcomeBucket) results.ScenarioStatus {
	switch b {
	case bucketPassed:
		return results.ScenarioPassed
	case bucketSkipped:
		return results.ScenarioSkipped
	case bucketUndefined:
		return results.ScenarioUndefined
	default:
		return results.ScenarioFailed
	}
}
