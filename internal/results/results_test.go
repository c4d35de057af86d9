package results

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepStatusTokens(t *testing.T) {
	tokens := map[StepStatus]string{
		StepPassed:    "passed",
		StepFailed:    "failed",
		StepSkipped:   "skipped",
		StepUndefined: "undefined",
		StepAmbiguous: "ambiguous",
		StepTimedOut:  "timed_out",
	}
	for status, token := range tokens {
		assert.Equal(t, token, status.String())
	}
	assert.True(t, StepPassed.Passed())
	assert.False(t, StepTimedOut.Passed())
}

func TestStepStatusJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(StepTimedOut)
	require.NoError(t, err)
	assert.Equal(t, `"timed_out"`, string(data))

	var status StepStatus
	require.NoError(t, json.Unmarshal(data, &status))
	assert.Equal(t, StepTimedOut, status)

	assert.Error(t, json.Unmarshal([]byte(`"exploded"`), &status))
}

func TestScenarioStatusJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(ScenarioErroredInHooks)
	require.NoError(t, err)
	assert.Equal(t, `"errored_in_hooks"`, string(data))

	var status ScenarioStatus
	require.NoError(t, json.Unmarshal(data, &status))
	assert.Equal(t, ScenarioErroredInHooks, status)

	assert.Error(t, json.Unmarshal([]byte(`"exploded"`), &status))
}

func TestScenarioStatusFailing(t *testing.T) {
	assert.True(t, ScenarioFailed.Failing())
	assert.True(t, ScenarioErroredInHooks.Failing())
	assert.False(t, ScenarioPassed.Failing())
	assert.False(t, ScenarioSkipped.Failing())
	assert.False(t, ScenarioUndefined.Failing())
}

func TestScenarioResultRef(t *testing.T) {
	r := ScenarioResult{FeaturePath: "features/login.feature", Name: "Bad password"}
	assert.Equal(t, "features/login.feature: Bad password", r.Ref())
}

func TestScenarioResultTimedOut(t *testing.T) {
	r := ScenarioResult{
		Status: ScenarioFailed,
		Steps: []StepResult{
			{Status: StepPassed},
			{Status: StepTimedOut},
		},
	}
	assert.True(t, r.TimedOut())

	r.Steps[1].Status = StepFailed
	assert.False(t, r.TimedOut())
}

func TestRunSummaryFailing(t *testing.T) {
	passed := RunSummary{Scenarios: Stats{Total: 2, Passed: 2}}
	assert.False(t, passed.Failing())
	assert.Zero(t, passed.ExitCode())

	failed := RunSummary{Scenarios: Stats{Total: 2, Passed: 1, Failed: 1}}
	assert.True(t, failed.Failing())
	assert.Equal(t, 1, failed.ExitCode())

	timedOut := RunSummary{Scenarios: Stats{Total: 1, TimedOut: 1}}
	assert.True(t, timedOut.Failing())
}

func TestRunSummaryUndefinedPolicy(t *testing.T) {
	summary := RunSummary{
		Scenarios: Stats{Total: 2, Passed: 1, Undefined: 1},
		Steps:     Stats{Total: 4, Passed: 3, Undefined: 1},
	}

	// Undefined steps are tolerated only when the policy says so.
	summary.UndefinedFatal = true
	assert.True(t, summary.Failing())
	assert.Equal(t, 1, summary.ExitCode())

	summary.UndefinedFatal = false
	assert.False(t, summary.Failing())
	assert.Zero(t, summary.ExitCode())
}
