package steplib

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specrun/internal/engine"
	"specrun/internal/gherkin"
	"specrun/internal/stepdef"
)

func TestRunCommandRecordsOutput(t *testing.T) {
	world := map[string]interface{}{}
	require.NoError(t, runCommand(context.Background(), stepCtx(world, "echo hi")))
	assert.Contains(t, world["stdout"], "hi")
	assert.Equal(t, 0, world["exit_code"])
}

func TestRunCommandRecordsNonZeroExit(t *testing.T) {
	world := map[string]interface{}{}
	require.NoError(t, runCommand(context.Background(), stepCtx(world, "false")))
	assert.Equal(t, 1, world["exit_code"])
}

func TestRunCommandMissingBinaryFails(t *testing.T) {
	world := map[string]interface{}{}
	err := runCommand(context.Background(), stepCtx(world, "specrun-no-such-binary"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to run")
}

func TestCommandAssertions(t *testing.T) {
	world := map[string]interface{}{"exit_code": 0, "stdout": "hello world\n", "stderr": ""}

	assert.NoError(t, assertCommandSucceeded(context.Background(), stepCtx(world)))
	assert.NoError(t, assertExitCode(context.Background(), stepCtx(world, "0")))
	assert.NoError(t, assertOutputContains(context.Background(), stepCtx(world, "hello")))

	err := assertExitCode(context.Background(), stepCtx(world, "3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit code is 0, want 3")

	err = assertOutputContains(context.Background(), stepCtx(world, "goodbye"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `does not contain "goodbye"`)
}

func TestCommandAssertionsRequireARun(t *testing.T) {
	world := map[string]interface{}{}
	err := assertCommandSucceeded(context.Background(), stepCtx(world))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command has run")

	err = assertExitCode(context.Background(), stepCtx(world, "0"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command has run")
}

func TestBuiltinStepsEndToEnd(t *testing.T) {
	feature, err := gherkin.Parse("shell.feature", []byte(`
Feature: Built-in steps

  Scenario: Rendering a command from variables
    Given the variable "greeting" is "hello"
    When I run "echo {{.greeting}} world"
    Then the command succeeds
    And the output contains "hello world"

  Scenario: Recording a failing exit code
    When I run "false"
    Then the exit code is 1
`))
	require.NoError(t, err)

	b := stepdef.NewBuilder()
	RegisterSteps(b)
	reg, err := b.Build()
	require.NoError(t, err)

	r, err := engine.NewRunner(reg, nil, nil, engine.RunConfig{})
	require.NoError(t, err)
	summary, err := r.Run(context.Background(), []*gherkin.Feature{feature})
	require.NoError(t, err)

	assert.False(t, summary.Failing())
	assert.Equal(t, 2, summary.Scenarios.Passed)
}
