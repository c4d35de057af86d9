package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specrun/internal/results"
	"specrun/internal/stepdef"
)

// testServer builds a server around a two-step calculator registry.
func testServer(t *testing.T) *Server {
	t.Helper()

	b := stepdef.NewBuilder()
	b.Given(`the number (\d+)`, func(ctx context.Context, sc *stepdef.StepContext) error {
		sc.World.(map[string]interface{})["n"] = sc.Args[0]
		return nil
	})
	b.Then(`the number is (\d+)`, func(ctx context.Context, sc *stepdef.StepContext) error {
		if got := sc.World.(map[string]interface{})["n"]; got != sc.Args[0] {
			return fmt.Errorf("number is %v, want %s", got, sc.Args[0])
		}
		return nil
	})
	reg, err := b.Build()
	require.NoError(t, err)

	s, err := New(Config{}, reg, nil)
	require.NoError(t, err)
	return s
}

// writeFeature drops a feature file into a fresh temp dir and returns its
// path.
func writeFeature(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// textContent unwraps a successful tool result down to its text payload.
func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent")
	return tc.Text
}

// errorText unwraps an error tool result down to its message.
func errorText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.True(t, result.IsError)
	require.Len(t, result.Content, 1)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent")
	return tc.Text
}

func TestRunFeaturesToolExecutesFeatures(t *testing.T) {
	s := testServer(t)
	path := writeFeature(t, "numbers.feature", `Feature: Numbers

  Scenario: remembering
    Given the number 4
    Then the number is 4
`)

	result, err := s.handleRunFeatures(context.Background(), callRequest("run_features", map[string]interface{}{
		"path": path,
	}))
	require.NoError(t, err)

	var summary results.RunSummary
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &summary))
	assert.Equal(t, 1, summary.Scenarios.Total)
	assert.Equal(t, 1, summary.Scenarios.Passed)
	assert.Zero(t, summary.Scenarios.Failed)
}

func TestRunFeaturesToolReportsFailures(t *testing.T) {
	s := testServer(t)
	path := writeFeature(t, "numbers.feature", `Feature: Numbers

  Scenario: misremembering
    Given the number 4
    Then the number is 5
`)

	result, err := s.handleRunFeatures(context.Background(), callRequest("run_features", map[string]interface{}{
		"path": path,
	}))
	require.NoError(t, err)

	// A failing run is still a valid result; the verdict lives in the summary.
	var summary results.RunSummary
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &summary))
	assert.Equal(t, 1, summary.Scenarios.Failed)
	require.Len(t, summary.FailedScenarios, 1)
	assert.Contains(t, summary.FailedScenarios[0], "misremembering")
}

func TestRunFeaturesToolRespectsTagFilter(t *testing.T) {
	s := testServer(t)
	path := writeFeature(t, "numbers.feature", `Feature: Numbers

  @fast
  Scenario: first
    Given the number 1
    Then the number is 1

  @slow
  Scenario: second
    Given the number 2
    Then the number is 2
`)

	result, err := s.handleRunFeatures(context.Background(), callRequest("run_features", map[string]interface{}{
		"path": path,
		"tags": "@fast",
	}))
	require.NoError(t, err)

	var summary results.RunSummary
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &summary))
	assert.Equal(t, 1, summary.Scenarios.Total)
}

func TestRunFeaturesToolRequiresPath(t *testing.T) {
	s := testServer(t)

	result, err := s.handleRunFeatures(context.Background(), callRequest("run_features", map[string]interface{}{}))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, result), "path is required")
}

func TestRunFeaturesToolRejectsBadStepTimeout(t *testing.T) {
	s := testServer(t)
	path := writeFeature(t, "numbers.feature", "Feature: Numbers\n")

	result, err := s.handleRunFeatures(context.Background(), callRequest("run_features", map[string]interface{}{
		"path":         path,
		"step_timeout": "soon",
	}))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, result), "Invalid step_timeout")
}

func TestRunFeaturesToolMissingPath(t *testing.T) {
	s := testServer(t)

	result, err := s.handleRunFeatures(context.Background(), callRequest("run_features", map[string]interface{}{
		"path": filepath.Join(t.TempDir(), "nowhere"),
	}))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, result), "Failed to load features")
}

func TestValidateFeaturesToolCountsScenarios(t *testing.T) {
	s := testServer(t)
	path := writeFeature(t, "numbers.feature", `Feature: Numbers

  Scenario: first
    Given the number 1

  Scenario: second
    Given the number 2
    Then the number is 2
`)

	result, err := s.handleValidateFeatures(context.Background(), callRequest("validate_features", map[string]interface{}{
		"path": path,
	}))
	require.NoError(t, err)

	var report struct {
		Valid     bool `json:"valid"`
		Scenarios int  `json:"scenarios"`
		Steps     int  `json:"steps"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &report))
	assert.True(t, report.Valid)
	assert.Equal(t, 2, report.Scenarios)
	assert.Equal(t, 3, report.Steps)
}

func TestValidateFeaturesToolReportsSyntaxErrors(t *testing.T) {
	s := testServer(t)
	path := writeFeature(t, "broken.feature", `Feature: Broken

  Rule: not supported here

  Scenario: unreachable
    Given the number 1
`)

	result, err := s.handleValidateFeatures(context.Background(), callRequest("validate_features", map[string]interface{}{
		"path": path,
	}))
	require.NoError(t, err)

	text := errorText(t, result)
	assert.Contains(t, text, "Validation failed")
	assert.Contains(t, text, "broken.feature")
}

func TestListStepDefinitionsTool(t *testing.T) {
	s := testServer(t)

	result, err := s.handleListStepDefinitions(context.Background(), callRequest("list_step_definitions", nil))
	require.NoError(t, err)

	var report struct {
		StepDefinitions []struct {
			Keywords string `json:"keywords"`
			Pattern  string `json:"pattern"`
		} `json:"stepDefinitions"`
		BeforeHooks int `json:"beforeHooks"`
		AfterHooks  int `json:"afterHooks"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &report))
	require.Len(t, report.StepDefinitions, 2)
	assert.Equal(t, `the number (\d+)`, report.StepDefinitions[0].Pattern)
	assert.Zero(t, report.BeforeHooks)
	assert.Zero(t, report.AfterHooks)
}
