package plugins

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specrun/internal/engine"
	"specrun/internal/gherkin"
	"specrun/internal/results"
	"specrun/internal/stepdef"
)

func TestRegisterPathLoadsDirectory(t *testing.T) {
	b := stepdef.NewBuilder()
	// testdata/valid also contains notes.txt, which must be ignored.
	require.NoError(t, RegisterPath(b, filepath.Join("testdata", "valid")))

	reg, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())
	require.Len(t, reg.BeforeHooks(), 1)

	match := reg.Match("a basket with 3 apples", gherkin.Given)
	require.Equal(t, stepdef.Matched, match.Kind)
	assert.Equal(t, []string{"3"}, match.Args)

	world := map[string]interface{}{}
	sc := &stepdef.StepContext{World: world, Args: match.Args}
	require.NoError(t, match.Pattern.Invoke(context.Background(), sc))
	assert.Equal(t, 3, world["apples"])
}

func TestRegisterPathRunsEndToEnd(t *testing.T) {
	feature, err := gherkin.Parse("basket.feature", []byte(`
@fruit
Feature: Basket

  Scenario: Emptying the basket
    Given a basket with 3 apples
    When I empty the basket
    Then the basket holds 0 apples
    And the fruit hook ran
`))
	require.NoError(t, err)

	b := stepdef.NewBuilder()
	require.NoError(t, RegisterPath(b, filepath.Join("testdata", "valid", "cart_steps.go")))
	// Native and plugin-loaded definitions share one registry.
	b.Then(`the fruit hook ran`, func(ctx context.Context, sc *stepdef.StepContext) error {
		if sc.World.(map[string]interface{})["hook"] != "ran" {
			return errors.New("before hook did not run")
		}
		return nil
	})
	reg, err := b.Build()
	require.NoError(t, err)

	r, err := engine.NewRunner(reg, nil, nil, engine.RunConfig{})
	require.NoError(t, err)
	summary, err := r.Run(context.Background(), []*gherkin.Feature{feature})
	require.NoError(t, err)

	require.Len(t, summary.FeatureResults, 1)
	scn := summary.FeatureResults[0].Scenarios[0]
	assert.Equal(t, results.ScenarioPassed, scn.Status, "reason: %s", scn.Reason)
	assert.False(t, summary.Failing())
}

func TestRegisterPathReportsStepErrors(t *testing.T) {
	b := stepdef.NewBuilder()
	require.NoError(t, RegisterPath(b, filepath.Join("testdata", "valid", "cart_steps.go")))
	reg, err := b.Build()
	require.NoError(t, err)

	match := reg.Match("the basket holds 5 apples", gherkin.Then)
	require.Equal(t, stepdef.Matched, match.Kind)

	sc := &stepdef.StepContext{World: map[string]interface{}{"apples": 2}, Args: match.Args}
	err = match.Pattern.Invoke(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "basket holds 2 apples, want 5")
}

func TestRegisterPathRejectsNonMapWorld(t *testing.T) {
	b := stepdef.NewBuilder()
	require.NoError(t, RegisterPath(b, filepath.Join("testdata", "valid", "cart_steps.go")))
	reg, err := b.Build()
	require.NoError(t, err)

	match := reg.Match("I empty the basket", gherkin.When)
	require.Equal(t, stepdef.Matched, match.Kind)

	sc := &stepdef.StepContext{World: struct{}{}}
	err = match.Pattern.Invoke(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need a map World")
}

func TestRegisterPathMissingStepsFunc(t *testing.T) {
	b := stepdef.NewBuilder()
	err := RegisterPath(b, filepath.Join("testdata", "missing", "helpers.go"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must define Steps")
}

func TestRegisterPathBadRow(t *testing.T) {
	b := stepdef.NewBuilder()
	err := RegisterPath(b, filepath.Join("testdata", "badrow", "no_func.go"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
	assert.Contains(t, err.Error(), `missing the "func" key`)
}

func TestRegisterPathMissingPath(t *testing.T) {
	b := stepdef.NewBuilder()
	err := RegisterPath(b, filepath.Join("testdata", "no-such-dir"))
	require.Error(t, err)
}

func TestRegisterPathsSkipsBlankEntries(t *testing.T) {
	b := stepdef.NewBuilder()
	require.NoError(t, RegisterPaths(b, []string{"", "   "}))
	reg, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestRegisterRowValidation(t *testing.T) {
	stepFn := func(world map[string]interface{}, args []string) error { return nil }

	tests := []struct {
		name    string
		row     map[string]interface{}
		wantErr string
	}{
		{
			name:    "unknown keyword",
			row:     map[string]interface{}{"keyword": "perhaps", "pattern": "x", "func": stepFn},
			wantErr: `unknown keyword "perhaps"`,
		},
		{
			name:    "pattern and text together",
			row:     map[string]interface{}{"keyword": "given", "pattern": "x", "text": "x", "func": stepFn},
			wantErr: `both "pattern" and "text"`,
		},
		{
			name:    "neither pattern nor text",
			row:     map[string]interface{}{"keyword": "given", "func": stepFn},
			wantErr: `needs a "pattern" or "text" key`,
		},
		{
			name:    "wrong func shape",
			row:     map[string]interface{}{"keyword": "given", "pattern": "x", "func": func() {}},
			wantErr: "want func(world map[string]interface{}, args []string) error",
		},
		{
			name:    "hook with step signature",
			row:     map[string]interface{}{"keyword": "before", "func": stepFn},
			wantErr: "want func(world map[string]interface{}) error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registerRow(stepdef.NewBuilder(), tt.row)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
