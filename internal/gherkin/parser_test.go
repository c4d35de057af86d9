package gherkin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeature(t *testing.T) {
	src := `
@billing @smoke
Feature: Shopping basket
  Baskets hold items until checkout.
  Totals update as items change.

  Background:
    Given an empty basket

  @fast
  Scenario: Adding one item
    When the user adds a pretzel
    And the user adds a beer
    Then the basket has 2 items
    But the basket is not checked out

  Scenario: Attached payloads
    Given the following prices:
      | item    | cents |
      | pretzel | 250   |
    When the catalog is imported:
      """json
      { "currency": "EUR" }
      """
    Then the import succeeds
`
	feat, err := Parse("basket.feature", []byte(src))
	require.NoError(t, err)
	require.NotNil(t, feat)

	assert.Equal(t, "Shopping basket", feat.Name)
	assert.Equal(t, []string{"@billing", "@smoke"}, feat.Tags)
	assert.Equal(t, "Baskets hold items until checkout.\nTotals update as items change.", feat.Description)
	assert.Equal(t, "basket.feature", feat.Path)

	require.NotNil(t, feat.Background)
	require.Len(t, feat.Background.Steps, 1)
	assert.Equal(t, Given, feat.Background.Steps[0].Type)
	assert.Equal(t, "an empty basket", feat.Background.Steps[0].Text)

	require.Len(t, feat.Scenarios, 2)

	first := feat.Scenarios[0]
	assert.Equal(t, "Adding one item", first.Name)
	assert.Equal(t, []string{"@fast"}, first.Tags)
	require.Len(t, first.Steps, 4)
	// And/But inherit the class of the nearest concrete keyword.
	assert.Equal(t, When, first.Steps[0].Type)
	assert.Equal(t, When, first.Steps[1].Type)
	assert.Equal(t, "And", first.Steps[1].Keyword)
	assert.Equal(t, Then, first.Steps[2].Type)
	assert.Equal(t, Then, first.Steps[3].Type)
	assert.Equal(t, "But", first.Steps[3].Keyword)

	second := feat.Scenarios[1]
	require.Len(t, second.Steps, 3)
	table := second.Steps[0].Table
	require.NotNil(t, table)
	assert.Equal(t, [][]string{{"item", "cents"}, {"pretzel", "250"}}, table.Rows)
	doc := second.Steps[1].DocString
	require.NotNil(t, doc)
	assert.Equal(t, "json", doc.MediaType)
	assert.Equal(t, `{ "currency": "EUR" }`, doc.Content)
	assert.Nil(t, second.Steps[2].Table)
}

func TestParseOutlineExpansion(t *testing.T) {
	src := `
Feature: Totals

  @outline
  Scenario Outline: Adding <count> items
    Given an empty basket
    When the user adds <count> of "<item>"
    Then the total is <total> cents

    @bulk
    Examples:
      | count | item    | total |
      | 1     | pretzel | 250   |
      | 4     | pretzel | 1000  |

    Examples:
      | count | item | total |
      | 2     | beer | 700   |
`
	feat, err := Parse("totals.feature", []byte(src))
	require.NoError(t, err)
	require.Len(t, feat.Scenarios, 3)

	sc := feat.Scenarios[0]
	assert.Equal(t, "Adding 1 items (example 1)", sc.Name)
	assert.Equal(t, []string{"@outline", "@bulk"}, sc.Tags)
	require.Len(t, sc.Steps, 3)
	assert.Equal(t, `the user adds 1 of "pretzel"`, sc.Steps[1].Text)
	assert.Equal(t, "the total is 250 cents", sc.Steps[2].Text)

	assert.Equal(t, "Adding 4 items (example 2)", feat.Scenarios[1].Name)

	third := feat.Scenarios[2]
	assert.Equal(t, "Adding 2 items (example 3)", third.Name)
	// The second Examples block carries no extra tags.
	assert.Equal(t, []string{"@outline"}, third.Tags)
	assert.Equal(t, "the total is 700 cents", third.Steps[2].Text)
}

func TestParseOutlineSubstitutesPayloads(t *testing.T) {
	src := `
Feature: Payload substitution

  Scenario Outline: Import <name>
    Given a catalog named "<name>":
      | product | <name> |
    When the import runs:
      """
      target=<name>
      """
    Then it succeeds

    Examples:
      | name  |
      | basic |
`
	feat, err := Parse("payloads.feature", []byte(src))
	require.NoError(t, err)
	require.Len(t, feat.Scenarios, 1)
	steps := feat.Scenarios[0].Steps
	assert.Equal(t, [][]string{{"product", "basic"}}, steps[0].Table.Rows)
	assert.Equal(t, "target=basic", steps[1].DocString.Content)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "content before feature",
			src:     "hello\nFeature: x\n",
			wantErr: "expected 'Feature:'",
		},
		{
			name:    "rule blocks rejected",
			src:     "Feature: x\nRule: nope\n",
			wantErr: "Rule blocks are not supported",
		},
		{
			name:    "conjunction without antecedent",
			src:     "Feature: x\nScenario: s\n  And something\n",
			wantErr: `"And" must follow a Given, When or Then`,
		},
		{
			name:    "step outside block",
			src:     "Feature: x\n  Given adrift\n",
			wantErr: "step outside of a Scenario or Background",
		},
		{
			name:    "stray table row",
			src:     "Feature: x\nScenario: s\n  | a |\n",
			wantErr: "table row is not attached to a step",
		},
		{
			name:    "tags on steps",
			src:     "Feature: x\nScenario: s\n  @bad\n  Given a step\n",
			wantErr: "tags are not allowed on steps",
		},
		{
			name:    "background after scenario",
			src:     "Feature: x\nScenario: s\n  Given a\nBackground:\n  Given b\n",
			wantErr: "Background must come before all scenarios",
		},
		{
			name:    "second background",
			src:     "Feature: x\nBackground:\n  Given a\nBackground:\n  Given b\n",
			wantErr: "only one Background per feature",
		},
		{
			name:    "steps after examples",
			src:     "Feature: x\nScenario Outline: o\n  Given a <v>\n  Examples:\n    | v |\n    | 1 |\n  Then late <v>\n",
			wantErr: "steps cannot appear after Examples",
		},
		{
			name:    "examples outside outline",
			src:     "Feature: x\nScenario: s\n  Given a\n  Examples:\n    | v |\n",
			wantErr: "Examples are only allowed inside a Scenario Outline",
		},
		{
			name:    "examples row arity",
			src:     "Feature: x\nScenario Outline: o\n  Given a <v>\n  Examples:\n    | v | w |\n    | 1 |\n",
			wantErr: "examples row has 1 cells, header has 2",
		},
		{
			name:    "malformed tag",
			src:     "@ok bad\nFeature: x\n",
			wantErr: `malformed tag "bad"`,
		},
		{
			name:    "unterminated doc string",
			src:     "Feature: x\nScenario: s\n  Given a\n    \"\"\"\n  dangling\n",
			wantErr: "unterminated doc string",
		},
		{
			name:    "dangling tags",
			src:     "Feature: x\nScenario: s\n  Given a\n@dangling\n",
			wantErr: "dangling tags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("err.feature", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			var pe ParseErrors
			require.ErrorAs(t, err, &pe)
			assert.NotEmpty(t, pe)
			assert.Equal(t, "err.feature", pe[0].Path)
		})
	}
}

func TestParseCollectsAllErrors(t *testing.T) {
	src := "Feature: x\nRule: one\nRule: two\n"
	_, err := Parse("multi.feature", []byte(src))
	require.Error(t, err)
	var pe ParseErrors
	require.ErrorAs(t, err, &pe)
	assert.Len(t, pe, 2)
}

func TestParseEmptyAndCommentOnly(t *testing.T) {
	for _, src := range []string{"", "   \n\t\n", "# nothing here\n\n# still nothing\n"} {
		feat, err := Parse("empty.feature", []byte(src))
		require.NoError(t, err)
		assert.Nil(t, feat)
	}
}

func TestParseCRLF(t *testing.T) {
	src := strings.ReplaceAll("Feature: x\nScenario: s\n  Given a step\n", "\n", "\r\n")
	feat, err := Parse("crlf.feature", []byte(src))
	require.NoError(t, err)
	require.Len(t, feat.Scenarios, 1)
	assert.Equal(t, "a step", feat.Scenarios[0].Steps[0].Text)
}

func TestSplitTableRow(t *testing.T) {
	tests := []struct {
		row     string
		want    []string
		wantErr bool
	}{
		{row: "| a | b |", want: []string{"a", "b"}},
		{row: "|a|b|", want: []string{"a", "b"}},
		{row: "| |", want: []string{""}},
		{row: `| pipe \| here | back\\slash |`, want: []string{"pipe | here", `back\slash`}},
		{row: `| multi\nline |`, want: []string{"multi\nline"}},
		{row: "| unterminated", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.row, func(t *testing.T) {
			cells, err := splitTableRow(tt.row)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cells)
		})
	}
}

func TestOutlineWithoutExamplesYieldsNothing(t *testing.T) {
	src := "Feature: x\nScenario Outline: o\n  Given a <v>\n"
	feat, err := Parse("noex.feature", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, feat.Scenarios)
}
