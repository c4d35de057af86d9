package gherkin

import (
	"fmt"
	"strings"
)

// KeywordType is the resolved keyword class of a step. And/But (and "*")
// steps inherit the class of the nearest preceding Given/When/Then, so by
// the time a Step leaves the parser its Type is always one of the three
// concrete classes.
type KeywordType int

const (
	// Given establishes context.
	Given KeywordType = iota
	// When performs an action.
	When
	// Then asserts an outcome.
	Then
)

// String returns the canonical keyword for the class.
func (k KeywordType) String() string {
	switch k {
	case Given:
		return "Given"
	case When:
		return "When"
	case Then:
		return "Then"
	default:
		return fmt.Sprintf("KeywordType(%d)", int(k))
	}
}

// Location identifies a position in a feature file. Lines and columns are
// 1-based.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Feature is one parsed feature file. Features are immutable once parsed;
// the executor borrows them for the duration of a run and never mutates them.
type Feature struct {
	// Path is the source file the feature was parsed from.
	Path string `json:"path"`
	// Name is the text following the "Feature:" keyword.
	Name string `json:"name"`
	// Description holds the free-form lines between the feature header and
	// the first block, trimmed.
	Description string `json:"description,omitempty"`
	// Tags are the feature-level tags, each including the leading "@".
	Tags []string `json:"tags,omitempty"`
	// Background holds the feature's background steps, if any. Background
	// steps run at the start of every scenario in the feature.
	Background *Background `json:"background,omitempty"`
	// Scenarios are the feature's scenarios in source order. Scenario
	// Outlines are already expanded into concrete scenarios.
	Scenarios []*Scenario `json:"scenarios"`
	Location  Location    `json:"location"`
}

// Background is a feature-level sequence of steps prepended to every
// scenario at execution time.
type Background struct {
	Name     string   `json:"name,omitempty"`
	Steps    []*Step  `json:"steps"`
	Location Location `json:"location"`
}

// Scenario is one concrete, executable scenario. For scenarios expanded from
// an outline, Name carries an "(example N)" suffix and the steps have example
// values substituted.
type Scenario struct {
	Name string `json:"name"`
	// Tags are the scenario-level tags, each including the leading "@".
	// Feature tags are not repeated here; callers that need the effective
	// tag set union the two.
	Tags     []string `json:"tags,omitempty"`
	Steps    []*Step  `json:"steps"`
	Location Location `json:"location"`
}

// Step is a single Given/When/Then line, possibly with an attached data
// table or doc string. Exactly one of Table and DocString may be set.
type Step struct {
	// Keyword is the keyword as written in the source ("Given", "And", "*").
	Keyword string `json:"keyword"`
	// Type is the resolved keyword class; And/But/* inherit the nearest
	// preceding concrete keyword.
	Type KeywordType `json:"type"`
	// Text is the step text after the keyword, trimmed.
	Text string `json:"text"`
	// Table is the attached data table, if any. It is passed through to the
	// step handler untouched.
	Table *DataTable `json:"table,omitempty"`
	// DocString is the attached doc string, if any.
	DocString *DocString `json:"docString,omitempty"`
	Location  Location   `json:"location"`
}

// DataTable is a step's attached table. Rows all have the same number of
// cells only if the author wrote them that way; the parser does not enforce
// rectangularity because handlers may want ragged input errors surfaced in
// their own terms.
type DataTable struct {
	Rows [][]string `json:"rows"`
}

// DocString is a step's attached multi-line text block.
type DocString struct {
	// MediaType is the optional token following the opening delimiter,
	// e.g. "json" in `"""json`.
	MediaType string `json:"mediaType,omitempty"`
	Content   string `json:"content"`
}

// ParseError is a single syntax error in a feature file.
type ParseError struct {
	Path     string
	Location Location
	Message  string
}

// Error formats the error as path:line:column: message.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Location.Line, e.Location.Column, e.Message)
}

// ParseErrors collects every syntax error found in one parse pass. Parsing
// does not stop at the first error so that authors see all problems at once.
type ParseErrors []*ParseError

// Error joins the individual errors, one per line.
func (e ParseErrors) Error() string {
	msgs := make([]string, len(e))
	for i, pe := range e {
		msgs[i] = pe.Error()
	}
	return strings.Join(msgs, "\n")
}
