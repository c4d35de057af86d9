package gherkin

import (
	"fmt"
	"strings"
)

// Parse parses the text of a single feature file. It does not stop at the
// first syntax error; the returned error is a ParseErrors listing every
// problem found. A file containing only comments and blank lines parses to a
// nil Feature with no error.
//
// Scenario Outlines are expanded here: each Examples row yields one concrete
// Scenario with "<param>" placeholders substituted into step text, doc
// strings and table cells, named "<outline name> (example N)".
func Parse(path string, src []byte) (*Feature, error) {
	p := &parser{path: path}
	lines := strings.Split(string(src), "\n")
	for i, raw := range lines {
		p.line(i+1, strings.TrimSuffix(raw, "\r"))
	}
	p.finish()
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return p.feat, nil
}

type parser struct {
	path string
	feat *Feature
	errs ParseErrors

	pendingTags []string

	// at most one of these is open at a time
	background *Background
	scenario   *Scenario
	outline    *outline

	lastStep *Step
	lastType KeywordType
	haveType bool

	inDocString bool
	docDelim    string
	docIndent   string
	docString   *DocString
	docLines    []string
}

type outline struct {
	scenario *Scenario
	examples []*examplesBlock
}

type examplesBlock struct {
	tags   []string
	header []string
	rows   []exampleRow
}

type exampleRow struct {
	cells    []string
	location Location
}

func (p *parser) errorf(loc Location, format string, args ...interface{}) {
	p.errs = append(p.errs, &ParseError{
		Path:     p.path,
		Location: loc,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (p *parser) line(num int, raw string) {
	if p.inDocString {
		p.docStringLine(raw)
		return
	}

	trimmed := strings.TrimSpace(raw)
	loc := Location{Line: num, Column: len(raw) - len(strings.TrimLeft(raw, " \t")) + 1}

	switch {
	case trimmed == "":
		return
	case strings.HasPrefix(trimmed, "#"):
		return
	case strings.HasPrefix(trimmed, "@"):
		p.tagLine(trimmed, loc)
	case strings.HasPrefix(trimmed, "Feature:"):
		p.featureLine(strings.TrimSpace(trimmed[len("Feature:"):]), loc)
	case strings.HasPrefix(trimmed, "Background:"):
		p.backgroundLine(strings.TrimSpace(trimmed[len("Background:"):]), loc)
	case strings.HasPrefix(trimmed, "Scenario Outline:"):
		p.outlineLine(strings.TrimSpace(trimmed[len("Scenario Outline:"):]), loc)
	case strings.HasPrefix(trimmed, "Scenario Template:"):
		p.outlineLine(strings.TrimSpace(trimmed[len("Scenario Template:"):]), loc)
	case strings.HasPrefix(trimmed, "Scenario:"):
		p.scenarioLine(strings.TrimSpace(trimmed[len("Scenario:"):]), loc)
	case strings.HasPrefix(trimmed, "Example:"):
		p.scenarioLine(strings.TrimSpace(trimmed[len("Example:"):]), loc)
	case strings.HasPrefix(trimmed, "Examples:"), strings.HasPrefix(trimmed, "Scenarios:"):
		p.examplesLine(loc)
	case strings.HasPrefix(trimmed, "Rule:"):
		p.errorf(loc, "Rule blocks are not supported")
	case strings.HasPrefix(trimmed, "|"):
		p.tableLine(trimmed, loc)
	case strings.HasPrefix(trimmed, `"""`), strings.HasPrefix(trimmed, "```"):
		p.openDocString(raw, trimmed, loc)
	default:
		if kw, typ, conj, ok := stepKeyword(trimmed); ok {
			p.stepLine(kw, typ, conj, strings.TrimSpace(trimmed[len(kw):]), loc)
			return
		}
		p.textLine(trimmed, loc)
	}
}

// stepKeyword reports whether the line starts with a step keyword. conj is
// true for And/But/*, whose keyword class is inherited.
func stepKeyword(trimmed string) (keyword string, typ KeywordType, conj bool, ok bool) {
	switch {
	case strings.HasPrefix(trimmed, "Given "):
		return "Given", Given, false, true
	case strings.HasPrefix(trimmed, "When "):
		return "When", When, false, true
	case strings.HasPrefix(trimmed, "Then "):
		return "Then", Then, false, true
	case strings.HasPrefix(trimmed, "And "):
		return "And", 0, true, true
	case strings.HasPrefix(trimmed, "But "):
		return "But", 0, true, true
	case strings.HasPrefix(trimmed, "* "):
		return "*", 0, true, true
	}
	return "", 0, false, false
}

func (p *parser) tagLine(trimmed string, loc Location) {
	for _, field := range strings.Fields(trimmed) {
		if !strings.HasPrefix(field, "@") || len(field) == 1 {
			p.errorf(loc, "malformed tag %q", field)
			continue
		}
		p.pendingTags = append(p.pendingTags, field)
	}
}

func (p *parser) featureLine(name string, loc Location) {
	if p.feat != nil {
		p.errorf(loc, "only one Feature per file")
		return
	}
	p.feat = &Feature{
		Path:     p.path,
		Name:     name,
		Tags:     p.takeTags(),
		Location: loc,
	}
}

func (p *parser) backgroundLine(name string, loc Location) {
	if !p.requireFeature(loc) {
		return
	}
	if len(p.takeTags()) > 0 {
		p.errorf(loc, "tags are not allowed on Background")
	}
	p.closeBlock()
	if p.feat.Background != nil {
		p.errorf(loc, "only one Background per feature")
		return
	}
	if len(p.feat.Scenarios) > 0 {
		p.errorf(loc, "Background must come before all scenarios")
		return
	}
	p.background = &Background{Name: name, Location: loc}
}

func (p *parser) scenarioLine(name string, loc Location) {
	if !p.requireFeature(loc) {
		return
	}
	p.closeBlock()
	p.scenario = &Scenario{Name: name, Tags: p.takeTags(), Location: loc}
}

func (p *parser) outlineLine(name string, loc Location) {
	if !p.requireFeature(loc) {
		return
	}
	p.closeBlock()
	p.outline = &outline{
		scenario: &Scenario{Name: name, Tags: p.takeTags(), Location: loc},
	}
}

func (p *parser) examplesLine(loc Location) {
	if p.outline == nil {
		p.errorf(loc, "Examples are only allowed inside a Scenario Outline")
		p.takeTags()
		return
	}
	p.outline.examples = append(p.outline.examples, &examplesBlock{tags: p.takeTags()})
	p.lastStep = nil
}

func (p *parser) stepLine(keyword string, typ KeywordType, conj bool, text string, loc Location) {
	if len(p.pendingTags) > 0 {
		p.errorf(loc, "tags are not allowed on steps")
		p.takeTags()
	}
	steps := p.currentSteps()
	if steps == nil {
		p.errorf(loc, "step outside of a Scenario or Background")
		return
	}
	if p.outline != nil && len(p.outline.examples) > 0 {
		p.errorf(loc, "steps cannot appear after Examples")
		return
	}
	if conj {
		if !p.haveType {
			p.errorf(loc, "%q must follow a Given, When or Then", keyword)
			return
		}
		typ = p.lastType
	} else {
		p.lastType = typ
		p.haveType = true
	}
	step := &Step{Keyword: keyword, Type: typ, Text: text, Location: loc}
	*steps = append(*steps, step)
	p.lastStep = step
}

func (p *parser) tableLine(trimmed string, loc Location) {
	cells, err := splitTableRow(trimmed)
	if err != nil {
		p.errorf(loc, "%v", err)
		return
	}
	// Inside an outline, rows following an Examples: line belong to the
	// examples block, not to a step.
	if p.outline != nil && len(p.outline.examples) > 0 {
		ex := p.outline.examples[len(p.outline.examples)-1]
		if ex.header == nil {
			ex.header = cells
			return
		}
		ex.rows = append(ex.rows, exampleRow{cells: cells, location: loc})
		return
	}
	if p.lastStep == nil {
		p.errorf(loc, "table row is not attached to a step")
		return
	}
	if p.lastStep.Table == nil {
		p.lastStep.Table = &DataTable{}
	}
	p.lastStep.Table.Rows = append(p.lastStep.Table.Rows, cells)
}

// splitTableRow parses one "| a | b |" line. Cells support the escapes \|,
// \\ and \n.
func splitTableRow(trimmed string) ([]string, error) {
	if !strings.HasSuffix(trimmed, "|") {
		return nil, fmt.Errorf("table row must end with '|'")
	}
	body := trimmed[1 : len(trimmed)-1]
	var cells []string
	var cell strings.Builder
	escaped := false
	for _, r := range body {
		switch {
		case escaped:
			switch r {
			case 'n':
				cell.WriteByte('\n')
			case '|', '\\':
				cell.WriteRune(r)
			default:
				cell.WriteByte('\\')
				cell.WriteRune(r)
			}
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		default:
			cell.WriteRune(r)
		}
	}
	if escaped {
		cell.WriteByte('\\')
	}
	cells = append(cells, strings.TrimSpace(cell.String()))
	return cells, nil
}

func (p *parser) openDocString(raw, trimmed string, loc Location) {
	if p.lastStep == nil {
		p.errorf(loc, "doc string is not attached to a step")
		return
	}
	if p.lastStep.DocString != nil {
		p.errorf(loc, "step already has a doc string")
		return
	}
	p.inDocString = true
	p.docDelim = trimmed[:3]
	p.docIndent = raw[:len(raw)-len(strings.TrimLeft(raw, " \t"))]
	p.docString = &DocString{MediaType: strings.TrimSpace(trimmed[3:])}
	p.docLines = nil
}

func (p *parser) docStringLine(raw string) {
	if strings.TrimSpace(raw) == p.docDelim {
		p.docString.Content = strings.Join(p.docLines, "\n")
		p.lastStep.DocString = p.docString
		p.inDocString = false
		p.docString = nil
		p.docLines = nil
		return
	}
	// Strip the indentation of the opening delimiter so that doc string
	// content keeps only its own relative indentation.
	p.docLines = append(p.docLines, strings.TrimPrefix(raw, p.docIndent))
}

func (p *parser) textLine(trimmed string, loc Location) {
	if p.feat == nil {
		p.errorf(loc, "expected 'Feature:', got %q", trimmed)
		return
	}
	// Free-form description lines are allowed under the feature header and
	// under a block header before its first step.
	switch {
	case p.background != nil:
		if len(p.background.Steps) > 0 {
			p.errorf(loc, "unexpected content %q", trimmed)
		}
	case p.scenario != nil:
		if len(p.scenario.Steps) > 0 {
			p.errorf(loc, "unexpected content %q", trimmed)
		}
	case p.outline != nil:
		if len(p.outline.scenario.Steps) > 0 || len(p.outline.examples) > 0 {
			p.errorf(loc, "unexpected content %q", trimmed)
		}
	default:
		if p.feat.Description == "" {
			p.feat.Description = trimmed
		} else {
			p.feat.Description += "\n" + trimmed
		}
	}
}

// currentSteps returns the step slice of the open block, or nil when no
// block is open.
func (p *parser) currentSteps() *[]*Step {
	switch {
	case p.background != nil:
		return &p.background.Steps
	case p.scenario != nil:
		return &p.scenario.Steps
	case p.outline != nil:
		return &p.outline.scenario.Steps
	}
	return nil
}

func (p *parser) requireFeature(loc Location) bool {
	if p.feat == nil {
		p.errorf(loc, "expected 'Feature:' before this block")
		return false
	}
	return true
}

func (p *parser) takeTags() []string {
	tags := p.pendingTags
	p.pendingTags = nil
	return tags
}

// closeBlock flushes the open background/scenario/outline into the feature.
func (p *parser) closeBlock() {
	switch {
	case p.background != nil:
		p.feat.Background = p.background
		p.background = nil
	case p.scenario != nil:
		p.feat.Scenarios = append(p.feat.Scenarios, p.scenario)
		p.scenario = nil
	case p.outline != nil:
		p.expandOutline(p.outline)
		p.outline = nil
	}
	p.lastStep = nil
	p.haveType = false
}

func (p *parser) finish() {
	if p.inDocString {
		p.errorf(Location{Line: 0, Column: 0}, "unterminated doc string")
		p.inDocString = false
	}
	if p.feat != nil {
		p.closeBlock()
	}
	if len(p.pendingTags) > 0 {
		p.errorf(Location{Line: 0, Column: 0}, "dangling tags %v", p.pendingTags)
	}
}

// expandOutline turns an outline into one concrete scenario per examples
// row. An outline without examples yields no scenarios.
func (p *parser) expandOutline(o *outline) {
	ordinal := 0
	for _, ex := range o.examples {
		if ex.header == nil {
			p.errorf(o.scenario.Location, "Examples block of %q has no header row", o.scenario.Name)
			continue
		}
		for _, row := range ex.rows {
			if len(row.cells) != len(ex.header) {
				p.errorf(row.location, "examples row has %d cells, header has %d", len(row.cells), len(ex.header))
				continue
			}
			ordinal++
			sc := &Scenario{
				Name:     fmt.Sprintf("%s (example %d)", o.scenario.Name, ordinal),
				Tags:     append(append([]string{}, o.scenario.Tags...), ex.tags...),
				Location: row.location,
			}
			for _, st := range o.scenario.Steps {
				sc.Steps = append(sc.Steps, substituteStep(st, ex.header, row.cells))
			}
			p.feat.Scenarios = append(p.feat.Scenarios, sc)
		}
	}
}

// substituteStep copies a step with every "<param>" placeholder replaced by
// the example row's value. Tables and doc strings are deep-copied so that
// expanded scenarios never share mutable payloads.
func substituteStep(st *Step, header []string, cells []string) *Step {
	sub := func(s string) string {
		for i, name := range header {
			s = strings.ReplaceAll(s, "<"+name+">", cells[i])
		}
		return s
	}
	out := &Step{
		Keyword:  st.Keyword,
		Type:     st.Type,
		Text:     sub(st.Text),
		Location: st.Location,
	}
	if st.Table != nil {
		out.Table = &DataTable{Rows: make([][]string, len(st.Table.Rows))}
		for i, row := range st.Table.Rows {
			cells := make([]string, len(row))
			for j, c := range row {
				cells[j] = sub(c)
			}
			out.Table.Rows[i] = cells
		}
	}
	if st.DocString != nil {
		out.DocString = &DocString{
			MediaType: st.DocString.MediaType,
			Content:   sub(st.DocString.Content),
		}
	}
	return out
}
