package stepdef

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"specrun/internal/gherkin"
)

// KeywordSet is the set of keyword classes a pattern is registered against.
type KeywordSet uint8

const (
	// MatchGiven accepts Given-class steps.
	MatchGiven KeywordSet = 1 << iota
	// MatchWhen accepts When-class steps.
	MatchWhen
	// MatchThen accepts Then-class steps.
	MatchThen

	// MatchAny accepts steps of every keyword class.
	MatchAny = MatchGiven | MatchWhen | MatchThen
)

func (s KeywordSet) accepts(k gherkin.KeywordType) bool {
	switch k {
	case gherkin.Given:
		return s&MatchGiven != 0
	case gherkin.When:
		return s&MatchWhen != 0
	case gherkin.Then:
		return s&MatchThen != 0
	}
	return false
}

// String renders the set for diagnostics, e.g. "Given|When" or "any".
func (s KeywordSet) String() string {
	if s&MatchAny == MatchAny {
		return "any"
	}
	var parts []string
	if s&MatchGiven != 0 {
		parts = append(parts, "Given")
	}
	if s&MatchWhen != 0 {
		parts = append(parts, "When")
	}
	if s&MatchThen != 0 {
		parts = append(parts, "Then")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Pattern is one registered step definition: a match expression, the
// keyword classes it applies to, and the handler invoked on a match.
// Patterns are immutable once built.
type Pattern struct {
	expr     string
	literal  bool
	re       *regexp.Regexp
	keywords KeywordSet
	handler  Handler
}

// Expr returns the match expression as registered.
func (p *Pattern) Expr() string { return p.expr }

// Keywords returns the keyword classes the pattern accepts.
func (p *Pattern) Keywords() KeywordSet { return p.keywords }

// Description renders the pattern for diagnostics and ambiguity listings:
// literal patterns as a quoted string, regex patterns between slashes, both
// prefixed with the keyword classes.
func (p *Pattern) Description() string {
	if p.literal {
		return fmt.Sprintf("%s %q", p.keywords, p.expr)
	}
	return fmt.Sprintf("%s /%s/", p.keywords, p.expr)
}

// match tests text against the pattern. Matching is always full-text: regex
// patterns are compiled with anchors wrapped around the registered
// expression, literal patterns compare for string equality. The returned
// args are the capture groups in positional order (empty for literals).
func (p *Pattern) match(text string) ([]string, bool) {
	if p.literal {
		return nil, text == p.expr
	}
	m := p.re.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return m[1:], true
}

// Invoke runs the pattern's handler.
func (p *Pattern) Invoke(ctx context.Context, sc *StepContext) error {
	return p.handler(ctx, sc)
}

// compilePattern compiles a regex step expression with full-match anchoring.
// The expression is wrapped in a non-capturing group so capture indices are
// preserved and author-written ^/$ anchors keep their meaning.
func compilePattern(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`\A(?:` + expr + `)\z`)
	if err != nil {
		return nil, fmt.Errorf("step pattern /%s/: %w", expr, err)
	}
	return re, nil
}
