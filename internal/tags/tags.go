// Package tags compiles and evaluates boolean tag expressions used to
// select scenarios, e.g. `@smoke and not (@wip or @slow)`.
package tags

import (
	"fmt"
	"strings"
	"unicode"
)

// Expr is a compiled tag expression. Expressions are immutable and safe for
// concurrent use.
type Expr interface {
	// Evaluate reports whether a scenario carrying the given tags is
	// selected. Tags are compared as whole tokens, including the "@".
	Evaluate(tags []string) bool
	// String renders the expression in canonical, fully parenthesized form.
	String() string
}

// True returns the expression that selects everything. Parse returns it for
// empty input so callers never need a nil check.
func True() Expr { return trueExpr{} }

// Parse compiles a tag expression. Operators are `and`, `or` and `not`
// (case-insensitive), grouping uses parentheses, and operands are tags
// written with their leading "@". Precedence, tightest first: not, and, or.
func Parse(input string) (Expr, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return True(), nil
	}
	p := &parser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("tag expression: unexpected %q", p.toks[p.pos])
	}
	return expr, nil
}

type trueExpr struct{}

func (trueExpr) Evaluate([]string) bool { return true }
func (trueExpr) String() string         { return "true" }

type tagExpr struct{ name string }

func (e tagExpr) Evaluate(tags []string) bool {
	for _, t := range tags {
		if t == e.name {
			return true
		}
	}
	return false
}
func (e tagExpr) String() string { return e.name }

type notExpr struct{ x Expr }

func (e notExpr) Evaluate(tags []string) bool { return !e.x.Evaluate(tags) }
func (e notExpr) String() string              { return "not " + e.x.String() }

type andExpr struct{ l, r Expr }

func (e andExpr) Evaluate(tags []string) bool { return e.l.Evaluate(tags) && e.r.Evaluate(tags) }
func (e andExpr) String() string              { return "(" + e.l.String() + " and " + e.r.String() + ")" }

type orExpr struct{ l, r Expr }

func (e orExpr) Evaluate(tags []string) bool { return e.l.Evaluate(tags) || e.r.Evaluate(tags) }
func (e orExpr) String() string              { return "(" + e.l.String() + " or " + e.r.String() + ")" }

func lex(input string) ([]string, error) {
	var toks []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			toks = append(toks, word.String())
			word.Reset()
		}
	}
	for _, r := range input {
		switch {
		case r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		case unicode.IsSpace(r):
			flush()
		default:
			word.WriteRune(r)
		}
	}
	flush()
	return toks, nil
}

type parser struct {
	toks []string
	pos  int
}

func (p *parser) peek() (string, bool) {
	if p.pos >= len(p.toks) {
		return "", false
	}
	return p.toks[p.pos], true
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || !strings.EqualFold(tok, "or") {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orExpr{l: left, r: right}
	}
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || !strings.EqualFold(tok, "and") {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andExpr{l: left, r: right}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("tag expression: unexpected end of input")
	}
	if strings.EqualFold(tok, "not") {
		p.pos++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notExpr{x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("tag expression: unexpected end of input")
	}
	switch {
	case tok == "(":
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing != ")" {
			return nil, fmt.Errorf("tag expression: missing ')'")
		}
		p.pos++
		return inner, nil
	case tok == ")":
		return nil, fmt.Errorf("tag expression: unexpected ')'")
	case strings.HasPrefix(tok, "@") && len(tok) > 1:
		p.pos++
		return tagExpr{name: tok}, nil
	default:
		return nil, fmt.Errorf("tag expression: unexpected %q (tags start with '@')", tok)
	}
}
