package stepdef

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"specrun/internal/gherkin"
	"specrun/internal/tags"
)

// Builder accumulates step and hook registrations during the startup phase.
// It is not safe for concurrent use. Build freezes the registrations into a
// Registry; the Builder must not be reused afterwards.
type Builder struct {
	patterns []*Pattern
	before   []*Hook
	after    []*Hook
	errs     []error
	built    bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// Register adds a regular-expression pattern for the given keyword classes.
// The expression matches full step text; anchoring is added automatically.
// Registration errors (bad expression, nil handler) surface at Build.
func (b *Builder) Register(keywords KeywordSet, expr string, h Handler) *Builder {
	if h == nil {
		b.errs = append(b.errs, fmt.Errorf("step pattern /%s/: nil handler", expr))
		return b
	}
	re, err := compilePattern(expr)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.patterns = append(b.patterns, &Pattern{expr: expr, re: re, keywords: keywords, handler: h})
	return b
}

// Literal adds an exact-text pattern for the given keyword classes. Literal
// patterns carry no capture groups and take part in the same candidate set
// as regex patterns, with no precedence between the two forms.
func (b *Builder) Literal(keywords KeywordSet, text string, h Handler) *Builder {
	if h == nil {
		b.errs = append(b.errs, fmt.Errorf("step pattern %q: nil handler", text))
		return b
	}
	b.patterns = append(b.patterns, &Pattern{expr: text, literal: true, keywords: keywords, handler: h})
	return b
}

// Given registers a regex pattern for Given-class steps.
func (b *Builder) Given(expr string, h Handler) *Builder { return b.Register(MatchGiven, expr, h) }

// When registers a regex pattern for When-class steps.
func (b *Builder) When(expr string, h Handler) *Builder { return b.Register(MatchWhen, expr, h) }

// Then registers a regex pattern for Then-class steps.
func (b *Builder) Then(expr string, h Handler) *Builder { return b.Register(MatchThen, expr, h) }

// Any registers a regex pattern accepting every keyword class.
func (b *Builder) Any(expr string, h Handler) *Builder { return b.Register(MatchAny, expr, h) }

// Before registers a hook that runs before a scenario's steps. Hooks run in
// registration order.
func (b *Builder) Before(fn HookFunc, opts ...HookOption) *Builder {
	return b.hook(&b.before, "before", fn, opts)
}

// After registers a hook that runs after a scenario's steps, regardless of
// their outcome. Hooks run in registration order.
func (b *Builder) After(fn HookFunc, opts ...HookOption) *Builder {
	return b.hook(&b.after, "after", fn, opts)
}

func (b *Builder) hook(dst *[]*Hook, phase string, fn HookFunc, opts []HookOption) *Builder {
	if fn == nil {
		b.errs = append(b.errs, fmt.Errorf("%s hook: nil function", phase))
		return b
	}
	var cfg hookConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	criteria := tags.True()
	if cfg.tagExpr != "" {
		parsed, err := tags.Parse(cfg.tagExpr)
		if err != nil {
			b.errs = append(b.errs, fmt.Errorf("%s hook: %w", phase, err))
			return b
		}
		criteria = parsed
	}
	*dst = append(*dst, &Hook{fn: fn, criteria: criteria})
	return b
}

// Build freezes the accumulated registrations into an immutable Registry.
// It fails if any registration was invalid or if Build was already called.
func (b *Builder) Build() (*Registry, error) {
	if b.built {
		return nil, errors.New("step registry already built")
	}
	b.built = true
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return &Registry{
		patterns: append([]*Pattern(nil), b.patterns...),
		before:   append([]*Hook(nil), b.before...),
		after:    append([]*Hook(nil), b.after...),
	}, nil
}

// Hook pairs a lifecycle function with an optional tag criterion.
type Hook struct {
	fn       HookFunc
	criteria tags.Expr
}

// Matches reports whether the hook applies to a scenario with the given
// effective tags.
func (h *Hook) Matches(scenarioTags []string) bool { return h.criteria.Evaluate(scenarioTags) }

// Run invokes the hook function.
func (h *Hook) Run(ctx context.Context, sc *ScenarioContext) error { return h.fn(ctx, sc) }

// HookOption configures a hook registration.
type HookOption func(*hookConfig)

type hookConfig struct {
	tagExpr string
}

// WithTags restricts a hook to scenarios whose effective tags satisfy the
// given tag expression.
func WithTags(expression string) HookOption {
	return func(c *hookConfig) { c.tagExpr = expression }
}

// Registry is the immutable step-definition table handed to the executor.
// It is read-only and therefore safe for concurrent matching without any
// locking.
type Registry struct {
	patterns []*Pattern
	before   []*Hook
	after    []*Hook
}

// MatchKind classifies a registry lookup.
type MatchKind int

const (
	// Matched means exactly one pattern matched.
	Matched MatchKind = iota
	// Undefined means no pattern matched.
	Undefined
	// Ambiguous means more than one pattern matched.
	Ambiguous
)

// MatchResult is the outcome of a registry lookup.
type MatchResult struct {
	Kind MatchKind
	// Pattern is the single matching pattern when Kind is Matched.
	Pattern *Pattern
	// Args are the matched pattern's capture groups in positional order.
	Args []string
	// Candidates lists the descriptions of every matching pattern when
	// Kind is Ambiguous, sorted so the result is independent of
	// registration order.
	Candidates []string
}

// Match computes the candidate set of patterns accepting the step's keyword
// class and matching its full text. Exactly one candidate is a match; zero
// is Undefined; several is Ambiguous with all candidates listed. For a
// fixed registry and input the result is always identical, regardless of
// call order or concurrent callers.
func (r *Registry) Match(text string, class gherkin.KeywordType) MatchResult {
	var hits []*Pattern
	for _, p := range r.patterns {
		if !p.keywords.accepts(class) {
			continue
		}
		if _, ok := p.match(text); ok {
			hits = append(hits, p)
		}
	}
	switch len(hits) {
	case 0:
		return MatchResult{Kind: Undefined}
	case 1:
		args, _ := hits[0].match(text)
		return MatchResult{Kind: Matched, Pattern: hits[0], Args: args}
	default:
		candidates := make([]string, len(hits))
		for i, p := range hits {
			candidates[i] = p.Description()
		}
		sort.Strings(candidates)
		return MatchResult{Kind: Ambiguous, Candidates: candidates}
	}
}

// Patterns returns the registered patterns in registration order.
func (r *Registry) Patterns() []*Pattern {
	return append([]*Pattern(nil), r.patterns...)
}

// Len returns the number of registered patterns.
func (r *Registry) Len() int { return len(r.patterns) }

// BeforeHooks returns the Before-hooks in registration order.
func (r *Registry) BeforeHooks() []*Hook { return r.before }

// AfterHooks returns the After-hooks in registration order.
func (r *Registry) AfterHooks() []*Hook { return r.after }
