// Package stepdef holds the step-definition registry: compiled step
// patterns, their handlers, and scenario lifecycle hooks.
//
// Registration and execution are strictly non-overlapping phases. A Builder
// accumulates registrations; Build freezes them into an immutable Registry
// that performs no locking during matching. Matching is deterministic: a
// step text either matches exactly one pattern (the match), none
// (undefined), or several (ambiguous, reported with every conflicting
// pattern so the author can disambiguate). There is no precedence between
// patterns — not registration order, and not literal over regex.
package stepdef
