// Package plugins loads step definitions from interpreted Go source files,
// so a project can keep its glue next to its feature files without
// recompiling specrun.
//
// A plugin is a .go file (package main) declaring a Steps function:
//
//	func Steps() []map[string]interface{} {
//		return []map[string]interface{}{
//			{
//				"keyword": "given",
//				"pattern": `a basket with (\d+) apples`,
//				"func": func(world map[string]interface{}, args []string) error {
//					world["apples"] = args[0]
//					return nil
//				},
//			},
//		}
//	}
//
// Each row registers one step definition or hook:
//
//   - "keyword": given, when, then or any for steps; before or after for
//     hooks (case-insensitive).
//   - "pattern": a regular expression matched against the full step text,
//     or "text": an exact-match literal. Exactly one of the two.
//   - "tags": an optional tag expression restricting a hook.
//   - "func": the implementation. Steps take
//     func(world map[string]interface{}, args []string) error, hooks take
//     func(world map[string]interface{}) error.
//
// Plugin functions receive the scenario's World map directly; they run
// under the same per-step timeout and panic capture as compiled-in steps.
// The interpreter exposes the Go standard library, nothing else.
package plugins
