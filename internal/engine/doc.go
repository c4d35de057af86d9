// Package engine executes parsed features against a frozen step registry.
//
// The Runner schedules scenarios onto a bounded worker pool, gives each
// scenario an isolated World built by a WorldFactory, runs Before-hooks,
// Background steps, scenario steps and After-hooks in order, and publishes
// lifecycle events on a reporting.EventBus as it goes. Scenario and step
// outcomes travel exclusively through those events; the Runner's own return
// value is the aggregated results.RunSummary.
//
// Execution guarantees:
//
//   - At most Concurrency scenarios run at once; scenarios of the same
//     feature may run concurrently with each other.
//   - Steps inside one scenario run strictly in order, and later steps see
//     the World mutations of earlier ones.
//   - A World that was set up is disposed exactly once, on a fresh context,
//     no matter how hooks or steps fail.
//   - After-hooks run even when steps fail; a failing Before-hook skips the
//     scenario's steps but not its After-hooks.
//   - With FailFast, a failure stops new scenarios from starting; scenarios
//     already in flight finish normally and unstarted ones are reported as
//     skipped.
package engine
