// Package tui renders a live terminal view of a feature run.
//
// The view is fed by the bounded event channel of a reporting.TUIReporter:
// a spinner and per-feature progress while scenarios execute, the step
// currently running, a capped list of failures, and the final verdict. The
// channel drops events rather than stalling the run when the terminal
// cannot keep up, so intermediate numbers are advisory; the summary on the
// run.finished event is authoritative.
//
// Keys: q or ctrl+c quits (aborting the run if it is still going), c
// copies the failure summary to the clipboard.
package tui
