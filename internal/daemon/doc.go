// Package daemon coordinates the long-running ClipTurbo process.
//
// It ties the render supervisor loop, the workflow sweeper, the history
// pruner, the optional Redis intake consumer and the HTTP API into a single
// lifecycle guarded by a flock-based lock so only one instance runs per state
// directory. Workflow and render semantics live in their own packages; the
// daemon only starts, stops and reports on them.
package daemon
