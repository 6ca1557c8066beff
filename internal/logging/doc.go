// Package logging assembles structured slog loggers and formatting helpers used
// across ClipTurbo components.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so step and render code automatically tag
// log lines with workflow IDs, step names, render job IDs and correlation IDs.
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging
