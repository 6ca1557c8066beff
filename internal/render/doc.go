// Package render supervises manim render processes.
//
// The Supervisor owns a FIFO queue of render jobs and a dispatch loop that
// wakes once per tick: it finalizes jobs whose process exited, launches queued
// jobs while fewer than the configured limit are running, and refreshes the
// progress estimate of running jobs. Each job exposes a one-shot completion
// channel so callers can wait without polling.
//
// Processes are started through a Launcher; ExecLauncher runs real commands in
// their own process group so cancellation can signal manim and its children.
package render
