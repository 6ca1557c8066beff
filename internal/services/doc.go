// Package services defines shared utilities consumed by the workflow step
// handlers, the render supervisor, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp workflow IDs, step names, render job IDs, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (validation vs external tool vs not found) with errors.Is.
//
// Use these helpers when wiring new step logic so error reporting and
// observability stay uniform across the pipeline.
package services
