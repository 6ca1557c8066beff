// Package notifications delivers workflow events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Enumerated event types cover the workflow outcomes so callers can
// emit consistent, user-friendly messages without duplicating HTTP glue.
package notifications
