// Package config loads, normalizes, and validates ClipTurbo configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CLIPTURBO_LLM_API_KEY. The Config type centralizes every knob the daemon and
// CLI need: scratch and output directories, render concurrency, workflow
// retention, content generation credentials, the HTTP API, the optional Redis
// intake and ntfy notifications.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
