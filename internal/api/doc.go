// Package api is the daemon's HTTP control surface and the client the CLI
// uses to reach it.
//
// # Routes
//
// The chi router exposes workflows (create, list active, status, cancel),
// render jobs (status, cancel), the render queue with host resources, the
// history archive, and daemon status. When a bearer token is configured every
// route requires "Authorization: Bearer <token>".
//
// # Wire format
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds and
// durations are reported in milliseconds. Errors are {"error": "...",
// "kind": "..."} where kind is the services error marker, so clients can
// classify failures without parsing messages.
package api
