// Package preflight provides readiness checks for the filesystem paths and
// external services ClipTurbo depends on.
//
// The daemon runs RunAll at startup and logs failures without refusing to
// start; the CLI "clipturbo deps" and "clipturbo status" commands display the
// same results. Each service check is gated by its config toggle.
package preflight
