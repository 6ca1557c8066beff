// Package history archives terminal workflow snapshots and render results in
// SQLite so finished work stays inspectable after the in-memory engine sweeps
// it.
//
// The archive is write-only from the engine's point of view: nothing here is
// read back to resume work after a restart. Observer and RenderRecorder hook
// the store into the engine and render supervisor respectively.
package history
