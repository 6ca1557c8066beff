// Package intake consumes queued video submissions from a Redis list and
// starts a workflow for each one.
//
// Producers LPUSH JSON (or YAML) submission documents; the consumer BRPOPs
// them so the oldest submission is handled first. Malformed payloads are
// logged and dropped. Pop errors are retried after a short pause.
package intake
