// Package steps implements the workflow handlers for each step kind of the
// video production pipeline.
//
// Handlers are stateless apart from their collaborators; all per-workflow
// state lives in the workflow.Context they receive. Handlers(deps) returns
// the full set the engine needs for both the AI and user-content graphs.
package steps
