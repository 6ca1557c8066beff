// Package content models the video content that flows through a workflow and
// the collaborators that produce it.
//
// VideoContent is built either from a user-supplied UserContent (the
// content_preparation step) or by a Generator from a bare topic (the
// content_generation step). LLMGenerator talks to an OpenRouter-compatible
// chat completion endpoint and asks for a JSON script payload.
//
// Submission is the wire shape accepted by the CLI, the HTTP API and the Redis
// intake; Parse accepts YAML or JSON.
package content
