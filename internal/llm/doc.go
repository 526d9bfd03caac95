// Package llm is a streaming client for OpenAI-compatible chat completion
// APIs. It exposes responses as an event channel carrying text deltas,
// assembled tool calls and a finish reason, which the assistant's
// orchestration loop consumes.
package llm
