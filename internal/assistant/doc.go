// Package assistant runs the conversational planning loop: it builds a
// dynamic system prompt from stored state, streams model output, executes
// requested tool calls, and feeds results back to the model until it
// produces a final answer. Progress is reported as a stream of typed events
// suitable for server-sent events or a terminal UI.
package assistant
