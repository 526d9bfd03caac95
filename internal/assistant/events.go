package assistant

import "encoding/json"

// EventType discriminates the events emitted while processing a message.
type EventType string

// Event types, in the order a typical exchange produces them.
const (
	EventChunk          EventType = "chunk"
	EventFunctionCall   EventType = "function_call"
	EventFunctionResult EventType = "function_result"
	EventTitleUpdate    EventType = "title_update"
	EventComplete       EventType = "complete"
	EventError          EventType = "error"
)

// Event is one item of the processing stream. Only the fields relevant to
// its type are set.
type Event struct {
	Type EventType `json:"type"`

	// Content carries a text fragment for chunk events.
	Content string `json:"content,omitempty"`

	// Function and Arguments describe a tool invocation; Result carries the
	// JSON document the tool produced.
	Function  string          `json:"function,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`

	// Title is the generated conversation title for title_update events.
	Title string `json:"title,omitempty"`

	// FullResponse is the complete assistant text, set on complete events.
	FullResponse string `json:"full_response,omitempty"`

	// Error describes what went wrong for error events.
	Error string `json:"error,omitempty"`
}
