package llm

import "encoding/json"

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single chat turn in OpenAI wire format.
type Message struct {
	Role       string        `json:"role"`
	Content    string        `json:"content"`
	ToolCalls  []ToolCallRef `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

// ToolCallRef is a tool call recorded on an assistant turn.
type ToolCallRef struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries a function name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDef describes a callable function advertised to the model.
type ToolDef struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef is the function portion of a tool definition. Parameters is a
// JSON Schema object.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall is a fully assembled tool invocation emitted by the stream.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Ref converts the call back to its wire representation for recording on an
// assistant turn.
func (tc ToolCall) Ref() ToolCallRef {
	return ToolCallRef{
		ID:   tc.ID,
		Type: "function",
		Function: FunctionCall{
			Name:      tc.Name,
			Arguments: string(tc.Arguments),
		},
	}
}

// EventType discriminates stream events.
type EventType string

// Stream event types.
const (
	EventContent  EventType = "content"
	EventToolCall EventType = "tool_call"
	EventFinish   EventType = "finish"
	EventError    EventType = "error"
)

// Event is one item of a chat completion stream.
type Event struct {
	Type         EventType
	Content      string
	ToolCall     *ToolCall
	FinishReason string
	Err          error
}

// Finish reasons reported by the API.
const (
	FinishToolCalls = "tool_calls"
	FinishStop      = "stop"
)
