// Package tools defines the functions the assistant can call during a
// conversation: availability checks, calendar scheduling, knowledge and
// instruction management, calendar configuration and the todo list.
//
// The Registry owns the function definitions (advertised to the model as
// JSON Schema) and dispatches invocations against the planner's store,
// calendar service and availability engine. Dispatch never returns a Go
// error to the orchestration loop; failures are encoded in the JSON result
// so the model can react to them.
package tools
