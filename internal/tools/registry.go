package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hcdonia/planner-app/internal/availability"
	"github.com/hcdonia/planner-app/internal/calendar"
	"github.com/hcdonia/planner-app/internal/config"
	"github.com/hcdonia/planner-app/internal/instrumentation"
	"github.com/hcdonia/planner-app/internal/llm"
	"github.com/hcdonia/planner-app/internal/logging"
	"github.com/hcdonia/planner-app/internal/store"
)

// Error kinds reported in tool results.
const (
	ErrorKindUnknownTool      = "unknown_tool"
	ErrorKindInvalidArguments = "invalid_arguments"
	ErrorKindRateLimited      = "rate_limit"
	ErrorKindAuth             = "auth_error"
	ErrorKindNotFound         = "not_found"
	ErrorKindCollaborator     = "collaborator_error"
)

// Deps bundles the collaborators tool handlers work against.
type Deps struct {
	Store    *store.DB
	Calendar calendar.Service
	Engine   *availability.Engine
	Config   *config.Config
	Now      func() time.Time
	Logger   *slog.Logger
	Metrics  *instrumentation.Metrics
}

// Handler executes one tool invocation. The returned value is marshaled to
// JSON for the model; errors are classified and encoded by the dispatcher.
type Handler func(ctx context.Context, deps *Deps, args json.RawMessage) (any, error)

// Definition describes one callable tool.
type Definition struct {
	Name        string
	Description string
	Schema      Schema
	Handler     Handler
}

// failureResult is the envelope a failed dispatch produces.
type failureResult struct {
	Success   bool   `json:"success"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Registry holds the tool definitions and dispatches invocations. It is
// read-only after construction.
type Registry struct {
	deps   *Deps
	defs   []Definition
	byName map[string]int
}

// NewRegistry builds the registry with the full planner tool set.
func NewRegistry(deps *Deps) *Registry {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := &Registry{
		deps:   deps,
		byName: make(map[string]int),
	}
	registerCalendarTools(r)
	registerKnowledgeTools(r)
	registerTodoTools(r)
	return r
}

// register adds a definition. Duplicate names are a programming error.
func (r *Registry) register(def Definition) {
	if _, exists := r.byName[def.Name]; exists {
		panic(fmt.Sprintf("tool %q registered twice", def.Name))
	}
	r.byName[def.Name] = len(r.defs)
	r.defs = append(r.defs, def)
}

// Defs returns the tool definitions in registration order, in the wire
// format advertised to the model.
func (r *Registry) Defs() []llm.ToolDef {
	out := make([]llm.ToolDef, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, llm.ToolDef{
			Type: "function",
			Function: llm.FunctionDef{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Schema.JSON(),
			},
		})
	}
	return out
}

// Lookup returns a definition by name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	i, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return &r.defs[i], true
}

// Dispatch runs one tool invocation and returns the JSON result document.
// It never returns an error to the caller: unknown tools, bad arguments,
// handler failures and panics all become structured failure results.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) json.RawMessage {
	logger := logging.WithTool(r.deps.Logger, name)
	start := r.deps.Now()

	def, ok := r.Lookup(name)
	if !ok {
		logger.Warn("unknown tool requested")
		r.deps.Metrics.RecordToolInvocation(ctx, name, instrumentation.StatusError, 0)
		return failure(ErrorKindUnknownTool, fmt.Sprintf("Unknown function: %s", name))
	}

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if !json.Valid(args) {
		logger.Warn("tool arguments are not valid JSON")
		r.deps.Metrics.RecordToolInvocation(ctx, name, instrumentation.StatusError, 0)
		return failure(ErrorKindInvalidArguments, "arguments are not valid JSON")
	}

	result := r.invoke(ctx, def, args, logger)
	elapsed := r.deps.Now().Sub(start)

	status := instrumentation.StatusSuccess
	if isFailure(result) {
		status = instrumentation.StatusError
	}
	r.deps.Metrics.RecordToolInvocation(ctx, name, status, elapsed)
	logger.Debug("tool dispatched", logging.Status(status), slog.Duration(logging.KeyDuration, elapsed))
	return result
}

// invoke runs the handler with panic containment.
func (r *Registry) invoke(ctx context.Context, def *Definition, args json.RawMessage, logger *slog.Logger) (result json.RawMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("tool handler panicked", slog.Any("panic", rec))
			result = failure(ErrorKindCollaborator, fmt.Sprintf("internal error in %s", def.Name))
		}
	}()

	payload, err := def.Handler(ctx, r.deps, args)
	if err != nil {
		kind := classifyError(err)
		logger.Error("tool handler failed", logging.Err(err), slog.String("error_kind", kind))
		return failure(kind, err.Error())
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to encode tool result", logging.Err(err))
		return failure(ErrorKindCollaborator, "failed to encode tool result")
	}
	return raw
}

// argsError marks a handler failure as an argument-validation problem.
type argsError struct{ msg string }

func (e *argsError) Error() string { return e.msg }

func invalidArgs(format string, a ...any) error {
	return &argsError{msg: fmt.Sprintf(format, a...)}
}

// classifyError maps a handler error to an error kind. Collaborator errors
// are matched on message text as a last resort; typed errors take
// precedence.
func classifyError(err error) string {
	var ae *argsError
	if errors.As(err, &ae) {
		return ErrorKindInvalidArguments
	}
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case llm.ErrRateLimited:
			return ErrorKindRateLimited
		case llm.ErrAuth:
			return ErrorKindAuth
		}
		return ErrorKindCollaborator
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "ratelimit"):
		return ErrorKindRateLimited
	case strings.Contains(msg, "credential") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "auth"):
		return ErrorKindAuth
	case strings.Contains(msg, "not found"):
		return ErrorKindNotFound
	}
	return ErrorKindCollaborator
}

func failure(kind, message string) json.RawMessage {
	raw, _ := json.Marshal(failureResult{ErrorKind: kind, Error: message})
	return raw
}

func isFailure(result json.RawMessage) bool {
	var probe struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(result, &probe); err != nil {
		return true
	}
	return probe.Success != nil && !*probe.Success
}

// decodeArgs unmarshals tool arguments into dst, reporting failures as
// argument errors.
func decodeArgs(args json.RawMessage, dst any) error {
	if err := json.Unmarshal(args, dst); err != nil {
		return invalidArgs("invalid arguments: %v", err)
	}
	return nil
}
