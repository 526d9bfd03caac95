package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hcdonia/planner-app/internal/instrumentation"
	"github.com/hcdonia/planner-app/internal/llm"
	"github.com/hcdonia/planner-app/internal/logging"
	"github.com/hcdonia/planner-app/internal/store"
	"github.com/hcdonia/planner-app/internal/tools"
)

// maxToolRounds bounds how many times the model may follow a tool round
// with another tool round before being cut off.
const maxToolRounds = 5

// depthExceededMessage is streamed when the model keeps requesting tools
// past the round limit.
const depthExceededMessage = "\n\nI've made several attempts but couldn't complete the task. Please try rephrasing your request."

// Orchestrator drives one conversation turn end to end.
type Orchestrator struct {
	store    *store.DB
	streamer llm.Streamer
	registry *tools.Registry
	builder  *ContextBuilder
	model    string
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
}

// New builds an orchestrator. model is only used for metric labels.
func New(db *store.DB, streamer llm.Streamer, registry *tools.Registry, builder *ContextBuilder, model string, logger *slog.Logger, metrics *instrumentation.Metrics) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:    db,
		streamer: streamer,
		registry: registry,
		builder:  builder,
		model:    model,
		logger:   logger,
		metrics:  metrics,
	}
}

// toolRound records one executed tool call for the continuation turn.
type toolRound struct {
	call   llm.ToolCall
	result json.RawMessage
}

// ProcessMessage handles one user message. It persists the user turn,
// streams the model response while executing any requested tools, persists
// the assistant turn, and closes the returned channel when done. The
// returned channel always ends with either a complete or an error event.
func (o *Orchestrator) ProcessMessage(ctx context.Context, conversationID int64, userMessage string) (<-chan Event, error) {
	logger := o.logger.With(logging.Conversation(conversationID))

	if _, err := o.store.SaveMessage(ctx, conversationID, llm.RoleUser, userMessage, nil); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	messages, err := o.builder.BuildMessages(ctx, conversationID, userMessage)
	if err != nil {
		return nil, err
	}

	events := make(chan Event, 16)
	go o.run(ctx, conversationID, userMessage, messages, events, logger)
	return events, nil
}

// run executes the tool-calling loop and closes the event channel.
func (o *Orchestrator) run(ctx context.Context, conversationID int64, userMessage string, messages []llm.Message, events chan<- Event, logger *slog.Logger) {
	defer close(events)

	var fullResponse string
	var executedCalls []toolRound

	for round := 0; ; round++ {
		if round > 0 {
			// The stored state may have changed during the previous tool
			// round; rebuild the system prompt so the model sees it.
			messages[0].Content = o.builder.BuildSystemPrompt(ctx)
		}

		content, rounds, finish, err := o.streamRound(ctx, messages, events, logger)
		fullResponse += content
		executedCalls = append(executedCalls, rounds...)
		if err != nil {
			emit(ctx, events, Event{Type: EventError, Error: err.Error()})
			return
		}

		if finish != llm.FinishToolCalls || len(rounds) == 0 {
			break
		}
		// round 0 is the initial request; up to maxToolRounds continuation
		// rounds may follow before the model is cut off.
		if round >= maxToolRounds {
			logger.Warn("tool round limit reached", slog.Int(logging.KeyDepth, round))
			fullResponse += depthExceededMessage
			if !emit(ctx, events, Event{Type: EventChunk, Content: depthExceededMessage}) {
				return
			}
			break
		}

		messages = appendToolRound(messages, rounds)
	}

	o.persistAssistantTurn(ctx, conversationID, fullResponse, executedCalls, logger)
	o.maybeGenerateTitle(ctx, conversationID, userMessage, fullResponse, events, logger)
	emit(ctx, events, Event{Type: EventComplete, FullResponse: fullResponse})
}

// emit sends ev unless the context is cancelled, so an abandoned consumer
// does not strand the loop once the channel buffer fills. It reports whether
// the event was delivered.
func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// streamRound runs one model request, executing tool calls as they arrive.
// It returns the streamed text, the executed calls and the finish reason.
func (o *Orchestrator) streamRound(ctx context.Context, messages []llm.Message, events chan<- Event, logger *slog.Logger) (content string, rounds []toolRound, finish string, err error) {
	start := time.Now()
	defer func() {
		status, kind := instrumentation.StatusSuccess, ""
		if err != nil {
			status = instrumentation.StatusError
			var apiErr *llm.APIError
			if errors.As(err, &apiErr) {
				kind = string(apiErr.Kind)
			}
		}
		o.metrics.RecordLLMRequest(ctx, o.model, status, kind, time.Since(start))
	}()

	stream, err := o.streamer.StreamChat(ctx, messages, o.registry.Defs())
	if err != nil {
		return "", nil, "", err
	}

	finish = llm.FinishStop

	for ev := range stream {
		switch ev.Type {
		case llm.EventContent:
			content += ev.Content
			if !emit(ctx, events, Event{Type: EventChunk, Content: ev.Content}) {
				return content, rounds, finish, ctx.Err()
			}

		case llm.EventToolCall:
			call := *ev.ToolCall
			if !emit(ctx, events, Event{Type: EventFunctionCall, Function: call.Name, Arguments: call.Arguments}) {
				return content, rounds, finish, ctx.Err()
			}

			result := o.registry.Dispatch(ctx, call.Name, call.Arguments)
			rounds = append(rounds, toolRound{call: call, result: result})
			if !emit(ctx, events, Event{Type: EventFunctionResult, Function: call.Name, Result: result}) {
				return content, rounds, finish, ctx.Err()
			}

		case llm.EventFinish:
			finish = ev.FinishReason

		case llm.EventError:
			logger.Error("model stream failed", logging.Err(ev.Err))
			return content, rounds, finish, ev.Err
		}
	}
	return content, rounds, finish, nil
}

// appendToolRound records the assistant's tool requests and their results
// so the next request carries the full exchange. The assistant turn carries
// the arguments the model actually sent, not the results.
func appendToolRound(messages []llm.Message, rounds []toolRound) []llm.Message {
	refs := make([]llm.ToolCallRef, 0, len(rounds))
	for _, r := range rounds {
		refs = append(refs, r.call.Ref())
	}
	messages = append(messages, llm.Message{Role: llm.RoleAssistant, ToolCalls: refs})

	for _, r := range rounds {
		messages = append(messages, llm.Message{
			Role:       llm.RoleTool,
			ToolCallID: r.call.ID,
			Content:    string(r.result),
		})
	}
	return messages
}

// persistAssistantTurn saves the assistant response with the executed tool
// calls as metadata. Persistence failures are logged, not fatal: the user
// already has the response.
func (o *Orchestrator) persistAssistantTurn(ctx context.Context, conversationID int64, fullResponse string, calls []toolRound, logger *slog.Logger) {
	if fullResponse == "" && len(calls) == 0 {
		return
	}

	var metadata json.RawMessage
	if len(calls) > 0 {
		type callRecord struct {
			ToolCallID string          `json:"tool_call_id"`
			Name       string          `json:"name"`
			Result     json.RawMessage `json:"result"`
		}
		records := make([]callRecord, 0, len(calls))
		for _, c := range calls {
			records = append(records, callRecord{ToolCallID: c.call.ID, Name: c.call.Name, Result: c.result})
		}
		raw, err := json.Marshal(map[string]any{"function_calls": records})
		if err == nil {
			metadata = raw
		}
	}

	if _, err := o.store.SaveMessage(ctx, conversationID, llm.RoleAssistant, fullResponse, metadata); err != nil {
		logger.Error("failed to save assistant message", logging.Err(err))
	}
}

// maybeGenerateTitle titles the conversation after its first exchange.
// Failures are swallowed; a missing title is cosmetic.
func (o *Orchestrator) maybeGenerateTitle(ctx context.Context, conversationID int64, userMessage, fullResponse string, events chan<- Event, logger *slog.Logger) {
	if fullResponse == "" {
		return
	}

	conv, err := o.store.GetConversation(ctx, conversationID)
	if err != nil || conv == nil || conv.Title != "" {
		return
	}

	start := time.Now()
	title, err := o.streamer.GenerateTitle(ctx, userMessage, fullResponse)
	if err != nil || title == "" {
		logger.Debug("title generation failed", logging.Err(err))
		return
	}
	logger.Debug("generated conversation title", slog.Duration(logging.KeyDuration, time.Since(start)))

	if err := o.store.SetConversationTitle(ctx, conversationID, title); err != nil {
		logger.Error("failed to store conversation title", logging.Err(err))
		return
	}
	emit(ctx, events, Event{Type: EventTitleUpdate, Title: title})
}
