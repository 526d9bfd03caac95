package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hcdonia/planner-app/internal/logging"
)

// Streamer is the model surface the assistant depends on. Tests substitute
// a scripted implementation.
type Streamer interface {
	StreamChat(ctx context.Context, messages []Message, tools []ToolDef) (<-chan Event, error)
	GenerateTitle(ctx context.Context, userMessage, assistantResponse string) (string, error)
}

// Client talks to an OpenAI-compatible chat completion API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *slog.Logger
}

var _ Streamer = (*Client)(nil)

// NewClient creates a client for the given API endpoint and model.
func NewClient(baseURL, apiKey, model string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		logger:     logger,
	}
}

type chatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	Tools     []ToolDef `json:"tools,omitempty"`
	Stream    bool      `json:"stream"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type streamDelta struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// StreamChat starts a streaming chat completion. The returned channel is
// closed after a finish or error event. Request construction errors are
// returned directly; failures after the stream opens arrive as error events.
func (c *Client) StreamChat(ctx context.Context, messages []Message, tools []ToolDef) (<-chan Event, error) {
	if c.apiKey == "" {
		return nil, &APIError{Kind: ErrAuth, Message: "API key not set"}
	}

	body := chatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
		Stream:   true,
	}
	resp, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg := readErrorMessage(resp.Body)
		apiErr := classifyStatus(resp.StatusCode, msg)
		c.logger.Error("chat completion request failed",
			logging.Operation("stream_chat"),
			logging.Err(apiErr))
		return nil, apiErr
	}

	events := make(chan Event)
	go c.consumeStream(resp.Body, events)
	return events, nil
}

// consumeStream reads server-sent events and assembles tool call fragments
// per choice index until their arguments form valid JSON.
func (c *Client) consumeStream(body io.ReadCloser, events chan<- Event) {
	defer body.Close()
	defer close(events)

	type toolAccumulator struct {
		id   string
		name string
		args strings.Builder
	}
	toolAcc := make(map[int]*toolAccumulator)

	emitCall := func(idx int, acc *toolAccumulator) bool {
		raw := acc.args.String()
		if acc.name == "" || !json.Valid([]byte(raw)) {
			return false
		}
		id := acc.id
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		events <- Event{
			Type: EventToolCall,
			ToolCall: &ToolCall{
				ID:        id,
				Name:      acc.name,
				Arguments: json.RawMessage(raw),
			},
		}
		delete(toolAcc, idx)
		return true
	}

	finished := false
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 512*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			for idx, acc := range toolAcc {
				emitCall(idx, acc)
			}
			if !finished {
				events <- Event{Type: EventFinish, FinishReason: FinishStop}
			}
			return
		}

		var delta streamDelta
		if err := json.Unmarshal([]byte(data), &delta); err != nil {
			events <- Event{Type: EventError, Err: &APIError{Kind: ErrStream, Message: fmt.Sprintf("malformed stream chunk: %v", err)}}
			return
		}
		if len(delta.Choices) == 0 {
			continue
		}

		choice := delta.Choices[0]
		if choice.Delta.Content != "" {
			events <- Event{Type: EventContent, Content: choice.Delta.Content}
		}
		for _, call := range choice.Delta.ToolCalls {
			acc, ok := toolAcc[call.Index]
			if !ok {
				acc = &toolAccumulator{}
				toolAcc[call.Index] = acc
			}
			if call.ID != "" {
				acc.id = call.ID
			}
			if call.Function.Name != "" {
				acc.name = call.Function.Name
			}
			if call.Function.Arguments != "" {
				acc.args.WriteString(call.Function.Arguments)
			}
			emitCall(call.Index, acc)
		}
		if choice.FinishReason != "" {
			finished = true
			events <- Event{Type: EventFinish, FinishReason: choice.FinishReason}
		}
	}

	if err := scanner.Err(); err != nil {
		events <- Event{Type: EventError, Err: &APIError{Kind: ErrStream, Message: err.Error()}}
		return
	}
	if !finished {
		events <- Event{Type: EventFinish, FinishReason: FinishStop}
	}
}

// GenerateTitle asks the model for a short conversation title based on the
// first exchange.
func (c *Client) GenerateTitle(ctx context.Context, userMessage, assistantResponse string) (string, error) {
	prompt := fmt.Sprintf(
		"Generate a very short title (2-5 words) for this conversation. Focus on the main topic or task. No quotes, no punctuation. Just the title.\n\nUser said: %s\n\nAssistant responded about: %s",
		truncate(userMessage, 200), truncate(assistantResponse, 200),
	)

	body := chatRequest{
		Model:     c.model,
		Messages:  []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens: 20,
	}
	resp, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, readErrorMessage(resp.Body))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode title response: %w", err)
	}
	if parsed.Error != nil {
		return "", &APIError{Kind: ErrStream, Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("title response has no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (c *Client) post(ctx context.Context, path string, body chatRequest) (*http.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Kind: ErrStream, Message: err.Error()}
	}
	return resp, nil
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "unreadable error body"
	}

	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
