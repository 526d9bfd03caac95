package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sseServer returns a test server that answers every chat completion
// request with the given SSE lines.
func sseServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
		}
	}))
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestStreamChatContent(t *testing.T) {
	srv := sseServer(t,
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	)
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "gpt-4o", nil)
	events, err := client.StreamChat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 3)
	assert.Equal(t, EventContent, got[0].Type)
	assert.Equal(t, "Hel", got[0].Content)
	assert.Equal(t, "lo", got[1].Content)
	assert.Equal(t, EventFinish, got[2].Type)
	assert.Equal(t, FinishStop, got[2].FinishReason)
}

func TestStreamChatToolCallAssembly(t *testing.T) {
	srv := sseServer(t,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_abc","function":{"name":"check_availability","arguments":"{\"duration"}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"_minutes\": 60}"}}]}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		`data: [DONE]`,
	)
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "gpt-4o", nil)
	events, err := client.StreamChat(context.Background(), nil, nil)
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 2)

	require.Equal(t, EventToolCall, got[0].Type)
	call := got[0].ToolCall
	require.NotNil(t, call)
	assert.Equal(t, "call_abc", call.ID)
	assert.Equal(t, "check_availability", call.Name)
	assert.JSONEq(t, `{"duration_minutes": 60}`, string(call.Arguments))

	assert.Equal(t, EventFinish, got[1].Type)
	assert.Equal(t, FinishToolCalls, got[1].FinishReason)
}

func TestStreamChatToolCallIDFallback(t *testing.T) {
	srv := sseServer(t,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"name":"get_todos","arguments":"{}"}}]}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		`data: [DONE]`,
	)
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "gpt-4o", nil)
	events, err := client.StreamChat(context.Background(), nil, nil)
	require.NoError(t, err)

	got := collect(t, events)
	require.GreaterOrEqual(t, len(got), 1)
	require.Equal(t, EventToolCall, got[0].Type)
	assert.True(t, strings.HasPrefix(got[0].ToolCall.ID, "call_"))
	assert.Greater(t, len(got[0].ToolCall.ID), len("call_"))
}

func TestStreamChatParallelToolCalls(t *testing.T) {
	srv := sseServer(t,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"get_todos","arguments":"{}"}},{"index":1,"id":"call_2","function":{"name":"get_knowledge","arguments":"{\"query\":\"x\"}"}}]}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		`data: [DONE]`,
	)
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "gpt-4o", nil)
	events, err := client.StreamChat(context.Background(), nil, nil)
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 3)
	assert.Equal(t, "get_todos", got[0].ToolCall.Name)
	assert.Equal(t, "get_knowledge", got[1].ToolCall.Name)
}

func TestStreamChatMalformedChunk(t *testing.T) {
	srv := sseServer(t,
		`data: {"choices":[{"delta":{"content":"ok"}}]}`,
		`data: {garbage`,
	)
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "gpt-4o", nil)
	events, err := client.StreamChat(context.Background(), nil, nil)
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 2)
	assert.Equal(t, EventContent, got[0].Type)
	require.Equal(t, EventError, got[1].Type)

	var apiErr *APIError
	require.True(t, errors.As(got[1].Err, &apiErr))
	assert.Equal(t, ErrStream, apiErr.Kind)
}

func TestStreamChatStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		kind   ErrorKind
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusUnauthorized, ErrAuth},
		{http.StatusForbidden, ErrAuth},
		{http.StatusInternalServerError, ErrStream},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error": {"message": "nope"}}`)
			}))
			defer srv.Close()

			client := NewClient(srv.URL, "test-key", "gpt-4o", nil)
			_, err := client.StreamChat(context.Background(), nil, nil)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Contains(t, apiErr.Message, "nope")
		})
	}
}

func TestStreamChatNoAPIKey(t *testing.T) {
	client := NewClient("http://localhost:1", "", "gpt-4o", nil)
	_, err := client.StreamChat(context.Background(), nil, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ErrAuth, apiErr.Kind)
}

func TestGenerateTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"  Weekly Planning  "}}]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "gpt-4o", nil)
	title, err := client.GenerateTitle(context.Background(), "plan my week", "Here is your week...")
	require.NoError(t, err)
	assert.Equal(t, "Weekly Planning", title)
}

func TestGenerateTitleError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "quota exceeded"}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "gpt-4o", nil)
	_, err := client.GenerateTitle(context.Background(), "u", "a")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ErrRateLimited, apiErr.Kind)
}

func TestToolCallRef(t *testing.T) {
	call := ToolCall{ID: "call_1", Name: "get_todos", Arguments: []byte(`{"completed":false}`)}
	ref := call.Ref()
	assert.Equal(t, "call_1", ref.ID)
	assert.Equal(t, "function", ref.Type)
	assert.Equal(t, "get_todos", ref.Function.Name)
	assert.JSONEq(t, `{"completed":false}`, ref.Function.Arguments)
}
