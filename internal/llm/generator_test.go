package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolCallResponse(calls ...[2]string) scripted {
	tc := make([]map[string]any, 0, len(calls))
	for i, c := range calls {
		tc = append(tc, map[string]any{
			"id":   fmt.Sprintf("call_%d", i+1),
			"type": "function",
			"function": map[string]any{
				"name":      c[0],
				"arguments": c[1],
			},
		})
	}
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-tools",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": "", "tool_calls": tc},
			"finish_reason": "tool_calls",
		}},
	})
	return scripted{status: http.StatusOK, body: string(b)}
}

var searchTool = ToolSpec{
	Name:        "google_search",
	Description: "Search the web",
	Parameters:  StringParams("query", "Search query"),
}

func TestGenerator_Generate(t *testing.T) {
	tests := []struct {
		name string
		resp scripted
		want string
	}{
		{name: "text", resp: textResponse(" An SIP is a systematic investment plan. "), want: "An SIP is a systematic investment plan."},
		{name: "blocked", resp: finishResponse("", "content_filter"), want: BlockedReply},
		{name: "empty", resp: textResponse(""), want: EmptyReply},
		{name: "error", resp: errorResponse(http.StatusInternalServerError, "down", "server_error"), want: ErrorReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t, tt.resp)
			g := NewGenerator(api.client("m"), 0)
			assert.Equal(t, tt.want, g.Generate(context.Background(), "what is a SIP"))
		})
	}
}

func TestGenerator_ToolLoop(t *testing.T) {
	api := newFakeAPI(t,
		toolCallResponse([2]string{"google_search", `{"query":"sip returns"}`}),
		textResponse("SIPs historically returned about 12%."),
	)

	var gotQuery string
	impls := map[string]ToolFunc{
		"google_search": func(_ context.Context, args map[string]any) (string, error) {
			gotQuery = StringArg(args, "query")
			return `[{"title":"SIP guide"}]`, nil
		},
	}

	g := NewGenerator(api.client("m"), 5)
	reply := g.GenerateWithTools(context.Background(), "sip returns?", []ToolSpec{searchTool}, impls)

	assert.Equal(t, "SIPs historically returned about 12%.", reply)
	assert.Equal(t, "sip returns", gotQuery)
	require.Equal(t, 2, api.count())

	first := api.requests[0]
	require.Len(t, first.Tools, 1)
	assert.Equal(t, "google_search", first.Tools[0].Function.Name)

	second := api.requests[1].Messages
	require.Len(t, second, 3)
	assert.Equal(t, openai.ChatMessageRoleAssistant, second[1].Role)
	require.Len(t, second[1].ToolCalls, 1)
	assert.Equal(t, openai.ChatMessageRoleTool, second[2].Role)
	assert.Equal(t, "call_1", second[2].ToolCallID)
	assert.Equal(t, `[{"title":"SIP guide"}]`, second[2].Content)
}

func TestGenerator_ToolErrorIsFedBack(t *testing.T) {
	api := newFakeAPI(t,
		toolCallResponse([2]string{"google_search", `{"query":"x"}`}),
		textResponse("I could not search right now."),
	)
	impls := map[string]ToolFunc{
		"google_search": func(context.Context, map[string]any) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}

	reply := NewGenerator(api.client("m"), 5).GenerateWithTools(context.Background(), "q", []ToolSpec{searchTool}, impls)
	assert.Equal(t, "I could not search right now.", reply)

	fed := api.requests[1].Messages[2].Content
	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(fed), &payload))
	assert.Equal(t, "Error executing tool google_search: quota exceeded", payload["error"])
}

func TestGenerator_InvalidArgumentsAreFedBack(t *testing.T) {
	api := newFakeAPI(t,
		toolCallResponse([2]string{"google_search", `{not json`}),
		textResponse("done"),
	)
	called := false
	impls := map[string]ToolFunc{
		"google_search": func(context.Context, map[string]any) (string, error) {
			called = true
			return "", nil
		},
	}

	reply := NewGenerator(api.client("m"), 5).GenerateWithTools(context.Background(), "q", []ToolSpec{searchTool}, impls)
	assert.Equal(t, "done", reply)
	assert.False(t, called)
	assert.Contains(t, api.requests[1].Messages[2].Content, "invalid arguments")
}

func TestGenerator_UnknownTool(t *testing.T) {
	api := newFakeAPI(t, toolCallResponse([2]string{"launch_rocket", `{}`}))
	reply := NewGenerator(api.client("m"), 5).GenerateWithTools(context.Background(), "q", []ToolSpec{searchTool}, map[string]ToolFunc{})
	assert.Equal(t, "Error: The model tried to use an unknown tool ('launch_rocket').", reply)
	assert.Equal(t, 1, api.count())
}

func TestGenerator_ToolCallCap(t *testing.T) {
	loop := toolCallResponse([2]string{"google_search", `{"query":"again"}`})
	api := newFakeAPI(t, loop, loop, loop, loop, loop)

	calls := 0
	impls := map[string]ToolFunc{
		"google_search": func(context.Context, map[string]any) (string, error) {
			calls++
			return "[]", nil
		},
	}

	reply := NewGenerator(api.client("m"), 2).GenerateWithTools(context.Background(), "q", []ToolSpec{searchTool}, impls)
	assert.Equal(t, ToolCapReply, reply)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 3, api.count())
}

func TestGenerator_ToolLoopFailures(t *testing.T) {
	ok := map[string]ToolFunc{
		"google_search": func(context.Context, map[string]any) (string, error) { return "[]", nil },
	}
	call := toolCallResponse([2]string{"google_search", `{"query":"x"}`})
	down := errorResponse(http.StatusInternalServerError, "down", "server_error")

	tests := []struct {
		name   string
		script []scripted
		want   string
	}{
		{name: "first call fails", script: []scripted{down}, want: ToolsErrorReply},
		{name: "first call blocked", script: []scripted{finishResponse("", "content_filter")}, want: BlockedReply},
		{name: "first call empty", script: []scripted{textResponse("")}, want: EmptyReply},
		{name: "send back fails", script: []scripted{call, down}, want: ToolSendErrorReply},
		{name: "final blocked", script: []scripted{call, finishResponse("", "content_filter")}, want: FinalBlockedReply},
		{name: "no final text", script: []scripted{call, textResponse(" ")}, want: NoFinalTextReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t, tt.script...)
			reply := NewGenerator(api.client("m"), 5).GenerateWithTools(context.Background(), "q", []ToolSpec{searchTool}, ok)
			assert.Equal(t, tt.want, reply)
		})
	}
}

func TestToolSpec_Definition(t *testing.T) {
	def := searchTool.Definition()
	assert.Equal(t, openai.ToolTypeFunction, def.Type)
	assert.Equal(t, "google_search", def.Function.Name)

	params, ok := def.Function.Parameters.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"query"}, params["required"])
}
