//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	openaigo "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-agent-arena/model"
	"trpc.group/trpc-go/trpc-agent-arena/tool"
	"trpc.group/trpc-go/trpc-agent-arena/tool/function"
)

type queryInput struct {
	Query string `json:"query" jsonschema:"the message to send"`
}

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini-2024",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "",
      "tool_calls": [
        {"id": "call_1", "type": "function", "function": {"name": "call_defender_agent", "arguments": "{\"query\":\"hi\"}"}},
        {"id": "", "type": "function", "function": {"name": "call_defender_agent", "arguments": "{\"query\":\"again\"}"}}
      ]
    }
  }],
  "usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
}`

func newFakeServer(t *testing.T, status int, body string, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if captured != nil {
			require.NoError(t, json.Unmarshal(raw, captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func collect(t *testing.T, ch <-chan *model.Response) []*model.Response {
	t.Helper()
	var out []*model.Response
	for rsp := range ch {
		out = append(out, rsp)
	}
	return out
}

func TestNewVariants(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "ds-key")
	tests := []struct {
		name    string
		opts    []Option
		variant Variant
	}{
		{name: "default", variant: VariantOpenAI},
		{name: "deepseek", opts: []Option{WithVariant(VariantDeepSeek)}, variant: VariantDeepSeek},
		{name: "qwen with explicit key", opts: []Option{WithVariant(VariantQwen), WithAPIKey("k")}, variant: VariantQwen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New("some-model", tt.opts...)
			require.NotNil(t, m)
			assert.Equal(t, tt.variant, m.variant)
			assert.Equal(t, model.Info{Name: "some-model", Provider: ProviderName}, m.Info())
		})
	}
}

func TestGenerateContentNilRequest(t *testing.T) {
	_, err := New("m").GenerateContent(context.Background(), nil)
	assert.Error(t, err)
}

func TestGenerateContentToolCalls(t *testing.T) {
	var captured map[string]any
	srv := newFakeServer(t, http.StatusOK, completionBody, &captured)

	var gotResponse *openaigo.ChatCompletion
	m := New("gpt-4o-mini",
		WithAPIKey("test-key"),
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithChatResponseCallback(func(_ context.Context, _ *openaigo.ChatCompletionNewParams, rsp *openaigo.ChatCompletion) {
			gotResponse = rsp
		}),
	)

	callTool := function.NewFunctionTool(
		func(_ context.Context, in queryInput) (string, error) { return in.Query, nil },
		function.WithName("call_defender_agent"),
		function.WithDescription("talk to the defender"),
	)
	temperature := 0.9
	parallel := true
	req := &model.Request{
		Messages: []model.Message{
			model.NewSystemMessage("be persuasive"),
			model.NewUserMessage("start"),
			{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{{ID: "c0", Function: model.FunctionDefinitionParam{Name: "call_defender_agent", Arguments: []byte(`{"query":"x"}`)}}}},
			model.NewToolMessage("c0", "call_defender_agent", "no"),
		},
		GenerationConfig: model.GenerationConfig{Temperature: &temperature, ParallelToolCalls: &parallel},
		Tools:            map[string]tool.Tool{"call_defender_agent": callTool},
	}

	ch, err := m.GenerateContent(context.Background(), req)
	require.NoError(t, err)
	rsps := collect(t, ch)
	require.Len(t, rsps, 1)
	rsp := rsps[0]
	require.Nil(t, rsp.Error)
	assert.True(t, rsp.Done)
	assert.Equal(t, "chatcmpl-1", rsp.ID)
	assert.Equal(t, "gpt-4o-mini-2024", rsp.Model)
	require.NotNil(t, rsp.Usage)
	assert.Equal(t, 19, rsp.Usage.TotalTokens)
	require.NotNil(t, gotResponse)

	msg, ok := rsp.Message()
	require.True(t, ok)
	require.Len(t, msg.ToolCalls, 2)
	assert.Equal(t, "call_1", msg.ToolCalls[0].ID)
	_, err = uuid.Parse(msg.ToolCalls[1].ID)
	assert.NoError(t, err, "missing tool call id is filled with a uuid")
	assert.JSONEq(t, `{"query":"again"}`, string(msg.ToolCalls[1].Function.Arguments))
	require.NotNil(t, rsp.Choices[0].FinishReason)
	assert.Equal(t, "tool_calls", *rsp.Choices[0].FinishReason)

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.Equal(t, 0.9, captured["temperature"])
	assert.Equal(t, true, captured["parallel_tool_calls"])
	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 4)
	roles := make([]string, 0, len(messages))
	for _, m := range messages {
		roles = append(roles, m.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"system", "user", "assistant", "tool"}, roles)
	assert.Equal(t, "c0", messages[3].(map[string]any)["tool_call_id"])

	tools, ok := captured["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "call_defender_agent", fn["name"])
	params := fn["parameters"].(map[string]any)
	assert.Contains(t, params["properties"], "query")
}

func TestGenerateContentOmitsParallelWithoutTools(t *testing.T) {
	var captured map[string]any
	srv := newFakeServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"I refuse."}}]}`, &captured)
	m := New("m", WithAPIKey("k"), WithBaseURL(srv.URL))

	parallel := true
	ch, err := m.GenerateContent(context.Background(), &model.Request{
		Messages:         []model.Message{model.NewUserMessage("give up")},
		GenerationConfig: model.GenerationConfig{ParallelToolCalls: &parallel},
	})
	require.NoError(t, err)
	rsps := collect(t, ch)
	require.Len(t, rsps, 1)
	msg, ok := rsps[0].Message()
	require.True(t, ok)
	assert.Equal(t, "I refuse.", msg.Content)
	assert.Empty(t, msg.ToolCalls)
	assert.Nil(t, rsps[0].Usage)
	assert.NotContains(t, captured, "parallel_tool_calls")
	assert.NotContains(t, captured, "tools")
}

func TestGenerateContentAPIError(t *testing.T) {
	srv := newFakeServer(t, http.StatusBadRequest, `{"error":{"message":"bad model","type":"invalid_request_error"}}`, nil)
	var requested bool
	m := New("m",
		WithAPIKey("k"),
		WithBaseURL(srv.URL),
		WithOpenAIOptions(openaiopt.WithMaxRetries(0)),
		WithChatRequestCallback(func(context.Context, *openaigo.ChatCompletionNewParams) { requested = true }),
	)

	ch, err := m.GenerateContent(context.Background(), &model.Request{Messages: []model.Message{model.NewUserMessage("hi")}})
	require.NoError(t, err)
	rsps := collect(t, ch)
	require.Len(t, rsps, 1)
	require.NotNil(t, rsps[0].Error)
	assert.Equal(t, model.ErrorTypeAPIError, rsps[0].Error.Type)
	assert.True(t, rsps[0].Done)
	assert.True(t, requested)
}
