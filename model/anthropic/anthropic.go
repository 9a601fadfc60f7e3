//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package anthropic adapts the Anthropic Messages API to model.Model.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"trpc.group/trpc-go/trpc-agent-arena/model"
	"trpc.group/trpc-go/trpc-agent-arena/tool"
)

// ProviderName is the registry name of this adapter.
const ProviderName = "anthropic"

const functionToolType = "function"

// Model implements model.Model on the Messages API.
type Model struct {
	client                  anthropic.Client
	name                    string
	channelBufferSize       int
	chatRequestCallback     ChatRequestCallbackFunc
	chatResponseCallback    ChatResponseCallbackFunc
	anthropicRequestOptions []option.RequestOption
}

// New creates a model named name.
func New(name string, opts ...Option) *Model {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	var clientOpts []option.RequestOption
	if o.apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(o.httpClient))
	}
	clientOpts = append(clientOpts, o.anthropicClientOptions...)
	return &Model{
		client:                  anthropic.NewClient(clientOpts...),
		name:                    name,
		channelBufferSize:       o.channelBufferSize,
		chatRequestCallback:     o.chatRequestCallback,
		chatResponseCallback:    o.chatResponseCallback,
		anthropicRequestOptions: o.anthropicRequestOptions,
	}
}

// Info implements model.Model.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.name, Provider: ProviderName}
}

// GenerateContent implements model.Model.
func (m *Model) GenerateContent(ctx context.Context, request *model.Request) (<-chan *model.Response, error) {
	if request == nil {
		return nil, errors.New("request cannot be nil")
	}
	chatRequest, err := m.buildChatRequest(request)
	if err != nil {
		return nil, err
	}
	responseChan := make(chan *model.Response, m.channelBufferSize)
	go func() {
		defer close(responseChan)
		if m.chatRequestCallback != nil {
			m.chatRequestCallback(ctx, chatRequest)
		}
		m.handleNonStreamingResponse(ctx, *chatRequest, responseChan)
	}()
	return responseChan, nil
}

func (m *Model) buildChatRequest(request *model.Request) (*anthropic.MessageNewParams, error) {
	messages, systemPrompts := convertMessages(request.Messages)
	if len(messages) == 0 {
		return nil, errors.New("request must include at least one non-system message")
	}
	chatRequest := &anthropic.MessageNewParams{
		Model:     anthropic.Model(m.name),
		Messages:  messages,
		Tools:     convertTools(request.Tools),
		MaxTokens: defaultMaxTokens,
	}
	if len(systemPrompts) > 0 {
		chatRequest.System = systemPrompts
	}
	if request.MaxTokens != nil {
		chatRequest.MaxTokens = int64(*request.MaxTokens)
	}
	if request.Temperature != nil {
		chatRequest.Temperature = anthropic.Float(*request.Temperature)
	}
	if request.ParallelToolCalls != nil && len(chatRequest.Tools) > 0 {
		chatRequest.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfAuto: &anthropic.ToolChoiceAutoParam{
				DisableParallelToolUse: anthropic.Bool(!*request.ParallelToolCalls),
			},
		}
	}
	return chatRequest, nil
}

func (m *Model) handleNonStreamingResponse(
	ctx context.Context,
	chatRequest anthropic.MessageNewParams,
	responseChan chan<- *model.Response,
) {
	message, err := m.client.Messages.New(ctx, chatRequest, m.anthropicRequestOptions...)
	if err != nil {
		select {
		case responseChan <- model.NewErrorResponse(model.ErrorTypeAPIError, err):
		case <-ctx.Done():
		}
		return
	}
	if m.chatResponseCallback != nil {
		m.chatResponseCallback(ctx, &chatRequest, message)
	}
	now := time.Now()
	response := &model.Response{
		ID:        message.ID,
		Object:    model.ObjectTypeChatCompletion,
		Created:   now.Unix(),
		Model:     string(message.Model),
		Timestamp: now,
		Done:      true,
		Choices:   []model.Choice{{Index: 0, Message: convertContentBlock(message.Content)}},
	}
	if finishReason := strings.TrimSpace(string(message.StopReason)); finishReason != "" {
		response.Choices[0].FinishReason = &finishReason
	}
	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		response.Usage = &model.Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		}
	}
	select {
	case responseChan <- response:
	case <-ctx.Done():
	}
}

// convertContentBlock builds one assistant message from content blocks.
func convertContentBlock(contents []anthropic.ContentBlockUnion) model.Message {
	msg := model.Message{Role: model.RoleAssistant}
	var text strings.Builder
	for _, content := range contents {
		switch block := content.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(block.Text)
		case anthropic.ToolUseBlock:
			msg.ToolCalls = append(msg.ToolCalls, model.ToolCall{
				Type: functionToolType,
				ID:   block.ID,
				Function: model.FunctionDefinitionParam{
					Name:      block.Name,
					Arguments: block.Input,
				},
			})
		}
	}
	msg.Content = text.String()
	return msg
}

func convertTools(tools map[string]tool.Tool) []anthropic.ToolUnionParam {
	var result []anthropic.ToolUnionParam
	for _, declaration := range tool.Declarations(tools) {
		inputSchema := anthropic.ToolInputSchemaParam{}
		if declaration.InputSchema != nil {
			inputSchema.Properties = declaration.InputSchema.Properties
			inputSchema.Required = declaration.InputSchema.Required
		}
		result = append(result, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        declaration.Name,
				Description: anthropic.String(declaration.Description),
				InputSchema: inputSchema,
			},
		})
	}
	return result
}

// convertMessages returns the conversation and the system prompts.
// Consecutive tool results are merged into one user message so that a
// parallel tool_use turn is answered in a single message. Messages without
// content are dropped.
func convertMessages(messages []model.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var (
		conversation  []anthropic.MessageParam
		systemPrompts []anthropic.TextBlockParam
		inToolResults bool
	)
	for _, message := range messages {
		if message.Role == model.RoleTool {
			block := anthropic.NewToolResultBlock(message.ToolID, message.Content, false)
			if inToolResults {
				last := &conversation[len(conversation)-1]
				last.Content = append(last.Content, block)
			} else {
				conversation = append(conversation, anthropic.NewUserMessage(block))
				inToolResults = true
			}
			continue
		}
		inToolResults = false
		switch message.Role {
		case model.RoleSystem:
			if message.Content != "" {
				systemPrompts = append(systemPrompts, anthropic.TextBlockParam{Text: message.Content})
			}
		case model.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(message.ToolCalls))
			if message.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(message.Content))
			}
			for _, toolCall := range message.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(
					toolCall.ID,
					decodeToolArguments(toolCall.Function.Arguments),
					toolCall.Function.Name,
				))
			}
			if len(blocks) > 0 {
				conversation = append(conversation, anthropic.NewAssistantMessage(blocks...))
			}
		default:
			if message.Content != "" {
				conversation = append(conversation, anthropic.NewUserMessage(anthropic.NewTextBlock(message.Content)))
			}
		}
	}
	return conversation, systemPrompts
}

// decodeToolArguments returns an empty object for missing or invalid JSON.
func decodeToolArguments(args []byte) any {
	if len(args) == 0 {
		return map[string]any{}
	}
	var decoded any
	if err := json.Unmarshal(args, &decoded); err != nil {
		return map[string]any{}
	}
	return decoded
}
