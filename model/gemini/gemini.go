//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package gemini adapts the Gemini API to model.Model.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"trpc.group/trpc-go/trpc-agent-arena/log"
	"trpc.group/trpc-go/trpc-agent-arena/model"
	"trpc.group/trpc-go/trpc-agent-arena/tool"
)

// ProviderName is the registry name of this adapter.
const ProviderName = "gemini"

// functionResponseKey wraps tool output in a FunctionResponse.
const functionResponseKey = "output"

// Model implements model.Model for the Gemini API.
type Model struct {
	client               Client
	name                 string
	channelBufferSize    int
	chatRequestCallback  ChatRequestCallbackFunc
	chatResponseCallback ChatResponseCallbackFunc
}

// New creates a Gemini model named name.
func New(ctx context.Context, name string, opts ...Option) (*Model, error) {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	client := o.client
	if client == nil {
		c, err := genai.NewClient(ctx, o.geminiClientConfig)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		client = &clientWrapper{client: c}
	}
	return &Model{
		client:               client,
		name:                 name,
		channelBufferSize:    o.channelBufferSize,
		chatRequestCallback:  o.chatRequestCallback,
		chatResponseCallback: o.chatResponseCallback,
	}, nil
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
	contents, system := convertMessages(request.Messages)
	config := buildChatConfig(request, system)
	responseChan := make(chan *model.Response, m.channelBufferSize)
	go func() {
		defer close(responseChan)
		if m.chatRequestCallback != nil {
			m.chatRequestCallback(ctx, contents)
		}
		m.handleNonStreamingResponse(ctx, contents, config, responseChan)
	}()
	return responseChan, nil
}

func (m *Model) handleNonStreamingResponse(
	ctx context.Context,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
	responseChan chan<- *model.Response,
) {
	rsp, err := m.client.Models().GenerateContent(ctx, m.name, contents, config)
	var response *model.Response
	switch {
	case err != nil:
		response = model.NewErrorResponse(model.ErrorTypeAPIError, err)
	case rsp == nil:
		response = model.NewErrorResponse(model.ErrorTypeAPIError, errors.New("empty response"))
	default:
		if m.chatResponseCallback != nil {
			m.chatResponseCallback(ctx, contents, rsp)
		}
		response = buildChatCompletionResponse(rsp)
	}
	select {
	case responseChan <- response:
	case <-ctx.Done():
	}
}

func buildChatCompletionResponse(rsp *genai.GenerateContentResponse) *model.Response {
	response := &model.Response{
		ID:        rsp.ResponseID,
		Object:    model.ObjectTypeChatCompletion,
		Model:     rsp.ModelVersion,
		Timestamp: time.Now(),
		Done:      true,
	}
	if !rsp.CreateTime.IsZero() {
		response.Created = rsp.CreateTime.Unix()
	}
	for i, candidate := range rsp.Candidates {
		if candidate == nil {
			continue
		}
		choice := model.Choice{Index: i, Message: convertCandidate(candidate)}
		if candidate.FinishReason != "" {
			finishReason := string(candidate.FinishReason)
			choice.FinishReason = &finishReason
		}
		response.Choices = append(response.Choices, choice)
	}
	if usage := rsp.UsageMetadata; usage != nil {
		response.Usage = &model.Usage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}
	return response
}

func convertCandidate(candidate *genai.Candidate) model.Message {
	msg := model.Message{Role: model.RoleAssistant}
	if candidate.Content == nil {
		return msg
	}
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				log.Errorf("marshal gemini function call args for %s: %v", part.FunctionCall.Name, err)
				args = []byte("{}")
			}
			id := part.FunctionCall.ID
			if id == "" {
				id = fmt.Sprintf("auto_call_%d", len(msg.ToolCalls))
			}
			msg.ToolCalls = append(msg.ToolCalls, model.ToolCall{
				ID:   id,
				Type: "function",
				Function: model.FunctionDefinitionParam{
					Name:      part.FunctionCall.Name,
					Arguments: args,
				},
			})
			continue
		}
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
	}
	msg.Content = text.String()
	return msg
}

func buildChatConfig(request *model.Request, system *genai.Content) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{SystemInstruction: system}
	if request.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*request.Temperature))
	}
	if request.MaxTokens != nil {
		config.MaxOutputTokens = int32(*request.MaxTokens)
	}
	if tools := convertTools(request.Tools); len(tools) > 0 {
		config.Tools = tools
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAuto,
			},
		}
	}
	return config
}

// convertMessages maps the conversation to contents and collects system
// messages into one system instruction. Consecutive tool results share a
// single user content, as Gemini expects.
func convertMessages(messages []model.Message) ([]*genai.Content, *genai.Content) {
	var (
		contents []*genai.Content
		system   *genai.Content
	)
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			if system == nil {
				system = &genai.Content{Role: genai.RoleUser}
			}
			system.Parts = append(system.Parts, &genai.Part{Text: msg.Content})
		case model.RoleAssistant:
			content := &genai.Content{Role: genai.RoleModel}
			if msg.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				content.Parts = append(content.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   call.ID,
					Name: call.Function.Name,
					Args: decodeArgs(call.Function.Arguments),
				}})
			}
			if len(content.Parts) == 0 {
				content.Parts = append(content.Parts, &genai.Part{Text: ""})
			}
			contents = append(contents, content)
		case model.RoleTool:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       msg.ToolID,
				Name:     msg.ToolName,
				Response: map[string]any{functionResponseKey: msg.Content},
			}}
			if n := len(contents); n > 0 && isFunctionResponseContent(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{part}})
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return contents, system
}

func isFunctionResponseContent(c *genai.Content) bool {
	return c.Role == genai.RoleUser && len(c.Parts) > 0 && c.Parts[0].FunctionResponse != nil
}

func decodeArgs(raw []byte) map[string]any {
	args := map[string]any{}
	if len(raw) == 0 {
		return args
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		log.Warnf("gemini: tool call arguments are not a JSON object: %v", err)
		return map[string]any{}
	}
	return args
}

func convertTools(tools map[string]tool.Tool) []*genai.Tool {
	decls := tool.Declarations(tools)
	if len(decls) == 0 {
		return nil
	}
	functions := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, decl := range decls {
		fd := &genai.FunctionDeclaration{
			Name:        decl.Name,
			Description: decl.Description,
		}
		if decl.InputSchema != nil {
			fd.ParametersJsonSchema = decl.InputSchema
		}
		functions = append(functions, fd)
	}
	return []*genai.Tool{{FunctionDeclarations: functions}}
}
