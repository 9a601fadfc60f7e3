//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package model

import (
	"trpc.group/trpc-go/trpc-agent-arena/tool"
)

// Role is the author of a message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// String returns the role name.
func (r Role) String() string {
	return string(r)
}

// FunctionDefinitionParam is the function part of a tool call.
type FunctionDefinitionParam struct {
	Name      string `json:"name"`
	Arguments []byte `json:"arguments,omitempty"`
}

// ToolCall is a model request to run a tool.
type ToolCall struct {
	ID       string                  `json:"id"`
	Type     string                  `json:"type,omitempty"`
	Function FunctionDefinitionParam `json:"function"`
}

// Message is one entry of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	// ToolID and ToolName identify the call a RoleTool message answers.
	ToolID    string     `json:"tool_id,omitempty"`
	ToolName  string     `json:"tool_name,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// NewSystemMessage returns a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage returns a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage returns an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewToolMessage returns the result of the tool call toolID.
func NewToolMessage(toolID, toolName, content string) Message {
	return Message{Role: RoleTool, ToolID: toolID, ToolName: toolName, Content: content}
}

// GenerationConfig holds sampling parameters. Nil pointers leave the
// provider default in place.
type GenerationConfig struct {
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	// ParallelToolCalls allows the model to request several tool calls in
	// one response. Providers without the switch ignore it.
	ParallelToolCalls *bool `json:"parallel_tool_calls,omitempty"`
}

// Request is a chat completion request.
type Request struct {
	Messages         []Message `json:"messages"`
	GenerationConfig `json:"generation_config"`
	// Tools is keyed by declared tool name.
	Tools map[string]tool.Tool `json:"-"`
}
