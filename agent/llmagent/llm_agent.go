//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package llmagent implements an agent that alternates model calls and
// tool calls until the model answers without requesting a tool.
package llmagent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-agent-arena/agent"
	"trpc.group/trpc-go/trpc-agent-arena/event"
	itelemetry "trpc.group/trpc-go/trpc-agent-arena/internal/telemetry"
	"trpc.group/trpc-go/trpc-agent-arena/log"
	"trpc.group/trpc-go/trpc-agent-arena/model"
	"trpc.group/trpc-go/trpc-agent-arena/telemetry/trace"
	"trpc.group/trpc-go/trpc-agent-arena/tool"
)

// Error types of the error events emitted by the agent.
const (
	ErrorTypeFlowError     = "flow_error"
	ErrorTypeMaxIterations = "max_iterations_exceeded"
)

// ErrMaxIterations is reported when the model keeps requesting tools past
// the iteration bound.
var ErrMaxIterations = errors.New("max iterations exceeded")

// LLMAgent is an agent.Agent backed by a chat model and local tools.
type LLMAgent struct {
	name              string
	description       string
	instruction       string
	model             model.Model
	generationConfig  model.GenerationConfig
	tools             map[string]tool.Tool
	maxIterations     int
	toolPoolSize      int
	channelBufferSize int
}

// New creates an agent named name.
func New(name string, opts ...Option) *LLMAgent {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	tools, dropped := tool.Index(o.Tools)
	for _, d := range dropped {
		log.Warnf("llmagent %s: duplicate tool %q ignored", name, d)
	}
	return &LLMAgent{
		name:              name,
		description:       o.Description,
		instruction:       o.Instruction,
		model:             o.Model,
		generationConfig:  o.GenerationConfig,
		tools:             tools,
		maxIterations:     o.MaxIterations,
		toolPoolSize:      o.ToolPoolSize,
		channelBufferSize: o.ChannelBufferSize,
	}
}

// Info implements agent.Agent.
func (a *LLMAgent) Info() agent.Info {
	return agent.Info{Name: a.name, Description: a.description}
}

// Tools returns the agent's tools sorted by name.
func (a *LLMAgent) Tools() []tool.Tool {
	names := make([]string, 0, len(a.tools))
	for name := range a.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	tools := make([]tool.Tool, 0, len(names))
	for _, name := range names {
		tools = append(tools, a.tools[name])
	}
	return tools
}

// Run implements agent.Agent. The run ends after the first model response
// without tool calls. A failure ends the stream with an error event.
func (a *LLMAgent) Run(ctx context.Context, invocation *agent.Invocation) (<-chan *event.Event, error) {
	if invocation == nil {
		return nil, errors.New("invocation cannot be nil")
	}
	if a.model == nil {
		return nil, fmt.Errorf("llmagent %s: no model configured", a.name)
	}
	if invocation.InvocationID == "" {
		invocation.InvocationID = uuid.NewString()
	}
	if invocation.AgentName == "" {
		invocation.AgentName = a.name
	}
	eventChan := make(chan *event.Event, a.channelBufferSize)
	go func() {
		defer close(eventChan)
		ctx := agent.NewContextWithInvocation(ctx, invocation)
		ctx, span := trace.Tracer.Start(ctx, itelemetry.NewInvokeAgentSpanName(a.name))
		defer span.End()
		var sessionID string
		if invocation.Session != nil {
			sessionID = invocation.Session.ID
		}
		itelemetry.TraceInvokeAgent(span, a.name, a.description, invocation.InvocationID, sessionID)
		itelemetry.RecordInvokeAgent(ctx, a.name)

		if err := a.run(ctx, invocation, eventChan); err != nil {
			itelemetry.SetError(span, err)
			errType := ErrorTypeFlowError
			if errors.Is(err, ErrMaxIterations) {
				errType = ErrorTypeMaxIterations
			}
			var rspErr *model.ResponseError
			if errors.As(err, &rspErr) {
				errType = rspErr.Type
			}
			log.Errorf("llmagent %s: invocation %s failed: %v", a.name, invocation.InvocationID, err)
			_ = agent.EmitEvent(ctx, eventChan,
				event.NewErrorEvent(invocation.InvocationID, a.name, errType, err.Error()))
		}
	}()
	return eventChan, nil
}

func (a *LLMAgent) run(ctx context.Context, invocation *agent.Invocation, eventChan chan<- *event.Event) error {
	messages := a.initialMessages(invocation)
	for i := 0; i < a.maxIterations; i++ {
		rsp, err := a.generate(ctx, &model.Request{
			Messages:         slices.Clone(messages),
			GenerationConfig: a.generationConfig,
			Tools:            a.tools,
		})
		if err != nil {
			return err
		}
		if len(rsp.Choices) == 0 {
			return errors.New("model returned no choices")
		}
		msg := &rsp.Choices[0].Message
		msg.Role = model.RoleAssistant
		for j := range msg.ToolCalls {
			if msg.ToolCalls[j].ID == "" {
				msg.ToolCalls[j].ID = uuid.NewString()
			}
		}
		if err := agent.EmitEvent(ctx, eventChan, event.NewResponseEvent(invocation.InvocationID, a.name, rsp)); err != nil {
			return err
		}
		messages = append(messages, *msg)
		if len(msg.ToolCalls) == 0 {
			return nil
		}
		results := a.executeToolCalls(ctx, msg.ToolCalls)
		if err := agent.EmitEvent(ctx, eventChan, event.NewToolResponseEvent(invocation.InvocationID, a.name, results)); err != nil {
			return err
		}
		messages = append(messages, results...)
	}
	return fmt.Errorf("%w: %d model calls", ErrMaxIterations, a.maxIterations)
}

func (a *LLMAgent) initialMessages(invocation *agent.Invocation) []model.Message {
	var messages []model.Message
	if strings.TrimSpace(a.instruction) != "" {
		messages = append(messages, model.NewSystemMessage(a.instruction))
	}
	if invocation.Session != nil {
		messages = append(messages, invocation.Session.Messages...)
	}
	return append(messages, invocation.Message)
}

// generate sends one request and waits for the final response.
func (a *LLMAgent) generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	modelName := a.model.Info().Name
	ctx, span := trace.Tracer.Start(ctx, itelemetry.NewChatSpanName(modelName))
	defer span.End()
	start := time.Now()

	rsp, err := a.awaitResponse(ctx, req)
	itelemetry.TraceChat(span, req, modelName, rsp, err)
	var inputTokens, outputTokens int
	if rsp != nil && rsp.Usage != nil {
		inputTokens, outputTokens = rsp.Usage.PromptTokens, rsp.Usage.CompletionTokens
	}
	itelemetry.RecordChat(ctx, modelName, time.Since(start), inputTokens, outputTokens, err)
	return rsp, err
}

func (a *LLMAgent) awaitResponse(ctx context.Context, req *model.Request) (*model.Response, error) {
	responseChan, err := a.model.GenerateContent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	var last *model.Response
	for {
		select {
		case rsp, ok := <-responseChan:
			if !ok {
				if last == nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return nil, ctxErr
					}
					return nil, errors.New("model closed the stream without a response")
				}
				return last, nil
			}
			if rsp == nil {
				continue
			}
			if rsp.Error != nil {
				return rsp, rsp.Error
			}
			last = rsp
			if rsp.Done {
				return rsp, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
