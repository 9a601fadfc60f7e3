//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package llmagent

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	itelemetry "trpc.group/trpc-go/trpc-agent-arena/internal/telemetry"
	"trpc.group/trpc-go/trpc-agent-arena/log"
	"trpc.group/trpc-go/trpc-agent-arena/model"
	"trpc.group/trpc-go/trpc-agent-arena/telemetry/trace"
	"trpc.group/trpc-go/trpc-agent-arena/tool"
)

// Tool result contents reported to the model when a call fails.
const (
	ErrorToolNotFound          = "Error: tool not found"
	ErrorToolNotCallable       = "Error: tool is not callable"
	ErrorCallableToolExecution = "Error: callable tool execution failed"
	ErrorMarshalResult         = "Error: failed to marshal result"
)

// executeToolCalls runs the calls of one model turn and returns one tool
// message per call, in call order.
func (a *LLMAgent) executeToolCalls(ctx context.Context, toolCalls []model.ToolCall) []model.Message {
	results := make([]model.Message, len(toolCalls))
	parallel := a.generationConfig.ParallelToolCalls != nil && *a.generationConfig.ParallelToolCalls
	if parallel && len(toolCalls) > 1 {
		err := a.executeToolCallsInParallel(ctx, toolCalls, results)
		if err == nil {
			return results
		}
		log.Warnf("llmagent %s: parallel tool execution unavailable, running sequentially: %v", a.name, err)
	}
	for i, toolCall := range toolCalls {
		results[i] = a.executeToolCall(ctx, toolCall)
	}
	return results
}

type toolCallParam struct {
	ctx      context.Context
	idx      int
	toolCall model.ToolCall
	results  []model.Message
	wg       *sync.WaitGroup
}

func (a *LLMAgent) executeToolCallsInParallel(ctx context.Context, toolCalls []model.ToolCall, results []model.Message) error {
	pool, err := ants.NewPoolWithFunc(min(len(toolCalls), a.toolPoolSize), func(args any) {
		param, ok := args.(*toolCallParam)
		if !ok {
			panic("tool call pool args type error")
		}
		defer param.wg.Done()
		param.results[param.idx] = a.executeToolCall(param.ctx, param.toolCall)
	})
	if err != nil {
		return fmt.Errorf("create tool call pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, toolCall := range toolCalls {
		wg.Add(1)
		param := &toolCallParam{ctx: ctx, idx: i, toolCall: toolCall, results: results, wg: &wg}
		if err := pool.Invoke(param); err != nil {
			wg.Done()
			results[i] = a.executeToolCall(ctx, toolCall)
		}
	}
	wg.Wait()
	return nil
}

// executeToolCall runs one call. Failures become the tool message content
// so the model can react to them.
func (a *LLMAgent) executeToolCall(ctx context.Context, toolCall model.ToolCall) model.Message {
	name := toolCall.Function.Name
	ctx, span := trace.Tracer.Start(ctx, itelemetry.NewExecuteToolSpanName(name))
	defer span.End()
	start := time.Now()

	content, err := a.callTool(ctx, toolCall)
	if err != nil {
		log.Warnf("llmagent %s: tool %s (call %s) failed: %v", a.name, name, toolCall.ID, err)
	} else {
		log.Debugf("llmagent %s: tool %s (call %s) returned %s", a.name, name, toolCall.ID, content)
	}
	itelemetry.TraceToolCall(span, name, toolCall.ID, toolCall.Function.Arguments, content, err)
	itelemetry.RecordToolCall(ctx, name, time.Since(start), err)
	return model.NewToolMessage(toolCall.ID, name, content)
}

func (a *LLMAgent) callTool(ctx context.Context, toolCall model.ToolCall) (string, error) {
	t, ok := a.tools[toolCall.Function.Name]
	if !ok {
		return ErrorToolNotFound, fmt.Errorf("tool %q not found", toolCall.Function.Name)
	}
	callable, ok := t.(tool.CallableTool)
	if !ok {
		return ErrorToolNotCallable, fmt.Errorf("tool %q is not callable", toolCall.Function.Name)
	}
	result, err := safeCall(ctx, callable, toolCall.Function.Arguments)
	if err != nil {
		return fmt.Sprintf("%s: %v", ErrorCallableToolExecution, err), err
	}
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%s: %v", ErrorMarshalResult, err), err
	}
	return string(resultBytes), nil
}

func safeCall(ctx context.Context, callable tool.CallableTool, args []byte) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("tool %s panicked: %v\n%s", callable.Declaration().Name, r, debug.Stack())
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return callable.Call(ctx, args)
}
