//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metric names.
const (
	MeterName = InstrumentName

	MetricChatRequestCnt      = "trpc_agent_arena.chat.request.count"
	MetricChatDuration        = "gen_ai.client.operation.duration"
	MetricChatTokenUsage      = "gen_ai.client.token.usage"
	MetricToolCallCnt         = "trpc_agent_arena.tool.call.count"
	MetricToolCallDuration    = "trpc_agent_arena.tool.call.duration"
	MetricInvokeAgentCnt      = "trpc_agent_arena.agent.invoke.count"
	MetricA2ARequestCnt       = "trpc_agent_arena.a2a.request.count"
	MetricA2ARequestDuration  = "trpc_agent_arena.a2a.request.duration"
	tokenTypeInput            = "input"
	tokenTypeOutput           = "output"
	keyGenAITokenType         = attribute.Key("gen_ai.token.type")
	keyOutcome                = attribute.Key("outcome")
	outcomeOK                 = "ok"
	outcomeError              = "error"
	defaultDurationUnit       = "s"
	defaultCountUnit          = "1"
	defaultTokenUnit          = "{token}"
	defaultDurationDescriptor = "Duration of the operation"
)

type instruments struct {
	chatRequestCnt     metric.Int64Counter
	chatDuration       metric.Float64Histogram
	chatTokenUsage     metric.Int64Histogram
	toolCallCnt        metric.Int64Counter
	toolCallDuration   metric.Float64Histogram
	invokeAgentCnt     metric.Int64Counter
	a2aRequestCnt      metric.Int64Counter
	a2aRequestDuration metric.Float64Histogram
}

var (
	mu      sync.RWMutex
	current = mustInstruments(noop.NewMeterProvider())
	// MeterProvider is the provider the instruments were created from.
	MeterProvider metric.MeterProvider = noop.NewMeterProvider()
)

// InitMeterProvider creates the instruments from mp and makes them current.
func InitMeterProvider(mp metric.MeterProvider) error {
	ins, err := newInstruments(mp)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	current = ins
	MeterProvider = mp
	return nil
}

func mustInstruments(mp metric.MeterProvider) *instruments {
	ins, err := newInstruments(mp)
	if err != nil {
		panic(err)
	}
	return ins
}

func newInstruments(mp metric.MeterProvider) (*instruments, error) {
	if mp == nil {
		return nil, fmt.Errorf("meter provider is nil")
	}
	m := mp.Meter(MeterName)
	var (
		ins instruments
		err error
	)
	if ins.chatRequestCnt, err = m.Int64Counter(MetricChatRequestCnt,
		metric.WithDescription("Total number of model requests"),
		metric.WithUnit(defaultCountUnit)); err != nil {
		return nil, fmt.Errorf("create metric %s: %w", MetricChatRequestCnt, err)
	}
	if ins.chatDuration, err = m.Float64Histogram(MetricChatDuration,
		metric.WithDescription(defaultDurationDescriptor),
		metric.WithUnit(defaultDurationUnit)); err != nil {
		return nil, fmt.Errorf("create metric %s: %w", MetricChatDuration, err)
	}
	if ins.chatTokenUsage, err = m.Int64Histogram(MetricChatTokenUsage,
		metric.WithDescription("Token usage per model request"),
		metric.WithUnit(defaultTokenUnit)); err != nil {
		return nil, fmt.Errorf("create metric %s: %w", MetricChatTokenUsage, err)
	}
	if ins.toolCallCnt, err = m.Int64Counter(MetricToolCallCnt,
		metric.WithDescription("Total number of tool calls"),
		metric.WithUnit(defaultCountUnit)); err != nil {
		return nil, fmt.Errorf("create metric %s: %w", MetricToolCallCnt, err)
	}
	if ins.toolCallDuration, err = m.Float64Histogram(MetricToolCallDuration,
		metric.WithDescription(defaultDurationDescriptor),
		metric.WithUnit(defaultDurationUnit)); err != nil {
		return nil, fmt.Errorf("create metric %s: %w", MetricToolCallDuration, err)
	}
	if ins.invokeAgentCnt, err = m.Int64Counter(MetricInvokeAgentCnt,
		metric.WithDescription("Total number of agent runs"),
		metric.WithUnit(defaultCountUnit)); err != nil {
		return nil, fmt.Errorf("create metric %s: %w", MetricInvokeAgentCnt, err)
	}
	if ins.a2aRequestCnt, err = m.Int64Counter(MetricA2ARequestCnt,
		metric.WithDescription("Total number of A2A messages served"),
		metric.WithUnit(defaultCountUnit)); err != nil {
		return nil, fmt.Errorf("create metric %s: %w", MetricA2ARequestCnt, err)
	}
	if ins.a2aRequestDuration, err = m.Float64Histogram(MetricA2ARequestDuration,
		metric.WithDescription(defaultDurationDescriptor),
		metric.WithUnit(defaultDurationUnit)); err != nil {
		return nil, fmt.Errorf("create metric %s: %w", MetricA2ARequestDuration, err)
	}
	return &ins, nil
}

func load() *instruments {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func outcome(err error) attribute.KeyValue {
	if err != nil {
		return keyOutcome.String(outcomeError)
	}
	return keyOutcome.String(outcomeOK)
}

// RecordChat records one model request.
func RecordChat(ctx context.Context, modelName string, elapsed time.Duration, inputTokens, outputTokens int, err error) {
	ins := load()
	attrs := metric.WithAttributes(KeyGenAIRequestModel.String(modelName), outcome(err))
	ins.chatRequestCnt.Add(ctx, 1, attrs)
	ins.chatDuration.Record(ctx, elapsed.Seconds(), attrs)
	if err != nil {
		return
	}
	ins.chatTokenUsage.Record(ctx, int64(inputTokens), metric.WithAttributes(
		KeyGenAIRequestModel.String(modelName), keyGenAITokenType.String(tokenTypeInput)))
	ins.chatTokenUsage.Record(ctx, int64(outputTokens), metric.WithAttributes(
		KeyGenAIRequestModel.String(modelName), keyGenAITokenType.String(tokenTypeOutput)))
}

// RecordToolCall records one tool execution.
func RecordToolCall(ctx context.Context, toolName string, elapsed time.Duration, err error) {
	ins := load()
	attrs := metric.WithAttributes(KeyGenAIToolName.String(toolName), outcome(err))
	ins.toolCallCnt.Add(ctx, 1, attrs)
	ins.toolCallDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordInvokeAgent records the start of an agent run.
func RecordInvokeAgent(ctx context.Context, agentName string) {
	load().invokeAgentCnt.Add(ctx, 1, metric.WithAttributes(KeyGenAIAgentName.String(agentName)))
}

// RecordA2ARequest records one A2A message handled for agentName.
func RecordA2ARequest(ctx context.Context, agentName string, elapsed time.Duration, err error) {
	ins := load()
	attrs := metric.WithAttributes(KeyGenAIAgentName.String(agentName), outcome(err))
	ins.a2aRequestCnt.Add(ctx, 1, attrs)
	ins.a2aRequestDuration.Record(ctx, elapsed.Seconds(), attrs)
}
