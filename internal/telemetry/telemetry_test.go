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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"google.golang.org/grpc"

	"trpc.group/trpc-go/trpc-agent-arena/model"
)

func TestSpanNames(t *testing.T) {
	assert.Equal(t, "chat", NewChatSpanName(""))
	assert.Equal(t, "chat gemini-2.0-flash-lite", NewChatSpanName("gemini-2.0-flash-lite"))
	assert.Equal(t, "execute_tool was_attack_successful", NewExecuteToolSpanName("was_attack_successful"))
	assert.Equal(t, "invoke_agent defender_agent", NewInvokeAgentSpanName("defender_agent"))
}

func TestTraceChatAndToolCall(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")
	temp := 0.9

	_, span := tracer.Start(context.Background(), "chat")
	TraceChat(span, &model.Request{GenerationConfig: model.GenerationConfig{Temperature: &temp}}, "m",
		&model.Response{ID: "r1", Model: "m-001", Usage: &model.Usage{PromptTokens: 4, CompletionTokens: 2}}, nil)
	span.End()

	_, span = tracer.Start(context.Background(), "tool")
	TraceToolCall(span, "call_defender_agent", "c1", []byte(`{"query":"hi"}`), "",
		&model.ResponseError{Type: model.ErrorTypeAPIError, Message: "down"})
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	attrs := map[string]any{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "r1", attrs[string(KeyGenAIResponseID)])
	assert.Equal(t, int64(4), attrs[string(KeyGenAIUsageInputTokens)])
	assert.Equal(t, 0.9, attrs[string(KeyGenAIRequestTemperature)])

	assert.Equal(t, codes.Error, spans[1].Status().Code)
	var errType string
	for _, kv := range spans[1].Attributes() {
		if kv.Key == KeyErrorType {
			errType = kv.Value.AsString()
		}
	}
	assert.Equal(t, model.ErrorTypeAPIError, errType)
}

func TestRecordMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	require.NoError(t, InitMeterProvider(mp))
	t.Cleanup(func() { require.NoError(t, InitMeterProvider(noop.NewMeterProvider())) })

	ctx := context.Background()
	RecordChat(ctx, "m", 10*time.Millisecond, 5, 3, nil)
	RecordChat(ctx, "m", time.Millisecond, 0, 0, errors.New("boom"))
	RecordToolCall(ctx, "was_attack_successful", time.Millisecond, nil)
	RecordInvokeAgent(ctx, "attacker_agent")
	RecordA2ARequest(ctx, "defender_agent", time.Millisecond, nil)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	got := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			got[m.Name] = true
			if m.Name == MetricChatRequestCnt {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				var total int64
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
				assert.Equal(t, int64(2), total)
			}
		}
	}
	for _, name := range []string{
		MetricChatRequestCnt, MetricChatDuration, MetricChatTokenUsage,
		MetricToolCallCnt, MetricInvokeAgentCnt, MetricA2ARequestCnt,
	} {
		assert.True(t, got[name], "missing metric %s", name)
	}
}

func TestInitMeterProviderNil(t *testing.T) {
	assert.Error(t, InitMeterProvider(nil))
}

func TestNewGRPCConn(t *testing.T) {
	orig := grpcNewClient
	t.Cleanup(func() { grpcNewClient = orig })

	grpcNewClient = func(string, ...grpc.DialOption) (*grpc.ClientConn, error) {
		return nil, errors.New("dial failed")
	}
	_, err := NewGRPCConn("collector:4317")
	assert.ErrorContains(t, err, "dial failed")

	grpcNewClient = orig
	conn, err := NewGRPCConn("localhost:4317")
	require.NoError(t, err)
	assert.NoError(t, conn.Close())
}
