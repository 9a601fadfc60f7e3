//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry holds the span attributes and metric instruments
// recorded by agents, tools and the A2A server.
package telemetry

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"trpc.group/trpc-go/trpc-agent-arena/model"
)

// grpcNewClient is swapped in tests.
var grpcNewClient = grpc.NewClient

// Service identity reported in the OTel resource.
const (
	ServiceName      = "trpc-agent-arena"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "trpc-go-agent"
	InstrumentName   = "trpc.agent.arena"
)

// Operation names, following the gen_ai semantic conventions.
const (
	OperationChat        = "chat"
	OperationExecuteTool = "execute_tool"
	OperationInvokeAgent = "invoke_agent"
	OperationServeAgent  = "serve_agent"
)

// OTLP exporter protocols.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http"
)

// Attribute keys.
const (
	KeyGenAIOperationName        = attribute.Key("gen_ai.operation.name")
	KeyGenAIAgentName            = attribute.Key("gen_ai.agent.name")
	KeyGenAIAgentDescription     = attribute.Key("gen_ai.agent.description")
	KeyGenAIConversationID       = attribute.Key("gen_ai.conversation.id")
	KeyGenAIRequestModel         = attribute.Key("gen_ai.request.model")
	KeyGenAIRequestTemperature   = attribute.Key("gen_ai.request.temperature")
	KeyGenAIResponseID           = attribute.Key("gen_ai.response.id")
	KeyGenAIResponseModel        = attribute.Key("gen_ai.response.model")
	KeyGenAIUsageInputTokens     = attribute.Key("gen_ai.usage.input_tokens")
	KeyGenAIUsageOutputTokens    = attribute.Key("gen_ai.usage.output_tokens")
	KeyGenAIToolName             = attribute.Key("gen_ai.tool.name")
	KeyGenAIToolCallID           = attribute.Key("gen_ai.tool.call.id")
	KeyGenAIToolCallArguments    = attribute.Key("gen_ai.tool.call.arguments")
	KeyGenAIToolCallResult       = attribute.Key("gen_ai.tool.call.result")
	KeyInvocationID              = attribute.Key("trpc.agent.invocation_id")
	KeyErrorType                 = attribute.Key("error.type")
	KeyA2AEndpoint               = attribute.Key("a2a.endpoint")
	KeyGenAIRequestToolCallCount = attribute.Key("gen_ai.request.tool_count")
)

// NewChatSpanName returns "chat <model>".
func NewChatSpanName(requestModel string) string {
	if requestModel == "" {
		return OperationChat
	}
	return fmt.Sprintf("%s %s", OperationChat, requestModel)
}

// NewExecuteToolSpanName returns "execute_tool <tool>".
func NewExecuteToolSpanName(toolName string) string {
	return fmt.Sprintf("%s %s", OperationExecuteTool, toolName)
}

// NewInvokeAgentSpanName returns "invoke_agent <agent>".
func NewInvokeAgentSpanName(agentName string) string {
	return fmt.Sprintf("%s %s", OperationInvokeAgent, agentName)
}

// TraceInvokeAgent annotates an agent run span.
func TraceInvokeAgent(span trace.Span, agentName, description, invocationID, conversationID string) {
	span.SetAttributes(
		KeyGenAIOperationName.String(OperationInvokeAgent),
		KeyGenAIAgentName.String(agentName),
		KeyGenAIAgentDescription.String(description),
		KeyInvocationID.String(invocationID),
	)
	if conversationID != "" {
		span.SetAttributes(KeyGenAIConversationID.String(conversationID))
	}
}

// TraceChat annotates a model call span with its request and outcome.
func TraceChat(span trace.Span, req *model.Request, modelName string, rsp *model.Response, err error) {
	span.SetAttributes(
		KeyGenAIOperationName.String(OperationChat),
		KeyGenAIRequestModel.String(modelName),
		KeyGenAIRequestToolCallCount.Int(len(req.Tools)),
	)
	if req.Temperature != nil {
		span.SetAttributes(KeyGenAIRequestTemperature.Float64(*req.Temperature))
	}
	if err != nil {
		SetError(span, err)
		return
	}
	if rsp == nil {
		return
	}
	span.SetAttributes(
		KeyGenAIResponseID.String(rsp.ID),
		KeyGenAIResponseModel.String(rsp.Model),
	)
	if rsp.Usage != nil {
		span.SetAttributes(
			KeyGenAIUsageInputTokens.Int(rsp.Usage.PromptTokens),
			KeyGenAIUsageOutputTokens.Int(rsp.Usage.CompletionTokens),
		)
	}
}

// TraceToolCall annotates a tool execution span.
func TraceToolCall(span trace.Span, toolName, callID string, args []byte, result string, err error) {
	span.SetAttributes(
		KeyGenAIOperationName.String(OperationExecuteTool),
		KeyGenAIToolName.String(toolName),
		KeyGenAIToolCallID.String(callID),
		KeyGenAIToolCallArguments.String(string(args)),
		KeyGenAIToolCallResult.String(result),
	)
	if err != nil {
		SetError(span, err)
	}
}

// SetError marks span as failed.
func SetError(span trace.Span, err error) {
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(KeyErrorType.String(errorType(err)))
	span.RecordError(err)
}

func errorType(err error) string {
	var rspErr *model.ResponseError
	if errors.As(err, &rspErr) && rspErr.Type != "" {
		return rspErr.Type
	}
	return "_OTHER"
}

// NewGRPCConn connects to an OpenTelemetry collector over plaintext gRPC.
func NewGRPCConn(endpoint string) (*grpc.ClientConn, error) {
	conn, err := grpcNewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}
	return conn, nil
}
