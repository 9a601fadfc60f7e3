//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package a2a serves an agent over the A2A protocol and manages the
// lifetime of that server.
package a2a

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"
	a2a "trpc.group/trpc-go/trpc-a2a-go/server"
	"trpc.group/trpc-go/trpc-a2a-go/taskmanager"

	"trpc.group/trpc-go/trpc-agent-arena/agent"
	itelemetry "trpc.group/trpc-go/trpc-agent-arena/internal/telemetry"
	"trpc.group/trpc-go/trpc-agent-arena/log"
	"trpc.group/trpc-go/trpc-agent-arena/model"
	"trpc.group/trpc-go/trpc-agent-arena/runner"
	"trpc.group/trpc-go/trpc-agent-arena/telemetry/trace"
)

const emptyInputReply = "input is empty!"

// buildAgentCard returns the card published for ag at url.
func buildAgentCard(ag agent.Agent, url string, override *a2a.AgentCard) a2a.AgentCard {
	if override != nil {
		card := *override
		card.URL = url
		return card
	}
	info := ag.Info()
	desc := info.Description
	return a2a.AgentCard{
		Name:        info.Name,
		Description: desc,
		URL:         url,
		Capabilities: a2a.AgentCapabilities{
			Streaming: boolPtr(false),
		},
		Skills: []a2a.AgentSkill{
			{
				Name:        info.Name,
				Description: &desc,
				InputModes:  []string{"text"},
				OutputModes: []string{"text"},
				Tags:        []string{"default"},
			},
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	}
}

// newHandler builds the HTTP handler serving ag under endpoint.
func newHandler(ag agent.Agent, r runner.Runner, url, endpoint string, o *options) (http.Handler, error) {
	processor := &messageProcessor{agentName: ag.Info().Name, runner: r}
	taskManager, err := taskmanager.NewMemoryTaskManager(processor, taskmanager.WithMaxHistoryLength(1))
	if err != nil {
		return nil, fmt.Errorf("create task manager: %w", err)
	}
	serverOpts := append([]a2a.Option{
		a2a.WithAuthProvider(&headerAuthProvider{header: o.userIDHeader}),
	}, o.extraOptions...)
	a2aServer, err := a2a.NewA2AServer(buildAgentCard(ag, url, o.agentCard), taskManager, serverOpts...)
	if err != nil {
		return nil, fmt.Errorf("create a2a server: %w", err)
	}

	router := mux.NewRouter()
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
	}).Handler)
	// The A2A handler takes its base path from the card URL, so requests
	// reach it with the endpoint still in place.
	prefix := endpoint
	if prefix == "" {
		prefix = "/"
	}
	router.PathPrefix(prefix).Handler(a2aServer.Handler())
	return router, nil
}

// messageProcessor runs the served agent for each incoming A2A message.
// The A2A context id selects the conversation, so repeated calls with the
// same context id continue one session.
type messageProcessor struct {
	agentName string
	runner    runner.Runner
}

// ProcessMessage implements taskmanager.MessageProcessor.
func (m *messageProcessor) ProcessMessage(
	ctx context.Context,
	message protocol.Message,
	options taskmanager.ProcessOptions,
	handler taskmanager.TaskHandler,
) (*taskmanager.MessageProcessingResult, error) {
	ctx, span := trace.Tracer.Start(ctx, fmt.Sprintf("%s %s", itelemetry.OperationServeAgent, m.agentName))
	defer span.End()
	start := time.Now()

	result, err := m.processMessage(ctx, message)
	if err != nil {
		itelemetry.SetError(span, err)
	}
	itelemetry.RecordA2ARequest(ctx, m.agentName, time.Since(start), err)
	return result, err
}

func (m *messageProcessor) processMessage(
	ctx context.Context,
	message protocol.Message,
) (*taskmanager.MessageProcessingResult, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok || userID == "" {
		userID = "anonymous"
	}
	contextID := uuid.NewString()
	if message.ContextID != nil && *message.ContextID != "" {
		contextID = *message.ContextID
	}

	text := extractTextFromMessage(message)
	if text == "" {
		return newTextResult(emptyInputReply, contextID), nil
	}

	runTrace, err := m.runner.Run(ctx, userID, contextID, model.NewUserMessage(text))
	if err != nil {
		log.Errorf("a2a: agent %s failed on context %s: %v", m.agentName, contextID, err)
		return nil, err
	}
	log.Debugf("a2a: agent %s answered context %s: %s", m.agentName, contextID, runTrace.FinalOutput)
	return newTextResult(runTrace.FinalOutput, contextID), nil
}

func newTextResult(text, contextID string) *taskmanager.MessageProcessingResult {
	result := protocol.NewMessage(protocol.MessageRoleAgent, []protocol.Part{protocol.NewTextPart(text)})
	result.ContextID = &contextID
	return &taskmanager.MessageProcessingResult{Result: &result}
}

// extractTextFromMessage joins the text parts of message.
func extractTextFromMessage(message protocol.Message) string {
	var texts []string
	for _, part := range message.Parts {
		switch p := part.(type) {
		case *protocol.TextPart:
			texts = append(texts, p.Text)
		case protocol.TextPart:
			texts = append(texts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}

func boolPtr(b bool) *bool {
	return &b
}
