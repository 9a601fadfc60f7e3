//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package runner runs an agent against a stored conversation and collects
// the result.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-agent-arena/agent"
	"trpc.group/trpc-go/trpc-agent-arena/event"
	"trpc.group/trpc-go/trpc-agent-arena/log"
	"trpc.group/trpc-go/trpc-agent-arena/model"
	"trpc.group/trpc-go/trpc-agent-arena/session"
	"trpc.group/trpc-go/trpc-agent-arena/session/inmemory"
)

// Option is a function that configures a Runner.
type Option func(*Options)

// Options is the options for the Runner.
type Options struct {
	sessionService session.Service
}

// WithSessionService sets the session service to use.
func WithSessionService(service session.Service) Option {
	return func(opts *Options) {
		opts.sessionService = service
	}
}

// Trace is the outcome of one run.
type Trace struct {
	// Events holds every event the agent emitted, in order.
	Events []*event.Event
	// FinalOutput is the content of the last assistant message that
	// requested no tools.
	FinalOutput string
	// Usage sums token usage over all model calls of the run.
	Usage model.Usage
}

// Runner is the interface for running agents.
type Runner interface {
	// Run sends message to the agent within the session identified by
	// userID and sessionID and waits for the run to finish.
	Run(ctx context.Context, userID string, sessionID string, message model.Message) (*Trace, error)

	// Close releases resources created by the runner. It's safe to call
	// Close multiple times.
	Close() error
}

type runner struct {
	appName        string
	agent          agent.Agent
	sessionService session.Service

	ownedSessionService bool
	closeOnce           sync.Once
	closeErr            error
}

// NewRunner creates a new Runner. Without WithSessionService the runner
// keeps sessions in memory and owns that service.
func NewRunner(appName string, ag agent.Agent, opts ...Option) Runner {
	var options Options
	for _, o := range opts {
		o(&options)
	}
	var owned bool
	if options.sessionService == nil {
		options.sessionService = inmemory.NewSessionService()
		owned = true
	}
	return &runner{
		appName:             appName,
		agent:               ag,
		sessionService:      options.sessionService,
		ownedSessionService: owned,
	}
}

// Run implements Runner. The session is updated only when the run
// succeeds, so a failed run leaves no half-finished tool exchange behind.
func (r *runner) Run(ctx context.Context, userID string, sessionID string, message model.Message) (*Trace, error) {
	if r.agent == nil {
		return nil, errors.New("runner: agent is nil")
	}
	key := session.Key{AppName: r.appName, UserID: userID, SessionID: sessionID}
	sess, err := r.sessionService.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("runner: get session: %w", err)
	}
	if message.Role == "" {
		message.Role = model.RoleUser
	}
	invocation := &agent.Invocation{
		InvocationID: uuid.NewString(),
		AgentName:    r.agent.Info().Name,
		Session:      sess,
		Message:      message,
	}
	eventChan, err := r.agent.Run(ctx, invocation)
	if err != nil {
		return nil, fmt.Errorf("runner: run agent %s: %w", invocation.AgentName, err)
	}

	trace := &Trace{}
	produced := []model.Message{message}
	var runErr error
	for evt := range eventChan {
		if evt == nil {
			continue
		}
		trace.Events = append(trace.Events, evt)
		if evt.IsError() {
			if runErr == nil {
				runErr = fmt.Errorf("runner: agent %s: %w", invocation.AgentName, evt.Error)
			}
			continue
		}
		if evt.Response == nil {
			continue
		}
		trace.Usage.Add(evt.Usage)
		if evt.Object == event.ObjectTypeToolResponse {
			for _, choice := range evt.Choices {
				produced = append(produced, choice.Message)
			}
			continue
		}
		msg, ok := evt.Message()
		if !ok {
			continue
		}
		produced = append(produced, msg)
		if msg.Role == model.RoleAssistant && len(msg.ToolCalls) == 0 {
			trace.FinalOutput = msg.Content
		}
	}
	if runErr != nil {
		return trace, runErr
	}
	if err := ctx.Err(); err != nil {
		return trace, fmt.Errorf("runner: run interrupted: %w", err)
	}
	if err := r.sessionService.Append(ctx, key, produced...); err != nil {
		return trace, fmt.Errorf("runner: append session: %w", err)
	}
	log.Debugf("runner %s: invocation %s finished with %d events", r.appName, invocation.InvocationID, len(trace.Events))
	return trace, nil
}

// Close implements Runner. Only a session service created by the runner
// is closed.
func (r *runner) Close() error {
	r.closeOnce.Do(func() {
		if r.ownedSessionService && r.sessionService != nil {
			r.closeErr = r.sessionService.Close()
		}
	})
	return r.closeErr
}
