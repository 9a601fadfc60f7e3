//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package agent defines the Agent interface and the per-run Invocation.
package agent

import (
	"context"

	"trpc.group/trpc-go/trpc-agent-arena/event"
	"trpc.group/trpc-go/trpc-agent-arena/model"
	"trpc.group/trpc-go/trpc-agent-arena/session"
)

// Agent answers an invocation with a stream of events. The channel is
// closed when the run ends; a failed run ends with an error event.
type Agent interface {
	Run(ctx context.Context, invocation *Invocation) (<-chan *event.Event, error)
	Info() Info
}

// Info describes an agent. The A2A server publishes it in the agent card.
type Info struct {
	Name        string
	Description string
}

// Invocation is the input of one agent run.
type Invocation struct {
	InvocationID string
	AgentName    string
	// Session holds the conversation so far. It may be nil.
	Session *session.Session
	// Message is the new user message.
	Message model.Message
}

type invocationKey struct{}

// NewContextWithInvocation returns a context carrying invocation.
func NewContextWithInvocation(ctx context.Context, invocation *Invocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, invocation)
}

// InvocationFromContext returns the invocation stored by
// NewContextWithInvocation.
func InvocationFromContext(ctx context.Context) (*Invocation, bool) {
	invocation, ok := ctx.Value(invocationKey{}).(*Invocation)
	return invocation, ok
}

// EmitEvent sends evt on ch unless ctx is done first.
func EmitEvent(ctx context.Context, ch chan<- *event.Event, evt *event.Event) error {
	if evt == nil {
		return nil
	}
	select {
	case ch <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
