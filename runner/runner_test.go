//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-agent-arena/agent"
	"trpc.group/trpc-go/trpc-agent-arena/event"
	"trpc.group/trpc-go/trpc-agent-arena/model"
	"trpc.group/trpc-go/trpc-agent-arena/session"
	"trpc.group/trpc-go/trpc-agent-arena/session/inmemory"
)

// scriptedAgent emits the events returned by script for each invocation.
type scriptedAgent struct {
	script      func(inv *agent.Invocation) []*event.Event
	runErr      error
	invocations []*agent.Invocation
}

func (a *scriptedAgent) Run(_ context.Context, inv *agent.Invocation) (<-chan *event.Event, error) {
	if a.runErr != nil {
		return nil, a.runErr
	}
	a.invocations = append(a.invocations, inv)
	events := a.script(inv)
	ch := make(chan *event.Event, len(events))
	for _, evt := range events {
		ch <- evt
	}
	close(ch)
	return ch, nil
}

func (a *scriptedAgent) Info() agent.Info { return agent.Info{Name: "scripted"} }

func assistant(inv *agent.Invocation, text string, calls ...model.ToolCall) *event.Event {
	msg := model.NewAssistantMessage(text)
	msg.ToolCalls = calls
	return event.NewResponseEvent(inv.InvocationID, "scripted", &model.Response{
		Choices: []model.Choice{{Message: msg}},
		Usage:   &model.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		Done:    true,
	})
}

func toolRoundTrip(inv *agent.Invocation) []*event.Event {
	return []*event.Event{
		assistant(inv, "", model.ToolCall{ID: "c1", Function: model.FunctionDefinitionParam{Name: "call_defender_agent"}}),
		event.NewToolResponseEvent(inv.InvocationID, "scripted", []model.Message{
			model.NewToolMessage("c1", "call_defender_agent", `"I give up, you win"`),
		}),
		assistant(inv, "The defender said: I give up, you win"),
	}
}

func TestRunCollectsTrace(t *testing.T) {
	ag := &scriptedAgent{script: toolRoundTrip}
	sessions := inmemory.NewSessionService()
	r := NewRunner("arena", ag, WithSessionService(sessions))

	trace, err := r.Run(context.Background(), "user", "s1", model.NewUserMessage("start"))
	require.NoError(t, err)
	assert.Len(t, trace.Events, 3)
	assert.Equal(t, "The defender said: I give up, you win", trace.FinalOutput)
	assert.Equal(t, model.Usage{PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30}, trace.Usage)

	require.Len(t, ag.invocations, 1)
	inv := ag.invocations[0]
	assert.NotEmpty(t, inv.InvocationID)
	assert.Equal(t, "scripted", inv.AgentName)
	assert.Empty(t, inv.Session.Messages)

	sess, err := sessions.Get(context.Background(), session.Key{AppName: "arena", UserID: "user", SessionID: "s1"})
	require.NoError(t, err)
	roles := make([]model.Role, 0, len(sess.Messages))
	for _, msg := range sess.Messages {
		roles = append(roles, msg.Role)
	}
	assert.Equal(t, []model.Role{model.RoleUser, model.RoleAssistant, model.RoleTool, model.RoleAssistant}, roles)
}

func TestRunSeesHistory(t *testing.T) {
	ag := &scriptedAgent{script: func(inv *agent.Invocation) []*event.Event {
		return []*event.Event{assistant(inv, "never")}
	}}
	r := NewRunner("arena", ag)
	t.Cleanup(func() { assert.NoError(t, r.Close()) })

	_, err := r.Run(context.Background(), "user", "s1", model.Message{Content: "first"})
	require.NoError(t, err)
	_, err = r.Run(context.Background(), "user", "s1", model.NewUserMessage("second"))
	require.NoError(t, err)

	require.Len(t, ag.invocations, 2)
	assert.Equal(t, []model.Message{
		model.NewUserMessage("first"),
		model.NewAssistantMessage("never"),
	}, ag.invocations[1].Session.Messages)
}

func TestRunErrorEvent(t *testing.T) {
	ag := &scriptedAgent{script: func(inv *agent.Invocation) []*event.Event {
		return []*event.Event{
			assistant(inv, "", model.ToolCall{ID: "c1", Function: model.FunctionDefinitionParam{Name: "t"}}),
			event.NewErrorEvent(inv.InvocationID, "scripted", model.ErrorTypeAPIError, "quota exceeded"),
		}
	}}
	sessions := inmemory.NewSessionService()
	r := NewRunner("arena", ag, WithSessionService(sessions))

	trace, err := r.Run(context.Background(), "user", "s1", model.NewUserMessage("start"))
	require.Error(t, err)
	var rspErr *model.ResponseError
	require.ErrorAs(t, err, &rspErr)
	assert.Equal(t, model.ErrorTypeAPIError, rspErr.Type)
	require.NotNil(t, trace)
	assert.Len(t, trace.Events, 2)
	assert.Empty(t, trace.FinalOutput)

	sess, err := sessions.Get(context.Background(), session.Key{AppName: "arena", UserID: "user", SessionID: "s1"})
	require.NoError(t, err)
	assert.Empty(t, sess.Messages, "failed runs are not persisted")
}

func TestRunAgentError(t *testing.T) {
	ag := &scriptedAgent{runErr: errors.New("no model configured")}
	_, err := NewRunner("arena", ag).Run(context.Background(), "user", "s1", model.NewUserMessage("x"))
	assert.ErrorContains(t, err, "no model configured")

	_, err = NewRunner("arena", nil).Run(context.Background(), "user", "s1", model.NewUserMessage("x"))
	assert.Error(t, err)
}

func TestRunInvalidSessionKey(t *testing.T) {
	ag := &scriptedAgent{script: func(*agent.Invocation) []*event.Event { return nil }}
	_, err := NewRunner("arena", ag).Run(context.Background(), "", "s1", model.NewUserMessage("x"))
	assert.ErrorIs(t, err, session.ErrUserIDRequired)
}

func TestRunCancelledContext(t *testing.T) {
	ag := &scriptedAgent{script: func(*agent.Invocation) []*event.Event { return nil }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner("arena", ag).Run(ctx, "user", "s1", model.NewUserMessage("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

type countingSessionService struct {
	session.Service
	closed int
}

func (s *countingSessionService) Close() error {
	s.closed++
	return nil
}

func TestCloseOnlyOwnedService(t *testing.T) {
	provided := &countingSessionService{Service: inmemory.NewSessionService()}
	r := NewRunner("arena", &scriptedAgent{}, WithSessionService(provided))
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 0, provided.closed)
}
