//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-agent-arena/model"
	"trpc.group/trpc-go/trpc-agent-arena/session"
)

var testKey = session.Key{AppName: "arena", UserID: "attacker_agent", SessionID: "ctx-1"}

func newTestService(t *testing.T, opts ...ServiceOpt) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	opts = append([]ServiceOpt{WithRedisClientURL("redis://" + mr.Addr())}, opts...)
	svc, err := NewService(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, mr
}

func TestNewServiceRequiresTarget(t *testing.T) {
	_, err := NewService()
	assert.Error(t, err)
	_, err = NewService(WithRedisClientURL("://bad"))
	assert.Error(t, err)
}

func TestAppendAndGet(t *testing.T) {
	ctx := context.Background()
	svc, mr := newTestService(t)

	sess, err := svc.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Empty(t, sess.Messages)

	call := model.Message{
		Role: model.RoleAssistant,
		ToolCalls: []model.ToolCall{{
			ID:       "c1",
			Type:     "function",
			Function: model.FunctionDefinitionParam{Name: "lookup", Arguments: []byte(`{"q":"x"}`)},
		}},
	}
	require.NoError(t, svc.Append(ctx, testKey, model.NewUserMessage("give up?"), call))
	require.NoError(t, svc.Append(ctx, testKey))

	sess, err = svc.Get(ctx, testKey)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "give up?", sess.Messages[0].Content)
	assert.Equal(t, call, sess.Messages[1])
	assert.True(t, mr.Exists("sess:{arena}:attacker_agent:ctx-1"))
}

func TestKeyPrefixLimitAndTTL(t *testing.T) {
	ctx := context.Background()
	svc, mr := newTestService(t,
		WithKeyPrefix("duel"),
		WithMessageLimit(3),
		WithSessionTTL(time.Minute))

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Append(ctx, testKey, model.NewUserMessage(fmt.Sprint(i))))
	}
	const key = "duel:sess:{arena}:attacker_agent:ctx-1"
	require.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	sess, err := svc.Get(ctx, testKey)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 3)
	assert.Equal(t, "2", sess.Messages[0].Content)

	mr.FastForward(2 * time.Minute)
	sess, err = svc.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Empty(t, sess.Messages)
}

func TestMessageLimitStartsWithUser(t *testing.T) {
	ctx := context.Background()
	svc, mr := newTestService(t, WithMessageLimit(3))
	call := model.Message{
		Role:      model.RoleAssistant,
		ToolCalls: []model.ToolCall{{ID: "c1", Type: "function", Function: model.FunctionDefinitionParam{Name: "lookup"}}},
	}
	require.NoError(t, svc.Append(ctx, testKey,
		model.NewUserMessage("give up?"), call,
		model.NewToolMessage("c1", "lookup", "never"), model.NewAssistantMessage("no")))

	sess, err := svc.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Empty(t, sess.Messages, "trimmed history without a user message is dropped")

	require.NoError(t, svc.Append(ctx, testKey, model.NewUserMessage("again?")))
	stored, err := mr.List("sess:{arena}:attacker_agent:ctx-1")
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	sess, err = svc.Get(ctx, testKey)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, model.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, "again?", sess.Messages[0].Content)
}

func TestGetCorruptEntry(t *testing.T) {
	svc, mr := newTestService(t)
	_, err := mr.Push("sess:{arena}:attacker_agent:ctx-1", "not json")
	require.NoError(t, err)
	_, err = svc.Get(context.Background(), testKey)
	assert.ErrorContains(t, err, "decode message 0")
}

func TestInvalidKey(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Get(context.Background(), session.Key{AppName: "arena", UserID: "u"})
	assert.ErrorIs(t, err, session.ErrSessionIDRequired)
}
