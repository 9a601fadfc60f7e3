//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-agent-arena/model"
	"trpc.group/trpc-go/trpc-agent-arena/session"
	"trpc.group/trpc-go/trpc-agent-arena/session/inmemory"
	"trpc.group/trpc-go/trpc-agent-arena/session/redis"
)

func TestNewSessionService(t *testing.T) {
	svc, err := NewSessionService(SessionConfig{Backend: SessionBackendInMemory})
	require.NoError(t, err)
	assert.IsType(t, &inmemory.SessionService{}, svc)
	require.NoError(t, svc.Close())

	mr := miniredis.RunT(t)
	svc, err = NewSessionService(SessionConfig{
		Backend:  SessionBackendRedis,
		RedisURL: "redis://" + mr.Addr(),
		TTL:      time.Hour,
	})
	require.NoError(t, err)
	assert.IsType(t, &redis.Service{}, svc)
	t.Cleanup(func() { assert.NoError(t, svc.Close()) })

	key := session.Key{AppName: "arena", UserID: "u", SessionID: "s"}
	require.NoError(t, svc.Append(context.Background(), key, model.NewUserMessage("hi")))
	sess, err := svc.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Len(t, sess.Messages, 1)

	_, err = NewSessionService(SessionConfig{Backend: "etcd"})
	assert.Error(t, err)
}

func TestStartTelemetryDisabled(t *testing.T) {
	clean, err := StartTelemetry(context.Background(), "arena", TelemetryConfig{})
	require.NoError(t, err)
	require.NotNil(t, clean)
	assert.NoError(t, clean())
}
