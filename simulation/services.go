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
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-agent-arena/log"
	"trpc.group/trpc-go/trpc-agent-arena/session"
	"trpc.group/trpc-go/trpc-agent-arena/session/inmemory"
	"trpc.group/trpc-go/trpc-agent-arena/session/redis"
	"trpc.group/trpc-go/trpc-agent-arena/telemetry/metric"
	"trpc.group/trpc-go/trpc-agent-arena/telemetry/trace"
)

// NewSessionService builds the session backend selected by cfg.
func NewSessionService(cfg SessionConfig) (session.Service, error) {
	switch cfg.Backend {
	case "", SessionBackendInMemory:
		return inmemory.NewSessionService(
			inmemory.WithSessionTTL(cfg.TTL),
			inmemory.WithMessageLimit(cfg.MessageLimit),
		), nil
	case SessionBackendRedis:
		svc, err := redis.NewService(
			redis.WithRedisClientURL(cfg.RedisURL),
			redis.WithSessionTTL(cfg.TTL),
			redis.WithMessageLimit(cfg.MessageLimit),
		)
		if err != nil {
			return nil, fmt.Errorf("create redis session service: %w", err)
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

// StartTelemetry starts trace and metric export when cfg enables it. The
// returned func flushes and stops both; it is never nil.
func StartTelemetry(ctx context.Context, serviceName string, cfg TelemetryConfig) (func() error, error) {
	if !cfg.Enabled {
		return func() error { return nil }, nil
	}
	cleanTrace, err := trace.Start(ctx,
		trace.WithProtocol(cfg.Protocol),
		trace.WithEndpoint(cfg.TracesEndpoint),
		trace.WithServiceName(serviceName),
	)
	if err != nil {
		return nil, fmt.Errorf("start trace export: %w", err)
	}
	cleanMetric, err := metric.Start(ctx,
		metric.WithProtocol(cfg.Protocol),
		metric.WithEndpoint(cfg.MetricsEndpoint),
		metric.WithServiceName(serviceName),
	)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("start metric export: %w", err), cleanTrace())
	}
	log.Infof("telemetry export enabled over %s", cfg.Protocol)
	return func() error {
		return errors.Join(cleanMetric(), cleanTrace())
	}, nil
}
