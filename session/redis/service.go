//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package redis provides a session service backed by redis, so a served
// agent keeps its conversations across process restarts.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trpc.group/trpc-go/trpc-agent-arena/model"
	"trpc.group/trpc-go/trpc-agent-arena/session"
)

var _ session.Service = (*Service)(nil)

// Service stores each session as a redis list of JSON encoded messages:
//
//	<prefix>sess:{appName}:{userID}:{sessionID} -> list [message(json)]
type Service struct {
	opts        ServiceOpts
	redisClient redis.UniversalClient
	ownsClient  bool
}

// ServiceOpts is the options for the redis session service.
type ServiceOpts struct {
	url          string
	client       redis.UniversalClient
	sessionTTL   time.Duration
	messageLimit int
	keyPrefix    string
}

// ServiceOpt configures a Service.
type ServiceOpt func(*ServiceOpts)

// WithRedisClientURL connects to the redis server at url, for example
// "redis://localhost:6379/0".
func WithRedisClientURL(url string) ServiceOpt {
	return func(o *ServiceOpts) {
		o.url = url
	}
}

// WithRedisClient uses an existing client. The service does not close it.
func WithRedisClient(client redis.UniversalClient) ServiceOpt {
	return func(o *ServiceOpts) {
		o.client = client
	}
}

// WithSessionTTL expires a session ttl after its last append.
func WithSessionTTL(ttl time.Duration) ServiceOpt {
	return func(o *ServiceOpts) {
		o.sessionTTL = ttl
	}
}

// WithMessageLimit keeps only the newest limit messages per session.
func WithMessageLimit(limit int) ServiceOpt {
	return func(o *ServiceOpts) {
		o.messageLimit = limit
	}
}

// WithKeyPrefix prefixes every key with prefix and a colon.
func WithKeyPrefix(prefix string) ServiceOpt {
	return func(o *ServiceOpts) {
		o.keyPrefix = prefix
	}
}

// NewService creates a redis session service.
func NewService(opts ...ServiceOpt) (*Service, error) {
	var o ServiceOpts
	for _, opt := range opts {
		opt(&o)
	}
	if o.client != nil {
		return &Service{opts: o, redisClient: o.client}, nil
	}
	if o.url == "" {
		return nil, errors.New("redis session: url or client is required")
	}
	redisOpts, err := redis.ParseURL(o.url)
	if err != nil {
		return nil, fmt.Errorf("redis session: parse url: %w", err)
	}
	return &Service{opts: o, redisClient: redis.NewClient(redisOpts), ownsClient: true}, nil
}

func (s *Service) sessionKey(key session.Key) string {
	k := fmt.Sprintf("sess:{%s}:%s:%s", key.AppName, key.UserID, key.SessionID)
	if s.opts.keyPrefix != "" {
		return s.opts.keyPrefix + ":" + k
	}
	return k
}

// Get implements session.Service.
func (s *Service) Get(ctx context.Context, key session.Key) (*session.Session, error) {
	if err := key.Check(); err != nil {
		return nil, err
	}
	raw, err := s.redisClient.LRange(ctx, s.sessionKey(key), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis session: load %s: %w", key.SessionID, err)
	}
	sess := &session.Session{
		ID:        key.SessionID,
		AppName:   key.AppName,
		UserID:    key.UserID,
		Messages:  make([]model.Message, 0, len(raw)),
		UpdatedAt: time.Now(),
	}
	for i, item := range raw {
		var msg model.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("redis session: decode message %d of %s: %w", i, key.SessionID, err)
		}
		sess.Messages = append(sess.Messages, msg)
	}
	// LTRIM keeps the newest messages regardless of role.
	sess.EnsureStartWithUser()
	return sess, nil
}

// Append implements session.Service.
func (s *Service) Append(ctx context.Context, key session.Key, messages ...model.Message) error {
	if err := key.Check(); err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}
	values := make([]any, 0, len(messages))
	for _, msg := range messages {
		b, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("redis session: encode message: %w", err)
		}
		values = append(values, b)
	}
	sessKey := s.sessionKey(key)
	pipe := s.redisClient.TxPipeline()
	pipe.RPush(ctx, sessKey, values...)
	if s.opts.messageLimit > 0 {
		pipe.LTrim(ctx, sessKey, int64(-s.opts.messageLimit), -1)
	}
	if s.opts.sessionTTL > 0 {
		pipe.Expire(ctx, sessKey, s.opts.sessionTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis session: append to %s: %w", key.SessionID, err)
	}
	return nil
}

// Close implements session.Service. A client passed in with
// WithRedisClient is left open.
func (s *Service) Close() error {
	if !s.ownsClient {
		return nil
	}
	return s.redisClient.Close()
}
