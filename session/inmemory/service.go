//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides a process-local session service.
package inmemory

import (
	"context"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-agent-arena/model"
	"trpc.group/trpc-go/trpc-agent-arena/session"
)

var _ session.Service = (*SessionService)(nil)

type sessionWithTTL struct {
	session   *session.Session
	expiredAt time.Time
}

func (s *sessionWithTTL) expired(now time.Time) bool {
	return !s.expiredAt.IsZero() && now.After(s.expiredAt)
}

// SessionService keeps sessions in a map guarded by a RWMutex.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[session.Key]*sessionWithTTL
	opts     serviceOpts
}

type serviceOpts struct {
	sessionTTL   time.Duration
	messageLimit int
}

// ServiceOpt configures a SessionService.
type ServiceOpt func(*serviceOpts)

// WithSessionTTL expires sessions idle for longer than ttl. Zero keeps
// them for the life of the process.
func WithSessionTTL(ttl time.Duration) ServiceOpt {
	return func(o *serviceOpts) {
		o.sessionTTL = ttl
	}
}

// WithMessageLimit keeps only the newest limit messages per session.
func WithMessageLimit(limit int) ServiceOpt {
	return func(o *serviceOpts) {
		o.messageLimit = limit
	}
}

// NewSessionService creates an empty service.
func NewSessionService(opts ...ServiceOpt) *SessionService {
	var o serviceOpts
	for _, opt := range opts {
		opt(&o)
	}
	return &SessionService{
		sessions: make(map[session.Key]*sessionWithTTL),
		opts:     o,
	}
}

// Get implements session.Service.
func (s *SessionService) Get(_ context.Context, key session.Key) (*session.Session, error) {
	if err := key.Check(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.entryLocked(key, time.Now()).session), nil
}

// Append implements session.Service.
func (s *SessionService) Append(_ context.Context, key session.Key, messages ...model.Message) error {
	if err := key.Check(); err != nil {
		return err
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.entryLocked(key, now).session
	sess.Messages = append(sess.Messages, messages...)
	if limit := s.opts.messageLimit; limit > 0 && len(sess.Messages) > limit {
		sess.Messages = append([]model.Message(nil), sess.Messages[len(sess.Messages)-limit:]...)
	}
	sess.EnsureStartWithUser()
	sess.UpdatedAt = now
	return nil
}

// entryLocked returns the live entry for key, replacing an expired one,
// and refreshes its expiry. s.mu must be held.
func (s *SessionService) entryLocked(key session.Key, now time.Time) *sessionWithTTL {
	entry, ok := s.sessions[key]
	if !ok || entry.expired(now) {
		entry = &sessionWithTTL{session: &session.Session{
			ID:        key.SessionID,
			AppName:   key.AppName,
			UserID:    key.UserID,
			UpdatedAt: now,
		}}
		s.sessions[key] = entry
	}
	entry.expiredAt = s.expiry(now)
	return entry
}

// Close implements session.Service.
func (s *SessionService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[session.Key]*sessionWithTTL)
	return nil
}

func (s *SessionService) expiry(now time.Time) time.Time {
	if s.opts.sessionTTL <= 0 {
		return time.Time{}
	}
	return now.Add(s.opts.sessionTTL)
}

func clone(sess *session.Session) *session.Session {
	c := *sess
	c.Messages = append([]model.Message(nil), sess.Messages...)
	return &c
}
