//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package session defines conversation memory for agents.
package session

import (
	"context"
	"errors"
	"slices"
	"time"

	"trpc.group/trpc-go/trpc-agent-arena/model"
)

var (
	// ErrAppNameRequired is returned for keys without an app name.
	ErrAppNameRequired = errors.New("appName is required")
	// ErrUserIDRequired is returned for keys without a user id.
	ErrUserIDRequired = errors.New("userID is required")
	// ErrSessionIDRequired is returned for keys without a session id.
	ErrSessionIDRequired = errors.New("sessionID is required")
)

// Session is the message history of one conversation.
type Session struct {
	ID        string          `json:"id"`
	AppName   string          `json:"appName"`
	UserID    string          `json:"userID"`
	Messages  []model.Message `json:"messages"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// EnsureStartWithUser drops messages from the front until the first user
// message. A history trimmed to a message limit can otherwise open with
// an assistant tool call or an orphaned tool result, which providers
// reject. A history without any user message is cleared.
func (sess *Session) EnsureStartWithUser() {
	if sess == nil || len(sess.Messages) == 0 {
		return
	}
	start := slices.IndexFunc(sess.Messages, func(msg model.Message) bool {
		return msg.Role == model.RoleUser
	})
	if start == -1 {
		sess.Messages = sess.Messages[:0]
		return
	}
	if start > 0 {
		sess.Messages = append(sess.Messages[:0], sess.Messages[start:]...)
	}
}

// Key identifies a session.
type Key struct {
	AppName   string
	UserID    string
	SessionID string
}

// Check validates that every part of the key is set.
func (k Key) Check() error {
	switch {
	case k.AppName == "":
		return ErrAppNameRequired
	case k.UserID == "":
		return ErrUserIDRequired
	case k.SessionID == "":
		return ErrSessionIDRequired
	}
	return nil
}

// Service stores sessions.
type Service interface {
	// Get returns a copy of the session for key, creating an empty one
	// when none exists.
	Get(ctx context.Context, key Key) (*Session, error)
	// Append adds messages to the session for key.
	Append(ctx context.Context, key Key, messages ...model.Message) error
	// Close releases backend resources.
	Close() error
}
