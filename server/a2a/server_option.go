//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package a2a

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"trpc.group/trpc-go/trpc-a2a-go/auth"
	a2a "trpc.group/trpc-go/trpc-a2a-go/server"

	"trpc.group/trpc-go/trpc-agent-arena/log"
	"trpc.group/trpc-go/trpc-agent-arena/session"
)

const (
	defaultUserIDHeader      = "X-User-ID"
	defaultReadHeaderTimeout = 10 * time.Second
	defaultShutdownTimeout   = 5 * time.Second
)

// UserIDFromContext returns the user id set by the auth provider.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	user, ok := ctx.Value(auth.AuthUserKey).(*auth.User)
	if !ok || user == nil {
		return "", false
	}
	return user.ID, true
}

// NewContextWithUserID returns a context carrying userID the way the auth
// provider stores it.
func NewContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, auth.AuthUserKey, &auth.User{ID: userID})
}

// headerAuthProvider reads the user id from a request header.
type headerAuthProvider struct {
	header string
}

// Authenticate implements auth.Provider.
func (p *headerAuthProvider) Authenticate(r *http.Request) (*auth.User, error) {
	if r == nil {
		return nil, errors.New("request is nil")
	}
	userID := r.Header.Get(p.header)
	if userID == "" {
		log.Debugf("a2a: %s not set, using an anonymous user", p.header)
		userID = uuid.NewString()
	}
	return &auth.User{ID: userID}, nil
}

type options struct {
	sessionService    session.Service
	agentCard         *a2a.AgentCard
	userIDHeader      string
	readHeaderTimeout time.Duration
	shutdownTimeout   time.Duration
	extraOptions      []a2a.Option

	// onRelease observes Release in tests.
	onRelease func()
}

// Option configures the served agent.
type Option func(*options)

func newOptions(opts ...Option) *options {
	o := &options{
		userIDHeader:      defaultUserIDHeader,
		readHeaderTimeout: defaultReadHeaderTimeout,
		shutdownTimeout:   defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithSessionService sets where the served agent keeps its conversations.
// Defaults to an in-memory service owned by the server.
func WithSessionService(service session.Service) Option {
	return func(opts *options) {
		opts.sessionService = service
	}
}

// WithAgentCard overrides the published agent card. Its URL is always
// replaced by the served URL.
func WithAgentCard(card a2a.AgentCard) Option {
	return func(opts *options) {
		opts.agentCard = &card
	}
}

// WithUserIDHeader sets the request header carrying the user id.
func WithUserIDHeader(header string) Option {
	return func(opts *options) {
		if header != "" {
			opts.userIDHeader = header
		}
	}
}

// WithReadHeaderTimeout sets the http.Server ReadHeaderTimeout.
func WithReadHeaderTimeout(d time.Duration) Option {
	return func(opts *options) {
		if d > 0 {
			opts.readHeaderTimeout = d
		}
	}
}

// WithShutdownTimeout bounds the graceful shutdown run by Release.
func WithShutdownTimeout(d time.Duration) Option {
	return func(opts *options) {
		if d > 0 {
			opts.shutdownTimeout = d
		}
	}
}

// WithExtraA2AOptions passes options through to the trpc-a2a-go server.
func WithExtraA2AOptions(opts ...a2a.Option) Option {
	return func(options *options) {
		options.extraOptions = append(options.extraOptions, opts...)
	}
}
