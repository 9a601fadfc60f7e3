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
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-agent-arena/agent"
	"trpc.group/trpc-go/trpc-agent-arena/log"
	"trpc.group/trpc-go/trpc-agent-arena/runner"
)

// DefaultHost is the host bound when ServingConfig.Host is empty.
const DefaultHost = "localhost"

var errNilAgent = errors.New("agent is nil")

// ServingConfig selects where an agent is served.
type ServingConfig struct {
	// Host defaults to DefaultHost.
	Host string `yaml:"host"`
	// Port 0 lets the system pick a free port.
	Port int `yaml:"port"`
	// Endpoint is the path the agent is served under, for example
	// "/defender". Empty serves at the root.
	Endpoint string `yaml:"endpoint"`
}

// StartupError reports that an agent could not be served.
type StartupError struct {
	Addr string
	Err  error
}

// Error implements error.
func (e *StartupError) Error() string {
	return fmt.Sprintf("a2a: serve agent on %s: %v", e.Addr, e.Err)
}

// Unwrap returns the underlying error.
func (e *StartupError) Unwrap() error {
	return e.Err
}

// ServedAgent is a running A2A server exposing one agent. It stays up
// until Release.
type ServedAgent struct {
	agentName       string
	host            string
	port            int
	endpoint        string
	url             string
	httpServer      *http.Server
	runner          runner.Runner
	shutdownTimeout time.Duration

	serveDone chan struct{}
	serveErr  error

	releaseOnce sync.Once
	releaseErr  error
	onRelease   func()
}

// Serve binds cfg's address and starts serving ag on it. The returned
// handle must be released. A bind or setup failure is a *StartupError;
// the address is never retried.
func Serve(ctx context.Context, ag agent.Agent, cfg ServingConfig, opts ...Option) (*ServedAgent, error) {
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	addr := net.JoinHostPort(host, strconv.Itoa(cfg.Port))
	if ag == nil {
		return nil, &StartupError{Addr: addr, Err: errNilAgent}
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, &StartupError{Addr: addr, Err: fmt.Errorf("invalid port %d", cfg.Port)}
	}
	if cfg.Endpoint != "" && !strings.HasPrefix(cfg.Endpoint, "/") {
		return nil, &StartupError{Addr: addr, Err: fmt.Errorf("endpoint %q must start with /", cfg.Endpoint)}
	}
	o := newOptions(opts...)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, &StartupError{Addr: addr, Err: err}
	}
	port := ln.Addr().(*net.TCPAddr).Port
	url := fmt.Sprintf("http://%s%s", net.JoinHostPort(host, strconv.Itoa(port)), cfg.Endpoint)

	name := ag.Info().Name
	r := runner.NewRunner(name, ag, runner.WithSessionService(o.sessionService))
	handler, err := newHandler(ag, r, url, routePrefix(cfg.Endpoint), o)
	if err != nil {
		_ = ln.Close()
		_ = r.Close()
		return nil, &StartupError{Addr: addr, Err: err}
	}

	s := &ServedAgent{
		agentName: name,
		host:      host,
		port:      port,
		endpoint:  cfg.Endpoint,
		url:       url,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: o.readHeaderTimeout,
		},
		runner:          r,
		shutdownTimeout: o.shutdownTimeout,
		serveDone:       make(chan struct{}),
		onRelease:       o.onRelease,
	}
	go func() {
		defer close(s.serveDone)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("a2a: server for agent %s at %s stopped: %v", name, url, err)
			s.serveErr = err
		}
	}()
	log.Debugf("a2a: serving agent %s at %s", name, url)
	return s, nil
}

// routePrefix returns the router path prefix for endpoint, empty for the
// root.
func routePrefix(endpoint string) string {
	return strings.TrimRight(endpoint, "/")
}

// Port returns the bound port.
func (s *ServedAgent) Port() int { return s.port }

// Endpoint returns the configured endpoint.
func (s *ServedAgent) Endpoint() string { return s.endpoint }

// URL returns http://<host>:<port><endpoint>.
func (s *ServedAgent) URL() string { return s.url }

// Release shuts the server down. Only the first call does any work; later
// calls return its result. Cancellation of ctx does not skip the shutdown:
// it gets a fresh deadline derived from ctx's values.
func (s *ServedAgent) Release(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.releaseOnce.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		if s.onRelease != nil {
			s.onRelease()
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		var shutdownErr error
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("a2a: shutdown server at %s: %w", s.url, err)
			_ = s.httpServer.Close()
		}
		<-s.serveDone
		s.releaseErr = errors.Join(shutdownErr, s.serveErr, s.runner.Close())
		log.Debugf("a2a: released agent %s at %s", s.agentName, s.url)
	})
	return s.releaseErr
}

// WithServedAgent serves ag for the duration of fn. The server is released
// exactly once when fn returns, fails, panics or its context is cancelled.
// The returned error joins fn's error with the release error.
func WithServedAgent(
	ctx context.Context,
	ag agent.Agent,
	cfg ServingConfig,
	fn func(ctx context.Context, served *ServedAgent) error,
	opts ...Option,
) (err error) {
	served, err := Serve(ctx, ag, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := served.Release(ctx); releaseErr != nil {
			err = errors.Join(err, releaseErr)
		}
	}()
	return fn(ctx, served)
}
