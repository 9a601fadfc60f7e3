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
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	itelemetry "trpc.group/trpc-go/trpc-agent-arena/internal/telemetry"
	"trpc.group/trpc-go/trpc-agent-arena/log"
	a2aserver "trpc.group/trpc-go/trpc-agent-arena/server/a2a"
)

// ConfigEnv names the environment variable holding an optional config
// file merged over the defaults.
const ConfigEnv = "ARENA_CONFIG"

// Session backends.
const (
	SessionBackendInMemory = "inmemory"
	SessionBackendRedis    = "redis"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is the static configuration of one simulation.
type Config struct {
	AppName           string                  `yaml:"app_name"`
	LogLevel          string                  `yaml:"log_level"`
	StartPrompt       string                  `yaml:"start_prompt"`
	RemoteToolTimeout time.Duration           `yaml:"remote_tool_timeout"`
	Attacker          AgentConfig             `yaml:"attacker"`
	Defender          AgentConfig             `yaml:"defender"`
	Serving           a2aserver.ServingConfig `yaml:"serving"`
	Session           SessionConfig           `yaml:"session"`
	Telemetry         TelemetryConfig         `yaml:"telemetry"`
}

// AgentConfig describes one of the two agents.
type AgentConfig struct {
	ModelID           string  `yaml:"model_id"`
	Name              string  `yaml:"name"`
	Description       string  `yaml:"description"`
	Instructions      string  `yaml:"instructions"`
	Temperature       float64 `yaml:"temperature"`
	ParallelToolCalls bool    `yaml:"parallel_tool_calls"`
	MaxIterations     int     `yaml:"max_iterations"`
}

// SessionConfig selects where conversations are kept.
type SessionConfig struct {
	Backend      string        `yaml:"backend"`
	RedisURL     string        `yaml:"redis_url"`
	TTL          time.Duration `yaml:"ttl"`
	MessageLimit int           `yaml:"message_limit"`
}

// TelemetryConfig controls OTLP export of traces and metrics.
type TelemetryConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Protocol        string `yaml:"protocol"`
	TracesEndpoint  string `yaml:"traces_endpoint"`
	MetricsEndpoint string `yaml:"metrics_endpoint"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parse default config: %w", err)
	}
	return cfg, nil
}

// LoadConfig returns the defaults with the file at path merged over them.
// An empty path returns the defaults. Fields absent from the file keep
// their default values.
func LoadConfig(path string) (*Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	log.Debugf("simulation: loaded config overrides from %s", path)
	return cfg, nil
}

// LoadConfigFromEnv is LoadConfig with the path taken from ARENA_CONFIG.
func LoadConfigFromEnv() (*Config, error) {
	return LoadConfig(strings.TrimSpace(os.Getenv(ConfigEnv)))
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if c.AppName == "" {
		errs = append(errs, errors.New("app_name is empty"))
	}
	if !log.ValidLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	if strings.TrimSpace(c.StartPrompt) == "" {
		errs = append(errs, errors.New("start_prompt is empty"))
	}
	if c.RemoteToolTimeout <= 0 {
		errs = append(errs, fmt.Errorf("remote_tool_timeout must be positive, got %s", c.RemoteToolTimeout))
	}
	errs = append(errs, c.Attacker.validate("attacker")...)
	errs = append(errs, c.Defender.validate("defender")...)
	if c.Attacker.Name != "" && c.Attacker.Name == c.Defender.Name {
		errs = append(errs, fmt.Errorf("attacker and defender share the name %q", c.Attacker.Name))
	}
	if c.Serving.Port < 0 || c.Serving.Port > 65535 {
		errs = append(errs, fmt.Errorf("serving.port %d out of range", c.Serving.Port))
	}
	if c.Serving.Endpoint != "" && !strings.HasPrefix(c.Serving.Endpoint, "/") {
		errs = append(errs, fmt.Errorf("serving.endpoint %q must start with /", c.Serving.Endpoint))
	}
	switch c.Session.Backend {
	case SessionBackendInMemory:
	case SessionBackendRedis:
		if c.Session.RedisURL == "" {
			errs = append(errs, errors.New("session.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session.backend %q", c.Session.Backend))
	}
	if c.Session.TTL < 0 || c.Session.MessageLimit < 0 {
		errs = append(errs, errors.New("session.ttl and session.message_limit must not be negative"))
	}
	if c.Telemetry.Enabled {
		switch c.Telemetry.Protocol {
		case itelemetry.ProtocolGRPC, itelemetry.ProtocolHTTP:
		default:
			errs = append(errs, fmt.Errorf("unknown telemetry.protocol %q", c.Telemetry.Protocol))
		}
	}
	return errors.Join(errs...)
}

func (a AgentConfig) validate(role string) []error {
	var errs []error
	if strings.TrimSpace(a.ModelID) == "" {
		errs = append(errs, fmt.Errorf("%s.model_id is empty", role))
	}
	if a.Name == "" {
		errs = append(errs, fmt.Errorf("%s.name is empty", role))
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		errs = append(errs, fmt.Errorf("%s.temperature %v outside [0, 2]", role, a.Temperature))
	}
	if a.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("%s.max_iterations must not be negative", role))
	}
	return errs
}
