//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package llmagent

import (
	"trpc.group/trpc-go/trpc-agent-arena/model"
	"trpc.group/trpc-go/trpc-agent-arena/tool"
)

const (
	defaultChannelBufferSize = 256
	// DefaultMaxIterations bounds the model calls of one run.
	DefaultMaxIterations = 10
	// DefaultToolPoolSize bounds the tool calls run at once.
	DefaultToolPoolSize = 8
)

// Option configures an LLMAgent.
type Option func(*Options)

// Options holds the agent configuration.
type Options struct {
	Model             model.Model
	Description       string
	Instruction       string
	GenerationConfig  model.GenerationConfig
	Tools             []tool.Tool
	MaxIterations     int
	ToolPoolSize      int
	ChannelBufferSize int
}

var defaultOptions = Options{
	MaxIterations:     DefaultMaxIterations,
	ToolPoolSize:      DefaultToolPoolSize,
	ChannelBufferSize: defaultChannelBufferSize,
}

// WithModel sets the model the agent talks to.
func WithModel(m model.Model) Option {
	return func(o *Options) {
		o.Model = m
	}
}

// WithDescription sets the description published for the agent.
func WithDescription(description string) Option {
	return func(o *Options) {
		o.Description = description
	}
}

// WithInstruction sets the system instruction.
func WithInstruction(instruction string) Option {
	return func(o *Options) {
		o.Instruction = instruction
	}
}

// WithGenerationConfig sets sampling parameters. ParallelToolCalls also
// decides whether tool calls of one turn run concurrently.
func WithGenerationConfig(config model.GenerationConfig) Option {
	return func(o *Options) {
		o.GenerationConfig = config
	}
}

// WithTools sets the tools. Tools sharing a name after the first are
// dropped with a warning.
func WithTools(tools []tool.Tool) Option {
	return func(o *Options) {
		o.Tools = tools
	}
}

// WithMaxIterations bounds the model calls of one run. Values below one
// keep the default.
func WithMaxIterations(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxIterations = n
		}
	}
}

// WithToolPoolSize bounds the tool calls run at once.
func WithToolPoolSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.ToolPoolSize = n
		}
	}
}

// WithChannelBufferSize sets the event channel buffer size.
func WithChannelBufferSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.ChannelBufferSize = n
		}
	}
}
