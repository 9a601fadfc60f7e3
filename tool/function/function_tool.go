//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package function wraps typed Go functions as callable tools.
package function

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"trpc.group/trpc-go/trpc-agent-arena/log"
	"trpc.group/trpc-go/trpc-agent-arena/tool"
)

var _ tool.CallableTool = (*FunctionTool[struct{}, struct{}])(nil)

// FunctionTool calls fn with arguments decoded from the model's JSON.
// The input and output schemas are derived from I and O.
type FunctionTool[I, O any] struct {
	name         string
	description  string
	inputSchema  *jsonschema.Schema
	outputSchema *jsonschema.Schema
	fn           func(context.Context, I) (O, error)
	strict       bool
}

// Option configures a FunctionTool.
type Option func(*functionToolOptions)

type functionToolOptions struct {
	name         string
	description  string
	inputSchema  *jsonschema.Schema
	outputSchema *jsonschema.Schema
	strict       bool
}

// WithName sets the tool name. Use only ^[a-zA-Z0-9_-]+ so every provider
// accepts it.
func WithName(name string) Option {
	return func(opts *functionToolOptions) {
		opts.name = name
	}
}

// WithDescription sets the tool description shown to the model.
func WithDescription(description string) Option {
	return func(opts *functionToolOptions) {
		opts.description = description
	}
}

// WithInputSchema replaces the schema derived from I.
func WithInputSchema(schema *jsonschema.Schema) Option {
	return func(opts *functionToolOptions) {
		opts.inputSchema = schema
	}
}

// WithOutputSchema replaces the schema derived from O.
func WithOutputSchema(schema *jsonschema.Schema) Option {
	return func(opts *functionToolOptions) {
		opts.outputSchema = schema
	}
}

// WithStrictArguments rejects arguments carrying fields I does not declare.
func WithStrictArguments(strict bool) Option {
	return func(opts *functionToolOptions) {
		opts.strict = strict
	}
}

// NewFunctionTool wraps fn as a tool.
func NewFunctionTool[I, O any](fn func(context.Context, I) (O, error), opts ...Option) *FunctionTool[I, O] {
	options := &functionToolOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.name == "" {
		log.Warnf("FunctionTool: name is empty")
	}
	if options.description == "" {
		log.Warnf("FunctionTool %s: description is empty", options.name)
	}
	if options.inputSchema == nil {
		options.inputSchema = schemaFor[I](options.name, "input")
	}
	if options.outputSchema == nil {
		options.outputSchema = schemaFor[O](options.name, "output")
	}
	return &FunctionTool[I, O]{
		name:         options.name,
		description:  options.description,
		inputSchema:  options.inputSchema,
		outputSchema: options.outputSchema,
		fn:           fn,
		strict:       options.strict,
	}
}

// schemaFor derives the JSON schema of T, falling back to a bare object
// when T cannot be described.
func schemaFor[T any](name, which string) *jsonschema.Schema {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		log.Warnf("FunctionTool %s: derive %s schema: %v", name, which, err)
		return &jsonschema.Schema{Type: "object"}
	}
	return schema
}

// Call decodes jsonArgs into I and runs the wrapped function. Empty
// arguments decode as an empty object.
func (ft *FunctionTool[I, O]) Call(ctx context.Context, jsonArgs []byte) (any, error) {
	var input I
	if len(bytes.TrimSpace(jsonArgs)) == 0 {
		jsonArgs = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(jsonArgs))
	if ft.strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&input); err != nil {
		return nil, fmt.Errorf("decode %s arguments: %w", ft.name, err)
	}
	return ft.fn(ctx, input)
}

// Declaration implements tool.Tool.
func (ft *FunctionTool[I, O]) Declaration() *tool.Declaration {
	return &tool.Declaration{
		Name:         ft.name,
		Description:  ft.description,
		InputSchema:  ft.inputSchema,
		OutputSchema: ft.outputSchema,
	}
}
