//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package tool defines the tool interfaces agents hand to models.
package tool

import (
	"context"
	"maps"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"
)

// Declaration describes a tool to the model.
type Declaration struct {
	// Name must match ^[a-zA-Z0-9_-]+$ for the widest provider support.
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	InputSchema  *jsonschema.Schema `json:"inputSchema,omitempty"`
	OutputSchema *jsonschema.Schema `json:"outputSchema,omitempty"`
}

// Tool is anything that can be declared to a model.
type Tool interface {
	Declaration() *Declaration
}

// CallableTool is a tool the agent can execute locally.
type CallableTool interface {
	Tool
	// Call runs the tool with the JSON encoded arguments produced by the
	// model and returns a JSON-marshalable result.
	Call(ctx context.Context, jsonArgs []byte) (any, error)
}

// Index keys tools by declared name, keeping the first tool of each name.
// The names of dropped duplicates are returned in order of appearance.
func Index(tools []Tool) (map[string]Tool, []string) {
	byName := make(map[string]Tool, len(tools))
	var dropped []string
	for _, t := range tools {
		if t == nil {
			continue
		}
		name := t.Declaration().Name
		if _, ok := byName[name]; ok {
			dropped = append(dropped, name)
			continue
		}
		byName[name] = t
	}
	return byName, dropped
}

// Declarations returns the declarations of tools sorted by name, so that
// requests built from the same tools are identical.
func Declarations(tools map[string]Tool) []*Declaration {
	decls := make([]*Declaration, 0, len(tools))
	for _, name := range slices.Sorted(maps.Keys(tools)) {
		decls = append(decls, tools[name].Declaration())
	}
	return decls
}
