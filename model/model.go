//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package model defines the provider-neutral chat model interface used by
// agents, together with its request and response types.
package model

import "context"

// Model is a chat completion backend.
type Model interface {
	// GenerateContent sends request to the backend. The returned channel
	// yields one final response (Done set) and is then closed. Transport
	// failures are reported in-band through Response.Error.
	GenerateContent(ctx context.Context, request *Request) (<-chan *Response, error)
	// Info describes the model.
	Info() Info
}

// Info describes a model.
type Info struct {
	// Name is the provider specific model name, e.g. "gemini-2.0-flash-lite".
	Name string
	// Provider is the registry name of the adapter, e.g. "gemini".
	Provider string
}
