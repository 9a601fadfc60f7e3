//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package event defines the events agents emit while running.
package event

import (
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-agent-arena/model"
)

// Object types of events that do not come straight from a model.
const (
	ObjectTypeToolResponse = "tool.response"
	ObjectTypeError        = "error"
)

// Event is one step of an agent run. It embeds the model response that
// produced it, or a synthetic one for tool results and errors.
type Event struct {
	*model.Response
	ID           string    `json:"id"`
	InvocationID string    `json:"invocationId"`
	Author       string    `json:"author"`
	Timestamp    time.Time `json:"timestamp"`
}

// Option configures an Event.
type Option func(*Event)

// WithResponse sets the embedded response.
func WithResponse(rsp *model.Response) Option {
	return func(e *Event) {
		e.Response = rsp
	}
}

// New creates an event authored by author for invocationID.
func New(invocationID, author string, opts ...Option) *Event {
	e := &Event{
		Response:     &model.Response{},
		ID:           uuid.NewString(),
		InvocationID: invocationID,
		Author:       author,
		Timestamp:    time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.Response == nil {
		e.Response = &model.Response{}
	}
	return e
}

// NewResponseEvent wraps a model response.
func NewResponseEvent(invocationID, author string, rsp *model.Response) *Event {
	return New(invocationID, author, WithResponse(rsp))
}

// NewErrorEvent creates a final event describing a failure.
func NewErrorEvent(invocationID, author, errType, message string) *Event {
	return New(invocationID, author, WithResponse(&model.Response{
		Object: ObjectTypeError,
		Error: &model.ResponseError{
			Type:    errType,
			Message: message,
		},
		Timestamp: time.Now(),
		Done:      true,
	}))
}

// NewToolResponseEvent carries the tool messages produced for one model
// turn, in call order.
func NewToolResponseEvent(invocationID, author string, messages []model.Message) *Event {
	choices := make([]model.Choice, len(messages))
	for i, msg := range messages {
		choices[i] = model.Choice{Index: i, Message: msg}
	}
	return New(invocationID, author, WithResponse(&model.Response{
		Object:    ObjectTypeToolResponse,
		Choices:   choices,
		Timestamp: time.Now(),
	}))
}

// IsError reports whether the event carries an error.
func (e *Event) IsError() bool {
	return e != nil && e.Response != nil && e.Response.Error != nil
}
