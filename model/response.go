//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package model

import (
	"fmt"
	"time"
)

// Error types carried by ResponseError.
const (
	ErrorTypeAPIError     = "api_error"
	ErrorTypeRequestError = "request_error"
)

// ObjectTypeChatCompletion is the object type of a final response.
const ObjectTypeChatCompletion = "chat.completion"

// Choice is one completion alternative.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason *string `json:"finish_reason,omitempty"`
}

// Usage counts tokens.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates other into u. A nil other is ignored.
func (u *Usage) Add(other *Usage) {
	if other == nil {
		return
	}
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// ResponseError is an in-band failure reported by a model adapter.
type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Error implements error.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("model %s: %s", e.Type, e.Message)
}

// Response is a chat completion result.
type Response struct {
	ID        string         `json:"id,omitempty"`
	Object    string         `json:"object,omitempty"`
	Created   int64          `json:"created,omitempty"`
	Model     string         `json:"model,omitempty"`
	Choices   []Choice       `json:"choices,omitempty"`
	Usage     *Usage         `json:"usage,omitempty"`
	Error     *ResponseError `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Done      bool           `json:"done"`
}

// NewErrorResponse returns a final response carrying err.
func NewErrorResponse(errType string, err error) *Response {
	return &Response{
		Error: &ResponseError{
			Message: err.Error(),
			Type:    errType,
		},
		Timestamp: time.Now(),
		Done:      true,
	}
}

// Message returns the first choice's message, or false when the response
// has no choices.
func (r *Response) Message() (Message, bool) {
	if r == nil || len(r.Choices) == 0 {
		return Message{}, false
	}
	return r.Choices[0].Message, true
}
