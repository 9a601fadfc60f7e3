//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package gemini

import (
	"context"

	"google.golang.org/genai"
)

const defaultChannelBufferSize = 1

// ChatRequestCallbackFunc is called with the contents before they are sent.
type ChatRequestCallbackFunc func(ctx context.Context, contents []*genai.Content)

// ChatResponseCallbackFunc is called with the provider response.
type ChatResponseCallbackFunc func(
	ctx context.Context,
	contents []*genai.Content,
	rsp *genai.GenerateContentResponse,
)

type options struct {
	channelBufferSize    int
	chatRequestCallback  ChatRequestCallbackFunc
	chatResponseCallback ChatResponseCallbackFunc
	geminiClientConfig   *genai.ClientConfig
	client               Client
}

var defaultOptions = options{
	channelBufferSize: defaultChannelBufferSize,
}

// Option configures a Model.
type Option func(*options)

// WithChannelBufferSize sets the response channel buffer size.
func WithChannelBufferSize(size int) Option {
	return func(o *options) {
		if size <= 0 {
			size = defaultChannelBufferSize
		}
		o.channelBufferSize = size
	}
}

// WithChatRequestCallback sets the function called before each request.
func WithChatRequestCallback(fn ChatRequestCallbackFunc) Option {
	return func(o *options) {
		o.chatRequestCallback = fn
	}
}

// WithChatResponseCallback sets the function called after each successful
// response.
func WithChatResponseCallback(fn ChatResponseCallbackFunc) Option {
	return func(o *options) {
		o.chatResponseCallback = fn
	}
}

// WithGeminiClientConfig sets the config used to build the genai client.
// A nil config lets genai read GOOGLE_API_KEY or GEMINI_API_KEY.
func WithGeminiClientConfig(c *genai.ClientConfig) Option {
	return func(o *options) {
		o.geminiClientConfig = c
	}
}

// WithClient replaces the genai client.
func WithClient(c Client) Option {
	return func(o *options) {
		o.client = c
	}
}
