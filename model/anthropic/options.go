//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package anthropic

import (
	"context"
	"net/http"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultChannelBufferSize = 1
	defaultMaxTokens         = 4096
)

// ChatRequestCallbackFunc is called with the request before it is sent.
type ChatRequestCallbackFunc func(ctx context.Context, chatRequest *anthropic.MessageNewParams)

// ChatResponseCallbackFunc is called with the provider response.
type ChatResponseCallbackFunc func(
	ctx context.Context,
	chatRequest *anthropic.MessageNewParams,
	chatResponse *anthropic.Message,
)

type options struct {
	apiKey                  string
	baseURL                 string
	httpClient              *http.Client
	channelBufferSize       int
	chatRequestCallback     ChatRequestCallbackFunc
	chatResponseCallback    ChatResponseCallbackFunc
	anthropicClientOptions  []option.RequestOption
	anthropicRequestOptions []option.RequestOption
}

var defaultOptions = options{
	channelBufferSize: defaultChannelBufferSize,
}

// Option configures a Model.
type Option func(*options)

// WithAPIKey sets the API key. Without it the client reads ANTHROPIC_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
	}
}

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

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

// WithAnthropicClientOptions appends options applied when the client is
// built.
func WithAnthropicClientOptions(opts ...option.RequestOption) Option {
	return func(o *options) {
		o.anthropicClientOptions = append(o.anthropicClientOptions, opts...)
	}
}

// WithAnthropicRequestOptions appends options applied to every request.
func WithAnthropicRequestOptions(opts ...option.RequestOption) Option {
	return func(o *options) {
		o.anthropicRequestOptions = append(o.anthropicRequestOptions, opts...)
	}
}
