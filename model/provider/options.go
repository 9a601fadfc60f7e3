//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package provider

import (
	"net/http"

	"trpc.group/trpc-go/trpc-agent-arena/model/anthropic"
	"trpc.group/trpc-go/trpc-agent-arena/model/gemini"
	"trpc.group/trpc-go/trpc-agent-arena/model/openai"
)

// Option configures how a model instance is constructed.
type Option func(*Options)

// Options contains resolved settings used when constructing provider-backed models.
type Options struct {
	ProviderName      string             // ProviderName is the part of the id before the slash.
	ModelName         string             // ModelName is the part of the id after the slash.
	APIKey            string             // APIKey overrides the provider's key variable.
	BaseURL           string             // BaseURL overrides the default endpoint when specified.
	HTTPClient        *http.Client       // HTTPClient is used for provider API calls.
	ChannelBufferSize *int               // ChannelBufferSize is the response channel buffer size.
	OpenAIOption      []openai.Option    // OpenAIOption stores additional OpenAI options.
	AnthropicOption   []anthropic.Option // AnthropicOption stores additional Anthropic options.
	GeminiOption      []gemini.Option    // GeminiOption stores additional Gemini options.
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *Options) {
		o.APIKey = key
	}
}

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(o *Options) {
		o.BaseURL = url
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}

// WithChannelBufferSize sets the response channel buffer size.
func WithChannelBufferSize(size int) Option {
	return func(o *Options) {
		o.ChannelBufferSize = &size
	}
}

// WithOpenAIOption appends OpenAI specific options.
func WithOpenAIOption(opts ...openai.Option) Option {
	return func(o *Options) {
		o.OpenAIOption = append(o.OpenAIOption, opts...)
	}
}

// WithAnthropicOption appends Anthropic specific options.
func WithAnthropicOption(opts ...anthropic.Option) Option {
	return func(o *Options) {
		o.AnthropicOption = append(o.AnthropicOption, opts...)
	}
}

// WithGeminiOption appends Gemini specific options.
func WithGeminiOption(opts ...gemini.Option) Option {
	return func(o *Options) {
		o.GeminiOption = append(o.GeminiOption, opts...)
	}
}
