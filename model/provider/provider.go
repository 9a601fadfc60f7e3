//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package provider builds model.Model instances from "<provider>/<model>" ids.
package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"google.golang.org/genai"

	"trpc.group/trpc-go/trpc-agent-arena/model"
	"trpc.group/trpc-go/trpc-agent-arena/model/anthropic"
	"trpc.group/trpc-go/trpc-agent-arena/model/gemini"
	"trpc.group/trpc-go/trpc-agent-arena/model/openai"
)

// DefaultModelID is used by both agents unless configured otherwise.
const DefaultModelID = "gemini/gemini-2.0-flash-lite"

var (
	// ErrUnknownProvider is returned for a provider prefix with no registration.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrInvalidModelID is returned for ids not of the form "<provider>/<model>".
	ErrInvalidModelID = errors.New("invalid model id")
)

func init() {
	Register(openai.ProviderName, openaiProvider(openai.VariantOpenAI))
	Register(string(openai.VariantDeepSeek), openaiProvider(openai.VariantDeepSeek))
	Register(string(openai.VariantQwen), openaiProvider(openai.VariantQwen))
	Register(anthropic.ProviderName, anthropicProvider)
	Register(gemini.ProviderName, geminiProvider)
}

// Provider builds a model.Model instance.
type Provider func(ctx context.Context, opts *Options) (model.Model, error)

var (
	providersMu sync.RWMutex
	providers   = make(map[string]Provider)
)

// Register registers a provider by name, replacing any previous one.
func Register(name string, provider Provider) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[name] = provider
}

// Get returns the provider registered under name.
func Get(name string) (Provider, bool) {
	providersMu.RLock()
	defer providersMu.RUnlock()
	provider, ok := providers[name]
	return provider, ok
}

// ParseID splits "gemini/gemini-2.0-flash-lite" into provider and model
// names. The model name may itself contain slashes.
func ParseID(id string) (providerName, modelName string, err error) {
	providerName, modelName, ok := strings.Cut(strings.TrimSpace(id), "/")
	if !ok || providerName == "" || modelName == "" {
		return "", "", fmt.Errorf("%w %q: want <provider>/<model>", ErrInvalidModelID, id)
	}
	return providerName, modelName, nil
}

// Model constructs the model identified by id.
func Model(ctx context.Context, id string, opt ...Option) (model.Model, error) {
	providerName, modelName, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	provider, ok := Get(providerName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerName)
	}
	opts := &Options{ProviderName: providerName, ModelName: modelName}
	for _, o := range opt {
		o(opts)
	}
	m, err := provider(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("build %s model %s: %w", providerName, modelName, err)
	}
	return m, nil
}

func openaiProvider(variant openai.Variant) Provider {
	return func(_ context.Context, opts *Options) (model.Model, error) {
		res := []openai.Option{openai.WithVariant(variant)}
		if opts.APIKey != "" {
			res = append(res, openai.WithAPIKey(opts.APIKey))
		}
		if opts.BaseURL != "" {
			res = append(res, openai.WithBaseURL(opts.BaseURL))
		}
		if opts.HTTPClient != nil {
			res = append(res, openai.WithHTTPClient(opts.HTTPClient))
		}
		if opts.ChannelBufferSize != nil {
			res = append(res, openai.WithChannelBufferSize(*opts.ChannelBufferSize))
		}
		res = append(res, opts.OpenAIOption...)
		return openai.New(opts.ModelName, res...), nil
	}
}

func anthropicProvider(_ context.Context, opts *Options) (model.Model, error) {
	var res []anthropic.Option
	if opts.APIKey != "" {
		res = append(res, anthropic.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		res = append(res, anthropic.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		res = append(res, anthropic.WithHTTPClient(opts.HTTPClient))
	}
	if opts.ChannelBufferSize != nil {
		res = append(res, anthropic.WithChannelBufferSize(*opts.ChannelBufferSize))
	}
	res = append(res, opts.AnthropicOption...)
	return anthropic.New(opts.ModelName, res...), nil
}

func geminiProvider(ctx context.Context, opts *Options) (model.Model, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = geminiAPIKey()
	}
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions.BaseURL = opts.BaseURL
	}
	res := []gemini.Option{gemini.WithGeminiClientConfig(cfg)}
	if opts.ChannelBufferSize != nil {
		res = append(res, gemini.WithChannelBufferSize(*opts.ChannelBufferSize))
	}
	res = append(res, opts.GeminiOption...)
	return gemini.New(ctx, opts.ModelName, res...)
}

func geminiAPIKey() string {
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("GEMINI_API_KEY")
}
