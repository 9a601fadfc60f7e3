//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package a2a provides a tool that forwards a query to a remote agent over
// the A2A protocol.
package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"trpc.group/trpc-go/trpc-a2a-go/client"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"

	"trpc.group/trpc-go/trpc-agent-arena/log"
	"trpc.group/trpc-go/trpc-agent-arena/tool"
)

const (
	// DefaultTimeout bounds one remote call.
	DefaultTimeout = 30 * time.Second

	defaultUserIDHeader = "X-User-ID"
	toolNamePrefix      = "call_"
)

var _ tool.CallableTool = (*Tool)(nil)

var outputSchema = &jsonschema.Schema{
	Type:        "string",
	Description: "The text reply of the remote agent",
}

// Input is the argument of the tool.
type Input struct {
	Query string `json:"query" jsonschema:"The message to send to the remote agent"`
}

// Tool calls a remote A2A agent. Calls share one A2A context id unless
// WithNewContextPerCall is set, so the remote agent sees one conversation.
type Tool struct {
	name              string
	description       string
	url               string
	client            *client.A2AClient
	timeout           time.Duration
	contextID         string
	newContextPerCall bool
	userID            string
	userIDHeader      string
	inputSchema       *jsonschema.Schema
}

type options struct {
	name              string
	description       string
	timeout           time.Duration
	httpClient        *http.Client
	contextID         string
	newContextPerCall bool
	userID            string
	userIDHeader      string
}

// Option configures the tool.
type Option func(*options)

// WithName overrides the tool name derived from the agent card.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithDescription overrides the description taken from the agent card.
func WithDescription(description string) Option {
	return func(o *options) {
		o.description = description
	}
}

// WithTimeout bounds each remote call, DefaultTimeout if unset.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithHTTPClient sets the HTTP client used for the card fetch and calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithContextID fixes the A2A context id shared by all calls.
func WithContextID(contextID string) Option {
	return func(o *options) {
		o.contextID = contextID
	}
}

// WithNewContextPerCall starts a new remote conversation on every call.
func WithNewContextPerCall(enabled bool) Option {
	return func(o *options) {
		o.newContextPerCall = enabled
	}
}

// WithUserID sets the user id sent in the user id header.
func WithUserID(userID string) Option {
	return func(o *options) {
		o.userID = userID
	}
}

// WithUserIDHeader sets the header name carrying the user id.
func WithUserIDHeader(header string) Option {
	return func(o *options) {
		if header != "" {
			o.userIDHeader = header
		}
	}
}

// New fetches the agent card at url and returns a tool named
// call_<card name>.
func New(ctx context.Context, url string, opts ...Option) (*Tool, error) {
	o := &options{timeout: DefaultTimeout, userIDHeader: defaultUserIDHeader}
	for _, opt := range opts {
		opt(o)
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("a2a tool: url is empty")
	}
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.timeout}
	}
	c, err := client.NewA2AClient(url, client.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("a2a tool: create client for %s: %w", url, err)
	}

	name, description := o.name, o.description
	if name == "" || description == "" {
		cardCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()
		card, err := c.GetAgentCard(cardCtx, "")
		if err != nil {
			return nil, fmt.Errorf("a2a tool: fetch agent card from %s: %w", url, err)
		}
		if name == "" {
			name = toolNamePrefix + sanitizeName(card.Name)
		}
		if description == "" {
			description = card.Description
		}
	}

	contextID := o.contextID
	if contextID == "" {
		contextID = uuid.NewString()
	}
	inputSchema, err := jsonschema.For[Input](nil)
	if err != nil {
		return nil, fmt.Errorf("a2a tool: input schema: %w", err)
	}
	return &Tool{
		name:              name,
		description:       description,
		url:               url,
		client:            c,
		timeout:           o.timeout,
		contextID:         contextID,
		newContextPerCall: o.newContextPerCall,
		userID:            o.userID,
		userIDHeader:      o.userIDHeader,
		inputSchema:       inputSchema,
	}, nil
}

// sanitizeName maps name onto [a-zA-Z0-9_-].
func sanitizeName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(name))
	if mapped == "" {
		return "agent"
	}
	return mapped
}

// Declaration implements tool.Tool.
func (t *Tool) Declaration() *tool.Declaration {
	return &tool.Declaration{
		Name:         t.name,
		Description:  t.description,
		InputSchema:  t.inputSchema,
		OutputSchema: outputSchema,
	}
}

// URL returns the remote agent URL.
func (t *Tool) URL() string { return t.url }

// ContextID returns the A2A context id shared by calls.
func (t *Tool) ContextID() string { return t.contextID }

// Call implements tool.CallableTool. It returns the reply text.
func (t *Tool) Call(ctx context.Context, jsonArgs []byte) (any, error) {
	var in Input
	if err := json.Unmarshal(jsonArgs, &in); err != nil {
		return nil, fmt.Errorf("decode %s arguments: %w", t.name, err)
	}
	if strings.TrimSpace(in.Query) == "" {
		return nil, errors.New("query is required")
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	contextID := t.contextID
	if t.newContextPerCall {
		contextID = uuid.NewString()
	}
	msg := protocol.NewMessage(protocol.MessageRoleUser, []protocol.Part{protocol.NewTextPart(in.Query)})
	msg.ContextID = &contextID

	var requestOpts []client.RequestOption
	if t.userID != "" {
		requestOpts = append(requestOpts, client.WithRequestHeader(t.userIDHeader, t.userID))
	}
	rsp, err := t.client.SendMessage(ctx, protocol.SendMessageParams{Message: msg}, requestOpts...)
	if err != nil {
		return nil, fmt.Errorf("A2A request to %s failed: %w", t.url, err)
	}
	text := resultText(rsp)
	log.Debugf("a2a tool %s: context %s replied %q", t.name, contextID, text)
	return text, nil
}

// resultText extracts the reply text from a message or task result.
func resultText(rsp *protocol.MessageResult) string {
	if rsp == nil || rsp.Result == nil {
		return ""
	}
	switch v := rsp.Result.(type) {
	case *protocol.Message:
		return partsText(v.Parts)
	case *protocol.Task:
		var texts []string
		for _, artifact := range v.Artifacts {
			if text := partsText(artifact.Parts); text != "" {
				texts = append(texts, text)
			}
		}
		if len(texts) == 0 && v.Status.Message != nil {
			return partsText(v.Status.Message.Parts)
		}
		return strings.Join(texts, "\n")
	default:
		log.Warnf("a2a tool: unexpected result type %T", rsp.Result)
		return ""
	}
}

func partsText(parts []protocol.Part) string {
	var sb strings.Builder
	for _, part := range parts {
		switch p := part.(type) {
		case *protocol.TextPart:
			sb.WriteString(p.Text)
		case protocol.TextPart:
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}
