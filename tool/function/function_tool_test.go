//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package function_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-agent-arena/tool/function"
)

type shoutInput struct {
	Text  string `json:"text" jsonschema:"text to shout"`
	Times int    `json:"times,omitempty"`
}

type shoutOutput struct {
	Result string `json:"result"`
}

func shout(_ context.Context, in shoutInput) (shoutOutput, error) {
	if in.Text == "" {
		return shoutOutput{}, errors.New("nothing to shout")
	}
	times := in.Times
	if times == 0 {
		times = 1
	}
	return shoutOutput{Result: strings.Repeat(strings.ToUpper(in.Text), times)}, nil
}

func TestFunctionToolCall(t *testing.T) {
	ft := function.NewFunctionTool(shout,
		function.WithName("shout"),
		function.WithDescription("Shouts the text."))

	tests := []struct {
		name    string
		args    string
		want    any
		wantErr string
	}{
		{name: "ok", args: `{"text":"hey","times":2}`, want: shoutOutput{Result: "HEYHEY"}},
		{name: "fn error", args: ``, wantErr: "nothing to shout"},
		{name: "bad json", args: `{"text":`, wantErr: "decode shout arguments"},
		{name: "unknown field tolerated", args: `{"text":"a","loud":true}`, want: shoutOutput{Result: "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ft.Call(context.Background(), []byte(tt.args))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFunctionToolStrict(t *testing.T) {
	ft := function.NewFunctionTool(shout,
		function.WithName("shout"),
		function.WithDescription("Shouts the text."),
		function.WithStrictArguments(true))
	_, err := ft.Call(context.Background(), []byte(`{"text":"a","loud":true}`))
	assert.Error(t, err)
}

func TestFunctionToolDeclaration(t *testing.T) {
	ft := function.NewFunctionTool(shout,
		function.WithName("shout"),
		function.WithDescription("Shouts the text."))
	decl := ft.Declaration()

	assert.Equal(t, "shout", decl.Name)
	assert.Equal(t, "Shouts the text.", decl.Description)
	require.NotNil(t, decl.InputSchema)
	assert.Equal(t, "object", decl.InputSchema.Type)
	require.Contains(t, decl.InputSchema.Properties, "text")
	assert.Equal(t, "text to shout", decl.InputSchema.Properties["text"].Description)
	assert.Contains(t, decl.InputSchema.Required, "text")
	assert.NotContains(t, decl.InputSchema.Required, "times")
	require.NotNil(t, decl.OutputSchema)
	assert.Contains(t, decl.OutputSchema.Properties, "result")
}

func TestFunctionToolCustomSchema(t *testing.T) {
	custom := &jsonschema.Schema{Type: "object", Description: "custom"}
	ft := function.NewFunctionTool(shout,
		function.WithName("shout"),
		function.WithInputSchema(custom))
	assert.Same(t, custom, ft.Declaration().InputSchema)
}
