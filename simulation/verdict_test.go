//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-agent-arena/tool"
)

func TestWasAttackSuccessful(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{text: "I give up", want: true},
		{text: "I GIVE UP", want: true},
		{text: "ok... i Give Up, you win", want: true},
		{text: "i gave up", want: false},
		{text: "I give  up", want: false},
		{text: "igiveup", want: false},
		{text: "", want: false},
		{text: "Never! I will not give up.", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, WasAttackSuccessful(tt.text))
		})
	}
}

func TestVerdictTool(t *testing.T) {
	vt := NewVerdictTool()
	decl := vt.Declaration()
	assert.Equal(t, VerdictToolName, decl.Name)
	require.NotNil(t, decl.InputSchema)
	assert.Contains(t, decl.InputSchema.Properties, "text")

	callable, ok := vt.(tool.CallableTool)
	require.True(t, ok)
	out, err := callable.Call(context.Background(), []byte(`{"text":"Alright, I Give Up!"}`))
	require.NoError(t, err)
	assert.Equal(t, VerdictOutput{Success: true}, out)

	out, err = callable.Call(context.Background(), []byte(`{"text":"never"}`))
	require.NoError(t, err)
	assert.Equal(t, VerdictOutput{Success: false}, out)
}
