//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package tool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trpc.group/trpc-go/trpc-agent-arena/tool"
)

type namedTool struct {
	name string
	tag  int
}

func (n *namedTool) Declaration() *tool.Declaration {
	return &tool.Declaration{Name: n.name}
}

func TestIndex(t *testing.T) {
	first := &namedTool{name: "call_defender_agent", tag: 1}
	second := &namedTool{name: "call_defender_agent", tag: 2}
	check := &namedTool{name: "was_attack_successful"}

	byName, dropped := tool.Index([]tool.Tool{first, check, nil, second})

	assert.Len(t, byName, 2)
	assert.Same(t, first, byName["call_defender_agent"])
	assert.Same(t, check, byName["was_attack_successful"])
	assert.Equal(t, []string{"call_defender_agent"}, dropped)
}

func TestIndexEmpty(t *testing.T) {
	byName, dropped := tool.Index(nil)
	assert.Empty(t, byName)
	assert.Nil(t, dropped)
}

func TestDeclarationsSorted(t *testing.T) {
	byName, _ := tool.Index([]tool.Tool{
		&namedTool{name: "was_attack_successful"},
		&namedTool{name: "call_defender_agent"},
	})
	decls := tool.Declarations(byName)
	if assert.Len(t, decls, 2) {
		assert.Equal(t, "call_defender_agent", decls[0].Name)
		assert.Equal(t, "was_attack_successful", decls[1].Name)
	}
	assert.Empty(t, tool.Declarations(nil))
}
