package rag

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/internal/ai"
	"github.com/docsage/docsage/internal/model"
)

func TestBuildContextBlock_Format(t *testing.T) {
	results := []model.SearchResult{
		{Score: 0.912, Metadata: model.Chunk{Text: "first chunk", Filename: "a.txt"}},
		{Score: 0.654, Metadata: model.Chunk{Text: "second chunk", Filename: "b.md"}},
	}
	block := BuildContextBlock(results)
	require.Equal(t,
		"[Context 1] (Source: a.txt, Relevance: 0.912)\nfirst chunk"+
			"\n\n---\n\n"+
			"[Context 2] (Source: b.md, Relevance: 0.654)\nsecond chunk",
		block)
}

func TestBuildMessages_HistoryWindow(t *testing.T) {
	var history []model.ChatMessage
	for i := 0; i < 25; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		history = append(history, model.ChatMessage{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}
	messages := buildMessages("system prompt", history, "current question")

	require.Len(t, messages, HistoryWindow+2)
	require.Equal(t, ai.MsgRoleSystem, messages[0].Role)
	require.Equal(t, "system prompt", messages[0].Content)
	// only the most recent turns survive
	require.Equal(t, "turn 15", messages[1].Content)
	require.Equal(t, ai.MsgRoleAssistant, messages[1].Role)
	require.Equal(t, "current question", messages[len(messages)-1].Content)
	require.Equal(t, ai.MsgRoleUser, messages[len(messages)-1].Role)
}

func TestBuildMessages_ShortHistoryKeptWhole(t *testing.T) {
	history := []model.ChatMessage{
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
	}
	messages := buildMessages("sys", history, "next")
	require.Len(t, messages, 4)
	require.Equal(t, "hi", messages[1].Content)
	require.Equal(t, "hello", messages[2].Content)
}

func TestContextItems_MapsAttribution(t *testing.T) {
	items := contextItems([]model.SearchResult{
		{Score: 0.7, Metadata: model.Chunk{Text: "body", Filename: "f.txt"}},
	})
	require.Len(t, items, 1)
	require.Equal(t, "body", items[0].Text)
	require.Equal(t, float32(0.7), items[0].Score)
	require.Equal(t, "f.txt", items[0].Source)
}
