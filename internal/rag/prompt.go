package rag

import (
	"fmt"
	"strings"

	"github.com/docsage/docsage/internal/ai"
	"github.com/docsage/docsage/internal/model"
)

// HistoryWindow bounds prompt growth from conversation history: only the
// most recent turns are injected, oldest of that window first.
const HistoryWindow = 10

const ragSystemPrompt = `You are a helpful assistant that answers questions about the user's uploaded documents.
Ground every answer in the provided context excerpts and cite the source filenames you used.
If the context does not contain enough information to answer, say so plainly instead of guessing.`

const generalSystemPrompt = `You are a helpful assistant.
Answer from your own knowledge. If the user's question sounds like it concerns their uploaded documents, you may suggest they upload or reference a document.`

const ragUserPromptFmt = `Use the context below to answer the question.

CONTEXT:
%s

QUESTION:
%s

Answer based on the context above. If the context is insufficient, say what is missing.`

// BuildContextBlock renders the selected results in their original order,
// one attributed block per chunk.
func BuildContextBlock(results []model.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for i, res := range results {
		blocks = append(blocks, fmt.Sprintf("[Context %d] (Source: %s, Relevance: %.3f)\n%s",
			i+1, res.Metadata.Filename, res.Score, res.Metadata.Text))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

func buildRAGUserPrompt(contextText, question string) string {
	return fmt.Sprintf(ragUserPromptFmt, contextText, question)
}

// buildMessages assembles system instruction, bounded history window and the
// current user turn, in that order.
func buildMessages(system string, history []model.ChatMessage, userPrompt string) []ai.Message {
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.Message{Role: ai.MsgRoleSystem, Content: system})
	for _, turn := range history {
		role := ai.MsgRoleUser
		if turn.Role == model.RoleAssistant {
			role = ai.MsgRoleAssistant
		}
		messages = append(messages, ai.Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, ai.Message{Role: ai.MsgRoleUser, Content: userPrompt})
	return messages
}

// contextItems maps the search results actually used into the caller-facing
// shape. Callers always see the raw source/score attributions, even when
// the prompt carried a compressed rendition of the text.
func contextItems(results []model.SearchResult) []model.ContextItem {
	items := make([]model.ContextItem, 0, len(results))
	for _, res := range results {
		items = append(items, model.ContextItem{
			Text:   res.Metadata.Text,
			Score:  res.Score,
			Source: res.Metadata.Filename,
		})
	}
	return items
}
