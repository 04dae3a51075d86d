package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	appErr "github.com/docsage/docsage/internal/pkg/errors"
	"github.com/docsage/docsage/internal/rag"
)

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }

func TestChatValidate_Defaults(t *testing.T) {
	s := &ChatService{}
	params, err := s.validate(&ChatRequest{Message: "hello"})
	require.NoError(t, err)
	require.Equal(t, "hello", params.Message)
	require.Equal(t, rag.DefaultTopK, params.TopK)
	require.Equal(t, rag.DefaultMaxSummaryTokens, params.MaxSummaryTokens)
	require.True(t, params.UseRAG)
	require.True(t, params.CompressPrompt)
}

func TestChatValidate_TrimsMessage(t *testing.T) {
	s := &ChatService{}
	params, err := s.validate(&ChatRequest{Message: "  question  "})
	require.NoError(t, err)
	require.Equal(t, "question", params.Message)
}

func TestChatValidate_ExplicitFalseFlags(t *testing.T) {
	s := &ChatService{}
	params, err := s.validate(&ChatRequest{
		Message:        "q",
		UseRAG:         boolPtr(false),
		CompressPrompt: boolPtr(false),
	})
	require.NoError(t, err)
	require.False(t, params.UseRAG)
	require.False(t, params.CompressPrompt)
}

func TestChatValidate_Rejections(t *testing.T) {
	s := &ChatService{}
	tests := []struct {
		name string
		req  ChatRequest
	}{
		{"empty message", ChatRequest{Message: "   "}},
		{"top_k zero", ChatRequest{Message: "q", TopK: intPtr(0)}},
		{"top_k too small", ChatRequest{Message: "q", TopK: intPtr(-1)}},
		{"top_k too large", ChatRequest{Message: "q", TopK: intPtr(21)}},
		{"summary tokens zero", ChatRequest{Message: "q", MaxSummaryTokens: intPtr(0)}},
		{"summary tokens too small", ChatRequest{Message: "q", MaxSummaryTokens: intPtr(99)}},
		{"summary tokens too large", ChatRequest{Message: "q", MaxSummaryTokens: intPtr(2001)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.validate(&tc.req)
			require.ErrorIs(t, err, appErr.ErrInvalid)
		})
	}
}

func TestChatValidate_BoundaryValuesAccepted(t *testing.T) {
	s := &ChatService{}
	for _, topK := range []int{TopKMin, TopKMax} {
		params, err := s.validate(&ChatRequest{Message: "q", TopK: intPtr(topK)})
		require.NoError(t, err)
		require.Equal(t, topK, params.TopK)
	}
	for _, tokens := range []int{MaxSummaryTokensMin, MaxSummaryTokensMax} {
		params, err := s.validate(&ChatRequest{Message: "q", MaxSummaryTokens: intPtr(tokens)})
		require.NoError(t, err)
		require.Equal(t, tokens, params.MaxSummaryTokens)
	}
}

func TestChatTitle_Truncates(t *testing.T) {
	long := strings.Repeat("0123456789", 10)
	require.Len(t, chatTitle(long), chatTitleLimit)
	require.Equal(t, "short", chatTitle(" short "))
}

func TestChatTitle_MultiByteBoundary(t *testing.T) {
	long := strings.Repeat("日本語のタイトル", 10)
	title := chatTitle(long)
	require.True(t, utf8.ValidString(title))
	require.Equal(t, chatTitleLimit, utf8.RuneCountInString(title))
	require.Equal(t, string([]rune(long)[:chatTitleLimit]), title)
}
