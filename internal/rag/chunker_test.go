package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitText_ShortTextSingleChunk(t *testing.T) {
	chunks := SplitText("short text", 1000, 200)
	require.Equal(t, []string{"short text"}, chunks)
}

func TestSplitText_CoversWholeText(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 300; i++ {
		sb.WriteString("sentence number goes here. ")
	}
	text := sb.String()
	chunks := SplitText(text, 1000, 200)
	require.Greater(t, len(chunks), 1)

	// every chunk must be findable in the source, in order
	pos := 0
	for _, chunk := range chunks {
		idx := strings.Index(text[pos:], chunk)
		require.GreaterOrEqual(t, idx, 0, "chunk not found in source: %q", chunk)
		pos += idx
	}
	// the last chunk must reach the end of the text
	last := chunks[len(chunks)-1]
	require.True(t, strings.HasSuffix(strings.TrimSpace(text), last))
}

func TestSplitText_PrefersSentenceBoundary(t *testing.T) {
	text := strings.Repeat("a", 800) + ". " + strings.Repeat("b", 800)
	chunks := SplitText(text, 1000, 0)
	require.True(t, strings.HasSuffix(chunks[0], "."))
}

func TestSplitText_RejectsTinyBreak(t *testing.T) {
	// the only break point sits in the first half of the window, so the
	// hard cutoff must win over it
	text := strings.Repeat("a", 100) + " " + strings.Repeat("b", 2000)
	chunks := SplitText(text, 1000, 0)
	require.Equal(t, 1000, len(chunks[0]))
}

func TestSplitText_OverlapRepeatsText(t *testing.T) {
	text := strings.Repeat("x", 3000)
	chunks := SplitText(text, 1000, 200)
	require.GreaterOrEqual(t, len(chunks), 3)
	for i := 1; i < len(chunks); i++ {
		prevTail := chunks[i-1][len(chunks[i-1])-100:]
		require.Contains(t, chunks[i], prevTail[:50])
	}
}

func TestSplitText_TerminatesWithHugeOverlap(t *testing.T) {
	text := strings.Repeat("y", 500)
	chunks := SplitText(text, 100, 100)
	require.NotEmpty(t, chunks)
	require.Less(t, len(chunks), 600)
}

func TestSplitText_DefaultsOnInvalidSizes(t *testing.T) {
	text := strings.Repeat("z", 1500)
	chunks := SplitText(text, 0, -5)
	require.NotEmpty(t, chunks)
}
