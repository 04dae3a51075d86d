package vectorstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordID(t *testing.T) {
	require.Equal(t, "doc-1_chunk_0", RecordID("doc-1", 0))
	require.Equal(t, "doc-1_chunk_42", RecordID("doc-1", 42))
}

func TestClassify_DeadlineIsTimeout(t *testing.T) {
	err := classify("search", context.DeadlineExceeded)
	require.Equal(t, KindTimeout, err.Kind)
	require.Equal(t, "search", err.Op)
	require.True(t, Retriable(err))
}

func TestClassify_UnknownByDefault(t *testing.T) {
	err := classify("upsert", fmt.Errorf("index rejected payload"))
	require.Equal(t, KindUnknown, err.Kind)
	require.False(t, Retriable(err))
}

func TestKindOf_PlainError(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(fmt.Errorf("plain")))
	require.False(t, Retriable(fmt.Errorf("plain")))
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New("weaviate", nil)
	require.Error(t, err)
	_, err = New("", nil)
	require.Error(t, err)
}
