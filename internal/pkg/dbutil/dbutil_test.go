package dbutil

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestFinalize_RebindsPlaceholders(t *testing.T) {
	query, args := Finalize("SELECT id FROM documents WHERE id=? AND ctime>?", []interface{}{"a", int64(1)})
	require.Equal(t, "SELECT id FROM documents WHERE id=$1 AND ctime>$2", query)
	require.Equal(t, []interface{}{"a", int64(1)}, args)
}

func TestFinalize_RewritesMySQLLimit(t *testing.T) {
	query, args := Finalize("SELECT id FROM documents WHERE state=? LIMIT ?,?", []interface{}{1, 20, 10})
	require.Equal(t, "SELECT id FROM documents WHERE state=$1 LIMIT $2 OFFSET $3", query)
	// gendry emits offset,count; postgres wants count first
	require.Equal(t, []interface{}{1, 10, 20}, args)
}

func TestIsConflict(t *testing.T) {
	require.True(t, IsConflict(&pq.Error{Code: "23505"}))
	require.False(t, IsConflict(&pq.Error{Code: "23503"}))
	require.False(t, IsConflict(nil))
}
