package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/internal/model"
)

func newPineconeTestStore(t *testing.T, handler http.HandlerFunc, extra map[string]interface{}) *pineconeStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	args := map[string]interface{}{
		"api_key":    "test-key",
		"index_host": srv.URL,
	}
	for k, v := range extra {
		args[k] = v
	}
	store, err := New("pinecone", args)
	require.NoError(t, err)
	return store.(*pineconeStore)
}

func TestPineconeUpsert_SplitsIntoBatches(t *testing.T) {
	var batchSizes []int
	store := newPineconeTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/vectors/upsert", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("Api-Key"))
		var req pineconeUpsertRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batchSizes = append(batchSizes, len(req.Vectors))
		w.Write([]byte(`{}`))
	}, nil)

	records := make([]model.VectorRecord, 250)
	for i := range records {
		records[i] = model.VectorRecord{
			ID:        RecordID("doc-1", i),
			Embedding: []float32{float32(i)},
			Metadata:  model.Chunk{DocumentID: "doc-1", Index: i},
		}
	}
	require.NoError(t, store.Upsert(context.Background(), records))
	require.Equal(t, []int{100, 100, 50}, batchSizes)
}

func TestPineconeUpsert_StopsOnFailedBatch(t *testing.T) {
	var calls int
	store := newPineconeTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			http.Error(w, "index unavailable", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	}, nil)

	records := make([]model.VectorRecord, 250)
	for i := range records {
		records[i] = model.VectorRecord{ID: RecordID("doc-1", i), Embedding: []float32{1}}
	}
	err := store.Upsert(context.Background(), records)
	require.Error(t, err)
	require.Equal(t, 2, calls)
}

func TestPineconeListDocumentIDs_UsesConfiguredDimension(t *testing.T) {
	var queried pineconeQueryRequest
	store := newPineconeTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/query", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&queried))
		resp := map[string]interface{}{
			"matches": []map[string]interface{}{
				{"id": "doc-a_chunk_0", "metadata": map[string]interface{}{"document_id": "doc-a"}},
				{"id": "doc-a_chunk_1", "metadata": map[string]interface{}{"document_id": "doc-a"}},
				{"id": "doc-b_chunk_0", "metadata": map[string]interface{}{"document_id": "doc-b"}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}, map[string]interface{}{"dimension": 8})

	ids, err := store.ListDocumentIDs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"doc-a", "doc-b"}, ids)
	require.Len(t, queried.Vector, 8)
	require.Equal(t, FetchAllTopK, queried.TopK)
}

func TestPineconeDimension_DefaultsWhenUnset(t *testing.T) {
	store, err := New("pinecone", map[string]interface{}{
		"api_key":    "test-key",
		"index_host": "index.example.com",
	})
	require.NoError(t, err)
	require.Equal(t, DefaultDimension, store.(*pineconeStore).dimension)
}
