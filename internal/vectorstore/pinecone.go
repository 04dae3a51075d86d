package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/docsage/docsage/internal/model"
)

// pineconeStore talks to a pinecone serverless index over its REST API.
// The raw HTTP client mirrors how the rest of the codebase wraps remote
// providers; no SDK.
type pineconeConfig struct {
	APIKey    string `json:"api_key"`
	IndexHost string `json:"index_host"`
	Namespace string `json:"namespace"`
	Dimension int    `json:"dimension"`
}

type pineconeStore struct {
	apiKey    string
	indexHost string
	namespace string
	dimension int
	client    *http.Client
}

func init() {
	Register("pinecone", createPineconeStore)
}

func createPineconeStore(args interface{}) (Store, error) {
	cfg := &pineconeConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.APIKey == "" || cfg.IndexHost == "" {
		return nil, fmt.Errorf("pinecone api_key and index_host are required")
	}
	host := cfg.IndexHost
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	return &pineconeStore{
		apiKey:    cfg.APIKey,
		indexHost: strings.TrimRight(host, "/"),
		namespace: cfg.Namespace,
		dimension: cfg.Dimension,
		client:    &http.Client{},
	}, nil
}

type pineconeVector struct {
	ID       string                 `json:"id"`
	Values   []float32              `json:"values"`
	Metadata map[string]interface{} `json:"metadata"`
}

type pineconeUpsertRequest struct {
	Vectors   []pineconeVector `json:"vectors"`
	Namespace string           `json:"namespace,omitempty"`
}

type pineconeQueryRequest struct {
	Vector          []float32              `json:"vector"`
	TopK            int                    `json:"topK"`
	Filter          map[string]interface{} `json:"filter,omitempty"`
	IncludeMetadata bool                   `json:"includeMetadata"`
	Namespace       string                 `json:"namespace,omitempty"`
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string                 `json:"id"`
		Score    float32                `json:"score"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"matches"`
}

type pineconeDeleteRequest struct {
	Filter    map[string]interface{} `json:"filter,omitempty"`
	Namespace string                 `json:"namespace,omitempty"`
}

func (s *pineconeStore) post(ctx context.Context, op, path string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.indexHost+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Api-Key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return classify(op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return &StoreError{
			Kind: KindUnknown,
			Op:   op,
			Err:  fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *pineconeStore) Upsert(ctx context.Context, records []model.VectorRecord) error {
	for start := 0; start < len(records); start += UpsertBatchSize {
		end := start + UpsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		vectors := make([]pineconeVector, 0, end-start)
		for _, rec := range records[start:end] {
			vectors = append(vectors, pineconeVector{
				ID:       rec.ID,
				Values:   rec.Embedding,
				Metadata: metadataFromChunk(rec.Metadata),
			})
		}
		batchCtx, cancel := context.WithTimeout(ctx, UpsertTimeout)
		err := s.post(batchCtx, "upsert", "/vectors/upsert", pineconeUpsertRequest{
			Vectors:   vectors,
			Namespace: s.namespace,
		}, nil)
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *pineconeStore) Search(ctx context.Context, vector []float32, topK int, filter *Filter) ([]model.SearchResult, error) {
	queryCtx, cancel := context.WithTimeout(ctx, SearchTimeout)
	defer cancel()
	req := pineconeQueryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
		Namespace:       s.namespace,
	}
	if filter != nil && filter.DocumentID != "" {
		req.Filter = map[string]interface{}{
			"document_id": map[string]interface{}{"$eq": filter.DocumentID},
		}
	}
	var out pineconeQueryResponse
	if err := s.post(queryCtx, "search", "/query", req, &out); err != nil {
		return nil, err
	}
	results := make([]model.SearchResult, 0, len(out.Matches))
	for _, match := range out.Matches {
		results = append(results, model.SearchResult{
			ID:       match.ID,
			Score:    match.Score,
			Metadata: chunkFromMetadata(match.Metadata),
		})
	}
	return results, nil
}

func (s *pineconeStore) DeleteByDocumentID(ctx context.Context, documentID string) error {
	deleteCtx, cancel := context.WithTimeout(ctx, UpsertTimeout)
	defer cancel()
	return s.post(deleteCtx, "delete", "/vectors/delete", pineconeDeleteRequest{
		Filter: map[string]interface{}{
			"document_id": map[string]interface{}{"$eq": documentID},
		},
		Namespace: s.namespace,
	}, nil)
}

// FetchDocumentChunks approximates "fetch all" with a zero-vector query at a
// large topK, since the provider has no listing primitive. Documents larger
// than the provider's per-query result cap come back truncated.
func (s *pineconeStore) FetchDocumentChunks(ctx context.Context, documentID string) ([]model.Chunk, error) {
	results, err := s.Search(ctx, zeroVector(s.dimension), FetchAllTopK, &Filter{DocumentID: documentID})
	if err != nil {
		return nil, err
	}
	chunks := make([]model.Chunk, 0, len(results))
	for _, res := range results {
		chunks = append(chunks, res.Metadata)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// ListDocumentIDs shares the zero-vector workaround and the same truncation
// caveat.
func (s *pineconeStore) ListDocumentIDs(ctx context.Context) ([]string, error) {
	results, err := s.Search(ctx, zeroVector(s.dimension), FetchAllTopK, nil)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, res := range results {
		id := res.Metadata.DocumentID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// DefaultDimension matches the reference embedding model output width; the
// "dimension" config key overrides it for indexes built with another model.
const DefaultDimension = 1536

func zeroVector(dim int) []float32 {
	return make([]float32, dim)
}

func metadataFromChunk(chunk model.Chunk) map[string]interface{} {
	return map[string]interface{}{
		"text":         chunk.Text,
		"index":        chunk.Index,
		"total_chunks": chunk.TotalChunks,
		"document_id":  chunk.DocumentID,
		"filename":     chunk.Filename,
		"content_type": chunk.ContentType,
		"size_bytes":   chunk.SizeBytes,
		"uploaded_at":  chunk.UploadedAt,
	}
}

func chunkFromMetadata(metadata map[string]interface{}) model.Chunk {
	chunk := model.Chunk{}
	if v, ok := metadata["text"].(string); ok {
		chunk.Text = v
	}
	if v, ok := metadata["document_id"].(string); ok {
		chunk.DocumentID = v
	}
	if v, ok := metadata["filename"].(string); ok {
		chunk.Filename = v
	}
	if v, ok := metadata["content_type"].(string); ok {
		chunk.ContentType = v
	}
	chunk.Index = intFromMetadata(metadata["index"])
	chunk.TotalChunks = intFromMetadata(metadata["total_chunks"])
	chunk.SizeBytes = intFromMetadata(metadata["size_bytes"])
	chunk.UploadedAt = int64(intFromMetadata(metadata["uploaded_at"]))
	return chunk
}

// JSON numbers decode as float64; stored ints may also round-trip as strings
// on some providers.
func intFromMetadata(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}
