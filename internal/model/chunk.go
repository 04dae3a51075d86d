package model

// Chunk is the unit of embedding and retrieval: a bounded substring of a
// document's extracted text plus the metadata carried alongside it in the
// vector index.
type Chunk struct {
	Text        string `json:"text"`
	Index       int    `json:"index"`
	TotalChunks int    `json:"total_chunks"`
	DocumentID  string `json:"document_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int    `json:"size_bytes"`
	UploadedAt  int64  `json:"uploaded_at"`
}

// VectorRecord pairs a chunk with its embedding under a stable id of the
// form "<documentID>_chunk_<index>".
type VectorRecord struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
	Metadata  Chunk     `json:"metadata"`
}

// SearchResult is an ephemeral per-query match. Score is cosine-like
// similarity, higher means more similar.
type SearchResult struct {
	ID       string  `json:"id"`
	Score    float32 `json:"score"`
	Metadata Chunk   `json:"metadata"`
}

// ContextItem is the caller-facing view of one retrieved chunk.
type ContextItem struct {
	Text   string  `json:"text"`
	Score  float32 `json:"score"`
	Source string  `json:"source,omitempty"`
}

// TokenUsage mirrors the completion provider's reported counts. All zeros
// when the provider omits usage.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}
