package model

// DocumentInfo is a registry row: the lightweight listing record kept in
// Postgres so "list documents" never has to scan the vector index.
type DocumentInfo struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int    `json:"size_bytes"`
	ChunkCount  int    `json:"chunk_count"`
	Ctime       int64  `json:"ctime"`
}
