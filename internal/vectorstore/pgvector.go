package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/docsage/docsage/internal/model"
)

// pgvectorStore keeps the index in Postgres. Unlike the remote backend it
// has native listing, so the zero-vector workaround is not needed here.
type pgvectorConfig struct {
	DSN   string `json:"dsn"`
	Table string `json:"table"`
}

type pgvectorStore struct {
	db    *sqlx.DB
	table string
}

func init() {
	Register("pgvector", createPgvectorStore)
}

func createPgvectorStore(args interface{}) (Store, error) {
	cfg := &pgvectorConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("pgvector dsn is required")
	}
	if cfg.Table == "" {
		cfg.Table = "chunk_vectors"
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, classify("open", err)
	}
	return &pgvectorStore{db: db, table: cfg.Table}, nil
}

func (s *pgvectorStore) Upsert(ctx context.Context, records []model.VectorRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, embedding, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata
	`, s.table)
	for start := 0; start < len(records); start += UpsertBatchSize {
		end := start + UpsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		batchCtx, cancel := context.WithTimeout(ctx, UpsertTimeout)
		err := s.upsertBatch(batchCtx, query, records[start:end])
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *pgvectorStore) upsertBatch(ctx context.Context, query string, batch []model.VectorRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify("upsert", err)
	}
	defer tx.Rollback()
	for _, rec := range batch {
		blob, err := json.Marshal(rec.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, rec.ID, rec.Metadata.DocumentID, pgvector.NewVector(rec.Embedding), blob); err != nil {
			return classify("upsert", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return classify("upsert", err)
	}
	return nil
}

func (s *pgvectorStore) Search(ctx context.Context, vector []float32, topK int, filter *Filter) ([]model.SearchResult, error) {
	searchCtx, cancel := context.WithTimeout(ctx, SearchTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT id, metadata, 1 - (embedding <=> $1) AS score
		FROM %s
	`, s.table)
	args := []interface{}{pgvector.NewVector(vector)}
	if filter != nil && filter.DocumentID != "" {
		query += " WHERE document_id = $2"
		args = append(args, filter.DocumentID)
	}
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT %d", topK)

	rows, err := s.db.QueryContext(searchCtx, query, args...)
	if err != nil {
		return nil, classify("search", err)
	}
	defer rows.Close()

	var results []model.SearchResult
	for rows.Next() {
		var id string
		var blob []byte
		var score float32
		if err := rows.Scan(&id, &blob, &score); err != nil {
			return nil, err
		}
		var chunk model.Chunk
		if err := json.Unmarshal(blob, &chunk); err != nil {
			return nil, err
		}
		results = append(results, model.SearchResult{ID: id, Score: score, Metadata: chunk})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("search", err)
	}
	if results == nil {
		results = []model.SearchResult{}
	}
	return results, nil
}

func (s *pgvectorStore) DeleteByDocumentID(ctx context.Context, documentID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", s.table)
	if _, err := s.db.ExecContext(ctx, query, documentID); err != nil {
		return classify("delete", err)
	}
	return nil
}

func (s *pgvectorStore) FetchDocumentChunks(ctx context.Context, documentID string) ([]model.Chunk, error) {
	query := fmt.Sprintf("SELECT metadata FROM %s WHERE document_id = $1 ORDER BY (metadata->>'index')::int", s.table)
	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, classify("fetch_chunks", err)
	}
	defer rows.Close()
	var chunks []model.Chunk
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		var chunk model.Chunk
		if err := json.Unmarshal(blob, &chunk); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (s *pgvectorStore) ListDocumentIDs(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT document_id FROM %s", s.table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classify("list_documents", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
