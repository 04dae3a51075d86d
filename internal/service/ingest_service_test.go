package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/internal/ai"
	"github.com/docsage/docsage/internal/model"
	appErr "github.com/docsage/docsage/internal/pkg/errors"
	"github.com/docsage/docsage/internal/rag"
	"github.com/docsage/docsage/internal/vectorstore"
)

// ingestVec derives a deterministic embedding from the chunk text so order
// mixups under the concurrent fan-out are detectable.
func ingestVec(text string) []float32 {
	var sum float32
	for _, r := range text {
		sum += float32(r)
	}
	return []float32{sum, float32(len(text))}
}

type fakeIngestEmbedder struct {
	mu        sync.Mutex
	calls     []string
	taskTypes []string
	failOn    string
}

func (e *fakeIngestEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	e.taskTypes = append(e.taskTypes, taskType)
	e.mu.Unlock()
	if e.failOn != "" && text == e.failOn {
		return nil, fmt.Errorf("embed refused")
	}
	return ingestVec(text), nil
}

func (e *fakeIngestEmbedder) ModelName() string { return "fake-embed" }

type fakeIngestStore struct {
	upserts [][]model.VectorRecord
	deleted []string
}

func (s *fakeIngestStore) Upsert(ctx context.Context, records []model.VectorRecord) error {
	s.upserts = append(s.upserts, records)
	return nil
}

func (s *fakeIngestStore) Search(ctx context.Context, vector []float32, topK int, filter *vectorstore.Filter) ([]model.SearchResult, error) {
	return []model.SearchResult{}, nil
}

func (s *fakeIngestStore) DeleteByDocumentID(ctx context.Context, documentID string) error {
	s.deleted = append(s.deleted, documentID)
	return nil
}

func (s *fakeIngestStore) FetchDocumentChunks(ctx context.Context, documentID string) ([]model.Chunk, error) {
	var chunks []model.Chunk
	for _, batch := range s.upserts {
		for _, rec := range batch {
			if rec.Metadata.DocumentID == documentID {
				chunks = append(chunks, rec.Metadata)
			}
		}
	}
	return chunks, nil
}

func (s *fakeIngestStore) ListDocumentIDs(ctx context.Context) ([]string, error) {
	return nil, nil
}

type fakeIngestRegistry struct {
	created []*model.DocumentInfo
	docs    map[string]*model.DocumentInfo
}

func newFakeIngestRegistry() *fakeIngestRegistry {
	return &fakeIngestRegistry{docs: map[string]*model.DocumentInfo{}}
}

func (r *fakeIngestRegistry) Create(ctx context.Context, doc *model.DocumentInfo) error {
	if _, ok := r.docs[doc.ID]; ok {
		return appErr.ErrConflict
	}
	r.created = append(r.created, doc)
	r.docs[doc.ID] = doc
	return nil
}

func (r *fakeIngestRegistry) Get(ctx context.Context, id string) (*model.DocumentInfo, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return doc, nil
}

func (r *fakeIngestRegistry) List(ctx context.Context) ([]*model.DocumentInfo, error) {
	return r.created, nil
}

func (r *fakeIngestRegistry) Delete(ctx context.Context, id string) error {
	if _, ok := r.docs[id]; !ok {
		return appErr.ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

type fakeIngestFiles struct {
	saved   map[string][]byte
	deleted []string
}

func newFakeIngestFiles() *fakeIngestFiles {
	return &fakeIngestFiles{saved: map[string][]byte{}}
}

func (f *fakeIngestFiles) Save(ctx context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.saved[key] = data
	return nil
}

func (f *fakeIngestFiles) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.saved[key]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (f *fakeIngestFiles) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.saved, key)
	return nil
}

// fifty distinct sixty-char sentences make a 3000-char document where no
// two chunks can come out identical
func ingestDocText() string {
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&sb, "Paragraph %02d grounds the answer in retrieved corpus context.", i)
	}
	return sb.String()
}

func TestIngest_EndToEnd(t *testing.T) {
	text := ingestDocText()
	require.Len(t, text, 3000)

	embedder := &fakeIngestEmbedder{}
	store := &fakeIngestStore{}
	registry := newFakeIngestRegistry()
	files := newFakeIngestFiles()
	svc := NewIngestService(embedder, store, registry, files, 1000, 200, 10<<20, 3)

	doc, err := svc.Ingest(context.Background(), "guide.txt", "text/plain", []byte(text))
	require.NoError(t, err)

	expected := rag.SplitText(text, 1000, 200)
	require.GreaterOrEqual(t, len(expected), 4)
	require.LessOrEqual(t, len(expected), 5)
	for _, chunk := range expected {
		require.LessOrEqual(t, len(chunk), 1000)
	}

	require.Equal(t, len(expected), doc.ChunkCount)
	require.Equal(t, "guide.txt", doc.Filename)
	require.Equal(t, 3000, doc.SizeBytes)

	// one embed call per chunk, all with the document task type
	require.ElementsMatch(t, expected, embedder.calls)
	for _, taskType := range embedder.taskTypes {
		require.Equal(t, ai.TaskTypeDocument, taskType)
	}

	// everything lands in a single upsert, ids and embeddings in chunk order
	require.Len(t, store.upserts, 1)
	records := store.upserts[0]
	require.Len(t, records, len(expected))
	for i, rec := range records {
		require.Equal(t, vectorstore.RecordID(doc.ID, i), rec.ID)
		require.Equal(t, expected[i], rec.Metadata.Text)
		require.Equal(t, ingestVec(expected[i]), rec.Embedding)
		require.Equal(t, i, rec.Metadata.Index)
		require.Equal(t, len(expected), rec.Metadata.TotalChunks)
		require.Equal(t, doc.ID, rec.Metadata.DocumentID)
		require.Equal(t, "guide.txt", rec.Metadata.Filename)
		require.Equal(t, 3000, rec.Metadata.SizeBytes)
	}

	require.Len(t, registry.created, 1)
	require.Equal(t, doc, registry.created[0])
	require.Equal(t, []byte(text), files.saved[doc.ID])
}

func TestIngest_EmbedFailureAborts(t *testing.T) {
	text := ingestDocText()
	expected := rag.SplitText(text, 1000, 200)

	embedder := &fakeIngestEmbedder{failOn: expected[2]}
	store := &fakeIngestStore{}
	registry := newFakeIngestRegistry()
	svc := NewIngestService(embedder, store, registry, newFakeIngestFiles(), 1000, 200, 10<<20, 2)

	_, err := svc.Ingest(context.Background(), "guide.txt", "text/plain", []byte(text))
	require.Error(t, err)
	require.Empty(t, store.upserts)
	require.Empty(t, registry.created)
}

func TestIngest_RejectsOversizedUpload(t *testing.T) {
	svc := NewIngestService(&fakeIngestEmbedder{}, &fakeIngestStore{}, newFakeIngestRegistry(), nil, 1000, 200, 10, 2)
	_, err := svc.Ingest(context.Background(), "big.txt", "text/plain", []byte("0123456789a"))
	require.ErrorIs(t, err, appErr.ErrFileTooLarge)
}

func TestIngestDelete_PurgesEverywhere(t *testing.T) {
	embedder := &fakeIngestEmbedder{}
	store := &fakeIngestStore{}
	registry := newFakeIngestRegistry()
	files := newFakeIngestFiles()
	svc := NewIngestService(embedder, store, registry, files, 1000, 200, 10<<20, 2)

	doc, err := svc.Ingest(context.Background(), "note.txt", "text/plain", []byte("A short note kept around just long enough to be deleted."))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), doc.ID))
	require.Equal(t, []string{doc.ID}, store.deleted)
	require.Equal(t, []string{doc.ID}, files.deleted)
	_, err = registry.Get(context.Background(), doc.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
