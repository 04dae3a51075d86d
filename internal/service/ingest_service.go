package service

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/ai"
	"github.com/docsage/docsage/internal/extract"
	"github.com/docsage/docsage/internal/filestore"
	"github.com/docsage/docsage/internal/model"
	appErr "github.com/docsage/docsage/internal/pkg/errors"
	"github.com/docsage/docsage/internal/rag"
	"github.com/docsage/docsage/internal/vectorstore"
)

const DefaultIngestWorkers = 4

// DocumentRegistry is the slice of the registry store the ingest pipeline
// depends on; *repo.RegistryRepo is the production implementation.
type DocumentRegistry interface {
	Create(ctx context.Context, doc *model.DocumentInfo) error
	Get(ctx context.Context, id string) (*model.DocumentInfo, error)
	List(ctx context.Context) ([]*model.DocumentInfo, error)
	Delete(ctx context.Context, id string) error
}

// IngestService owns the upload pipeline: extract text, chunk it, embed
// every chunk, push vectors to the index, then record the document in the
// registry and archive the original payload.
type IngestService struct {
	embedder       ai.IEmbedder
	store          vectorstore.Store
	registry       DocumentRegistry
	files          filestore.Store
	chunkSize      int
	overlap        int
	maxUploadBytes int64
	workers        int
}

func NewIngestService(embedder ai.IEmbedder, store vectorstore.Store, registry DocumentRegistry, files filestore.Store,
	chunkSize, overlap int, maxUploadBytes int64, workers int) *IngestService {
	if workers <= 0 {
		workers = DefaultIngestWorkers
	}
	return &IngestService{
		embedder:       embedder,
		store:          store,
		registry:       registry,
		files:          files,
		chunkSize:      chunkSize,
		overlap:        overlap,
		maxUploadBytes: maxUploadBytes,
		workers:        workers,
	}
}

func (s *IngestService) Ingest(ctx context.Context, filename, contentType string, data []byte) (*model.DocumentInfo, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("filename", filename), zap.String("content_type", contentType))
	if s.maxUploadBytes > 0 && int64(len(data)) > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", appErr.ErrFileTooLarge, len(data), s.maxUploadBytes)
	}
	extractor, err := extract.ForContentType(contentType)
	if err != nil {
		return nil, err
	}
	text, err := extractor.Extract(data)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%w: document contains no extractable text", appErr.ErrInvalid)
	}

	chunks := rag.SplitText(text, s.chunkSize, s.overlap)
	docID := uuid.NewString()
	now := time.Now().Unix()

	embeddings, err := s.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}
	records := make([]model.VectorRecord, 0, len(chunks))
	for i, chunk := range chunks {
		records = append(records, model.VectorRecord{
			ID:        vectorstore.RecordID(docID, i),
			Embedding: embeddings[i],
			Metadata: model.Chunk{
				Text:        chunk,
				Index:       i,
				TotalChunks: len(chunks),
				DocumentID:  docID,
				Filename:    filename,
				ContentType: contentType,
				SizeBytes:   len(data),
				UploadedAt:  now,
			},
		})
	}
	if err := s.store.Upsert(ctx, records); err != nil {
		return nil, err
	}

	if s.files != nil {
		if err := s.files.Save(ctx, docID, bytes.NewReader(data), int64(len(data))); err != nil {
			// vectors are already live; archival is best-effort
			logger.Warn("archive original upload failed", zap.String("document_id", docID), zap.Error(err))
		}
	}

	doc := &model.DocumentInfo{
		ID:          docID,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   len(data),
		ChunkCount:  len(chunks),
		Ctime:       now,
	}
	if err := s.registry.Create(ctx, doc); err != nil {
		return nil, err
	}
	logger.Info("document ingested", zap.String("document_id", docID), zap.Int("chunks", len(chunks)))
	return doc, nil
}

// embedAll fans chunk embedding out over a bounded worker pool. Order is
// preserved by writing into a pre-sized slice; the first error cancels the
// remaining work.
func (s *IngestService) embedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	embeddings := make([][]float32, len(chunks))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i, chunk := range chunks {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			defer func() { <-sem }()
			vec, err := s.embedder.Embed(ctx, text, ai.TaskTypeDocument)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("embed chunk %d: %w", i, err)
					cancel()
				}
				mu.Unlock()
				return
			}
			embeddings[i] = vec
		}(i, chunk)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return embeddings, nil
}

func (s *IngestService) List(ctx context.Context) ([]*model.DocumentInfo, error) {
	docs, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []*model.DocumentInfo{}
	}
	return docs, nil
}

func (s *IngestService) Get(ctx context.Context, docID string) (*model.DocumentInfo, error) {
	return s.registry.Get(ctx, docID)
}

func (s *IngestService) Chunks(ctx context.Context, docID string) ([]model.Chunk, error) {
	if _, err := s.registry.Get(ctx, docID); err != nil {
		return nil, err
	}
	chunks, err := s.store.FetchDocumentChunks(ctx, docID)
	if err != nil {
		return nil, err
	}
	if chunks == nil {
		chunks = []model.Chunk{}
	}
	return chunks, nil
}

func (s *IngestService) Delete(ctx context.Context, docID string) error {
	logger := logutil.GetLogger(ctx).With(zap.String("document_id", docID))
	if _, err := s.registry.Get(ctx, docID); err != nil {
		return err
	}
	if err := s.store.DeleteByDocumentID(ctx, docID); err != nil {
		return err
	}
	if err := s.registry.Delete(ctx, docID); err != nil {
		return err
	}
	if s.files != nil {
		if err := s.files.Delete(ctx, docID); err != nil {
			logger.Warn("remove archived upload failed", zap.Error(err))
		}
	}
	logger.Info("document deleted")
	return nil
}
