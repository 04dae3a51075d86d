package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/docsage/docsage/internal/model"
)

const (
	// remote providers cap upsert payloads; records are sent in batches of
	// this size, sequentially
	UpsertBatchSize = 100

	UpsertTimeout = 15 * time.Second
	SearchTimeout = 10 * time.Second

	// topK used to approximate "fetch everything" on providers without a
	// native listing primitive; results beyond the provider's per-query cap
	// are silently truncated
	FetchAllTopK = 10000
)

// Filter narrows a search or delete to one document's chunks.
type Filter struct {
	DocumentID string
}

// Store is the similarity-index gateway. Upsert batches internally; Search
// returns an empty slice when nothing matches.
type Store interface {
	Upsert(ctx context.Context, records []model.VectorRecord) error
	Search(ctx context.Context, vector []float32, topK int, filter *Filter) ([]model.SearchResult, error)
	DeleteByDocumentID(ctx context.Context, documentID string) error
	FetchDocumentChunks(ctx context.Context, documentID string) ([]model.Chunk, error)
	ListDocumentIDs(ctx context.Context) ([]string, error)
}

type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindConnection ErrorKind = "connection"
	KindUnknown    ErrorKind = "unknown"
)

type StoreError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("vectorstore %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func KindOf(err error) ErrorKind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// Retriable reports whether the failed call may be repeated. Timeout and
// connection failures are transient by definition here.
func Retriable(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindConnection:
		return true
	}
	return false
}

// classify assigns the kind once, at the adapter boundary.
func classify(op string, err error) *StoreError {
	kind := KindUnknown
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	case errors.As(err, &netErr):
		kind = KindConnection
	}
	return &StoreError{Kind: kind, Op: op, Err: err}
}

type Factory func(args interface{}) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(provider string, args interface{}) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(provider))
	if key == "" {
		return nil, fmt.Errorf("vector_store.provider is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported vector store: %s", provider)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("vector store config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode vector store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode vector store config: %w", err)
	}
	return nil
}

// RecordID derives the stable vector id for one chunk.
func RecordID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}
