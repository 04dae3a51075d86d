package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/model"
	"github.com/docsage/docsage/internal/repo"
	"github.com/docsage/docsage/internal/vectorstore"
)

// RegistryReconcileJob repairs drift between the document registry and the
// vector index. Drift happens when ingestion crashes between the upsert and
// the registry insert, or when vectors are removed out of band.
type RegistryReconcileJob struct {
	registry *repo.RegistryRepo
	store    vectorstore.Store
}

func NewRegistryReconcileJob(registry *repo.RegistryRepo, store vectorstore.Store) *RegistryReconcileJob {
	return &RegistryReconcileJob{registry: registry, store: store}
}

func (j *RegistryReconcileJob) Name() string {
	return "registry_reconcile"
}

func (j *RegistryReconcileJob) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)

	indexIDs, err := j.store.ListDocumentIDs(ctx)
	if err != nil {
		return err
	}
	registryIDs, err := j.registry.ListIDs(ctx)
	if err != nil {
		return err
	}
	inIndex := make(map[string]struct{}, len(indexIDs))
	for _, id := range indexIDs {
		inIndex[id] = struct{}{}
	}
	inRegistry := make(map[string]struct{}, len(registryIDs))
	for _, id := range registryIDs {
		inRegistry[id] = struct{}{}
	}

	var added, removed int
	for _, id := range indexIDs {
		if _, ok := inRegistry[id]; ok {
			continue
		}
		if err := j.restoreRegistryRow(ctx, id); err != nil {
			logger.Warn("restore registry row failed", zap.String("document_id", id), zap.Error(err))
			continue
		}
		added++
	}
	for _, id := range registryIDs {
		if _, ok := inIndex[id]; ok {
			continue
		}
		if err := j.registry.Delete(ctx, id); err != nil {
			logger.Warn("remove stale registry row failed", zap.String("document_id", id), zap.Error(err))
			continue
		}
		removed++
	}
	if added > 0 || removed > 0 {
		logger.Info("registry reconciled", zap.Int("restored", added), zap.Int("removed", removed))
	}
	return nil
}

// restoreRegistryRow rebuilds a registry entry from the chunk metadata the
// index already carries.
func (j *RegistryReconcileJob) restoreRegistryRow(ctx context.Context, documentID string) error {
	chunks, err := j.store.FetchDocumentChunks(ctx, documentID)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	first := chunks[0]
	return j.registry.Upsert(ctx, &model.DocumentInfo{
		ID:          documentID,
		Filename:    first.Filename,
		ContentType: first.ContentType,
		SizeBytes:   first.SizeBytes,
		ChunkCount:  len(chunks),
		Ctime:       first.UploadedAt,
	})
}
