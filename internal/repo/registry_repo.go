package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/docsage/docsage/internal/model"
	"github.com/docsage/docsage/internal/pkg/dbutil"
	appErr "github.com/docsage/docsage/internal/pkg/errors"
)

// RegistryRepo is the authoritative list of ingested documents. The vector
// index holds the chunks; this table holds one row per document so listing
// does not require scanning the index.
type RegistryRepo struct {
	db *sql.DB
}

func NewRegistryRepo(db *sql.DB) *RegistryRepo {
	return &RegistryRepo{db: db}
}

var registryFields = []string{"id", "filename", "content_type", "size_bytes", "chunk_count", "ctime"}

func (r *RegistryRepo) Create(ctx context.Context, doc *model.DocumentInfo) error {
	data := map[string]interface{}{
		"id":           doc.ID,
		"filename":     doc.Filename,
		"content_type": doc.ContentType,
		"size_bytes":   doc.SizeBytes,
		"chunk_count":  doc.ChunkCount,
		"ctime":        doc.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *RegistryRepo) Get(ctx context.Context, id string) (*model.DocumentInfo, error) {
	where := map[string]interface{}{"id": id}
	sqlStr, args, err := builder.BuildSelect("documents", where, registryFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	doc := &model.DocumentInfo{}
	if err := row.Scan(&doc.ID, &doc.Filename, &doc.ContentType, &doc.SizeBytes, &doc.ChunkCount, &doc.Ctime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (r *RegistryRepo) List(ctx context.Context) ([]*model.DocumentInfo, error) {
	where := map[string]interface{}{"_orderby": "ctime desc"}
	sqlStr, args, err := builder.BuildSelect("documents", where, registryFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []*model.DocumentInfo
	for rows.Next() {
		doc := &model.DocumentInfo{}
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.ContentType, &doc.SizeBytes, &doc.ChunkCount, &doc.Ctime); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *RegistryRepo) ListIDs(ctx context.Context) ([]string, error) {
	sqlStr, args := dbutil.Finalize("SELECT id FROM documents", nil)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
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

func (r *RegistryRepo) Delete(ctx context.Context, id string) error {
	where := map[string]interface{}{"id": id}
	sqlStr, args, err := builder.BuildDelete("documents", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// Upsert is used by reconciliation: rows rebuilt from index metadata must not
// clobber a fresher registry row, so conflicts only refresh chunk_count.
func (r *RegistryRepo) Upsert(ctx context.Context, doc *model.DocumentInfo) error {
	const query = `
		INSERT INTO documents (id, filename, content_type, size_bytes, chunk_count, ctime)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			chunk_count = EXCLUDED.chunk_count
	`
	_, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.Filename,
		doc.ContentType,
		doc.SizeBytes,
		doc.ChunkCount,
		doc.Ctime,
	)
	return err
}
