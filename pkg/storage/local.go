package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/datareef/reef-engine/pkg/apperrors"
	"github.com/datareef/reef-engine/pkg/models"
)

// LocalWriter stores columnar blobs on the local filesystem under
// dir/<workspace>/<datasource>/. Used for development and tests; production
// deployments use the S3 writer.
type LocalWriter struct {
	dir string
}

// NewLocalWriter creates the base directory if needed.
func NewLocalWriter(dir string) (*LocalWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalWriter{dir: dir}, nil
}

func (w *LocalWriter) sourceDir(workspaceID, datasourceID uuid.UUID) string {
	return filepath.Join(w.dir, workspaceID.String(), datasourceID.String())
}

func (w *LocalWriter) Append(ctx context.Context, workspaceID, datasourceID uuid.UUID, records []models.Record, schema models.Schema) error {
	data, err := encodeColumnar(records, schema)
	if err != nil {
		return apperrors.Wrap(apperrors.KindPersistence, err, "encode batch")
	}

	dir := w.sourceDir(workspaceID, datasourceID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.Wrap(apperrors.KindPersistence, err, "create datasource dir")
	}

	name := partName(time.Now(), uuid.NewString()[:8])
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return apperrors.Wrap(apperrors.KindPersistence, err, "write batch")
	}
	return nil
}

func (w *LocalWriter) Replace(ctx context.Context, workspaceID, datasourceID uuid.UUID, records []models.Record, schema models.Schema) error {
	if err := w.Delete(ctx, workspaceID, datasourceID); err != nil {
		return err
	}
	return w.Append(ctx, workspaceID, datasourceID, records, schema)
}

func (w *LocalWriter) Delete(ctx context.Context, workspaceID, datasourceID uuid.UUID) error {
	if err := os.RemoveAll(w.sourceDir(workspaceID, datasourceID)); err != nil {
		return apperrors.Wrap(apperrors.KindPersistence, err, "delete stored data")
	}
	return nil
}

var _ Writer = (*LocalWriter)(nil)
