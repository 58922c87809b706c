// Package storage persists casted record batches as columnar blobs under the
// extend/replace write contract.
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/datareef/reef-engine/pkg/models"
)

// Writer is the stored-data persistence contract. Keys are always scoped by
// (workspace, datasource), so concurrent writes for different sources never
// conflict.
//
// Append adds the batch as a new part alongside previously stored parts.
// Replace deletes every existing part, then writes the batch; the
// delete-then-write sequence is not atomic, which is the one place the
// replace contract can lose data on a mid-sequence crash.
type Writer interface {
	Append(ctx context.Context, workspaceID, datasourceID uuid.UUID, records []models.Record, schema models.Schema) error
	Replace(ctx context.Context, workspaceID, datasourceID uuid.UUID, records []models.Record, schema models.Schema) error

	// Delete removes all stored data for a datasource. Called when the
	// datasource or its workspace is deleted.
	Delete(ctx context.Context, workspaceID, datasourceID uuid.UUID) error
}
