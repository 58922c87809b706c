package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceStatus is the lifecycle state of a datasource.
type SourceStatus string

const (
	// StatusActive means the last poll cycle completed successfully.
	StatusActive SourceStatus = "active"
	// StatusError means the last poll cycle failed; ErrorMessage holds the cause.
	StatusError SourceStatus = "error"
	// StatusNoData means the last poll succeeded but the source returned no rows.
	StatusNoData SourceStatus = "no_data"
	// StatusOperational marks a source managed outside the scheduled poller
	// (one-shot uploads). The poller never touches it.
	StatusOperational SourceStatus = "operational"
)

// WriteMethod controls how a new batch is persisted relative to prior batches.
type WriteMethod string

const (
	// WriteExtend appends the batch to previously stored batches.
	WriteExtend WriteMethod = "extend"
	// WriteReplace deletes all previously stored data, then writes the batch.
	WriteReplace WriteMethod = "replace"
)

// Datasource represents an external data connection owned by a workspace.
// Config holds adapter-specific connection details; credentials live in the
// secret store, keyed by (WorkspaceID, ID), never in Config.
type Datasource struct {
	ID           uuid.UUID      `json:"id"`
	WorkspaceID  uuid.UUID      `json:"workspace_id"`
	Name         string         `json:"name"`
	SourceType   string         `json:"source_type"` // "httpapi", "sftp", "postgres", "mssql", "google_sheets", "local_csv"
	Config       map[string]any `json:"config"`
	Status       SourceStatus   `json:"status"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	WriteMethod  WriteMethod    `json:"write_method"`
	Schema       Schema         `json:"schema,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	LastUpdate   time.Time      `json:"last_update"`
}

// Pollable reports whether the scheduled poller should consider this source.
// Sources stuck in operational mode (one-shot ingestion) are skipped; active,
// error and no_data sources are retried every cycle.
func (d *Datasource) Pollable() bool {
	switch d.Status {
	case StatusActive, StatusError, StatusNoData:
		return true
	default:
		return false
	}
}
