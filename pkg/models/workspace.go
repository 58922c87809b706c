package models

import (
	"time"

	"github.com/google/uuid"
)

// Workspace is the tenant boundary. All datasources, secrets and stored data
// are scoped by workspace ID; nothing crosses it.
type Workspace struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
