package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datareef/reef-engine/pkg/apperrors"
	"github.com/datareef/reef-engine/pkg/models"
)

// DatasourceRepository defines the interface for datasource data access.
// Config holds connection parameters only; credentials live in the secret
// store and never pass through here.
type DatasourceRepository interface {
	// Create inserts a new datasource. Returns ErrConflict when the name is
	// already taken within the workspace.
	Create(ctx context.Context, ds *models.Datasource) error

	// Get retrieves a datasource by ID within a workspace.
	Get(ctx context.Context, workspaceID, id uuid.UUID) (*models.Datasource, error)

	// ListByWorkspace retrieves all datasources for a workspace.
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Datasource, error)

	// UpdateStatus records the outcome of a poll cycle. A nil errorMessage
	// clears any previous failure detail.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.SourceStatus, errorMessage *string) error

	// UpdateSchema persists the schema inferred from the latest batch.
	UpdateSchema(ctx context.Context, id uuid.UUID, schema models.Schema) error

	// Delete removes a datasource by ID.
	Delete(ctx context.Context, id uuid.UUID) error
}

// datasourceRepository implements DatasourceRepository using PostgreSQL.
type datasourceRepository struct {
	pool *pgxpool.Pool
}

// NewDatasourceRepository creates a new datasource repository.
func NewDatasourceRepository(pool *pgxpool.Pool) DatasourceRepository {
	return &datasourceRepository{pool: pool}
}

func (r *datasourceRepository) Create(ctx context.Context, ds *models.Datasource) error {
	if ds.ID == uuid.Nil {
		ds.ID = uuid.New()
	}
	now := time.Now()
	ds.CreatedAt = now
	ds.LastUpdate = now
	if ds.Status == "" {
		ds.Status = models.StatusOperational
	}
	if ds.WriteMethod == "" {
		ds.WriteMethod = models.WriteExtend
	}

	config, err := json.Marshal(ds.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	query := `
		INSERT INTO datasources (id, workspace_id, name, source_type, config, status, write_method, created_at, last_update)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.pool.Exec(ctx, query,
		ds.ID, ds.WorkspaceID, ds.Name, ds.SourceType, config,
		ds.Status, ds.WriteMethod, ds.CreatedAt, ds.LastUpdate,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create datasource: %w", err)
	}
	return nil
}

const datasourceColumns = `id, workspace_id, name, source_type, config, status, error_message, write_method, schema, created_at, last_update`

func (r *datasourceRepository) Get(ctx context.Context, workspaceID, id uuid.UUID) (*models.Datasource, error) {
	query := `SELECT ` + datasourceColumns + ` FROM datasources WHERE workspace_id = $1 AND id = $2`

	ds, err := scanDatasource(r.pool.QueryRow(ctx, query, workspaceID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get datasource: %w", err)
	}
	return ds, nil
}

func (r *datasourceRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Datasource, error) {
	query := `SELECT ` + datasourceColumns + ` FROM datasources WHERE workspace_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasources: %w", err)
	}
	defer rows.Close()

	var out []models.Datasource
	for rows.Next() {
		ds, err := scanDatasource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan datasource: %w", err)
		}
		out = append(out, *ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate datasources: %w", err)
	}
	return out, nil
}

func (r *datasourceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SourceStatus, errorMessage *string) error {
	query := `
		UPDATE datasources
		SET status = $2, error_message = $3, last_update = now()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, status, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to update datasource status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *datasourceRepository) UpdateSchema(ctx context.Context, id uuid.UUID, schema models.Schema) error {
	encoded, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	query := `
		UPDATE datasources
		SET schema = $2, last_update = now()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, encoded)
	if err != nil {
		return fmt.Errorf("failed to update datasource schema: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *datasourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM datasources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete datasource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanDatasource(row pgx.Row) (*models.Datasource, error) {
	var ds models.Datasource
	var config []byte
	var schema []byte
	err := row.Scan(
		&ds.ID, &ds.WorkspaceID, &ds.Name, &ds.SourceType, &config,
		&ds.Status, &ds.ErrorMessage, &ds.WriteMethod, &schema,
		&ds.CreatedAt, &ds.LastUpdate,
	)
	if err != nil {
		return nil, err
	}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &ds.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}
	if len(schema) > 0 {
		if err := json.Unmarshal(schema, &ds.Schema); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
		}
	}
	return &ds, nil
}
