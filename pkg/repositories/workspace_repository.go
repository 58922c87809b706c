package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datareef/reef-engine/pkg/apperrors"
	"github.com/datareef/reef-engine/pkg/models"
)

// WorkspaceRepository defines the interface for workspace data access.
type WorkspaceRepository interface {
	Create(ctx context.Context, ws *models.Workspace) error
	Get(ctx context.Context, id uuid.UUID) (*models.Workspace, error)
	List(ctx context.Context) ([]models.Workspace, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// workspaceRepository implements WorkspaceRepository using PostgreSQL.
type workspaceRepository struct {
	pool *pgxpool.Pool
}

// NewWorkspaceRepository creates a new workspace repository.
func NewWorkspaceRepository(pool *pgxpool.Pool) WorkspaceRepository {
	return &workspaceRepository{pool: pool}
}

func (r *workspaceRepository) Create(ctx context.Context, ws *models.Workspace) error {
	if ws.ID == uuid.Nil {
		ws.ID = uuid.New()
	}

	query := `
		INSERT INTO workspaces (id, name, created_at)
		VALUES ($1, $2, now())
		RETURNING created_at`

	if err := r.pool.QueryRow(ctx, query, ws.ID, ws.Name).Scan(&ws.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

func (r *workspaceRepository) Get(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	query := `SELECT id, name, created_at FROM workspaces WHERE id = $1`

	var ws models.Workspace
	err := r.pool.QueryRow(ctx, query, id).Scan(&ws.ID, &ws.Name, &ws.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return &ws, nil
}

func (r *workspaceRepository) List(ctx context.Context) ([]models.Workspace, error) {
	query := `SELECT id, name, created_at FROM workspaces ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var out []models.Workspace
	for rows.Next() {
		var ws models.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		out = append(out, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workspaces: %w", err)
	}
	return out, nil
}

func (r *workspaceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
