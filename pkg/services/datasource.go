package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/datareef/reef-engine/pkg/adapters/source"
	"github.com/datareef/reef-engine/pkg/models"
	"github.com/datareef/reef-engine/pkg/repositories"
	"github.com/datareef/reef-engine/pkg/storage"
)

// DatasourceService defines the interface for datasource operations.
type DatasourceService interface {
	// Create registers a new datasource after validating its config and
	// secrets against the adapter. Secrets are stored encrypted, separate
	// from the datasource row.
	Create(ctx context.Context, workspaceID uuid.UUID, name, sourceType string, writeMethod models.WriteMethod, cfg map[string]any, secrets map[string]string) (*models.Datasource, error)

	// Get retrieves a datasource by ID within a workspace.
	Get(ctx context.Context, workspaceID, id uuid.UUID) (*models.Datasource, error)

	// List retrieves all datasources for a workspace.
	List(ctx context.Context, workspaceID uuid.UUID) ([]models.Datasource, error)

	// UpdateSecrets replaces the stored secrets for a datasource after
	// validating them against the adapter.
	UpdateSecrets(ctx context.Context, workspaceID, id uuid.UUID, secrets map[string]string) error

	// Delete removes a datasource together with its secrets and all stored
	// data. Nothing belonging to a deleted datasource survives.
	Delete(ctx context.Context, workspaceID, id uuid.UUID) error
}

// datasourceService implements DatasourceService.
type datasourceService struct {
	repo    repositories.DatasourceRepository
	secrets repositories.SecretRepository
	factory source.Factory
	writer  storage.Writer
	logger  *zap.Logger
}

// NewDatasourceService creates a new datasource service with dependencies.
func NewDatasourceService(
	repo repositories.DatasourceRepository,
	secrets repositories.SecretRepository,
	factory source.Factory,
	writer storage.Writer,
	logger *zap.Logger,
) DatasourceService {
	return &datasourceService{
		repo:    repo,
		secrets: secrets,
		factory: factory,
		writer:  writer,
		logger:  logger,
	}
}

func (s *datasourceService) Create(ctx context.Context, workspaceID uuid.UUID, name, sourceType string, writeMethod models.WriteMethod, cfg map[string]any, secrets map[string]string) (*models.Datasource, error) {
	if name == "" {
		return nil, fmt.Errorf("datasource name is required")
	}
	if cfg == nil {
		cfg = make(map[string]any)
	}
	if secrets == nil {
		secrets = make(map[string]string)
	}

	adapter, err := s.factory.GetAdapter(sourceType)
	if err != nil {
		return nil, err
	}
	if err := adapter.ValidateConfig(source.Config(cfg)); err != nil {
		return nil, err
	}
	if err := adapter.ValidateSecrets(source.Secrets(secrets)); err != nil {
		return nil, err
	}

	ds := &models.Datasource{
		WorkspaceID: workspaceID,
		Name:        name,
		SourceType:  sourceType,
		Config:      cfg,
		WriteMethod: writeMethod,
	}
	if err := s.repo.Create(ctx, ds); err != nil {
		return nil, err
	}

	if len(secrets) > 0 {
		if err := s.secrets.Put(ctx, ds.ID, secrets); err != nil {
			// Roll back the half-created datasource so a failed secret
			// write never leaves a source that cannot poll.
			if delErr := s.repo.Delete(ctx, ds.ID); delErr != nil {
				s.logger.Error("Failed to roll back datasource after secret store failure",
					zap.String("datasource_id", ds.ID.String()), zap.Error(delErr))
			}
			return nil, fmt.Errorf("failed to store secrets: %w", err)
		}
	}

	s.logger.Info("Datasource created",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("datasource_id", ds.ID.String()),
		zap.String("source_type", sourceType))
	return ds, nil
}

func (s *datasourceService) Get(ctx context.Context, workspaceID, id uuid.UUID) (*models.Datasource, error) {
	return s.repo.Get(ctx, workspaceID, id)
}

func (s *datasourceService) List(ctx context.Context, workspaceID uuid.UUID) ([]models.Datasource, error) {
	return s.repo.ListByWorkspace(ctx, workspaceID)
}

func (s *datasourceService) UpdateSecrets(ctx context.Context, workspaceID, id uuid.UUID, secrets map[string]string) error {
	ds, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return err
	}
	adapter, err := s.factory.GetAdapter(ds.SourceType)
	if err != nil {
		return err
	}
	if err := adapter.ValidateSecrets(source.Secrets(secrets)); err != nil {
		return err
	}
	return s.secrets.Put(ctx, id, secrets)
}

func (s *datasourceService) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	ds, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return err
	}

	if err := s.writer.Delete(ctx, ds.WorkspaceID, ds.ID); err != nil {
		return fmt.Errorf("failed to delete stored data: %w", err)
	}
	if err := s.secrets.Delete(ctx, ds.ID); err != nil {
		return fmt.Errorf("failed to delete secrets: %w", err)
	}
	if err := s.repo.Delete(ctx, ds.ID); err != nil {
		return err
	}

	s.logger.Info("Datasource deleted",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("datasource_id", id.String()))
	return nil
}
