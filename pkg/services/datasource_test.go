package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datareef/reef-engine/pkg/adapters/source"
	"github.com/datareef/reef-engine/pkg/apperrors"
	"github.com/datareef/reef-engine/pkg/models"
)

// crudDatasourceRepo extends the poller mock with working Create/Get/Delete.
type crudDatasourceRepo struct {
	mockDatasourceRepo
	byID    map[uuid.UUID]*models.Datasource
	deleted []uuid.UUID
}

func newCrudDatasourceRepo() *crudDatasourceRepo {
	return &crudDatasourceRepo{
		mockDatasourceRepo: *newMockDatasourceRepo(),
		byID:               make(map[uuid.UUID]*models.Datasource),
	}
}

func (m *crudDatasourceRepo) Create(_ context.Context, ds *models.Datasource) error {
	if ds.ID == uuid.Nil {
		ds.ID = uuid.New()
	}
	m.byID[ds.ID] = ds
	return nil
}

func (m *crudDatasourceRepo) Get(_ context.Context, workspaceID, id uuid.UUID) (*models.Datasource, error) {
	ds, ok := m.byID[id]
	if !ok || ds.WorkspaceID != workspaceID {
		return nil, apperrors.ErrNotFound
	}
	return ds, nil
}

func (m *crudDatasourceRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.byID[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func TestDatasourceService_CreateValidatesThroughAdapter(t *testing.T) {
	repo := newCrudDatasourceRepo()
	secrets := &mockSecretRepo{}
	factory := &fakeFactory{adapters: map[string]source.Adapter{
		"httpapi": &stubAdapter{polling: true},
	}}
	svc := NewDatasourceService(repo, secrets, factory, &mockWriter{}, zap.NewNop())

	wsID := uuid.New()
	ds, err := svc.Create(context.Background(), wsID, "crm", "httpapi", models.WriteExtend,
		map[string]any{"endpoint": "https://api.example.com/export"},
		map[string]string{"api_key": "k"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, ds.ID)
	assert.Equal(t, wsID, ds.WorkspaceID)

	stored, err := secrets.Get(context.Background(), ds.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"api_key": "k"}, stored)
}

func TestDatasourceService_CreateRejectsUnknownType(t *testing.T) {
	svc := NewDatasourceService(newCrudDatasourceRepo(), &mockSecretRepo{},
		&fakeFactory{adapters: map[string]source.Adapter{}}, &mockWriter{}, zap.NewNop())

	_, err := svc.Create(context.Background(), uuid.New(), "x", "telepathy", models.WriteExtend, nil, nil)
	require.ErrorIs(t, err, apperrors.ErrUnknownSourceType)
}

func TestDatasourceService_CreateRejectsBadSecrets(t *testing.T) {
	factory := &fakeFactory{adapters: map[string]source.Adapter{
		"sftp": &stubAdapter{polling: true, secretsErr: apperrors.New(apperrors.KindSecretValidation, "username is required")},
	}}
	svc := NewDatasourceService(newCrudDatasourceRepo(), &mockSecretRepo{}, factory, &mockWriter{}, zap.NewNop())

	_, err := svc.Create(context.Background(), uuid.New(), "files", "sftp", models.WriteExtend, nil, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindSecretValidation, apperrors.KindOf(err))
}

func TestDatasourceService_DeleteCascades(t *testing.T) {
	repo := newCrudDatasourceRepo()
	secretRepo := &mockSecretRepo{data: make(map[uuid.UUID]map[string]string)}
	writer := &mockWriter{}
	factory := &fakeFactory{adapters: map[string]source.Adapter{
		"httpapi": &stubAdapter{polling: true},
	}}
	svc := NewDatasourceService(repo, secretRepo, factory, writer, zap.NewNop())

	wsID := uuid.New()
	ds, err := svc.Create(context.Background(), wsID, "crm", "httpapi", models.WriteExtend,
		map[string]any{"endpoint": "https://api.example.com"}, map[string]string{"api_key": "k"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), wsID, ds.ID))

	// Stored data, secrets and the row itself are all gone.
	assert.Contains(t, writer.deletes, ds.ID)
	assert.NotContains(t, secretRepo.data, ds.ID)
	_, err = svc.Get(context.Background(), wsID, ds.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDatasourceService_DeleteScopedToWorkspace(t *testing.T) {
	repo := newCrudDatasourceRepo()
	factory := &fakeFactory{adapters: map[string]source.Adapter{"httpapi": &stubAdapter{polling: true}}}
	svc := NewDatasourceService(repo, &mockSecretRepo{}, factory, &mockWriter{}, zap.NewNop())

	wsID := uuid.New()
	ds, err := svc.Create(context.Background(), wsID, "crm", "httpapi", models.WriteExtend,
		map[string]any{"endpoint": "https://api.example.com"}, nil)
	require.NoError(t, err)

	// A different workspace cannot touch it.
	err = svc.Delete(context.Background(), uuid.New(), ds.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
