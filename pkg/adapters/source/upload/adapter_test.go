package upload

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datareef/reef-engine/pkg/adapters/source"
	"github.com/datareef/reef-engine/pkg/apperrors"
)

func TestValidateConfig(t *testing.T) {
	a := New()

	require.NoError(t, a.ValidateConfig(source.Config{"file_path": "/tmp/upload.csv"}))

	err := a.ValidateConfig(source.Config{})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConfigValidation, apperrors.KindOf(err))
}

func TestValidateSecrets_AcceptsEmpty(t *testing.T) {
	require.NoError(t, New().ValidateSecrets(nil))
}

func TestSupportsPolling_False(t *testing.T) {
	assert.False(t, New().SupportsPolling())
}

func TestPoll_ReadsStagedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\n1,alpha\n"), 0o600))

	got, err := New().Poll(context.Background(), source.Config{"file_path": path}, nil)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,alpha\n", got)
}

func TestPoll_MissingFile(t *testing.T) {
	_, err := New().Poll(context.Background(),
		source.Config{"file_path": filepath.Join(t.TempDir(), "absent.csv")}, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
}
