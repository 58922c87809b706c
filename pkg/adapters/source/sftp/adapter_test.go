package sftp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datareef/reef-engine/pkg/adapters/source"
	"github.com/datareef/reef-engine/pkg/apperrors"
)

func TestValidateConfig(t *testing.T) {
	a := New()

	valid := source.Config{"host": "files.example.com", "port": 2022, "file_path": "/exports/data.csv"}
	assert.NoError(t, a.ValidateConfig(valid))

	// port is optional
	assert.NoError(t, a.ValidateConfig(source.Config{"host": "h", "file_path": "/f"}))

	err := a.ValidateConfig(source.Config{"file_path": "/f"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConfigValidation, apperrors.KindOf(err))

	assert.Error(t, a.ValidateConfig(source.Config{"host": "h"}))
	assert.Error(t, a.ValidateConfig(source.Config{"host": "h", "file_path": "/f", "port": 99999}))
}

func TestValidateSecrets(t *testing.T) {
	a := New()

	assert.NoError(t, a.ValidateSecrets(source.Secrets{"username": "u", "password": "p"}))

	err := a.ValidateSecrets(source.Secrets{"password": "p"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindSecretValidation, apperrors.KindOf(err))

	assert.Error(t, a.ValidateSecrets(source.Secrets{"username": "u"}))
	assert.Error(t, a.ValidateSecrets(source.Secrets{}))
}

func TestSupportsPolling(t *testing.T) {
	assert.True(t, New().SupportsPolling())
}
