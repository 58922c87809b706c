package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datareef/reef-engine/pkg/adapters/source"
	"github.com/datareef/reef-engine/pkg/apperrors"
)

func TestValidateConfig(t *testing.T) {
	a := New()

	assert.NoError(t, a.ValidateConfig(source.Config{"endpoint": "https://api.example.com/v1/export"}))

	err := a.ValidateConfig(source.Config{})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConfigValidation, apperrors.KindOf(err))

	assert.Error(t, a.ValidateConfig(source.Config{"endpoint": "ftp://example.com"}))
	assert.Error(t, a.ValidateConfig(source.Config{"endpoint": "not a url"}))
	assert.Error(t, a.ValidateConfig(source.Config{"endpoint": 42}))
}

func TestValidateSecrets(t *testing.T) {
	a := New()

	// public API: no credentials is valid
	assert.NoError(t, a.ValidateSecrets(source.Secrets{}))

	assert.NoError(t, a.ValidateSecrets(source.Secrets{"api_key": "k"}))
	assert.NoError(t, a.ValidateSecrets(source.Secrets{"token": "t"}))
	assert.NoError(t, a.ValidateSecrets(source.Secrets{"username": "u", "password": "p"}))
	assert.NoError(t, a.ValidateSecrets(source.Secrets{"access_token": "at"}))

	err := a.ValidateSecrets(source.Secrets{"unrelated": "x"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindSecretValidation, apperrors.KindOf(err))
}

func TestPoll_ReturnsBodyAndSendsAuth(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[{"id":"1"}]`))
	}))
	defer srv.Close()

	a := New()
	raw, err := a.Poll(context.Background(),
		source.Config{"endpoint": srv.URL, "auth_scheme": source.AuthBearer},
		source.Secrets{"token": "tk-1"})
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, raw)
	assert.Equal(t, "Bearer tk-1", gotAuth)
}

func TestPoll_NonSuccessStatusIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	a := New()
	_, err := a.Poll(context.Background(), source.Config{"endpoint": srv.URL}, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "403")
}

func TestPoll_ConnectionErrorIsTransportError(t *testing.T) {
	a := New()
	_, err := a.Poll(context.Background(),
		source.Config{"endpoint": "http://127.0.0.1:1/unreachable"}, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
}

func TestPoll_EmptyBodyIsValidEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	a := New()
	raw, err := a.Poll(context.Background(), source.Config{"endpoint": srv.URL}, nil)
	require.NoError(t, err)
	assert.Equal(t, `[]`, raw)
}
