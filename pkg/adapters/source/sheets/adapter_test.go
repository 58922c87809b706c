package sheets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/datareef/reef-engine/pkg/adapters/source"
	"github.com/datareef/reef-engine/pkg/apperrors"
	"github.com/datareef/reef-engine/pkg/models"
)

type fakeValues struct {
	vr           *gsheets.ValueRange
	err          error
	gotSheet     string
	gotReadRange string
}

func (f *fakeValues) Get(_ context.Context, spreadsheetID, readRange string) (*gsheets.ValueRange, error) {
	f.gotSheet = spreadsheetID
	f.gotReadRange = readRange
	return f.vr, f.err
}

func newTestAdapter(fake *fakeValues) *Adapter {
	a := New()
	a.newService = func(context.Context, source.Config, source.Secrets) (valuesGetter, error) {
		return fake, nil
	}
	return a
}

func TestValidateConfig(t *testing.T) {
	a := New()

	require.NoError(t, a.ValidateConfig(source.Config{"spreadsheet_id": "1abc"}))

	err := a.ValidateConfig(source.Config{"range": "Sheet1!A1:D"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConfigValidation, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "spreadsheet_id is required")
}

func TestValidateSecrets(t *testing.T) {
	a := New()

	require.NoError(t, a.ValidateSecrets(source.Secrets{"access_token": "ya29.token"}))
	require.NoError(t, a.ValidateSecrets(source.Secrets{
		"refresh_token": "1//refresh",
		"client_id":     "cid",
		"client_secret": "cs",
	}))

	err := a.ValidateSecrets(source.Secrets{})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindSecretValidation, apperrors.KindOf(err))

	err = a.ValidateSecrets(source.Secrets{"refresh_token": "1//refresh"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_id and client_secret")
}

func TestPoll_HeaderRowPlusValues(t *testing.T) {
	fake := &fakeValues{vr: &gsheets.ValueRange{Values: [][]any{
		{"name", "amount"},
		{"alpha", "12.50"},
		{"beta"},
	}}}
	a := newTestAdapter(fake)

	got, err := a.Poll(context.Background(), source.Config{
		"spreadsheet_id": "1abc",
		"range":          "Sheet1!A1:B3",
	}, source.Secrets{"access_token": "tok"})
	require.NoError(t, err)

	assert.Equal(t, "1abc", fake.gotSheet)
	assert.Equal(t, "Sheet1!A1:B3", fake.gotReadRange)

	tab, ok := got.(models.Tabular)
	require.True(t, ok)
	assert.Equal(t, []string{"name", "amount"}, tab.Header)
	require.Len(t, tab.Rows, 2)
	assert.Equal(t, map[string]any{"name": "alpha", "amount": "12.50"}, tab.Rows[0])
	// Short rows are padded so every record carries the full header.
	assert.Equal(t, map[string]any{"name": "beta", "amount": ""}, tab.Rows[1])
}

func TestPoll_DefaultRange(t *testing.T) {
	fake := &fakeValues{vr: &gsheets.ValueRange{}}
	a := newTestAdapter(fake)

	got, err := a.Poll(context.Background(),
		source.Config{"spreadsheet_id": "1abc"},
		source.Secrets{"access_token": "tok"})
	require.NoError(t, err)

	assert.Equal(t, defaultRange, fake.gotReadRange)
	tab, ok := got.(models.Tabular)
	require.True(t, ok)
	assert.Empty(t, tab.Rows)
}

func TestPoll_TransportError(t *testing.T) {
	fake := &fakeValues{err: assert.AnError}
	a := newTestAdapter(fake)

	_, err := a.Poll(context.Background(),
		source.Config{"spreadsheet_id": "1abc"},
		source.Secrets{"access_token": "tok"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
}
