// Package upload implements the local-csv source adapter. Uploaded files are
// staged on disk by the ingest surface and read back once; the adapter never
// takes part in scheduled polling.
package upload

import (
	"context"
	"io"
	"os"

	"github.com/datareef/reef-engine/pkg/adapters/source"
	"github.com/datareef/reef-engine/pkg/apperrors"
)

// maxFileBytes caps how large an uploaded file may be.
const maxFileBytes = 256 << 20

// Adapter reads a staged upload from the local filesystem.
type Adapter struct{}

// New creates a local-csv source adapter.
func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) ValidateConfig(config source.Config) error {
	if _, ok := config.StringField("file_path"); !ok {
		return apperrors.New(apperrors.KindConfigValidation, "file_path is required")
	}
	return nil
}

// ValidateSecrets accepts anything: staged uploads carry no credentials.
func (a *Adapter) ValidateSecrets(source.Secrets) error { return nil }

// SupportsPolling is false: an upload is ingested once, on arrival.
func (a *Adapter) SupportsPolling() bool { return false }

func (a *Adapter) Poll(ctx context.Context, config source.Config, _ source.Secrets) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, _ := config.StringField("file_path")
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransport, err, "open uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxFileBytes))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransport, err, "read uploaded file")
	}
	return string(data), nil
}

var _ source.Adapter = (*Adapter)(nil)
