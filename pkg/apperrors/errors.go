// Package apperrors defines the error taxonomy for the ingestion pipeline.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrUnknownSourceType indicates a stored datasource references an adapter
	// type that was never registered. This is a deployment bug, not a source
	// failure, and should alert rather than quietly mark one source errored.
	ErrUnknownSourceType = errors.New("unknown adapter type")
	// ErrSecretsKeyMismatch is returned when stored secrets were encrypted
	// with a different credentials key than the one configured.
	ErrSecretsKeyMismatch = errors.New("secrets were encrypted with a different key")
)

// Kind classifies where in the pipeline an error originated.
type Kind string

const (
	KindConfigValidation Kind = "config_validation"
	KindSecretValidation Kind = "secret_validation"
	KindTransport        Kind = "transport"
	KindTranslation      Kind = "translation"
	KindFormatValidation Kind = "format_validation"
	KindPersistence      Kind = "persistence"
)

// PipelineError carries a pipeline stage classification alongside the cause.
// Errors of every kind except config/secret validation are caught at the
// single-source boundary in the poller and recorded on the datasource; they
// never abort a cycle.
type PipelineError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		if e.Msg != "" {
			return fmt.Sprintf("%s: %v", e.Msg, e.Err)
		}
		return e.Err.Error()
	}
	return e.Msg
}

func (e *PipelineError) Unwrap() error { return e.Err }

// New creates a PipelineError with a plain message.
func New(kind Kind, msg string) *PipelineError {
	return &PipelineError{Kind: kind, Msg: msg}
}

// Newf creates a PipelineError with a formatted message.
func Newf(kind Kind, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a pipeline kind and context message.
// Returns nil if err is nil.
func Wrap(kind Kind, err error, msg string) *PipelineError {
	if err == nil {
		return nil
	}
	return &PipelineError{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the pipeline kind from an error chain.
// Returns "" when the error carries no classification.
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
