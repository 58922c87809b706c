// Package source defines the adapter contract for external data origins and
// the registry that maps source type discriminators to implementations.
package source

import "context"

// Config is the adapter-specific connection configuration stored on a
// datasource. Shape varies by adapter; credentials never live here.
type Config map[string]any

// Secrets is the credential map resolved from the secret store for one poll.
// Never logged, never persisted outside the encrypted secret store.
type Secrets map[string]string

// Adapter speaks one external protocol. Implementations validate their own
// config and credential shape up front, so a datasource can only be created
// with inputs its Poll will be able to dereference.
//
// Poll performs exactly one fetch and returns the raw payload for the
// translator: an already-structured value (map / slice of maps), JSON text,
// or delimited text. All transport resources are released on every exit path.
// A source that legitimately has no rows returns an empty payload and a nil
// error; adapters never swallow real failures into empty results.
type Adapter interface {
	// ValidateConfig checks presence and type of every config field Poll will
	// dereference. Side-effect-free, no network access.
	ValidateConfig(config Config) error

	// ValidateSecrets is the same contract for credentials.
	ValidateSecrets(secrets Secrets) error

	// SupportsPolling reports whether the scheduled poller may drive this
	// adapter. One-shot adapters (local upload) return false.
	SupportsPolling() bool

	// Poll performs one fetch against the external source.
	Poll(ctx context.Context, config Config, secrets Secrets) (any, error)
}

// StringField reads a required string field from a config map, tolerating
// the value having been stored as a JSON number where it reads numerics.
func (c Config) StringField(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// IntField reads an integer config field. JSON decoding stores numbers as
// float64, so both representations are accepted.
func (c Config) IntField(key string) (int, bool) {
	switch v := c[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
