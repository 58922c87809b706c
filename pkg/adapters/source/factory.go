package source

import (
	"fmt"

	"github.com/datareef/reef-engine/pkg/apperrors"
)

// Factory resolves adapters from the registry. The poller depends on this
// interface rather than the package-level registry so tests can substitute
// their own adapters.
type Factory interface {
	// GetAdapter returns the adapter for a source type.
	// Wraps apperrors.ErrUnknownSourceType when the type was never registered.
	GetAdapter(sourceType string) (Adapter, error)

	// PollingTypes returns the set of source types whose adapters support
	// scheduled polling.
	PollingTypes() map[string]bool

	// ListTypes returns info for all registered adapter types.
	ListTypes() []AdapterInfo
}

type registryFactory struct{}

// NewFactory returns a Factory backed by the global registry.
func NewFactory() Factory {
	return &registryFactory{}
}

func (f *registryFactory) GetAdapter(sourceType string) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	reg, ok := registry[sourceType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownSourceType, sourceType)
	}
	return reg.Adapter, nil
}

func (f *registryFactory) PollingTypes() map[string]bool {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make(map[string]bool)
	for t, reg := range registry {
		if reg.Adapter.SupportsPolling() {
			types[t] = true
		}
	}
	return types
}

func (f *registryFactory) ListTypes() []AdapterInfo {
	return RegisteredAdapters()
}

var _ Factory = (*registryFactory)(nil)
