package source

import (
	"fmt"
	"sort"
	"sync"
)

// AdapterInfo describes a registered adapter for discovery endpoints.
type AdapterInfo struct {
	Type        string `json:"type"`         // "httpapi", "sftp", "postgres", ...
	DisplayName string `json:"display_name"` // "HTTP API", "SFTP"
	Description string `json:"description"`
}

// Registration binds an adapter implementation to its type discriminator.
type Registration struct {
	Info    AdapterInfo
	Adapter Adapter
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called from each adapter package's init(). The contract is
// enforced here, at registration time: a nil adapter or duplicate type is a
// programming error and panics during startup rather than failing a poll.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if reg.Info.Type == "" {
		panic("source: Register called with empty type")
	}
	if reg.Adapter == nil {
		panic(fmt.Sprintf("source: Register called with nil adapter for type %q", reg.Info.Type))
	}
	if _, exists := registry[reg.Info.Type]; exists {
		panic(fmt.Sprintf("source: adapter type %q registered twice", reg.Info.Type))
	}
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	infos := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		infos = append(infos, reg.Info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Type < infos[j].Type })
	return infos
}

// reset clears the registry. Tests only.
func reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Registration)
}
