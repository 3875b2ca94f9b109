package archive

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// Registry maps archive id codes to their factories. It is populated
// once during subsystem initialization and read-only afterwards, apart
// from an explicit Reset at full teardown.
type Registry struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	factories map[types.ArchiveID]types.ArchiveFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:    slog.Default().With("component", "archive-registry"),
		factories: make(map[types.ArchiveID]types.ArchiveFactory),
	}
}

// Register installs a factory for an id code. Registering the same id
// twice is a configuration error.
func (r *Registry) Register(id types.ArchiveID, factory types.ArchiveFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[id]; exists {
		return fserr.Newf(fserr.CodeInvalidArgument, "archive type %s already registered", id)
	}
	r.factories[id] = factory
	r.logger.Debug("registered archive type", "id", id.String(), "factory", factory.Name())
	return nil
}

// MustRegister is Register for startup wiring, where a duplicate id code
// is a programming error rather than a recoverable condition.
func (r *Registry) MustRegister(id types.ArchiveID, factory types.ArchiveFactory) {
	if err := r.Register(id, factory); err != nil {
		panic(fmt.Sprintf("archive: %v", err))
	}
}

// Lookup resolves the factory registered for an id code.
func (r *Registry) Lookup(id types.ArchiveID) (types.ArchiveFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[id]
	return f, ok
}

// IDs lists the registered id codes in ascending order.
func (r *Registry) IDs() []types.ArchiveID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]types.ArchiveID, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Reset drops every factory. Used only at full subsystem teardown.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[types.ArchiveID]types.ArchiveFactory)
}
