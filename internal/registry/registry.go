// Package registry maintains the set of live search modules. It is the only
// shared mutable state in the coordinator: Load, Unload, and Reload take the
// write side of a RWMutex; Snapshot and Stats take the read side. Snapshots
// reference-count module handles so an unload never invalidates a search
// already in flight.
package registry

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/offlinekit/fedsearch/internal/engine"
	ferrors "github.com/offlinekit/fedsearch/internal/errors"
)

// Module is one loaded index module: a unique name bound to an opened
// engine index. Identity is immutable; the index read-view is refreshed in
// place by Reload. The underlying index closes when the last reference
// (the registry's own, or a snapshot's) is released.
type Module struct {
	name string
	idx  *engine.Index
	refs atomic.Int32
}

// Name returns the module's unique name.
func (m *Module) Name() string { return m.name }

// Index returns the module's engine index.
func (m *Module) Index() *engine.Index { return m.idx }

func (m *Module) acquire() {
	m.refs.Add(1)
}

func (m *Module) release() {
	if m.refs.Add(-1) == 0 {
		if err := m.idx.Close(); err != nil {
			slog.Warn("module_close_failed",
				slog.String("module", m.name),
				slog.String("error", err.Error()))
		}
	}
}

// Registry is a concurrency-safe mapping from module name to Module.
type Registry struct {
	mu         sync.RWMutex
	modules    map[string]*Module
	generation atomic.Uint64
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

// Load opens the index at path and registers it under name. Fails with
// ModuleAlreadyLoaded if the name is taken; an explicit Unload is required
// before replacing a module.
func (r *Registry) Load(name, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[name]; exists {
		return ferrors.Newf(ferrors.ErrCodeModuleAlreadyLoaded, "module %q already loaded", name).
			WithDetail("module", name)
	}

	idx, err := engine.Open(path)
	if err != nil {
		return err
	}

	m := &Module{name: name, idx: idx}
	m.refs.Store(1) // the registry's own reference
	r.modules[name] = m
	r.generation.Add(1)

	slog.Info("module_loaded", slog.String("module", name), slog.String("path", path))
	return nil
}

// LoadIndex registers an already-opened index under name. Used by tests and
// tooling that build in-memory indices.
func (r *Registry) LoadIndex(name string, idx *engine.Index) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[name]; exists {
		return ferrors.Newf(ferrors.ErrCodeModuleAlreadyLoaded, "module %q already loaded", name).
			WithDetail("module", name)
	}

	m := &Module{name: name, idx: idx}
	m.refs.Store(1)
	r.modules[name] = m
	r.generation.Add(1)
	return nil
}

// Unload removes the module and releases the registry's reference. Snapshots
// taken before the unload keep their own references; the index closes when
// the last one finishes.
func (r *Registry) Unload(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.modules[name]
	if !exists {
		return ferrors.Newf(ferrors.ErrCodeModuleNotFound, "module %q not loaded", name).
			WithDetail("module", name)
	}

	delete(r.modules, name)
	r.generation.Add(1)
	m.release()

	slog.Info("module_unloaded", slog.String("module", name))
	return nil
}

// Reload refreshes the module's read-view to the latest committed on-disk
// data. Identity and weight associations are unchanged.
func (r *Registry) Reload(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.modules[name]
	if !exists {
		return ferrors.Newf(ferrors.ErrCodeModuleNotFound, "module %q not loaded", name).
			WithDetail("module", name)
	}

	if err := m.idx.Refresh(); err != nil {
		return err
	}
	r.generation.Add(1)

	slog.Info("module_reloaded", slog.String("module", name))
	return nil
}

// Get returns the named module without acquiring a reference. The returned
// handle is only valid while the caller knows the module stays loaded; use
// Snapshot for search work.
func (r *Registry) Get(name string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// Names returns the sorted names of all loaded modules.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of loaded modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

// Generation returns a counter bumped by every Load, Unload, and Reload.
// Cached results keyed by generation can never go stale.
func (r *Registry) Generation() uint64 {
	return r.generation.Load()
}

// Snapshot is a point-in-time, reference-stable view of modules used by one
// search call. Close releases the references; the snapshot must not be used
// afterwards.
type Snapshot struct {
	modules []*Module
	closed  bool
	mu      sync.Mutex
}

// Snapshot returns a consistent view of the registered modules, restricted
// to filter when non-nil. A filtered-for name that is not registered
// contributes nothing; it is not an error. Concurrent loads and unloads do
// not affect a snapshot already taken.
func (r *Registry) Snapshot(filter []string) *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var selected []*Module
	if filter == nil {
		selected = make([]*Module, 0, len(r.modules))
		for _, m := range r.modules {
			selected = append(selected, m)
		}
	} else {
		selected = make([]*Module, 0, len(filter))
		for _, name := range filter {
			if m, ok := r.modules[name]; ok {
				selected = append(selected, m)
			}
		}
	}

	// Stable module order keeps fan-out scheduling deterministic.
	sort.Slice(selected, func(i, j int) bool {
		return selected[i].name < selected[j].name
	})

	for _, m := range selected {
		m.acquire()
	}
	return &Snapshot{modules: selected}
}

// Modules returns the modules captured by the snapshot.
func (s *Snapshot) Modules() []*Module {
	return s.modules
}

// Len returns the number of captured modules.
func (s *Snapshot) Len() int {
	return len(s.modules)
}

// Close releases the snapshot's module references. Idempotent.
func (s *Snapshot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for _, m := range s.modules {
		m.release()
	}
}

// Stats reports per-module document counts from a point-in-time snapshot.
func (r *Registry) Stats() map[string]uint64 {
	snap := r.Snapshot(nil)
	defer snap.Close()

	stats := make(map[string]uint64, snap.Len())
	for _, m := range snap.Modules() {
		count, err := m.idx.DocCount()
		if err != nil {
			slog.Warn("module_stats_failed",
				slog.String("module", m.name),
				slog.String("error", err.Error()))
			continue
		}
		stats[m.name] = count
	}
	return stats
}
