// Package locks tracks which configuration files are held open in this
// process.
//
// The registry is an admission guard: a store claims its file identity
// before opening a connection and releases it on close. It does not see
// other processes; two processes may still open the same file.
package locks

import (
	"sort"
	"sync"
)

// Registry is a mutex-guarded set of file identities.
type Registry struct {
	mu    sync.Mutex
	files map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{files: make(map[string]struct{})}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry shared by every store that is
// not given one explicitly.
func Default() *Registry {
	return defaultRegistry
}

// TryAcquire claims id. It returns false if id is already claimed.
func (r *Registry) TryAcquire(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, held := r.files[id]; held {
		return false
	}
	r.files[id] = struct{}{}
	return true
}

// Release drops the claim on id. Releasing an unclaimed id is a no-op.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.files, id)
}

// Held reports whether id is currently claimed.
func (r *Registry) Held(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, held := r.files[id]
	return held
}

// Snapshot returns the claimed identities in sorted order. The result is a
// copy; the registry lock is not held once Snapshot returns.
func (r *Registry) Snapshot() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.files))
	for id := range r.files {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// Len returns the number of claimed identities.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.files)
}
