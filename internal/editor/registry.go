package editor

import (
	"sync"

	"github.com/sw5cc/xi-term/internal/core"
)

// Registry maps engine view ids to front-end view state. The UI
// goroutine is the only writer; notification routing reads
// concurrently, hence the read lock on lookups.
type Registry struct {
	mu    sync.RWMutex
	views map[core.ViewID]*View
	order []core.ViewID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[core.ViewID]*View)}
}

// Add registers a view under its engine id.
func (r *Registry) Add(v *View) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.views[v.ID()]; !exists {
		r.order = append(r.order, v.ID())
	}
	r.views[v.ID()] = v
}

// Remove drops a view. Unknown ids are a no-op.
func (r *Registry) Remove(id core.ViewID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.views[id]; !exists {
		return
	}
	delete(r.views, id)
	for i, vid := range r.order {
		if vid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get looks up a view by id.
func (r *Registry) Get(id core.ViewID) (*View, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.views[id]
	return v, ok
}

// Len returns the number of open views.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}

// IDs returns the open view ids in opening order.
func (r *Registry) IDs() []core.ViewID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.ViewID, len(r.order))
	copy(out, r.order)
	return out
}

// Each calls fn for every view in opening order. The lock is held for
// the duration; fn must not call back into the registry.
func (r *Registry) Each(fn func(*View)) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		fn(r.views[id])
	}
}
