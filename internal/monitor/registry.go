package monitor

import "sync"

// Registry is the ordered set of symbols under watch. Listing preserves
// insertion order so callers can paginate a stable sequence.
type Registry struct {
	mu    sync.RWMutex
	set   map[string]struct{}
	order []string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{set: make(map[string]struct{})}
}

// Add inserts the symbol, reporting false when it was already present.
func (r *Registry) Add(symbol string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.set[symbol]; ok {
		return false
	}
	r.set[symbol] = struct{}{}
	r.order = append(r.order, symbol)
	return true
}

// Remove deletes the symbol, reporting false when it was absent.
func (r *Registry) Remove(symbol string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.set[symbol]; !ok {
		return false
	}
	delete(r.set, symbol)
	for i, s := range r.order {
		if s == symbol {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether the symbol is watched.
func (r *Registry) Contains(symbol string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.set[symbol]
	return ok
}

// List returns the watched symbols in insertion order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len reports the number of watched symbols.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
