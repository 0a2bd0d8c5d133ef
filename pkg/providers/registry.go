package providers

import "sync"

// Registry holds the set of constructed providers in registration order.
// Registration order is the default auto-select tie-break.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Provider),
	}
}

// Register adds a provider. Re-registering a name replaces the previous
// instance but keeps its original position.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[p.Name()]; !exists {
		r.order = append(r.order, p.Name())
	}
	r.byName[p.Name()] = p
}

// Get returns a provider by engine name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byName[name]
	return p, ok
}

// All returns the providers in registration order.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Names returns the registered engine names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
