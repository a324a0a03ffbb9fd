package artifact

import (
	"fmt"
	"sync"
)

// Registry maps kind discriminators to their implementations.
//
// Registration order is preserved: synchronizers run in that order, so kinds
// that others depend on should be registered first.
type Registry struct {
	mu     sync.RWMutex
	kinds  []Kind
	byName map[string]Kind
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Kind)}
}

// Register adds a kind. Registering the same discriminator twice is an error.
func (r *Registry) Register(k Kind) error {
	if k == nil {
		return fmt.Errorf("register kind: nil kind")
	}
	name := k.Name()
	if name == "" {
		return fmt.Errorf("register kind: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("register kind: %q already registered", name)
	}
	r.kinds = append(r.kinds, k)
	r.byName[name] = k
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(kinds ...Kind) {
	for _, k := range kinds {
		if err := r.Register(k); err != nil {
			panic(err)
		}
	}
}

// Kinds returns the registered kinds in registration order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Kind, len(r.kinds))
	copy(out, r.kinds)
	return out
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.byName[name]
	return k, ok
}

// ForPath returns the first registered kind accepting the repository path.
func (r *Registry) ForPath(path string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, k := range r.kinds {
		if k.IsAccepted(path) {
			return k, true
		}
	}
	return nil, false
}

// ForType returns the first registered kind accepting a stored discriminator.
func (r *Registry) ForType(kind string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, k := range r.kinds {
		if k.IsAcceptedType(kind) {
			return k, true
		}
	}
	return nil, false
}
