package dao

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds the instance registered under a name.
type Factory func() (any, error)

// Registry caches one instance per name, built on first use from the factory
// table it was constructed with. It is safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]any
}

func NewRegistry(factories map[string]Factory) *Registry {
	fs := make(map[string]Factory, len(factories))
	for name, f := range factories {
		fs[name] = f
	}
	return &Registry{factories: fs, instances: make(map[string]any)}
}

// Get returns the cached instance for name, constructing it on first request.
// An unknown name is a configuration error. The factory runs without the lock
// held, so it may resolve other names from the same registry. When two callers
// race to build one name, the first instance stored wins.
func (r *Registry) Get(name string) (any, error) {
	r.mu.Lock()
	if inst, ok := r.instances[name]; ok {
		r.mu.Unlock()
		return inst, nil
	}
	f, ok := r.factories[name]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDAO, name)
	}

	inst, err := f()
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.instances[name]; ok {
		return existing, nil
	}
	r.instances[name] = inst
	return inst, nil
}

// MustGet is Get for wiring code where a missing name is a programming error.
func (r *Registry) MustGet(name string) any {
	inst, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return inst
}

// Register overwrites the instance for name and returns the previous one.
func (r *Registry) Register(name string, inst any) (prev any, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok = r.instances[name]
	r.instances[name] = inst
	return prev, ok
}

// Names lists every name the registry can resolve.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{}, len(r.factories)+len(r.instances))
	for n := range r.factories {
		seen[n] = struct{}{}
	}
	for n := range r.instances {
		seen[n] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the instance for name typed as T.
func Lookup[T any](r *Registry, name string) (T, error) {
	var zero T
	inst, err := r.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, fmt.Errorf("dao %q is %T, want %T", name, inst, zero)
	}
	return typed, nil
}
