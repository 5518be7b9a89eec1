package tools

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrDuplicateProvider is returned when a label is registered twice.
var ErrDuplicateProvider = errors.New("provider already registered")

// Entry is a labeled provider.
type Entry struct {
	Label    string
	Provider Provider
}

// ListTools returns the catalog of the provider.
// A panic of the provider is returned as an error.
func (e Entry) ListTools(ctx context.Context) (list []Descriptor, err error) {
	defer func() {
		if r := recover(); r != nil {
			list, err = nil, errors.Newf("panic: %v", r)
		}
	}()
	return e.Provider.ListTools(ctx)
}

// Registry maps labels to providers and keeps them in registration order.
type Registry struct {
	lock    sync.RWMutex
	entries []Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a provider under the label.
func (r *Registry) Register(label string, p Provider) error {
	if label == "" {
		return errors.New("provider label is required")
	}
	if p == nil {
		return errors.Newf("provider %q is nil", label)
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	for _, e := range r.entries {
		if e.Label == label {
			return errors.Wrapf(ErrDuplicateProvider, "label %q", label)
		}
	}
	r.entries = append(r.entries, Entry{Label: label, Provider: p})
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(label string, p Provider) *Registry {
	if err := r.Register(label, p); err != nil {
		panic(err)
	}
	return r
}

// Remove removes the provider registered under the label.
// It returns false if the label is not registered.
func (r *Registry) Remove(label string) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	for i, e := range r.entries {
		if e.Label == label {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the provider registered under the label.
func (r *Registry) Get(label string) (Provider, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, e := range r.entries {
		if e.Label == label {
			return e.Provider, true
		}
	}
	return nil, false
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.entries)
}

// Providers returns a snapshot of the providers in registration order.
// The snapshot is not affected by later changes of the registry.
func (r *Registry) Providers() []Entry {
	r.lock.RLock()
	defer r.lock.RUnlock()

	res := make([]Entry, len(r.entries))
	copy(res, r.entries)
	return res
}
