package cart

import (
	"context"
	"sync"

	"linguini-ordering-web/internal/storage"
)

// Registry maps guest keys to their cart stores. Stores are created on
// first touch and hydrated from durable storage; there is no teardown.
type Registry struct {
	mu     sync.Mutex
	repo   storage.GuestCartRepository
	stores map[string]*Store
}

// NewRegistry creates a registry backed by the given repository.
func NewRegistry(repo storage.GuestCartRepository) *Registry {
	return &Registry{
		repo:   repo,
		stores: make(map[string]*Store),
	}
}

// Store returns the cart store for a guest key, creating and hydrating
// it on first touch. A second request for the same key during the
// initial hydration waits here until it completes, so callers never
// see a store whose guest collection has not been loaded yet.
func (r *Registry) Store(ctx context.Context, guestKey string) *Store {
	r.mu.Lock()
	s, ok := r.stores[guestKey]
	if !ok {
		s = NewStore(guestKey, r.repo)
		r.stores[guestKey] = s
	}
	r.mu.Unlock()

	// Outside the registry lock; storage may be remote. Hydrate is
	// once-guarded, so after the first touch this is a no-op.
	s.Hydrate(ctx)
	return s
}

// Len returns the number of live stores, for the status endpoint.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.stores)
}
