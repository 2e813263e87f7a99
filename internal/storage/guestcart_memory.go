package storage

import (
	"context"
	"sync"

	"linguini-ordering-web/internal/model"
)

// MemoryGuestCartRepository is an in-memory implementation of
// GuestCartRepository. Use this for development and testing; guest carts
// do not survive a restart.
type MemoryGuestCartRepository struct {
	mu    sync.RWMutex
	carts map[string][]model.CartItem
}

// NewMemoryGuestCartRepository creates a new in-memory repository.
func NewMemoryGuestCartRepository() *MemoryGuestCartRepository {
	return &MemoryGuestCartRepository{
		carts: make(map[string][]model.CartItem),
	}
}

// Load retrieves the stored guest cart collection.
func (r *MemoryGuestCartRepository) Load(ctx context.Context, guestKey string) ([]model.CartItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items, ok := r.carts[guestKey]
	if !ok {
		return nil, nil
	}

	out := make([]model.CartItem, len(items))
	copy(out, items)
	return out, nil
}

// Save replaces the stored guest cart collection.
func (r *MemoryGuestCartRepository) Save(ctx context.Context, guestKey string, items []model.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make([]model.CartItem, len(items))
	copy(stored, items)
	r.carts[guestKey] = stored
	return nil
}

// Delete removes the stored guest cart collection.
func (r *MemoryGuestCartRepository) Delete(ctx context.Context, guestKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, guestKey)
	return nil
}

// Close is a no-op for the in-memory repository.
func (r *MemoryGuestCartRepository) Close() error {
	return nil
}

// Ensure MemoryGuestCartRepository implements GuestCartRepository
var _ GuestCartRepository = (*MemoryGuestCartRepository)(nil)
