package storage

import (
	"context"

	"linguini-ordering-web/internal/model"
)

// GuestCartRepository persists guest cart collections, one JSON document
// per guest key. This is the durable backing for carts of visitors who
// have not logged in; authenticated carts live on the Linguini API and
// are never written here.
type GuestCartRepository interface {
	// Load returns the stored collection for a guest key.
	// Returns (nil, nil) when nothing has been stored yet.
	Load(ctx context.Context, guestKey string) ([]model.CartItem, error)

	// Save replaces the stored collection for a guest key.
	Save(ctx context.Context, guestKey string, items []model.CartItem) error

	// Delete removes the stored collection for a guest key.
	Delete(ctx context.Context, guestKey string) error

	// Close releases the underlying connections.
	Close() error
}
