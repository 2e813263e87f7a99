package cart

import (
	"context"
	"log"
	"sync"

	"linguini-ordering-web/internal/model"
	"linguini-ordering-web/internal/storage"
)

// Store holds both cart collections for one visitor: the guest cart
// (backed by durable storage) and the authenticated cart (the Linguini
// API is the store of record). Exactly one collection is live at a time,
// decided by whether the request carries a bearer token; the other is
// inert but preserved.
type Store struct {
	mu          sync.RWMutex
	hydrateOnce sync.Once
	guestKey    string
	repo        storage.GuestCartRepository

	guestItems []model.CartItem
	authItems  []model.CartItem
	authCount  int
}

// NewStore creates a store for a visitor. Call Hydrate to load the guest
// collection from durable storage.
func NewStore(guestKey string, repo storage.GuestCartRepository) *Store {
	return &Store{
		guestKey: guestKey,
		repo:     repo,
	}
}

// Hydrate loads the guest collection from durable storage. It runs at
// most once per store; concurrent callers block until the first load
// completes, so no request can observe - or persist over - a
// pre-hydration empty collection. A load failure leaves the store
// empty; the visitor starts over rather than erroring.
func (s *Store) Hydrate(ctx context.Context) {
	s.hydrateOnce.Do(func() {
		items, err := s.repo.Load(ctx, s.guestKey)
		if err != nil {
			log.Printf("[CartStore] failed to hydrate guest cart %s: %v", s.guestKey, err)
			return
		}

		s.mu.Lock()
		s.guestItems = items
		s.mu.Unlock()
	})
}

// upsert adds a payload into a collection by product ID: an existing line
// gets its quantity incremented, otherwise a new line is appended.
// The addition is unclamped; clamping to >=1 is the quantity-change
// operation's concern.
func upsert(items []model.CartItem, p model.AddItemPayload) []model.CartItem {
	qty := p.Quantity
	if qty == 0 {
		qty = 1
	}

	for i := range items {
		if items[i].ProductID == p.ProductID {
			items[i].Quantity += qty
			return items
		}
	}

	return append(items, model.CartItem{
		ProductID: p.ProductID,
		Name:      p.Name,
		UnitPrice: p.UnitPrice,
		Quantity:  qty,
	})
}

// persistGuest writes the guest collection to durable storage.
// Best-effort: failures are logged and swallowed.
func (s *Store) persistGuest(ctx context.Context) {
	items := s.guestItems
	if items == nil {
		items = []model.CartItem{}
	}
	if err := s.repo.Save(ctx, s.guestKey, items); err != nil {
		log.Printf("[CartStore] failed to persist guest cart %s: %v", s.guestKey, err)
	}
}

// AddGuestItem upserts into the guest collection and persists.
func (s *Store) AddGuestItem(ctx context.Context, p model.AddItemPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.guestItems = upsert(s.guestItems, p)
	s.persistGuest(ctx)
}

// RemoveGuestItem removes the line with the given product ID and persists.
func (s *Store) RemoveGuestItem(ctx context.Context, productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.guestItems[:0]
	for _, it := range s.guestItems {
		if it.ProductID != productID {
			next = append(next, it)
		}
	}
	s.guestItems = next
	s.persistGuest(ctx)
}

// SetGuestItemQuantity sets the quantity of a guest line, clamped to >=1,
// and persists. Unknown product IDs are ignored.
func (s *Store) SetGuestItemQuantity(ctx context.Context, productID int64, qty int) {
	if qty < 1 {
		qty = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.guestItems {
		if s.guestItems[i].ProductID == productID {
			s.guestItems[i].Quantity = qty
			s.persistGuest(ctx)
			return
		}
	}
}

// AdjustGuestItemQuantity shifts a guest line's quantity by delta,
// clamped to >=1, and persists. Read, compute, and write happen under
// one lock acquisition so concurrent deltas for the same line cannot
// lose each other. Returns false if no line has the product ID.
func (s *Store) AdjustGuestItemQuantity(ctx context.Context, productID int64, delta int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.guestItems {
		if s.guestItems[i].ProductID == productID {
			next := s.guestItems[i].Quantity + delta
			if next < 1 {
				next = 1
			}
			s.guestItems[i].Quantity = next
			s.persistGuest(ctx)
			return true
		}
	}
	return false
}

// ClearGuestCart empties the guest collection and deletes the stored
// document; the next hydration sees an absent cart.
func (s *Store) ClearGuestCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.guestItems = nil
	if err := s.repo.Delete(ctx, s.guestKey); err != nil {
		log.Printf("[CartStore] failed to delete guest cart %s: %v", s.guestKey, err)
	}
}

// SetGuestItems replaces the guest collection wholesale and persists.
func (s *Store) SetGuestItems(ctx context.Context, items []model.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.guestItems = items
	s.persistGuest(ctx)
}

// GuestItems returns a copy of the guest collection.
func (s *Store) GuestItems() []model.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.CartItem, len(s.guestItems))
	copy(out, s.guestItems)
	return out
}

// GuestCount is always derived from the guest collection, never cached.
func (s *Store) GuestCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return model.SumQuantities(s.guestItems)
}

// AddAuthItem upserts into the authenticated collection. No durable
// storage write; the server is the store of record.
func (s *Store) AddAuthItem(p model.AddItemPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authItems = upsert(s.authItems, p)
	s.authCount = model.SumQuantities(s.authItems)
}

// RemoveAuthItem removes the line with the given product ID.
func (s *Store) RemoveAuthItem(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.authItems[:0]
	for _, it := range s.authItems {
		if it.ProductID != productID {
			next = append(next, it)
		}
	}
	s.authItems = next
	s.authCount = model.SumQuantities(s.authItems)
}

// RemoveAuthLine removes the line with the given server-assigned line ID.
func (s *Store) RemoveAuthLine(lineID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.authItems[:0]
	for _, it := range s.authItems {
		if it.ID != lineID {
			next = append(next, it)
		}
	}
	s.authItems = next
	s.authCount = model.SumQuantities(s.authItems)
}

// SetAuthLineQuantity sets the quantity of an authenticated line by its
// server-assigned line ID, clamped to >=1. Unknown line IDs are ignored.
func (s *Store) SetAuthLineQuantity(lineID int64, qty int) {
	if qty < 1 {
		qty = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.authItems {
		if s.authItems[i].ID == lineID {
			s.authItems[i].Quantity = qty
			break
		}
	}
	s.authCount = model.SumQuantities(s.authItems)
}

// AuthLine returns the authenticated line with the given line ID.
func (s *Store) AuthLine(lineID int64) (model.CartItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, it := range s.authItems {
		if it.ID == lineID {
			return it, true
		}
	}
	return model.CartItem{}, false
}

// ClearAuthCart resets the authenticated collection and count. Used on
// logout and on session expiry.
func (s *Store) ClearAuthCart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authItems = nil
	s.authCount = 0
}

// SetAuthItems replaces the authenticated collection wholesale (used
// after every authoritative fetch) and recomputes the count from it.
func (s *Store) SetAuthItems(items []model.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authItems = items
	s.authCount = model.SumQuantities(s.authItems)
}

// SetAuthCount sets the authenticated count directly. Negative input is
// coerced to 0. Only the badge-count fetch path uses this; every item
// mutation recomputes the count from the collection instead, so the two
// cannot drift.
func (s *Store) SetAuthCount(n int) {
	if n < 0 {
		n = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.authCount = n
}

// AuthItems returns a copy of the authenticated collection.
func (s *Store) AuthItems() []model.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.CartItem, len(s.authItems))
	copy(out, s.authItems)
	return out
}

// AuthCount returns the tracked authenticated count.
func (s *Store) AuthCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.authCount
}
