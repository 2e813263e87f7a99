package service

import (
	"context"
	"errors"
	"log"

	"linguini-ordering-web/internal/cache"
	"linguini-ordering-web/internal/cart"
	"linguini-ordering-web/internal/model"
	"linguini-ordering-web/internal/upstream"
)

var (
	// ErrSessionExpired means the Linguini API rejected the bearer token.
	// The authenticated cart state has already been reset; the view
	// should send the visitor to login.
	ErrSessionExpired = errors.New("session expired")

	// ErrCartUpdate means a mutation could not be confirmed by the
	// server. Local state has been resynchronized from the server; the
	// view shows a non-fatal message.
	ErrCartUpdate = errors.New("could not update your cart")

	// ErrLineNotFound means the referenced cart line does not exist.
	ErrLineNotFound = errors.New("cart line not found")

	// ErrEmptyCart guards checkout initiation; the view redirects back
	// to the menu rather than showing an error.
	ErrEmptyCart = errors.New("cart is empty")
)

// CartAPI is the surface of the upstream cart client used by the service.
type CartAPI interface {
	FetchCart(ctx context.Context, token string) (*model.ServerCart, error)
	FetchCount(ctx context.Context, token string) (int, error)
	AddProduct(ctx context.Context, token string, productID int64, qty int) error
	UpdateQuantity(ctx context.Context, token string, lineID int64, qty int) error
	RemoveItem(ctx context.Context, token string, lineID int64) error
}

// CartService orchestrates the cart store and the upstream client.
//
// Guest mode never touches the network; authenticated mode applies
// mutations optimistically and, when the server cannot confirm one,
// discards local state by re-reading the authoritative cart
// (rollback-by-refetch). There are no compensating inverse operations:
// under concurrent mutations the last resync wins, which is safe.
type CartService struct {
	registry *cart.Registry
	api      CartAPI
	counts   cache.CountCache
}

// NewCartService creates a new cart service.
// Returns nil if any dependency is nil (all required).
func NewCartService(registry *cart.Registry, api CartAPI, counts cache.CountCache) *CartService {
	if registry == nil || api == nil || counts == nil {
		return nil
	}
	return &CartService{
		registry: registry,
		api:      api,
		counts:   counts,
	}
}

func (s *CartService) store(ctx context.Context, sess model.Session) *cart.Store {
	return s.registry.Store(ctx, sess.GuestKey)
}

// expire resets the authenticated cart state after a 401. guestItems are
// untouched; the visitor falls back to guest mode after re-login.
func (s *CartService) expire(ctx context.Context, sess model.Session, st *cart.Store) error {
	st.ClearAuthCart()
	if err := s.counts.Invalidate(ctx, sess.Token); err != nil {
		log.Printf("[CartService] count cache invalidate failed: %v", err)
	}
	return ErrSessionExpired
}

// resync discards local optimistic state and replaces it with the
// authoritative server cart. Exactly one attempt; if the refetch itself
// fails the local state stands until the next successful fetch.
func (s *CartService) resync(ctx context.Context, sess model.Session, st *cart.Store) error {
	serverCart, err := s.api.FetchCart(ctx, sess.Token)
	if err != nil {
		if errors.Is(err, upstream.ErrUnauthorized) {
			return s.expire(ctx, sess, st)
		}
		log.Printf("[CartService] resync fetch failed: %v", err)
		return nil
	}

	st.SetAuthItems(serverCart.Items)
	st.SetAuthCount(serverCart.Count)
	if err := s.counts.Set(ctx, sess.Token, serverCart.Count); err != nil {
		log.Printf("[CartService] count cache set failed: %v", err)
	}
	return nil
}

// GetCart returns the live cart for the session. Authenticated mode
// always reads the authoritative server cart and replaces local state
// with it; this is also the Guest -> Authenticated transition (note:
// guest items are NOT merged into the server cart on login, preserved
// as a product decision).
func (s *CartService) GetCart(ctx context.Context, sess model.Session) (model.Cart, error) {
	st := s.store(ctx, sess)

	if sess.Mode() == model.ModeGuest {
		items := st.GuestItems()
		return model.Cart{
			Items:    items,
			Count:    model.SumQuantities(items),
			Subtotal: model.Subtotal(items),
		}, nil
	}

	serverCart, err := s.api.FetchCart(ctx, sess.Token)
	if err != nil {
		if errors.Is(err, upstream.ErrUnauthorized) {
			return model.Cart{}, s.expire(ctx, sess, st)
		}
		return model.Cart{}, err
	}

	st.SetAuthItems(serverCart.Items)
	st.SetAuthCount(serverCart.Count)
	if err := s.counts.Set(ctx, sess.Token, serverCart.Count); err != nil {
		log.Printf("[CartService] count cache set failed: %v", err)
	}

	items := st.AuthItems()
	return model.Cart{
		Items:    items,
		Count:    st.AuthCount(),
		Subtotal: model.Subtotal(items),
	}, nil
}

// Count returns the badge count. Guest counts are a pure function of the
// guest collection. Authenticated counts read through the count cache and
// fall back to the cheap count endpoint.
func (s *CartService) Count(ctx context.Context, sess model.Session) (int, error) {
	st := s.store(ctx, sess)

	if sess.Mode() == model.ModeGuest {
		return st.GuestCount(), nil
	}

	if count, err := s.counts.Get(ctx, sess.Token); err == nil {
		st.SetAuthCount(count)
		return count, nil
	}

	count, err := s.api.FetchCount(ctx, sess.Token)
	if err != nil {
		if errors.Is(err, upstream.ErrUnauthorized) {
			return 0, s.expire(ctx, sess, st)
		}
		return 0, err
	}

	st.SetAuthCount(count)
	if err := s.counts.Set(ctx, sess.Token, count); err != nil {
		log.Printf("[CartService] count cache set failed: %v", err)
	}
	return count, nil
}

// AddProduct adds a product to the live cart. Guest mode is a local
// upsert. Authenticated mode posts first and upserts locally only after
// the server confirms: the server assigns the line ID, so there is
// nothing to optimistically roll back.
func (s *CartService) AddProduct(ctx context.Context, sess model.Session, p model.AddItemPayload) error {
	st := s.store(ctx, sess)

	if sess.Mode() == model.ModeGuest {
		st.AddGuestItem(ctx, p)
		return nil
	}

	qty := p.Quantity
	if qty == 0 {
		qty = 1
	}

	if err := s.api.AddProduct(ctx, sess.Token, p.ProductID, qty); err != nil {
		if errors.Is(err, upstream.ErrUnauthorized) {
			return s.expire(ctx, sess, st)
		}
		log.Printf("[CartService] add product %d failed: %v", p.ProductID, err)
		return ErrCartUpdate
	}

	st.AddAuthItem(p)
	if err := s.counts.Invalidate(ctx, sess.Token); err != nil {
		log.Printf("[CartService] count cache invalidate failed: %v", err)
	}
	return nil
}

// ChangeQuantity adjusts a line's quantity by delta, clamped to >=1.
// Authenticated mode updates the store optimistically, then patches the
// server with the absolute quantity; a failure triggers a full resync.
// For guest lines, lineID is the product ID (guest lines have no
// server-assigned ID).
func (s *CartService) ChangeQuantity(ctx context.Context, sess model.Session, lineID int64, delta int) error {
	st := s.store(ctx, sess)

	if sess.Mode() == model.ModeGuest {
		if !st.AdjustGuestItemQuantity(ctx, lineID, delta) {
			return ErrLineNotFound
		}
		return nil
	}

	line, ok := st.AuthLine(lineID)
	if !ok {
		return ErrLineNotFound
	}

	nextQty := line.Quantity + delta
	if nextQty < 1 {
		nextQty = 1
	}

	// Optimistic first, then confirm.
	st.SetAuthLineQuantity(lineID, nextQty)
	if err := s.counts.Invalidate(ctx, sess.Token); err != nil {
		log.Printf("[CartService] count cache invalidate failed: %v", err)
	}

	if err := s.api.UpdateQuantity(ctx, sess.Token, lineID, nextQty); err != nil {
		if errors.Is(err, upstream.ErrUnauthorized) {
			return s.expire(ctx, sess, st)
		}
		log.Printf("[CartService] update quantity for line %d failed: %v", lineID, err)
		if rerr := s.resync(ctx, sess, st); rerr != nil {
			return rerr
		}
		return ErrCartUpdate
	}
	return nil
}

// RemoveItem removes a line from the live cart. Authenticated mode
// removes optimistically, then confirms with the server; a failure
// triggers a full resync. For guest lines, lineID is the product ID.
func (s *CartService) RemoveItem(ctx context.Context, sess model.Session, lineID int64) error {
	st := s.store(ctx, sess)

	if sess.Mode() == model.ModeGuest {
		st.RemoveGuestItem(ctx, lineID)
		return nil
	}

	if _, ok := st.AuthLine(lineID); !ok {
		return ErrLineNotFound
	}

	st.RemoveAuthLine(lineID)
	if err := s.counts.Invalidate(ctx, sess.Token); err != nil {
		log.Printf("[CartService] count cache invalidate failed: %v", err)
	}

	if err := s.api.RemoveItem(ctx, sess.Token, lineID); err != nil {
		if errors.Is(err, upstream.ErrUnauthorized) {
			return s.expire(ctx, sess, st)
		}
		log.Printf("[CartService] remove line %d failed: %v", lineID, err)
		if rerr := s.resync(ctx, sess, st); rerr != nil {
			return rerr
		}
		return ErrCartUpdate
	}
	return nil
}

// ClearCart empties the live cart's local state. Guest mode persists the
// empty collection; authenticated mode only resets the local mirror (the
// server cart is cleared by the order flow, not by this frontend).
func (s *CartService) ClearCart(ctx context.Context, sess model.Session) {
	st := s.store(ctx, sess)

	if sess.Mode() == model.ModeGuest {
		st.ClearGuestCart(ctx)
		return
	}

	st.ClearAuthCart()
	if err := s.counts.Invalidate(ctx, sess.Token); err != nil {
		log.Printf("[CartService] count cache invalidate failed: %v", err)
	}
}

// Logout performs the Authenticated -> Guest transition: authenticated
// state is reset, guest items are untouched.
func (s *CartService) Logout(ctx context.Context, sess model.Session) {
	st := s.store(ctx, sess)
	st.ClearAuthCart()
	if sess.Token != "" {
		if err := s.counts.Invalidate(ctx, sess.Token); err != nil {
			log.Printf("[CartService] count cache invalidate failed: %v", err)
		}
	}
}

// BeginCheckout verifies the live cart is non-empty and returns the
// order summary for the payment step. An empty cart is a guard
// condition, not an error state: callers redirect back to the menu.
func (s *CartService) BeginCheckout(ctx context.Context, sess model.Session) (model.Cart, error) {
	c, err := s.GetCart(ctx, sess)
	if err != nil {
		return model.Cart{}, err
	}
	if len(c.Items) == 0 {
		return model.Cart{}, ErrEmptyCart
	}
	return c, nil
}
