package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"linguini-ordering-web/internal/cache"
	"linguini-ordering-web/internal/cart"
	"linguini-ordering-web/internal/model"
	"linguini-ordering-web/internal/storage"
	"linguini-ordering-web/internal/upstream"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCartAPI stands in for the Linguini cart API. It keeps a server-side
// cart that mutations modify, so tests can assert that a resync lands on
// the server's actual state.
type fakeCartAPI struct {
	cart model.ServerCart

	fetchErr  error
	countErr  error
	addErr    error
	updateErr error
	removeErr error

	fetchCalls  int
	countCalls  int
	lastPatchID int64
	lastPatchQt int
}

func (f *fakeCartAPI) FetchCart(ctx context.Context, token string) (*model.ServerCart, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := f.cart
	out.Items = make([]model.CartItem, len(f.cart.Items))
	copy(out.Items, f.cart.Items)
	return &out, nil
}

func (f *fakeCartAPI) FetchCount(ctx context.Context, token string) (int, error) {
	f.countCalls++
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.cart.Count, nil
}

func (f *fakeCartAPI) AddProduct(ctx context.Context, token string, productID int64, qty int) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.cart.Items = append(f.cart.Items, model.CartItem{
		ID: int64(1000 + len(f.cart.Items)), ProductID: productID, Quantity: qty,
	})
	f.cart.Count = model.SumQuantities(f.cart.Items)
	return nil
}

func (f *fakeCartAPI) UpdateQuantity(ctx context.Context, token string, lineID int64, qty int) error {
	f.lastPatchID = lineID
	f.lastPatchQt = qty
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.cart.Items {
		if f.cart.Items[i].ID == lineID {
			f.cart.Items[i].Quantity = qty
		}
	}
	f.cart.Count = model.SumQuantities(f.cart.Items)
	return nil
}

func (f *fakeCartAPI) RemoveItem(ctx context.Context, token string, lineID int64) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	next := f.cart.Items[:0]
	for _, it := range f.cart.Items {
		if it.ID != lineID {
			next = append(next, it)
		}
	}
	f.cart.Items = next
	f.cart.Count = model.SumQuantities(f.cart.Items)
	return nil
}

func newTestService(t *testing.T, api CartAPI) (*CartService, *cart.Registry, *storage.MemoryGuestCartRepository) {
	t.Helper()
	repo := storage.NewMemoryGuestCartRepository()
	registry := cart.NewRegistry(repo)
	counts := cache.NewMemoryCountCache(time.Minute)
	t.Cleanup(func() { counts.Close() })
	svc := NewCartService(registry, api, counts)
	require.NotNil(t, svc)
	return svc, registry, repo
}

var (
	guestSess = model.Session{GuestKey: "g1"}
	authSess  = model.Session{GuestKey: "g1", Token: "tok"}
)

func serverCartTwoLines() model.ServerCart {
	return model.ServerCart{
		CartID: 1,
		Items: []model.CartItem{
			{ID: 100, ProductID: 7, Name: "Pasta", UnitPrice: decimal.NewFromInt(120), Quantity: 2},
			{ID: 101, ProductID: 8, Name: "Risotto", UnitPrice: decimal.NewFromInt(150), Quantity: 1},
		},
		Count: 3,
	}
}

func TestNewCartService_NilDependencies(t *testing.T) {
	t.Parallel()

	repo := storage.NewMemoryGuestCartRepository()
	registry := cart.NewRegistry(repo)
	counts := cache.NewMemoryCountCache(time.Minute)
	t.Cleanup(func() { counts.Close() })

	assert.Nil(t, NewCartService(nil, &fakeCartAPI{}, counts))
	assert.Nil(t, NewCartService(registry, nil, counts))
	assert.Nil(t, NewCartService(registry, &fakeCartAPI{}, nil))
}

func TestGetCart_GuestDerivesCountAndSubtotal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newTestService(t, &fakeCartAPI{})

	p := model.AddItemPayload{ProductID: 7, Name: "Pasta", UnitPrice: decimal.NewFromInt(120), Quantity: 1}
	require.NoError(t, svc.AddProduct(ctx, guestSess, p))
	require.NoError(t, svc.AddProduct(ctx, guestSess, p))

	c, err := svc.GetCart(ctx, guestSess)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 2, c.Count)
	assert.Equal(t, "240.00", c.Subtotal.StringFixed(2))
}

func TestGetCart_AuthReplacesLocalStateWithServerCart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := &fakeCartAPI{cart: serverCartTwoLines()}
	svc, registry, _ := newTestService(t, api)

	c, err := svc.GetCart(ctx, authSess)
	require.NoError(t, err)
	assert.Len(t, c.Items, 2)
	assert.Equal(t, 3, c.Count)
	assert.Equal(t, "390.00", c.Subtotal.StringFixed(2))

	st := registry.Store(ctx, authSess.GuestKey)
	assert.Equal(t, 3, st.AuthCount())
}

func TestChangeQuantity_ClampedToOne(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := &fakeCartAPI{cart: serverCartTwoLines()}
	svc, registry, _ := newTestService(t, api)

	_, err := svc.GetCart(ctx, authSess)
	require.NoError(t, err)

	require.NoError(t, svc.ChangeQuantity(ctx, authSess, 100, -100))

	assert.Equal(t, int64(100), api.lastPatchID)
	assert.Equal(t, 1, api.lastPatchQt)

	st := registry.Store(ctx, authSess.GuestKey)
	line, ok := st.AuthLine(100)
	require.True(t, ok)
	assert.Equal(t, 1, line.Quantity)
}

func TestChangeQuantity_FailureResyncsToServerState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := &fakeCartAPI{cart: serverCartTwoLines()}
	svc, registry, _ := newTestService(t, api)

	_, err := svc.GetCart(ctx, authSess)
	require.NoError(t, err)

	// Server rejects the PATCH; its state never changes.
	api.updateErr = errors.New("boom")
	err = svc.ChangeQuantity(ctx, authSess, 100, 5)
	require.ErrorIs(t, err, ErrCartUpdate)

	// The optimistic qty 7 must not stand; the resync restores qty 2.
	st := registry.Store(ctx, authSess.GuestKey)
	line, ok := st.AuthLine(100)
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, 3, st.AuthCount())
}

func TestRemoveItem_SucceedsEverywhere(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := &fakeCartAPI{cart: serverCartTwoLines()}
	svc, registry, _ := newTestService(t, api)

	_, err := svc.GetCart(ctx, authSess)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(ctx, authSess, 100))

	// Absent from optimistic state.
	st := registry.Store(ctx, authSess.GuestKey)
	_, ok := st.AuthLine(100)
	assert.False(t, ok)

	// And from a subsequent authoritative fetch.
	c, err := svc.GetCart(ctx, authSess)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, int64(101), c.Items[0].ID)
}

func TestRemoveItem_FailureResyncsToServerState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := &fakeCartAPI{cart: serverCartTwoLines()}
	svc, registry, _ := newTestService(t, api)

	_, err := svc.GetCart(ctx, authSess)
	require.NoError(t, err)

	api.removeErr = errors.New("boom")
	err = svc.RemoveItem(ctx, authSess, 100)
	require.ErrorIs(t, err, ErrCartUpdate)

	// The optimistically removed line is back after the resync.
	st := registry.Store(ctx, authSess.GuestKey)
	line, ok := st.AuthLine(100)
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity)
}

func TestChangeQuantity_UnknownLine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := &fakeCartAPI{cart: serverCartTwoLines()}
	svc, _, _ := newTestService(t, api)

	_, err := svc.GetCart(ctx, authSess)
	require.NoError(t, err)

	err = svc.ChangeQuantity(ctx, authSess, 999, 1)
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestChangeQuantity_GuestAppliesDeltaLocally(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := &fakeCartAPI{}
	svc, _, repo := newTestService(t, api)

	p := model.AddItemPayload{ProductID: 7, Name: "Pasta", UnitPrice: decimal.NewFromInt(120), Quantity: 2}
	require.NoError(t, svc.AddProduct(ctx, guestSess, p))

	require.NoError(t, svc.ChangeQuantity(ctx, guestSess, 7, 3))

	c, err := svc.GetCart(ctx, guestSess)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, 0, api.fetchCalls)

	stored, err := repo.Load(ctx, guestSess.GuestKey)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 5, stored[0].Quantity)

	err = svc.ChangeQuantity(ctx, guestSess, 999, 1)
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestAddProduct_AuthConfirmsBeforeLocalUpsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := &fakeCartAPI{cart: serverCartTwoLines()}
	svc, registry, _ := newTestService(t, api)

	_, err := svc.GetCart(ctx, authSess)
	require.NoError(t, err)

	// Failure: no local change at all (there is no line id to roll back).
	api.addErr = errors.New("boom")
	err = svc.AddProduct(ctx, authSess, model.AddItemPayload{ProductID: 9, Name: "Cannoli", Quantity: 1})
	require.ErrorIs(t, err, ErrCartUpdate)

	st := registry.Store(ctx, authSess.GuestKey)
	assert.Len(t, st.AuthItems(), 2)

	// Success: local upsert applied after server confirmation.
	api.addErr = nil
	require.NoError(t, svc.AddProduct(ctx, authSess, model.AddItemPayload{ProductID: 9, Name: "Cannoli", Quantity: 1}))
	assert.Len(t, st.AuthItems(), 3)
	assert.Equal(t, 4, st.AuthCount())
}

func TestUnauthorized_ResetsAuthStateAndReportsExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := &fakeCartAPI{cart: serverCartTwoLines()}
	svc, registry, _ := newTestService(t, api)

	_, err := svc.GetCart(ctx, authSess)
	require.NoError(t, err)

	st := registry.Store(ctx, authSess.GuestKey)
	require.Len(t, st.AuthItems(), 2)

	api.fetchErr = upstream.ErrUnauthorized
	_, err = svc.GetCart(ctx, authSess)
	require.ErrorIs(t, err, ErrSessionExpired)

	assert.Empty(t, st.AuthItems())
	assert.Equal(t, 0, st.AuthCount())
}

func TestUnauthorized_OnMutationAlsoResets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := &fakeCartAPI{cart: serverCartTwoLines()}
	svc, registry, _ := newTestService(t, api)

	_, err := svc.GetCart(ctx, authSess)
	require.NoError(t, err)

	api.updateErr = upstream.ErrUnauthorized
	err = svc.ChangeQuantity(ctx, authSess, 100, 1)
	require.ErrorIs(t, err, ErrSessionExpired)

	st := registry.Store(ctx, authSess.GuestKey)
	assert.Empty(t, st.AuthItems())
	assert.Equal(t, 0, st.AuthCount())
}

func TestCount_GuestIsAlwaysDerived(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newTestService(t, &fakeCartAPI{})

	count, err := svc.Count(ctx, guestSess)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, svc.AddProduct(ctx, guestSess, model.AddItemPayload{ProductID: 7, Quantity: 2}))
	count, err = svc.Count(ctx, guestSess)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, svc.RemoveItem(ctx, guestSess, 7))
	count, err = svc.Count(ctx, guestSess)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCount_AuthReadsThroughCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := &fakeCartAPI{cart: serverCartTwoLines()}
	svc, _, _ := newTestService(t, api)

	count, err := svc.Count(ctx, authSess)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 1, api.countCalls)

	// Second read is served from cache.
	count, err = svc.Count(ctx, authSess)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 1, api.countCalls)
}

func TestCount_MutationInvalidatesCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := &fakeCartAPI{cart: serverCartTwoLines()}
	svc, _, _ := newTestService(t, api)

	_, err := svc.GetCart(ctx, authSess)
	require.NoError(t, err)

	require.NoError(t, svc.ChangeQuantity(ctx, authSess, 100, 1))

	// The cached count was invalidated by the mutation, so the next
	// badge read goes back to the count endpoint.
	count, err := svc.Count(ctx, authSess)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Equal(t, 1, api.countCalls)
}

func TestLoginTransition_DoesNotMergeGuestCart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := &fakeCartAPI{cart: model.ServerCart{CartID: 1}} // empty server cart
	svc, _, repo := newTestService(t, api)

	// Guest adds Pasta twice.
	p := model.AddItemPayload{ProductID: 7, Name: "Pasta", UnitPrice: decimal.NewFromInt(120), Quantity: 1}
	require.NoError(t, svc.AddProduct(ctx, guestSess, p))
	require.NoError(t, svc.AddProduct(ctx, guestSess, p))

	c, err := svc.GetCart(ctx, guestSess)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, "240.00", c.Subtotal.StringFixed(2))

	// Login: the authenticated cart starts from the server fetch, which
	// is empty. Guest items are not merged.
	c, err = svc.GetCart(ctx, authSess)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.Equal(t, 0, c.Count)

	count, err := svc.Count(ctx, authSess)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Guest storage is untouched.
	stored, err := repo.Load(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 2, stored[0].Quantity)
}

func TestLogout_ClearsAuthStateOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := &fakeCartAPI{cart: serverCartTwoLines()}
	svc, registry, _ := newTestService(t, api)

	require.NoError(t, svc.AddProduct(ctx, guestSess, model.AddItemPayload{ProductID: 3, Quantity: 1}))
	_, err := svc.GetCart(ctx, authSess)
	require.NoError(t, err)

	svc.Logout(ctx, authSess)

	st := registry.Store(ctx, authSess.GuestKey)
	assert.Empty(t, st.AuthItems())
	assert.Equal(t, 0, st.AuthCount())
	assert.Equal(t, 1, st.GuestCount())
}

func TestBeginCheckout_EmptyCartGuard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newTestService(t, &fakeCartAPI{})

	_, err := svc.BeginCheckout(ctx, guestSess)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestBeginCheckout_ReturnsSummary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := &fakeCartAPI{cart: serverCartTwoLines()}
	svc, _, _ := newTestService(t, api)

	c, err := svc.BeginCheckout(ctx, authSess)
	require.NoError(t, err)
	assert.Len(t, c.Items, 2)
	assert.Equal(t, 3, c.Count)
	assert.Equal(t, "390.00", c.Subtotal.StringFixed(2))
}

func TestClearCart_Guest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, repo := newTestService(t, &fakeCartAPI{})

	require.NoError(t, svc.AddProduct(ctx, guestSess, model.AddItemPayload{ProductID: 7, Quantity: 2}))
	svc.ClearCart(ctx, guestSess)

	c, err := svc.GetCart(ctx, guestSess)
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	stored, err := repo.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}
