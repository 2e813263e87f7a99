package storage

import (
	"context"
	"path/filepath"
	"testing"

	"linguini-ordering-web/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItems() []model.CartItem {
	return []model.CartItem{
		{ProductID: 7, Name: "Pasta", UnitPrice: decimal.NewFromInt(120), Quantity: 2},
		{ProductID: 8, Name: "Risotto", UnitPrice: decimal.NewFromInt(150), Quantity: 1},
	}
}

// runRepositoryContract exercises the GuestCartRepository behavior every
// implementation must share.
func runRepositoryContract(t *testing.T, repo GuestCartRepository) {
	t.Helper()
	ctx := context.Background()

	// Unknown key loads as absent, not as an error.
	items, err := repo.Load(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, items)

	// Save then load round-trips the collection.
	require.NoError(t, repo.Save(ctx, "g1", testItems()))
	items, err = repo.Load(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(7), items[0].ProductID)
	assert.Equal(t, "Pasta", items[0].Name)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, items[0].UnitPrice.Equal(decimal.NewFromInt(120)))

	// Save replaces wholesale.
	require.NoError(t, repo.Save(ctx, "g1", testItems()[:1]))
	items, err = repo.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// Keys are independent.
	require.NoError(t, repo.Save(ctx, "g2", nil))
	items, err = repo.Load(ctx, "g2")
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = repo.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// Delete removes the collection.
	require.NoError(t, repo.Delete(ctx, "g1"))
	items, err = repo.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, items)
}

func TestMemoryGuestCartRepository(t *testing.T) {
	t.Parallel()

	repo := NewMemoryGuestCartRepository()
	defer repo.Close()

	runRepositoryContract(t, repo)
}

func TestMemoryGuestCartRepository_CopiesOnLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := NewMemoryGuestCartRepository()
	defer repo.Close()

	require.NoError(t, repo.Save(ctx, "g1", testItems()))

	items, err := repo.Load(ctx, "g1")
	require.NoError(t, err)
	items[0].Quantity = 99

	again, err := repo.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, again[0].Quantity)
}

func TestSQLiteGuestCartRepository(t *testing.T) {
	t.Parallel()

	repo, err := NewSQLiteGuestCartRepository(filepath.Join(t.TempDir(), "guest_carts.db"))
	require.NoError(t, err)
	defer repo.Close()

	runRepositoryContract(t, repo)
}

func TestSQLiteGuestCartRepository_SurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "guest_carts.db")

	repo, err := NewSQLiteGuestCartRepository(dbPath)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, "g1", testItems()))
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteGuestCartRepository(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	items, err := reopened.Load(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Risotto", items[1].Name)
}
