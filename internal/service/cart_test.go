package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhobart/minimart/internal/domain"
	"github.com/rhobart/minimart/internal/memory"
	"github.com/rhobart/minimart/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedProducts(t *testing.T) *memory.ProductStore {
	t.Helper()
	store := memory.NewProductStore()
	store.Seed(
		domain.Product{ID: 1, Name: "Kopi Beans", Price: decimal.RequireFromString("3.49"), Category: "pantry", Quantity: 10},
		domain.Product{ID: 2, Name: "Laksa Paste", Price: decimal.RequireFromString("5.20"), Category: "pantry", Quantity: 2},
		domain.Product{ID: 3, Name: "Sold Out Sambal", Price: decimal.RequireFromString("4.00"), Category: "pantry", Quantity: 0},
	)
	return store
}

func TestCartAddItemComputesTotals(t *testing.T) {
	svc := NewCartService(seedProducts(t), testLogger())
	sess := &session.Session{}
	ctx := context.Background()

	err := svc.AddItem(ctx, sess, 1, 2)
	require.NoError(t, err)

	cart := sess.Cart()
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "6.98", cart.Totals.Subtotal.StringFixed(2))
	assert.Equal(t, "0.56", cart.Totals.Tax.StringFixed(2))
	assert.Equal(t, "7.54", cart.Totals.Total.StringFixed(2))
}

func TestCartAddItemMergesExistingLine(t *testing.T) {
	svc := NewCartService(seedProducts(t), testLogger())
	sess := &session.Session{}
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, sess, 1, 1))
	require.NoError(t, svc.AddItem(ctx, sess, 1, 3))

	cart := sess.Cart()
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, int32(4), cart.Lines[0].Quantity)
}

func TestCartAddItemOutOfStock(t *testing.T) {
	svc := NewCartService(seedProducts(t), testLogger())
	sess := &session.Session{}

	err := svc.AddItem(context.Background(), sess, 3, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
	assert.True(t, sess.Cart().IsEmpty())
}

func TestCartAddItemUnknownProduct(t *testing.T) {
	svc := NewCartService(seedProducts(t), testLogger())
	sess := &session.Session{}

	err := svc.AddItem(context.Background(), sess, 99, 1)
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestCartAddItemClampsToAvailability(t *testing.T) {
	svc := NewCartService(seedProducts(t), testLogger())
	sess := &session.Session{}

	require.NoError(t, svc.AddItem(context.Background(), sess, 2, 500))
	assert.Equal(t, int32(2), sess.Cart().Lines[0].Quantity)

	flashes := sess.DrainFlashes()
	require.Len(t, flashes, 1)
	assert.Contains(t, flashes[0].Text, "Only 2 unit(s) left")

	// Drained once, gone on the next render.
	assert.Empty(t, sess.DrainFlashes())
}

func TestCartPriceLockedAtAddTime(t *testing.T) {
	store := seedProducts(t)
	svc := NewCartService(store, testLogger())
	sess := &session.Session{}
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, sess, 1, 1))

	// Raising the catalog price must not change the cached line price.
	require.NoError(t, store.Update(ctx, 1, domain.ProductInput{
		Name: "Kopi Beans", Price: decimal.RequireFromString("9.99"), Category: "pantry", Quantity: 10,
	}))
	require.NoError(t, svc.UpdateItem(ctx, sess, 1, 2))

	cart := sess.Cart()
	assert.Equal(t, "6.98", cart.Totals.Subtotal.StringFixed(2))
}

func TestCartUpdateItemRemovesAtZero(t *testing.T) {
	svc := NewCartService(seedProducts(t), testLogger())
	sess := &session.Session{}
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, sess, 1, 2))
	require.NoError(t, svc.UpdateItem(ctx, sess, 1, 0))

	cart := sess.Cart()
	assert.True(t, cart.IsEmpty())
	assert.True(t, cart.Totals.Total.IsZero())
}

func TestCartUpdateItemMissingLine(t *testing.T) {
	svc := NewCartService(seedProducts(t), testLogger())
	sess := &session.Session{}

	err := svc.UpdateItem(context.Background(), sess, 1, 2)
	assert.ErrorIs(t, err, domain.ErrCartItemNotFound)
}

func TestCartUpdateItemClampsWhenStockDropped(t *testing.T) {
	store := seedProducts(t)
	svc := NewCartService(store, testLogger())
	sess := &session.Session{}
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, sess, 2, 1))
	require.NoError(t, store.Update(ctx, 2, domain.ProductInput{
		Name: "Laksa Paste", Price: decimal.RequireFromString("5.20"), Category: "pantry", Quantity: 1,
	}))

	require.NoError(t, svc.UpdateItem(ctx, sess, 2, 5))
	assert.Equal(t, int32(1), sess.Cart().Lines[0].Quantity)

	flashes := sess.DrainFlashes()
	require.Len(t, flashes, 1)
	assert.Contains(t, flashes[0].Text, "Quantity adjusted")
}

func TestCartRemoveItemRecomputes(t *testing.T) {
	svc := NewCartService(seedProducts(t), testLogger())
	sess := &session.Session{}
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, sess, 1, 2))
	require.NoError(t, svc.AddItem(ctx, sess, 2, 1))
	require.NoError(t, svc.RemoveItem(ctx, sess, 2))

	cart := sess.Cart()
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "6.98", cart.Totals.Subtotal.StringFixed(2))
}

func TestCartTotalsInvariantUnderMutationOrder(t *testing.T) {
	ctx := context.Background()

	// Two different mutation orders arriving at the same lines must yield
	// identical totals.
	buildA := func() *domain.Cart {
		svc := NewCartService(seedProducts(t), testLogger())
		sess := &session.Session{}
		require.NoError(t, svc.AddItem(ctx, sess, 1, 1))
		require.NoError(t, svc.AddItem(ctx, sess, 2, 2))
		require.NoError(t, svc.UpdateItem(ctx, sess, 1, 2))
		return sess.Cart()
	}
	buildB := func() *domain.Cart {
		svc := NewCartService(seedProducts(t), testLogger())
		sess := &session.Session{}
		require.NoError(t, svc.AddItem(ctx, sess, 2, 1))
		require.NoError(t, svc.AddItem(ctx, sess, 1, 2))
		require.NoError(t, svc.UpdateItem(ctx, sess, 2, 2))
		return sess.Cart()
	}

	a, b := buildA(), buildB()
	assert.True(t, a.Totals.Subtotal.Equal(b.Totals.Subtotal))
	assert.True(t, a.Totals.Tax.Equal(b.Totals.Tax))
	assert.True(t, a.Totals.Total.Equal(b.Totals.Total))
	assert.True(t, a.Totals.Total.Equal(a.Totals.Subtotal.Add(a.Totals.Tax)))
}

func TestCartAnnotateFillsAvailability(t *testing.T) {
	store := seedProducts(t)
	svc := NewCartService(store, testLogger())
	sess := &session.Session{}
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, sess, 2, 1))
	require.NoError(t, svc.Annotate(ctx, sess))
	assert.Equal(t, int32(2), sess.Cart().Lines[0].Available)

	// A deleted product shows as unavailable rather than erroring.
	require.NoError(t, store.Delete(ctx, 2))
	require.NoError(t, svc.Annotate(ctx, sess))
	assert.Equal(t, int32(0), sess.Cart().Lines[0].Available)
}
