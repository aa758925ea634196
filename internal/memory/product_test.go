package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhobart/minimart/internal/domain"
)

func seededStore() *ProductStore {
	s := NewProductStore()
	s.Seed(
		domain.Product{ID: 1, Name: "Kopi Beans", Price: decimal.RequireFromString("3.49"), Quantity: 1},
		domain.Product{ID: 2, Name: "Laksa Paste", Price: decimal.RequireFromString("5.20"), Quantity: 5},
	)
	return s
}

func TestEnsureStockReportsFirstShortfall(t *testing.T) {
	s := seededStore()

	err := s.EnsureStock(context.Background(), []domain.StockRequest{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 9},
	})
	require.Error(t, err)

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(2), stockErr.ProductID)
	assert.Equal(t, int32(5), stockErr.Available)
	assert.Equal(t, int32(9), stockErr.Requested)

	// Advisory only: nothing changed.
	p, err := s.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.Quantity)
}

func TestDecrementStockAllOrNothing(t *testing.T) {
	s := seededStore()

	err := s.DecrementStock(context.Background(), []domain.StockRequest{
		{ProductID: 2, Quantity: 3},
		{ProductID: 1, Quantity: 2},
	})
	require.Error(t, err)

	// The passing line must not have been decremented.
	p, err := s.FindByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int32(5), p.Quantity)
}

func TestDecrementStockLastUnitRace(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.DecrementStock(ctx, []domain.StockRequest{{ProductID: 1, Quantity: 1}})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			var stockErr *domain.InsufficientStockError
			require.ErrorAs(t, err, &stockErr)
		}
	}
	assert.Equal(t, 1, winners)

	p, err := s.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(0), p.Quantity)
}

func TestDecrementStockUnknownProduct(t *testing.T) {
	s := seededStore()

	err := s.DecrementStock(context.Background(), []domain.StockRequest{{ProductID: 99, Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}
