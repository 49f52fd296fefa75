package inventory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/inventory"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/memory"
)

func newLedger(t *testing.T, stock map[string]int) (*Ledger, *memory.InventoryRepository) {
	t.Helper()
	repo := memory.NewInventoryRepository()
	for id, qty := range stock {
		v, err := domain.NewVariant(id, "shoe", "SKU-"+id, 450000, qty)
		require.NoError(t, err)
		require.NoError(t, repo.Save(context.Background(), v))
	}
	l, err := NewLedger(LedgerDeps{Repo: repo})
	require.NoError(t, err)
	return l, repo
}

func TestNewLedgerRequiresRepository(t *testing.T) {
	_, err := NewLedger(LedgerDeps{})
	assert.Error(t, err)
}

func TestCheckAvailability(t *testing.T) {
	l, _ := newLedger(t, map[string]int{"v1": 2})
	ctx := context.Background()

	require.NoError(t, l.CheckAvailability(ctx, "v1", 2))

	err := l.CheckAvailability(ctx, "v1", 3)
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)

	assert.ErrorIs(t, l.CheckAvailability(ctx, "missing", 1), domain.ErrNotFound)
	assert.ErrorIs(t, l.CheckAvailability(ctx, "v1", 0), domain.ErrInvalidQuantity)

	v, err := l.Variant(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 2, v.Quantity, "check must not mutate stock")
}

func TestReserveAndReleaseRollup(t *testing.T) {
	l, _ := newLedger(t, map[string]int{"v1": 2, "v2": 0})
	ctx := context.Background()

	v, err := l.Reserve(ctx, domain.Request{Key: "order:o1:v1", OrderID: "o1", VariantID: "v1", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, v.Quantity)
	assert.Equal(t, domain.VariantOutOfStock, v.Status)

	status, err := l.ProductStatus(ctx, "shoe")
	require.NoError(t, err)
	assert.Equal(t, domain.ProductOutOfStock, status)

	_, err = l.Release(ctx, domain.Request{Key: "cancel:o1:v1", OrderID: "o1", VariantID: "v1", Quantity: 2})
	require.NoError(t, err)
	status, err = l.ProductStatus(ctx, "shoe")
	require.NoError(t, err)
	assert.Equal(t, domain.ProductActive, status)
}

func TestReleaseIsIdempotent(t *testing.T) {
	l, _ := newLedger(t, map[string]int{"v1": 3})
	ctx := context.Background()
	req := domain.Request{Key: "cancel:o1:v1", OrderID: "o1", VariantID: "v1", Quantity: 2}

	for i := 0; i < 3; i++ {
		_, err := l.Release(ctx, req)
		require.NoError(t, err)
	}
	v, err := l.Variant(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 5, v.Quantity)
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	l, _ := newLedger(t, map[string]int{"v1": 5})
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = l.Reserve(ctx, domain.Request{
				Key: fmt.Sprintf("order:o%d:v1", i), OrderID: fmt.Sprintf("o%d", i), VariantID: "v1", Quantity: 3,
			})
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range results {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	v, err := l.Variant(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 2, v.Quantity)
}

func TestSetStock(t *testing.T) {
	l, _ := newLedger(t, map[string]int{"v1": 0})
	ctx := context.Background()

	v, err := l.SetStock(ctx, "v1", 7)
	require.NoError(t, err)
	assert.Equal(t, domain.VariantAvailable, v.Status)

	_, err = l.SetStock(ctx, "v1", -1)
	assert.ErrorIs(t, err, domain.ErrNegativeStock)
	_, err = l.SetStock(ctx, "ghost", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
