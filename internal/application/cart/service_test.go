package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventoryapp "github.com/LoiPham2005/backend-doantotnghiep/internal/application/inventory"
	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/cart"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/inventory"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/id"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/memory"
)

func newService(t *testing.T) (*Service, *memory.InventoryRepository) {
	t.Helper()
	stock := memory.NewInventoryRepository()
	for _, spec := range []struct {
		id  string
		qty int
	}{{"v1", 3}, {"v2", 10}} {
		v, err := inventory.NewVariant(spec.id, "p1", "SKU-"+spec.id, 120000, spec.qty)
		require.NoError(t, err)
		require.NoError(t, stock.Save(context.Background(), v))
	}
	ledger, err := inventoryapp.NewLedger(inventoryapp.LedgerDeps{Repo: stock})
	require.NoError(t, err)
	svc, err := NewService(ServiceDeps{Repo: memory.NewCartRepository(), Variants: ledger, IDs: id.NewUUIDGenerator()})
	require.NoError(t, err)
	return svc, stock
}

func TestAddMergesSameVariant(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Add(ctx, "u1", "v1", 1)
	require.NoError(t, err)
	second, err := svc.Add(ctx, "u1", "v1", 2)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.Quantity)

	_, err = svc.Add(ctx, "u1", "v1", 1)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock, "cart cannot hold more than the stock")

	lines, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(120000), lines[0].UnitPrice)
	assert.Equal(t, 3, lines[0].Available)
}

func TestAddValidates(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", "v1", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = svc.Add(ctx, "u1", "missing", 1)
	assert.ErrorIs(t, err, inventory.ErrNotFound)
	_, err = svc.Add(ctx, "", "v1", 1)
	assert.Error(t, err)
}

func TestUpdateRemoveAndClear(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	item, err := svc.Add(ctx, "u1", "v2", 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "u1", "v1", 1)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "u1", item.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)

	_, err = svc.Update(ctx, "u1", item.ID, 11)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
	_, err = svc.Update(ctx, "u2", item.ID, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound, "items are scoped to their owner")

	require.NoError(t, svc.Remove(ctx, "u1", item.ID))
	assert.ErrorIs(t, svc.Remove(ctx, "u1", item.ID), domain.ErrNotFound)

	require.NoError(t, svc.Clear(ctx, "u1"))
	lines, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}
