package inventory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantTakeAndPutKeepStatusInSync(t *testing.T) {
	v, err := NewVariant("v1", "p1", "SKU", 100000, 2)
	require.NoError(t, err)
	assert.Equal(t, VariantAvailable, v.Status)

	require.NoError(t, v.Take(2))
	assert.Equal(t, 0, v.Quantity)
	assert.Equal(t, VariantOutOfStock, v.Status)

	require.NoError(t, v.Put(1))
	assert.Equal(t, VariantAvailable, v.Status)
}

func TestVariantTakeInsufficient(t *testing.T) {
	v, _ := NewVariant("v1", "p1", "", 1, 1)

	err := v.Take(3)
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 1, v.Quantity)
}

func TestRollupStatus(t *testing.T) {
	empty := &Variant{Quantity: 0}
	stocked := &Variant{Quantity: 4}

	assert.Equal(t, ProductOutOfStock, RollupStatus(nil))
	assert.Equal(t, ProductOutOfStock, RollupStatus([]*Variant{empty}))
	assert.Equal(t, ProductActive, RollupStatus([]*Variant{empty, stocked}))
}

func TestMovementValidate(t *testing.T) {
	assert.ErrorIs(t, Movement{VariantID: "v", Quantity: 1}.Validate(), ErrInvalidKey)
	assert.ErrorIs(t, Movement{Key: "k", VariantID: "v"}.Validate(), ErrInvalidQuantity)
	assert.NoError(t, Movement{Key: "k", VariantID: "v", Quantity: 1}.Validate())
}
