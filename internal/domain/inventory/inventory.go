package inventory

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound          = errors.New("inventory: variant not found")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrNegativeStock     = errors.New("inventory: stock must not be negative")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	ErrInvalidKey        = errors.New("inventory: movement key is required")
)

type VariantStatus string

const (
	VariantAvailable  VariantStatus = "available"
	VariantOutOfStock VariantStatus = "out_of_stock"
)

type ProductStatus string

const (
	ProductActive     ProductStatus = "active"
	ProductOutOfStock ProductStatus = "out_of_stock"
)

// Variant is the unit of stock. Status always mirrors Quantity.
type Variant struct {
	ID        string
	ProductID string
	SKU       string
	Price     int64
	Quantity  int
	Status    VariantStatus
	UpdatedAt time.Time
}

func NewVariant(id, productID, sku string, price int64, quantity int) (*Variant, error) {
	if id == "" || productID == "" {
		return nil, errors.New("inventory: variant and product ids are required")
	}
	if price < 0 {
		return nil, errors.New("inventory: price must not be negative")
	}
	if quantity < 0 {
		return nil, ErrNegativeStock
	}
	return &Variant{
		ID:        id,
		ProductID: productID,
		SKU:       sku,
		Price:     price,
		Quantity:  quantity,
		Status:    StatusFor(quantity),
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// StatusFor derives the variant status from a stock level.
func StatusFor(quantity int) VariantStatus {
	if quantity > 0 {
		return VariantAvailable
	}
	return VariantOutOfStock
}

// SetQuantity replaces the stock level, e.g. from an admin edit.
func (v *Variant) SetQuantity(quantity int) error {
	if quantity < 0 {
		return ErrNegativeStock
	}
	v.Quantity = quantity
	v.Status = StatusFor(quantity)
	v.touch()
	return nil
}

// Take removes quantity from stock, failing without mutation when not enough is on hand.
func (v *Variant) Take(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > v.Quantity {
		return &InsufficientStockError{VariantID: v.ID, Available: v.Quantity, Requested: quantity}
	}
	v.Quantity -= quantity
	v.Status = StatusFor(v.Quantity)
	v.touch()
	return nil
}

func (v *Variant) Put(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	v.Quantity += quantity
	v.Status = StatusFor(v.Quantity)
	v.touch()
	return nil
}

func (v *Variant) Clone() *Variant {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func (v *Variant) touch() {
	v.UpdatedAt = time.Now().UTC()
}

// RollupStatus computes a product status from all of its variants.
func RollupStatus(variants []*Variant) ProductStatus {
	for _, v := range variants {
		if v.Quantity > 0 {
			return ProductActive
		}
	}
	return ProductOutOfStock
}

// InsufficientStockError names the variant that could not be served.
type InsufficientStockError struct {
	VariantID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for variant %s: available %d, requested %d",
		e.VariantID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type MovementKind string

const (
	MovementReserve MovementKind = "reserve"
	MovementRelease MovementKind = "release"
)

// Movement is one applied stock change. Key is unique: a movement whose key
// was already applied is not applied again.
type Movement struct {
	Key       string
	VariantID string
	OrderID   string
	Kind      MovementKind
	Quantity  int
	CreatedAt time.Time
}

func (m Movement) Validate() error {
	if m.Key == "" {
		return ErrInvalidKey
	}
	if m.VariantID == "" {
		return ErrNotFound
	}
	if m.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// Request asks the ledger to move Quantity units of a variant on behalf of an order.
type Request struct {
	Key       string
	OrderID   string
	VariantID string
	Quantity  int
}

func (r Request) Movement(kind MovementKind, at time.Time) Movement {
	return Movement{
		Key:       r.Key,
		VariantID: r.VariantID,
		OrderID:   r.OrderID,
		Kind:      kind,
		Quantity:  r.Quantity,
		CreatedAt: at.UTC(),
	}
}
