package cart

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("cart: item not found")
	ErrInvalidQuantity = errors.New("cart: quantity must be greater than zero")
)

// Item is one variant in a user's cart; (UserID, VariantID) is unique.
type Item struct {
	ID        string
	UserID    string
	VariantID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

type Repository interface {
	// Add inserts the item, or increases the quantity of the existing
	// (user, variant) item and returns it.
	Add(ctx context.Context, item *Item) (*Item, error)
	UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*Item, error)
	Delete(ctx context.Context, userID, itemID string) error
	List(ctx context.Context, userID string) ([]*Item, error)
	Clear(ctx context.Context, userID string) error
	DeleteVariants(ctx context.Context, userID string, variantIDs []string) error
}
