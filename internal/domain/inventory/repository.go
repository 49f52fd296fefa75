package inventory

import "context"

type Repository interface {
	Get(ctx context.Context, variantID string) (*Variant, error)
	Save(ctx context.Context, variant *Variant) error
	ListByProduct(ctx context.Context, productID string) ([]*Variant, error)

	// Apply performs the movement atomically: a reserve succeeds only when the
	// current quantity covers it. Replaying an applied key is a no-op that
	// returns the current variant.
	Apply(ctx context.Context, m Movement) (*Variant, error)

	SetProductStatus(ctx context.Context, productID string, status ProductStatus) error
	ProductStatus(ctx context.Context, productID string) (ProductStatus, error)
}
