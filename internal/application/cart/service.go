package cart

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/cart"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/inventory"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
)

const (
	cartService   = "cart-service"
	useCaseAdd    = "cart.add"
	useCaseUpdate = "cart.update"
)

// Variants is the catalogue lookup the cart needs.
type Variants interface {
	Variant(ctx context.Context, id string) (*inventory.Variant, error)
}

type ServiceDeps struct {
	Repo     domain.Repository
	Variants Variants
	IDs      application.IDGenerator
	Obs      observability.Observability
	Clock    application.Clock
}

type Service struct {
	repo     domain.Repository
	variants Variants
	ids      application.IDGenerator
	ins      *application.Instruments
	now      application.Clock
}

func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Repo == nil || deps.Variants == nil || deps.IDs == nil {
		return nil, errors.New("cart: repository, variant lookup and id generator are required")
	}
	return &Service{
		repo:     deps.Repo,
		variants: deps.Variants,
		ids:      deps.IDs,
		ins:      application.NewInstruments(deps.Obs, cartService),
		now:      deps.Clock.OrSystem(),
	}, nil
}

// Line is a cart item priced at the variant's current price.
type Line struct {
	Item      *domain.Item
	UnitPrice int64
	Available int
}

// Add puts quantity units of a variant in the cart, merging with an existing
// line. The merged quantity may not exceed the stock on hand.
func (s *Service) Add(ctx context.Context, userID, variantID string, quantity int) (_ *domain.Item, err error) {
	ctx, run := s.ins.Start(ctx, useCaseAdd, "AddToCart",
		attribute.String("cart.variant_id", variantID),
		attribute.Int("cart.quantity", quantity),
	)
	defer func() { run.End(err) }()

	if userID == "" || variantID == "" {
		run.Fail("INPUT_INVALID")
		return nil, apperr.Validation("user id and variant id are required")
	}
	if quantity <= 0 {
		run.Fail("INPUT_INVALID")
		return nil, domain.ErrInvalidQuantity
	}
	v, err := s.variants.Variant(ctx, variantID)
	if err != nil {
		run.Fail("VARIANT_LOAD_FAILED")
		return nil, fmt.Errorf("cart: variant: %w", err)
	}

	inCart, err := s.quantityOf(ctx, userID, variantID)
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, err
	}
	if inCart+quantity > v.Quantity {
		run.Fail("STOCK_UNAVAILABLE")
		return nil, &inventory.InsufficientStockError{VariantID: v.ID, Available: v.Quantity, Requested: inCart + quantity}
	}

	now := s.now()
	item, err := s.repo.Add(ctx, &domain.Item{
		ID:        s.ids.NewID(),
		UserID:    userID,
		VariantID: variantID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		run.Fail("REPO_ADD_FAILED")
		return nil, fmt.Errorf("cart: add: %w", err)
	}
	return item, nil
}

// Update sets the quantity of one of the caller's items.
func (s *Service) Update(ctx context.Context, userID, itemID string, quantity int) (_ *domain.Item, err error) {
	ctx, run := s.ins.Start(ctx, useCaseUpdate, "UpdateCartItem",
		attribute.String("cart.item_id", itemID),
		attribute.Int("cart.quantity", quantity),
	)
	defer func() { run.End(err) }()

	if quantity <= 0 {
		run.Fail("INPUT_INVALID")
		return nil, domain.ErrInvalidQuantity
	}
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, fmt.Errorf("cart: list: %w", err)
	}
	var current *domain.Item
	for _, it := range items {
		if it.ID == itemID {
			current = it
			break
		}
	}
	if current == nil {
		run.Fail("ITEM_NOT_FOUND")
		return nil, domain.ErrNotFound
	}
	v, err := s.variants.Variant(ctx, current.VariantID)
	if err != nil {
		run.Fail("VARIANT_LOAD_FAILED")
		return nil, fmt.Errorf("cart: variant: %w", err)
	}
	if quantity > v.Quantity {
		run.Fail("STOCK_UNAVAILABLE")
		return nil, &inventory.InsufficientStockError{VariantID: v.ID, Available: v.Quantity, Requested: quantity}
	}
	item, err := s.repo.UpdateQuantity(ctx, userID, itemID, quantity)
	if err != nil {
		run.Fail("REPO_UPDATE_FAILED")
		return nil, fmt.Errorf("cart: update: %w", err)
	}
	return item, nil
}

func (s *Service) Remove(ctx context.Context, userID, itemID string) error {
	if err := s.repo.Delete(ctx, userID, itemID); err != nil {
		return fmt.Errorf("cart: delete: %w", err)
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return fmt.Errorf("cart: clear: %w", err)
	}
	return nil
}

// List returns the caller's cart. Items whose variant has disappeared are
// kept with a zero price so the client can drop them.
func (s *Service) List(ctx context.Context, userID string) ([]Line, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("cart: list: %w", err)
	}
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		line := Line{Item: it}
		v, err := s.variants.Variant(ctx, it.VariantID)
		switch {
		case err == nil:
			line.UnitPrice, line.Available = v.Price, v.Quantity
		case !errors.Is(err, inventory.ErrNotFound):
			return nil, fmt.Errorf("cart: variant: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *Service) quantityOf(ctx context.Context, userID, variantID string) (int, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("cart: list: %w", err)
	}
	for _, it := range items {
		if it.VariantID == variantID {
			return it.Quantity, nil
		}
	}
	return 0, nil
}
