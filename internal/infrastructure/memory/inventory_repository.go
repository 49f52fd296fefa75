package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/inventory"
)

type InventoryRepository struct {
	mu        sync.RWMutex
	variants  map[string]*domain.Variant
	movements map[string]domain.Movement
	products  map[string]domain.ProductStatus
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		variants:  make(map[string]*domain.Variant),
		movements: make(map[string]domain.Movement),
		products:  make(map[string]domain.ProductStatus),
	}
}

func (r *InventoryRepository) Get(ctx context.Context, variantID string) (*domain.Variant, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.variants[variantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v.Clone(), nil
}

func (r *InventoryRepository) Save(ctx context.Context, variant *domain.Variant) error {
	_ = ctx
	if variant == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.variants[variant.ID] = variant.Clone()
	return nil
}

func (r *InventoryRepository) ListByProduct(ctx context.Context, productID string) ([]*domain.Variant, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Variant, 0)
	for _, v := range r.variants {
		if v.ProductID == productID {
			out = append(out, v.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InventoryRepository) Apply(ctx context.Context, m domain.Movement) (*domain.Variant, error) {
	_ = ctx
	if err := m.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.variants[m.VariantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if _, applied := r.movements[m.Key]; applied {
		return v.Clone(), nil
	}

	next := v.Clone()
	var err error
	switch m.Kind {
	case domain.MovementReserve:
		err = next.Take(m.Quantity)
	case domain.MovementRelease:
		err = next.Put(m.Quantity)
	default:
		err = domain.ErrInvalidQuantity
	}
	if err != nil {
		return nil, err
	}

	r.variants[m.VariantID] = next
	r.movements[m.Key] = m
	return next.Clone(), nil
}

func (r *InventoryRepository) SetProductStatus(ctx context.Context, productID string, status domain.ProductStatus) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[productID] = status
	return nil
}

func (r *InventoryRepository) ProductStatus(ctx context.Context, productID string) (domain.ProductStatus, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	status, ok := r.products[productID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return status, nil
}
