package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/cart"
)

type CartRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Item
}

func NewCartRepository() *CartRepository {
	return &CartRepository{items: make(map[string]*domain.Item)}
}

func (r *CartRepository) Add(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	_ = ctx
	if item.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.UserID == item.UserID && existing.VariantID == item.VariantID {
			existing.Quantity += item.Quantity
			existing.UpdatedAt = time.Now().UTC()
			return existing.Clone(), nil
		}
	}
	r.items[item.ID] = item.Clone()
	return item.Clone(), nil
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.Item, error) {
	_ = ctx
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[itemID]
	if !ok || item.UserID != userID {
		return nil, domain.ErrNotFound
	}
	item.Quantity = quantity
	item.UpdatedAt = time.Now().UTC()
	return item.Clone(), nil
}

func (r *CartRepository) Delete(ctx context.Context, userID, itemID string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[itemID]
	if !ok || item.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.items, itemID)
	return nil
}

func (r *CartRepository) List(ctx context.Context, userID string) ([]*domain.Item, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Item, 0)
	for _, item := range r.items {
		if item.UserID == userID {
			out = append(out, item.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	return r.DeleteVariants(ctx, userID, nil)
}

// DeleteVariants removes the given variants from the cart; nil removes everything.
func (r *CartRepository) DeleteVariants(ctx context.Context, userID string, variantIDs []string) error {
	_ = ctx

	drop := make(map[string]struct{}, len(variantIDs))
	for _, id := range variantIDs {
		drop[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, item := range r.items {
		if item.UserID != userID {
			continue
		}
		if _, ok := drop[item.VariantID]; ok || variantIDs == nil {
			delete(r.items, id)
		}
	}
	return nil
}
