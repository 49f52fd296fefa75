package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/voucher"
)

type VoucherRepository struct {
	mu       sync.RWMutex
	vouchers map[string]*domain.Voucher
	codes    map[string]string
}

func NewVoucherRepository() *VoucherRepository {
	return &VoucherRepository{
		vouchers: make(map[string]*domain.Voucher),
		codes:    make(map[string]string),
	}
}

func (r *VoucherRepository) Create(ctx context.Context, v *domain.Voucher) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.codes[v.Code]; taken {
		return domain.ErrCodeTaken
	}
	r.vouchers[v.ID] = v.Clone()
	r.codes[v.Code] = v.ID
	return nil
}

func (r *VoucherRepository) Get(ctx context.Context, id string) (*domain.Voucher, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.vouchers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v.Clone(), nil
}

func (r *VoucherRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Voucher, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Voucher, 0, len(r.vouchers))
	for _, v := range r.vouchers {
		if filter.Kind != "" && v.Kind != filter.Kind {
			continue
		}
		if filter.ActiveAt != nil && v.Usable(*filter.ActiveAt) != nil {
			continue
		}
		out = append(out, v.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

func (r *VoucherRepository) DecrementQuantity(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.vouchers[id]
	if !ok {
		return domain.ErrNotFound
	}
	if v.Quantity <= 0 {
		return domain.ErrExhausted
	}
	v.Quantity--
	v.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *VoucherRepository) IncrementQuantity(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.vouchers[id]
	if !ok {
		return domain.ErrNotFound
	}
	v.Quantity++
	v.UpdatedAt = time.Now().UTC()
	return nil
}

type GrantRepository struct {
	mu     sync.RWMutex
	grants map[string]*domain.Grant // userID|voucherID -> grant
}

func NewGrantRepository() *GrantRepository {
	return &GrantRepository{grants: make(map[string]*domain.Grant)}
}

func grantKey(userID, voucherID string) string { return userID + "|" + voucherID }

func (r *GrantRepository) Create(ctx context.Context, g *domain.Grant) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	key := grantKey(g.UserID, g.VoucherID)
	if _, exists := r.grants[key]; exists {
		return domain.ErrAlreadyClaimed
	}
	r.grants[key] = g.Clone()
	return nil
}

func (r *GrantRepository) Find(ctx context.Context, userID, voucherID string) (*domain.Grant, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.grants[grantKey(userID, voucherID)]
	if !ok {
		return nil, domain.ErrGrantNotFound
	}
	return g.Clone(), nil
}

func (r *GrantRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Grant, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Grant, 0)
	for _, g := range r.grants {
		if g.UserID == userID {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *GrantRepository) MarkUsed(ctx context.Context, userID, voucherID string, at time.Time) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.grants[grantKey(userID, voucherID)]
	if !ok {
		return domain.ErrGrantNotFound
	}
	if g.Status != domain.GrantAvailable {
		return domain.ErrGrantNotUsable
	}
	used := at.UTC()
	g.Status = domain.GrantUsed
	g.UsedAt = &used
	return nil
}

func (r *GrantRepository) MarkAvailable(ctx context.Context, userID, voucherID string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.grants[grantKey(userID, voucherID)]
	if !ok {
		return domain.ErrGrantNotFound
	}
	g.Status = domain.GrantAvailable
	g.UsedAt = nil
	return nil
}
