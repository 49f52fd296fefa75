package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
)

type RequestRepository struct {
	mu      sync.RWMutex
	cancels map[string]*domain.CancelRequest
	returns map[string]*domain.ReturnRequest
}

func NewRequestRepository() *RequestRepository {
	return &RequestRepository{
		cancels: make(map[string]*domain.CancelRequest),
		returns: make(map[string]*domain.ReturnRequest),
	}
}

func (r *RequestRepository) CreateCancel(ctx context.Context, req *domain.CancelRequest) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	c := *req
	r.cancels[req.ID] = &c
	return nil
}

func (r *RequestRepository) ListCancels(ctx context.Context, userID string) ([]*domain.CancelRequest, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.CancelRequest, 0, len(r.cancels))
	for _, c := range r.cancels {
		if userID != "" && c.UserID != userID {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *RequestRepository) CreateReturn(ctx context.Context, req *domain.ReturnRequest) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.returns {
		if existing.OrderID == req.OrderID && existing.Status != domain.RequestRejected {
			return domain.ErrDuplicateRequest
		}
	}
	r.returns[req.ID] = req.Clone()
	return nil
}

func (r *RequestRepository) GetReturn(ctx context.Context, id string) (*domain.ReturnRequest, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.returns[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	return req.Clone(), nil
}

func (r *RequestRepository) UpdateReturnStatus(ctx context.Context, id string, from, to domain.RequestStatus, at time.Time) (*domain.ReturnRequest, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.returns[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	if req.Status != from {
		return nil, domain.ErrConflict
	}
	req.Status = to
	req.UpdatedAt = at.UTC()
	return req.Clone(), nil
}

func (r *RequestRepository) ListReturns(ctx context.Context, userID string) ([]*domain.ReturnRequest, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.ReturnRequest, 0, len(r.returns))
	for _, req := range r.returns {
		if userID != "" && req.UserID != userID {
			continue
		}
		out = append(out, req.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
