package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/payment"
)

// PaymentRepository keys records by order id; an order has one record.
type PaymentRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.Record
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{records: make(map[string]*domain.Record)}
}

func (r *PaymentRepository) Insert(ctx context.Context, rec *domain.Record) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[rec.OrderID]; exists {
		return domain.ErrConflict
	}
	r.records[rec.OrderID] = rec.Clone()
	return nil
}

func (r *PaymentRepository) GetByOrder(ctx context.Context, orderID string) (*domain.Record, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *PaymentRepository) DeleteByOrder(ctx context.Context, orderID string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, orderID)
	return nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, orderID string, from []domain.Status, to domain.Status, reference string) (*domain.Record, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !slices.Contains(from, rec.Status) {
		return nil, domain.ErrConflict
	}
	rec.Status = to
	if reference != "" {
		rec.Reference = reference
	}
	rec.UpdatedAt = time.Now().UTC()
	return rec.Clone(), nil
}
