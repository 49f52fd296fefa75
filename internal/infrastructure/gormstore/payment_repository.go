package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Insert(ctx context.Context, rec *domain.Record) error {
	err := r.db.WithContext(ctx).Create(&paymentRow{
		ID:        rec.ID,
		OrderID:   rec.OrderID,
		UserID:    rec.UserID,
		Amount:    rec.Amount,
		Method:    rec.Method,
		Status:    string(rec.Status),
		Reference: rec.Reference,
		PayURL:    rec.PayURL,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}).Error
	if isDuplicate(err) {
		return domain.ErrConflict
	}
	return err
}

func (r *PaymentRepository) GetByOrder(ctx context.Context, orderID string) (*domain.Record, error) {
	var row paymentRow
	if err := r.db.WithContext(ctx).First(&row, "order_id = ?", orderID).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.Record{
		ID:        row.ID,
		OrderID:   row.OrderID,
		UserID:    row.UserID,
		Amount:    row.Amount,
		Method:    row.Method,
		Status:    domain.Status(row.Status),
		Reference: row.Reference,
		PayURL:    row.PayURL,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (r *PaymentRepository) DeleteByOrder(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&paymentRow{}).Error
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, orderID string, from []domain.Status, to domain.Status, reference string) (*domain.Record, error) {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	updates := map[string]any{"status": string(to), "updated_at": time.Now().UTC()}
	if reference != "" {
		updates["reference"] = reference
	}

	res := r.db.WithContext(ctx).Model(&paymentRow{}).
		Where("order_id = ? AND status IN ?", orderID, allowed).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByOrder(ctx, orderID); err != nil {
			return nil, err
		}
		return nil, domain.ErrConflict
	}
	return r.GetByOrder(ctx, orderID)
}
