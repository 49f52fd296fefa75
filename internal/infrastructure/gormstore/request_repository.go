package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
)

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) CreateCancel(ctx context.Context, req *domain.CancelRequest) error {
	return r.db.WithContext(ctx).Create(&cancelRequestRow{
		ID:          req.ID,
		OrderID:     req.OrderID,
		UserID:      req.UserID,
		Reason:      req.Reason,
		Status:      string(req.Status),
		AdminCancel: req.AdminCancel,
		CreatedAt:   req.CreatedAt,
	}).Error
}

func (r *RequestRepository) ListCancels(ctx context.Context, userID string) ([]*domain.CancelRequest, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	var rows []cancelRequestRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.CancelRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, &domain.CancelRequest{
			ID:          row.ID,
			OrderID:     row.OrderID,
			UserID:      row.UserID,
			Reason:      row.Reason,
			Status:      domain.RequestStatus(row.Status),
			AdminCancel: row.AdminCancel,
			CreatedAt:   row.CreatedAt,
		})
	}
	return out, nil
}

func (r *RequestRepository) CreateReturn(ctx context.Context, req *domain.ReturnRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		if err := tx.Model(&returnRequestRow{}).
			Where("order_id = ? AND status <> ?", req.OrderID, string(domain.RequestRejected)).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return domain.ErrDuplicateRequest
		}
		return tx.Create(&returnRequestRow{
			ID:        req.ID,
			OrderID:   req.OrderID,
			LineID:    req.LineID,
			UserID:    req.UserID,
			Reason:    req.Reason,
			Quantity:  req.Quantity,
			Images:    req.Images,
			Status:    string(req.Status),
			CreatedAt: req.CreatedAt,
			UpdatedAt: req.UpdatedAt,
		}).Error
	})
}

func (r *RequestRepository) GetReturn(ctx context.Context, id string) (*domain.ReturnRequest, error) {
	var row returnRequestRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *RequestRepository) UpdateReturnStatus(ctx context.Context, id string, from, to domain.RequestStatus, at time.Time) (*domain.ReturnRequest, error) {
	res := r.db.WithContext(ctx).Model(&returnRequestRow{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]any{"status": string(to), "updated_at": at.UTC()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetReturn(ctx, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrConflict
	}
	return r.GetReturn(ctx, id)
}

func (r *RequestRepository) ListReturns(ctx context.Context, userID string) ([]*domain.ReturnRequest, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	var rows []returnRequestRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.ReturnRequest, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (row *returnRequestRow) toDomain() *domain.ReturnRequest {
	return &domain.ReturnRequest{
		ID:        row.ID,
		OrderID:   row.OrderID,
		LineID:    row.LineID,
		UserID:    row.UserID,
		Reason:    row.Reason,
		Quantity:  row.Quantity,
		Images:    append([]domain.ReturnImage(nil), row.Images...),
		Status:    domain.RequestStatus(row.Status),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
