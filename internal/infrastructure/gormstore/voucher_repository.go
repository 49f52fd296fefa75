package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/voucher"
)

type VoucherRepository struct {
	db *gorm.DB
}

func NewVoucherRepository(db *gorm.DB) *VoucherRepository {
	return &VoucherRepository{db: db}
}

func (r *VoucherRepository) Create(ctx context.Context, v *domain.Voucher) error {
	err := r.db.WithContext(ctx).Create(&voucherRow{
		ID:            v.ID,
		Code:          v.Code,
		Name:          v.Name,
		Kind:          string(v.Kind),
		DiscountType:  string(v.DiscountType),
		DiscountValue: v.DiscountValue,
		MinOrderValue: v.MinOrderValue,
		MaxDiscount:   v.MaxDiscount,
		StartDate:     v.StartDate,
		EndDate:       v.EndDate,
		Quantity:      v.Quantity,
		Active:        v.Active,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}).Error
	if isDuplicate(err) {
		return domain.ErrCodeTaken
	}
	return err
}

func (r *VoucherRepository) Get(ctx context.Context, id string) (*domain.Voucher, error) {
	var row voucherRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *VoucherRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Voucher, error) {
	q := r.db.WithContext(ctx).Order("end_date")
	if filter.Kind != "" {
		q = q.Where("kind = ?", string(filter.Kind))
	}
	if filter.ActiveAt != nil {
		at := filter.ActiveAt.UTC()
		q = q.Where("active = ? AND start_date <= ? AND end_date >= ? AND quantity > 0", true, at, at)
	}
	var rows []voucherRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Voucher, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *VoucherRepository) DecrementQuantity(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&voucherRow{}).
		Where("id = ? AND quantity > 0", id).
		UpdateColumn("quantity", gorm.Expr("quantity - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return domain.ErrExhausted
	}
	return nil
}

func (r *VoucherRepository) IncrementQuantity(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&voucherRow{}).
		Where("id = ?", id).
		UpdateColumn("quantity", gorm.Expr("quantity + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (row *voucherRow) toDomain() *domain.Voucher {
	return &domain.Voucher{
		ID:            row.ID,
		Code:          row.Code,
		Name:          row.Name,
		Kind:          domain.Kind(row.Kind),
		DiscountType:  domain.DiscountType(row.DiscountType),
		DiscountValue: row.DiscountValue,
		MinOrderValue: row.MinOrderValue,
		MaxDiscount:   row.MaxDiscount,
		StartDate:     row.StartDate,
		EndDate:       row.EndDate,
		Quantity:      row.Quantity,
		Active:        row.Active,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

type GrantRepository struct {
	db *gorm.DB
}

func NewGrantRepository(db *gorm.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

func (r *GrantRepository) Create(ctx context.Context, g *domain.Grant) error {
	err := r.db.WithContext(ctx).Create(&grantRow{
		ID:        g.ID,
		UserID:    g.UserID,
		VoucherID: g.VoucherID,
		Status:    string(g.Status),
		UsedAt:    g.UsedAt,
		CreatedAt: g.CreatedAt,
	}).Error
	if isDuplicate(err) {
		return domain.ErrAlreadyClaimed
	}
	return err
}

func (r *GrantRepository) Find(ctx context.Context, userID, voucherID string) (*domain.Grant, error) {
	var row grantRow
	if err := r.db.WithContext(ctx).First(&row, "user_id = ? AND voucher_id = ?", userID, voucherID).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.ErrGrantNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *GrantRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Grant, error) {
	var rows []grantRow
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Grant, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *GrantRepository) MarkUsed(ctx context.Context, userID, voucherID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&grantRow{}).
		Where("user_id = ? AND voucher_id = ? AND status = ?", userID, voucherID, string(domain.GrantAvailable)).
		Updates(map[string]any{"status": string(domain.GrantUsed), "used_at": at.UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.Find(ctx, userID, voucherID); err != nil {
			return err
		}
		return domain.ErrGrantNotUsable
	}
	return nil
}

func (r *GrantRepository) MarkAvailable(ctx context.Context, userID, voucherID string) error {
	res := r.db.WithContext(ctx).Model(&grantRow{}).
		Where("user_id = ? AND voucher_id = ?", userID, voucherID).
		Updates(map[string]any{"status": string(domain.GrantAvailable), "used_at": nil})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrGrantNotFound
	}
	return nil
}

func (row *grantRow) toDomain() *domain.Grant {
	return &domain.Grant{
		ID:        row.ID,
		UserID:    row.UserID,
		VoucherID: row.VoucherID,
		Status:    domain.GrantStatus(row.Status),
		UsedAt:    row.UsedAt,
		CreatedAt: row.CreatedAt,
	}
}
