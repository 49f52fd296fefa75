package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/cart"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

// Add upserts on (user_id, variant_id) so concurrent adds of the same variant
// accumulate instead of failing.
func (r *CartRepository) Add(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	if item.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "variant_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("carts.quantity + excluded.quantity"),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&cartItemRow{
		ID:        item.ID,
		UserID:    item.UserID,
		VariantID: item.VariantID,
		Quantity:  item.Quantity,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}).Error
	if err != nil {
		return nil, err
	}

	var row cartItemRow
	if err := db.First(&row, "user_id = ? AND variant_id = ?", item.UserID, item.VariantID).Error; err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.Item, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	db := r.db.WithContext(ctx)
	res := db.Model(&cartItemRow{}).
		Where("id = ? AND user_id = ?", itemID, userID).
		Updates(map[string]any{"quantity": quantity, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}

	var row cartItemRow
	if err := db.First(&row, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *CartRepository) Delete(ctx context.Context, userID, itemID string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", itemID, userID).Delete(&cartItemRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CartRepository) List(ctx context.Context, userID string) ([]*domain.Item, error) {
	var rows []cartItemRow
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Item, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	return r.DeleteVariants(ctx, userID, nil)
}

// DeleteVariants removes the given variants from the cart; nil removes everything.
func (r *CartRepository) DeleteVariants(ctx context.Context, userID string, variantIDs []string) error {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if variantIDs != nil {
		if len(variantIDs) == 0 {
			return nil
		}
		q = q.Where("variant_id IN ?", variantIDs)
	}
	return q.Delete(&cartItemRow{}).Error
}

func (row *cartItemRow) toDomain() *domain.Item {
	return &domain.Item{
		ID:        row.ID,
		UserID:    row.UserID,
		VariantID: row.VariantID,
		Quantity:  row.Quantity,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
