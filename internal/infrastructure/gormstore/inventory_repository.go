package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/inventory"
)

type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) Get(ctx context.Context, variantID string) (*domain.Variant, error) {
	return getVariant(r.db.WithContext(ctx), variantID)
}

func getVariant(tx *gorm.DB, variantID string) (*domain.Variant, error) {
	var row variantRow
	if err := tx.First(&row, "id = ?", variantID).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *InventoryRepository) Save(ctx context.Context, v *domain.Variant) error {
	row := variantRow{
		ID:        v.ID,
		ProductID: v.ProductID,
		SKU:       v.SKU,
		Price:     v.Price,
		Quantity:  v.Quantity,
		Status:    string(v.Status),
		UpdatedAt: v.UpdatedAt,
	}
	return r.db.WithContext(ctx).Save(&row).Error
}

func (r *InventoryRepository) ListByProduct(ctx context.Context, productID string) ([]*domain.Variant, error) {
	var rows []variantRow
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Variant, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// Apply runs the movement as a single conditional UPDATE inside a transaction
// that also records the movement key.
func (r *InventoryRepository) Apply(ctx context.Context, m domain.Movement) (*domain.Variant, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var result *domain.Variant
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.Model(&movementRow{}).Where("movement_key = ?", m.Key).Count(&seen).Error; err != nil {
			return err
		}
		if seen > 0 {
			v, err := getVariant(tx, m.VariantID)
			result = v
			return err
		}

		update := tx.Model(&variantRow{}).Where("id = ?", m.VariantID)
		var sign string
		switch m.Kind {
		case domain.MovementReserve:
			update = update.Where("quantity >= ?", m.Quantity)
			sign = "-"
		case domain.MovementRelease:
			sign = "+"
		default:
			return domain.ErrInvalidQuantity
		}

		// Both expressions read the pre-update quantity.
		status := gorm.Expr("CASE WHEN quantity "+sign+" ? > 0 THEN ? ELSE ? END",
			m.Quantity, string(domain.VariantAvailable), string(domain.VariantOutOfStock))
		res := update.Updates(map[string]any{
			"quantity":   gorm.Expr("quantity "+sign+" ?", m.Quantity),
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			current, err := getVariant(tx, m.VariantID)
			if err != nil {
				return err
			}
			return &domain.InsufficientStockError{VariantID: m.VariantID, Available: current.Quantity, Requested: m.Quantity}
		}

		if err := tx.Create(&movementRow{
			MovementKey: m.Key,
			VariantID:   m.VariantID,
			OrderID:     m.OrderID,
			Kind:        string(m.Kind),
			Quantity:    m.Quantity,
			CreatedAt:   m.CreatedAt,
		}).Error; err != nil {
			return err
		}

		v, err := getVariant(tx, m.VariantID)
		result = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *InventoryRepository) SetProductStatus(ctx context.Context, productID string, status domain.ProductStatus) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&productStatusRow{ProductID: productID, Status: string(status), UpdatedAt: time.Now().UTC()}).Error
}

func (r *InventoryRepository) ProductStatus(ctx context.Context, productID string) (domain.ProductStatus, error) {
	var row productStatusRow
	if err := r.db.WithContext(ctx).First(&row, "product_id = ?", productID).Error; err != nil {
		if isNotFound(err) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return domain.ProductStatus(row.Status), nil
}

func (row *variantRow) toDomain() *domain.Variant {
	return &domain.Variant{
		ID:        row.ID,
		ProductID: row.ProductID,
		SKU:       row.SKU,
		Price:     row.Price,
		Quantity:  row.Quantity,
		Status:    domain.VariantStatus(row.Status),
		UpdatedAt: row.UpdatedAt,
	}
}
