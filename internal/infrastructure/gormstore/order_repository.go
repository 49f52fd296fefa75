package gormstore

import (
	"context"

	"gorm.io/gorm"

	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func preloadLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") })
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	row := toOrderRow(o)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if isDuplicate(err) {
		return domain.ErrConflict
	}
	return err
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	var row orderRow
	if err := preloadLines(r.db.WithContext(ctx)).First(&row, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, o *domain.Order, from domain.Status) error {
	res := r.db.WithContext(ctx).Model(&orderRow{}).
		Where("id = ? AND status = ?", o.ID, string(from)).
		Updates(map[string]any{
			"status":       string(o.Status),
			"delivered_at": o.DeliveredAt,
			"updated_at":   o.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&orderRow{}).Where("id = ?", o.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&orderLineRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&orderRow{}).Error
	})
}

func (r *OrderRepository) List(ctx context.Context, q domain.Query) (domain.Page, error) {
	q = q.Normalize()
	scope := r.db.WithContext(ctx).Model(&orderRow{})
	if q.UserID != "" {
		scope = scope.Where("user_id = ?", q.UserID)
	}
	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, s := range q.Statuses {
			statuses[i] = string(s)
		}
		scope = scope.Where("status IN ?", statuses)
	}
	if q.PaymentMethod != "" {
		scope = scope.Where("payment_method = ?", string(q.PaymentMethod))
	}
	if q.CreatedFrom != nil {
		scope = scope.Where("created_at >= ?", q.CreatedFrom.UTC())
	}
	if q.CreatedTo != nil {
		scope = scope.Where("created_at <= ?", q.CreatedTo.UTC())
	}
	if q.MinTotal != nil {
		scope = scope.Where("final_total >= ?", *q.MinTotal)
	}
	if q.MaxTotal != nil {
		scope = scope.Where("final_total <= ?", *q.MaxTotal)
	}

	page := domain.Page{Page: q.Page, Limit: q.Limit}
	if err := scope.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
		return domain.Page{}, err
	}

	var rows []orderRow
	if err := preloadLines(scope).Order("created_at DESC, id DESC").Limit(q.Limit).Offset(q.Offset()).Find(&rows).Error; err != nil {
		return domain.Page{}, err
	}
	page.Orders = make([]*domain.Order, 0, len(rows))
	for i := range rows {
		page.Orders = append(page.Orders, rows[i].toDomain())
	}
	return page, nil
}

func toOrderRow(o *domain.Order) orderRow {
	row := orderRow{
		ID:             o.ID,
		UserID:         o.UserID,
		AddressID:      o.AddressID,
		Subtotal:       o.Subtotal,
		ShippingFee:    o.ShippingFee,
		OrderVoucherID: o.OrderVoucherID,
		OrderDiscount:  o.OrderDiscount,
		ShipVoucherID:  o.ShipVoucherID,
		ShipDiscount:   o.ShipDiscount,
		FinalTotal:     o.FinalTotal,
		PaymentMethod:  string(o.PaymentMethod),
		Status:         string(o.Status),
		DeliveredAt:    o.DeliveredAt,
		Note:           o.Note,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		Lines:          make([]orderLineRow, 0, len(o.Lines)),
	}
	for i, l := range o.Lines {
		row.Lines = append(row.Lines, orderLineRow{
			ID:        l.ID,
			OrderID:   o.ID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Position:  i,
		})
	}
	return row
}

func (row *orderRow) toDomain() *domain.Order {
	o := &domain.Order{
		ID:             row.ID,
		UserID:         row.UserID,
		AddressID:      row.AddressID,
		Subtotal:       row.Subtotal,
		ShippingFee:    row.ShippingFee,
		OrderVoucherID: row.OrderVoucherID,
		OrderDiscount:  row.OrderDiscount,
		ShipVoucherID:  row.ShipVoucherID,
		ShipDiscount:   row.ShipDiscount,
		FinalTotal:     row.FinalTotal,
		PaymentMethod:  domain.PaymentMethod(row.PaymentMethod),
		Status:         domain.Status(row.Status),
		DeliveredAt:    row.DeliveredAt,
		Note:           row.Note,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
		Lines:          make([]domain.Line, 0, len(row.Lines)),
	}
	for _, l := range row.Lines {
		o.Lines = append(o.Lines, domain.Line{
			ID:        l.ID,
			OrderID:   l.OrderID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return o
}
