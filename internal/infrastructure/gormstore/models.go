package gormstore

import (
	"time"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
)

type variantRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	ProductID string `gorm:"size:64;index;not null"`
	SKU       string `gorm:"size:64"`
	Price     int64  `gorm:"not null"`
	Quantity  int    `gorm:"not null"`
	Status    string `gorm:"size:16;not null"`
	UpdatedAt time.Time
}

func (variantRow) TableName() string { return "variants" }

type movementRow struct {
	MovementKey string `gorm:"primaryKey;size:191"`
	VariantID   string `gorm:"size:64;index;not null"`
	OrderID     string `gorm:"size:64;index"`
	Kind        string `gorm:"size:16;not null"`
	Quantity    int    `gorm:"not null"`
	CreatedAt   time.Time
}

func (movementRow) TableName() string { return "stock_movements" }

type productStatusRow struct {
	ProductID string `gorm:"primaryKey;size:64"`
	Status    string `gorm:"size:16;not null"`
	UpdatedAt time.Time
}

func (productStatusRow) TableName() string { return "product_statuses" }

type orderRow struct {
	ID             string `gorm:"primaryKey;size:64"`
	UserID         string `gorm:"size:64;index;not null"`
	AddressID      string `gorm:"size:64"`
	Subtotal       int64
	ShippingFee    int64
	OrderVoucherID string `gorm:"size:64"`
	OrderDiscount  int64
	ShipVoucherID  string `gorm:"size:64"`
	ShipDiscount   int64
	FinalTotal     int64  `gorm:"index"`
	PaymentMethod  string `gorm:"size:16;not null"`
	Status         string `gorm:"size:16;index;not null"`
	DeliveredAt    *time.Time
	Note           string
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time
	Lines          []orderLineRow `gorm:"foreignKey:OrderID"`
}

func (orderRow) TableName() string { return "orders" }

type orderLineRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	OrderID   string `gorm:"size:64;index;not null"`
	VariantID string `gorm:"size:64;not null"`
	Quantity  int    `gorm:"not null"`
	UnitPrice int64  `gorm:"not null"`
	Position  int
}

func (orderLineRow) TableName() string { return "order_details" }

type cancelRequestRow struct {
	ID          string `gorm:"primaryKey;size:64"`
	OrderID     string `gorm:"size:64;index;not null"`
	UserID      string `gorm:"size:64;index;not null"`
	Reason      string
	Status      string `gorm:"size:16;not null"`
	AdminCancel bool
	CreatedAt   time.Time
}

func (cancelRequestRow) TableName() string { return "cancel_requests" }

type returnRequestRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	OrderID   string `gorm:"size:64;index;not null"`
	LineID    string `gorm:"size:64;not null"`
	UserID    string `gorm:"size:64;index;not null"`
	Reason    string
	Quantity  int
	Images    []order.ReturnImage `gorm:"serializer:json"`
	Status    string              `gorm:"size:16;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (returnRequestRow) TableName() string { return "return_requests" }

type paymentRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	OrderID   string `gorm:"size:64;uniqueIndex;not null"`
	UserID    string `gorm:"size:64;index"`
	Amount    int64  `gorm:"not null"`
	Method    string `gorm:"size:16"`
	Status    string `gorm:"size:16;not null"`
	Reference string `gorm:"size:191"`
	PayURL    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (paymentRow) TableName() string { return "payments" }

type voucherRow struct {
	ID            string `gorm:"primaryKey;size:64"`
	Code          string `gorm:"size:64;uniqueIndex;not null"`
	Name          string
	Kind          string `gorm:"size:16;not null"`
	DiscountType  string `gorm:"size:16;not null"`
	DiscountValue int64
	MinOrderValue int64
	MaxDiscount   int64
	StartDate     time.Time
	EndDate       time.Time `gorm:"index"`
	Quantity      int
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (voucherRow) TableName() string { return "vouchers" }

type grantRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"size:64;not null;uniqueIndex:idx_user_voucher"`
	VoucherID string `gorm:"size:64;not null;uniqueIndex:idx_user_voucher"`
	Status    string `gorm:"size:16;not null"`
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (grantRow) TableName() string { return "user_vouchers" }

type notificationRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	Title     string `gorm:"not null"`
	Content   string
	Kind      string    `gorm:"size:16;not null"`
	CreatedAt time.Time `gorm:"index"`
}

func (notificationRow) TableName() string { return "notifications" }

type receiptRow struct {
	NotificationID string `gorm:"primaryKey;size:64"`
	UserID         string `gorm:"primaryKey;size:64;index"`
	IsRead         bool   `gorm:"column:is_read;not null;default:false"`
	ReadAt         *time.Time
	CreatedAt      time.Time
}

func (receiptRow) TableName() string { return "notification_users" }

type cartItemRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"size:64;not null;uniqueIndex:idx_cart_user_variant"`
	VariantID string `gorm:"size:64;not null;uniqueIndex:idx_cart_user_variant"`
	Quantity  int    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (cartItemRow) TableName() string { return "carts" }

type userRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	Email     string `gorm:"size:191;uniqueIndex"`
	Username  string `gorm:"size:64"`
	Role      string `gorm:"size:16;index;not null"`
	CreatedAt time.Time
}

func (userRow) TableName() string { return "users" }
