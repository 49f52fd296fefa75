package order

import (
	"context"

	voucherapp "github.com/LoiPham2005/backend-doantotnghiep/internal/application/voucher"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/inventory"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/voucher"
)

// Ledger is the stock side of checkout and cancellation.
type Ledger interface {
	Variant(ctx context.Context, variantID string) (*inventory.Variant, error)
	CheckAvailability(ctx context.Context, variantID string, quantity int) error
	Reserve(ctx context.Context, req inventory.Request) (*inventory.Variant, error)
	Release(ctx context.Context, req inventory.Request) (*inventory.Variant, error)
}

type Vouchers interface {
	Validate(ctx context.Context, in voucherapp.ValidateInput) (voucher.Quote, error)
	Redeem(ctx context.Context, userID, voucherID string) (voucher.Redemption, error)
	Restore(ctx context.Context, red voucher.Redemption) error
}

type Notifier interface {
	Notify(ctx context.Context, req notification.Request) (*notification.Notification, error)
}

// CartCleaner drops purchased variants from a user's cart.
type CartCleaner interface {
	DeleteVariants(ctx context.Context, userID string, variantIDs []string) error
}
