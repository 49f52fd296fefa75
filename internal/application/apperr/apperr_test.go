package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/inventory"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/payment"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/voucher"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation helper", Validation("user id is required"), KindValidation},
		{"wrapped domain validation", fmt.Errorf("order: build: %w", order.ErrEmptyOrder), KindValidation},
		{"stock", &inventory.InsufficientStockError{VariantID: "v1", Available: 1, Requested: 3}, KindInsufficientStock},
		{"voucher", &voucher.InvalidVoucherError{VoucherID: "vc", Reason: voucher.ReasonExpired}, KindInvalidVoucher},
		{"exhausted voucher", voucher.ErrExhausted, KindInvalidVoucher},
		{"transition", &order.InvalidTransitionError{From: order.StatusPending, To: order.StatusShipping}, KindInvalidTransition},
		{"gateway", &payment.GatewayError{Op: "create", Err: errors.New("timeout")}, KindGateway},
		{"forbidden", Forbidden("not your order"), KindForbidden},
		{"not found", fmt.Errorf("load: %w", order.ErrNotFound), KindNotFound},
		{"conflict", order.ErrConflict, KindConflict},
		{"duplicate claim", voucher.ErrAlreadyClaimed, KindConflict},
		{"unknown", errors.New("disk on fire"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "insufficient_stock", KindInsufficientStock.String())
	assert.Equal(t, "internal_error", KindInternal.String())
}
