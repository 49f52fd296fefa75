// Package apperr classifies errors raised by the application layer into the
// kinds the transport edge reports.
package apperr

import (
	"errors"
	"fmt"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/cart"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/inventory"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/payment"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/user"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/voucher"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// Validation builds an input error.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Forbidden reports that the caller may not act on the resource.
func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindInsufficientStock
	KindInvalidVoucher
	KindInvalidTransition
	KindForbidden
	KindConflict
	KindGateway
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindInvalidVoucher:
		return "invalid_voucher"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindGateway:
		return "gateway_error"
	default:
		return "internal_error"
	}
}

var (
	notFound = []error{
		ErrNotFound,
		order.ErrNotFound,
		order.ErrRequestNotFound,
		inventory.ErrNotFound,
		voucher.ErrNotFound,
		voucher.ErrGrantNotFound,
		payment.ErrNotFound,
		notification.ErrNotFound,
		cart.ErrNotFound,
		user.ErrNotFound,
	}
	validation = []error{
		ErrValidation,
		order.ErrInvalidQuantity,
		order.ErrEmptyOrder,
		order.ErrInvalidPaymentMethod,
		order.ErrInvalidStatus,
		order.ErrInvalidTotals,
		order.ErrInvalidReturn,
		inventory.ErrInvalidQuantity,
		inventory.ErrNegativeStock,
		inventory.ErrInvalidKey,
		voucher.ErrInvalidArgument,
		notification.ErrInvalidInput,
		cart.ErrInvalidQuantity,
		payment.ErrInvalidCallback,
	}
	conflict = []error{
		ErrConflict,
		order.ErrConflict,
		order.ErrDuplicateRequest,
		payment.ErrConflict,
		voucher.ErrCodeTaken,
		voucher.ErrAlreadyClaimed,
	}
	invalidVoucher = []error{
		voucher.ErrInvalidVoucher,
		voucher.ErrExhausted,
		voucher.ErrGrantNotUsable,
	}
)

// KindOf maps err onto the taxonomy. Typed errors win over the sentinels they
// wrap, so a stock error is never reported as a plain conflict.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, inventory.ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, order.ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, payment.ErrGateway):
		return KindGateway
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case isAny(err, invalidVoucher):
		return KindInvalidVoucher
	case isAny(err, notFound):
		return KindNotFound
	case isAny(err, validation):
		return KindValidation
	case isAny(err, conflict):
		return KindConflict
	}
	return KindInternal
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
