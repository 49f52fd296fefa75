package voucher

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("voucher: not found")
	ErrCodeTaken       = errors.New("voucher: code already exists")
	ErrInvalidVoucher  = errors.New("voucher: not applicable")
	ErrExhausted       = errors.New("voucher: no remaining quantity")
	ErrAlreadyClaimed  = errors.New("voucher: already claimed")
	ErrGrantNotFound   = errors.New("voucher: grant not found")
	ErrGrantNotUsable  = errors.New("voucher: grant is not available")
	ErrInvalidArgument = errors.New("voucher: invalid argument")
)

type Kind string

const (
	KindOrder    Kind = "order"
	KindShipping Kind = "shipping"
)

func (k Kind) Valid() bool { return k == KindOrder || k == KindShipping }

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Voucher struct {
	ID            string
	Code          string
	Name          string
	Kind          Kind
	DiscountType  DiscountType
	DiscountValue int64
	MinOrderValue int64
	// MaxDiscount caps the computed discount; zero means uncapped.
	MaxDiscount int64
	StartDate   time.Time
	EndDate     time.Time
	Quantity    int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type NewParams struct {
	ID            string
	Code          string
	Name          string
	Kind          Kind
	DiscountType  DiscountType
	DiscountValue int64
	MinOrderValue int64
	MaxDiscount   int64
	StartDate     time.Time
	EndDate       time.Time
	Quantity      int
}

func New(p NewParams) (*Voucher, error) {
	code := strings.ToUpper(strings.TrimSpace(p.Code))
	switch {
	case p.ID == "":
		return nil, fmt.Errorf("%w: id is required", ErrInvalidArgument)
	case code == "":
		return nil, fmt.Errorf("%w: code is required", ErrInvalidArgument)
	case !p.Kind.Valid():
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidArgument, p.Kind)
	case p.DiscountType != DiscountPercentage && p.DiscountType != DiscountFixed:
		return nil, fmt.Errorf("%w: unknown discount type %q", ErrInvalidArgument, p.DiscountType)
	case p.DiscountValue <= 0:
		return nil, fmt.Errorf("%w: discount value must be positive", ErrInvalidArgument)
	case p.DiscountType == DiscountPercentage && p.DiscountValue > 100:
		return nil, fmt.Errorf("%w: percentage must not exceed 100", ErrInvalidArgument)
	case p.MinOrderValue < 0 || p.MaxDiscount < 0:
		return nil, fmt.Errorf("%w: limits must not be negative", ErrInvalidArgument)
	case !p.EndDate.After(p.StartDate):
		return nil, fmt.Errorf("%w: end date must be after start date", ErrInvalidArgument)
	case p.Quantity < 0:
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidArgument)
	}

	now := time.Now().UTC()
	return &Voucher{
		ID:            p.ID,
		Code:          code,
		Name:          strings.TrimSpace(p.Name),
		Kind:          p.Kind,
		DiscountType:  p.DiscountType,
		DiscountValue: p.DiscountValue,
		MinOrderValue: p.MinOrderValue,
		MaxDiscount:   p.MaxDiscount,
		StartDate:     p.StartDate.UTC(),
		EndDate:       p.EndDate.UTC(),
		Quantity:      p.Quantity,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Discount computes the amount taken off subtotal, rounded down to whole
// currency units and capped at MaxDiscount.
func (v *Voucher) Discount(subtotal int64) int64 {
	var amount int64
	switch v.DiscountType {
	case DiscountPercentage:
		amount = decimal.NewFromInt(subtotal).
			Mul(decimal.NewFromInt(v.DiscountValue)).
			Div(decimal.NewFromInt(100)).
			Floor().
			IntPart()
	default:
		amount = v.DiscountValue
	}
	if v.MaxDiscount > 0 && amount > v.MaxDiscount {
		amount = v.MaxDiscount
	}
	if amount < 0 {
		return 0
	}
	return amount
}

// Usable reports whether the voucher can be redeemed at now regardless of order contents.
func (v *Voucher) Usable(now time.Time) error {
	switch {
	case !v.Active:
		return &InvalidVoucherError{VoucherID: v.ID, Reason: ReasonInactive}
	case now.Before(v.StartDate):
		return &InvalidVoucherError{VoucherID: v.ID, Reason: ReasonNotStarted}
	case now.After(v.EndDate):
		return &InvalidVoucherError{VoucherID: v.ID, Reason: ReasonExpired}
	case v.Quantity <= 0:
		return &InvalidVoucherError{VoucherID: v.ID, Reason: ReasonExhausted}
	}
	return nil
}

// Check validates the voucher against an order of the given kind and subtotal.
func (v *Voucher) Check(now time.Time, kind Kind, subtotal int64) error {
	if err := v.Usable(now); err != nil {
		return err
	}
	if v.Kind != kind {
		return &InvalidVoucherError{VoucherID: v.ID, Reason: ReasonWrongKind}
	}
	if subtotal < v.MinOrderValue {
		return &InvalidVoucherError{VoucherID: v.ID, Reason: ReasonBelowMinimum}
	}
	return nil
}

func (v *Voucher) Clone() *Voucher {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

type Reason string

const (
	ReasonNotFound     Reason = "not_found"
	ReasonInactive     Reason = "inactive"
	ReasonNotStarted   Reason = "not_started"
	ReasonExpired      Reason = "expired"
	ReasonExhausted    Reason = "exhausted"
	ReasonBelowMinimum Reason = "below_minimum"
	ReasonWrongKind    Reason = "wrong_kind"
	ReasonNotClaimed   Reason = "not_claimed"
	ReasonAlreadyUsed  Reason = "already_used"
)

// InvalidVoucherError explains why a voucher cannot be applied.
type InvalidVoucherError struct {
	VoucherID string
	Reason    Reason
}

func (e *InvalidVoucherError) Error() string {
	return fmt.Sprintf("voucher: %s cannot be applied: %s", e.VoucherID, e.Reason)
}

func (e *InvalidVoucherError) Is(target error) bool { return target == ErrInvalidVoucher }
