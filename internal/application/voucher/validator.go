package voucher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/voucher"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
)

const (
	voucherService = "voucher-service"

	useCaseValidate = "voucher.validate"
	useCaseRedeem   = "voucher.redeem"
	useCaseRestore  = "voucher.restore"
)

type ValidatorDeps struct {
	Vouchers domain.Repository
	Grants   domain.GrantRepository
	Obs      observability.Observability
	Clock    application.Clock
	// AllowUnclaimed lets a voucher be redeemed by a user who never claimed it.
	AllowUnclaimed bool
}

// Validator decides whether a voucher applies to an order and consumes it.
type Validator struct {
	vouchers       domain.Repository
	grants         domain.GrantRepository
	ins            *application.Instruments
	now            application.Clock
	allowUnclaimed bool
}

func NewValidator(deps ValidatorDeps) (*Validator, error) {
	if deps.Vouchers == nil || deps.Grants == nil {
		return nil, errors.New("voucher: repositories are required")
	}
	return &Validator{
		vouchers:       deps.Vouchers,
		grants:         deps.Grants,
		ins:            application.NewInstruments(deps.Obs, voucherService),
		now:            deps.Clock.OrSystem(),
		allowUnclaimed: deps.AllowUnclaimed,
	}, nil
}

type ValidateInput struct {
	UserID    string
	VoucherID string
	Kind      domain.Kind
	Subtotal  int64
}

// Validate checks the voucher against an order and computes its discount.
// Nothing is consumed.
func (v *Validator) Validate(ctx context.Context, in ValidateInput) (_ domain.Quote, err error) {
	ctx, run := v.ins.Start(ctx, useCaseValidate, "ValidateVoucher",
		attribute.String("voucher.id", in.VoucherID),
		attribute.String("voucher.kind", string(in.Kind)),
	)
	defer func() { run.End(err) }()

	if in.VoucherID == "" {
		run.Fail("VOUCHER_ID_REQUIRED")
		return domain.Quote{}, apperr.Validation("voucher id is required")
	}
	if in.Subtotal < 0 {
		run.Fail("SUBTOTAL_INVALID")
		return domain.Quote{}, apperr.Validation("subtotal must not be negative")
	}

	vc, err := v.vouchers.Get(ctx, in.VoucherID)
	if err != nil {
		run.Fail("VOUCHER_LOAD_FAILED")
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Quote{}, &domain.InvalidVoucherError{VoucherID: in.VoucherID, Reason: domain.ReasonNotFound}
		}
		return domain.Quote{}, fmt.Errorf("voucher: get: %w", err)
	}

	now := v.now()
	if err := vc.Check(now, in.Kind, in.Subtotal); err != nil {
		run.Fail("VOUCHER_NOT_APPLICABLE")
		return domain.Quote{}, err
	}
	if err := v.checkGrant(ctx, vc, in.UserID, now); err != nil {
		run.Fail("GRANT_NOT_USABLE")
		return domain.Quote{}, err
	}

	discount := vc.Discount(in.Subtotal)
	run.Annotate(observability.F("discount", discount))
	return domain.Quote{Voucher: vc, Discount: discount}, nil
}

func (v *Validator) checkGrant(ctx context.Context, vc *domain.Voucher, userID string, now time.Time) error {
	g, err := v.grants.Find(ctx, userID, vc.ID)
	switch {
	case errors.Is(err, domain.ErrGrantNotFound):
		if v.allowUnclaimed {
			return nil
		}
		return &domain.InvalidVoucherError{VoucherID: vc.ID, Reason: domain.ReasonNotClaimed}
	case err != nil:
		return fmt.Errorf("voucher: find grant: %w", err)
	}

	switch g.EffectiveStatus(vc, now) {
	case domain.GrantAvailable:
		return nil
	case domain.GrantExpired:
		return &domain.InvalidVoucherError{VoucherID: vc.ID, Reason: domain.ReasonExpired}
	default:
		return &domain.InvalidVoucherError{VoucherID: vc.ID, Reason: domain.ReasonAlreadyUsed}
	}
}

// Redeem consumes one unit of the voucher and marks the user's grant used.
// Both writes are conditional, so a concurrent redemption cannot overdraw.
func (v *Validator) Redeem(ctx context.Context, userID, voucherID string) (_ domain.Redemption, err error) {
	ctx, run := v.ins.Start(ctx, useCaseRedeem, "RedeemVoucher",
		attribute.String("voucher.id", voucherID),
	)
	defer func() { run.End(err) }()

	if err := v.vouchers.DecrementQuantity(ctx, voucherID); err != nil {
		run.Fail("QUANTITY_DECREMENT_FAILED")
		if errors.Is(err, domain.ErrExhausted) {
			return domain.Redemption{}, &domain.InvalidVoucherError{VoucherID: voucherID, Reason: domain.ReasonExhausted}
		}
		return domain.Redemption{}, fmt.Errorf("voucher: decrement: %w", err)
	}

	red := domain.Redemption{UserID: userID, VoucherID: voucherID, GrantUsed: true}
	err = v.grants.MarkUsed(ctx, userID, voucherID, v.now())
	switch {
	case err == nil:
		return red, nil
	case errors.Is(err, domain.ErrGrantNotFound) && v.allowUnclaimed:
		red.GrantUsed = false
		return red, nil
	}

	run.Fail("GRANT_MARK_FAILED")
	if incErr := v.vouchers.IncrementQuantity(context.WithoutCancel(ctx), voucherID); incErr != nil {
		run.Logger().Error("voucher_quantity_restore_failed",
			observability.F("voucher_id", voucherID),
			observability.F("error", incErr.Error()),
		)
	}
	switch {
	case errors.Is(err, domain.ErrGrantNotUsable):
		return domain.Redemption{}, &domain.InvalidVoucherError{VoucherID: voucherID, Reason: domain.ReasonAlreadyUsed}
	case errors.Is(err, domain.ErrGrantNotFound):
		return domain.Redemption{}, &domain.InvalidVoucherError{VoucherID: voucherID, Reason: domain.ReasonNotClaimed}
	}
	return domain.Redemption{}, fmt.Errorf("voucher: mark grant used: %w", err)
}

// Restore undoes a Redeem.
func (v *Validator) Restore(ctx context.Context, red domain.Redemption) (err error) {
	ctx, run := v.ins.Start(ctx, useCaseRestore, "RestoreVoucher",
		attribute.String("voucher.id", red.VoucherID),
	)
	defer func() { run.End(err) }()

	var errs []error
	if err := v.vouchers.IncrementQuantity(ctx, red.VoucherID); err != nil {
		errs = append(errs, fmt.Errorf("voucher: increment: %w", err))
	}
	if red.GrantUsed {
		if err := v.grants.MarkAvailable(ctx, red.UserID, red.VoucherID); err != nil {
			errs = append(errs, fmt.Errorf("voucher: release grant: %w", err))
		}
	}
	if len(errs) > 0 {
		run.Fail("RESTORE_FAILED")
	}
	return errors.Join(errs...)
}
