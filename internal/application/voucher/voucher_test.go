package voucher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/voucher"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/id"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/memory"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	vouchers *memory.VoucherRepository
	grants   *memory.GrantRepository
	now      *time.Time
}

func newFixture(t *testing.T, allowUnclaimed bool) fixture {
	t.Helper()
	vouchers := memory.NewVoucherRepository()
	grants := memory.NewGrantRepository()
	now := fixedNow
	val, err := NewValidator(ValidatorDeps{
		Vouchers:       vouchers,
		Grants:         grants,
		Clock:          func() time.Time { return now },
		AllowUnclaimed: allowUnclaimed,
	})
	require.NoError(t, err)
	svc, err := NewService(ServiceDeps{Validator: val, IDs: id.NewUUIDGenerator()})
	require.NoError(t, err)
	return fixture{svc: svc, vouchers: vouchers, grants: grants, now: &now}
}

func (f fixture) create(t *testing.T, in CreateInput) *domain.Voucher {
	t.Helper()
	if in.StartDate.IsZero() {
		in.StartDate = fixedNow.Add(-24 * time.Hour)
	}
	if in.EndDate.IsZero() {
		in.EndDate = fixedNow.Add(24 * time.Hour)
	}
	if in.Quantity == 0 {
		in.Quantity = 10
	}
	v, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	return v
}

func reasonOf(t *testing.T, err error) domain.Reason {
	t.Helper()
	var invalid *domain.InvalidVoucherError
	require.True(t, errors.As(err, &invalid), "expected InvalidVoucherError, got %v", err)
	return invalid.Reason
}

func TestValidatePercentageIsCapped(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	v := f.create(t, CreateInput{Code: "sale10", Kind: domain.KindOrder, DiscountType: domain.DiscountPercentage,
		DiscountValue: 10, MaxDiscount: 30000})
	_, err := f.svc.Claim(ctx, "u1", v.ID)
	require.NoError(t, err)

	q, err := f.svc.Validate(ctx, ValidateInput{UserID: "u1", VoucherID: v.ID, Kind: domain.KindOrder, Subtotal: 500000})
	require.NoError(t, err)
	assert.Equal(t, int64(30000), q.Discount)
	assert.Equal(t, "SALE10", q.Voucher.Code)
}

func TestValidateReasons(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	order := f.create(t, CreateInput{Code: "ORDER", Kind: domain.KindOrder, DiscountType: domain.DiscountFixed,
		DiscountValue: 20000, MinOrderValue: 200000})
	future := f.create(t, CreateInput{Code: "SOON", Kind: domain.KindOrder, DiscountType: domain.DiscountFixed,
		DiscountValue: 1000, StartDate: fixedNow.Add(time.Hour), EndDate: fixedNow.Add(48 * time.Hour)})
	expired := f.create(t, CreateInput{Code: "OLD", Kind: domain.KindOrder, DiscountType: domain.DiscountFixed,
		DiscountValue: 1000, StartDate: fixedNow.Add(-48 * time.Hour), EndDate: fixedNow.Add(-time.Hour)})
	for _, v := range []*domain.Voucher{order} {
		_, err := f.svc.Claim(ctx, "u1", v.ID)
		require.NoError(t, err)
	}

	tests := []struct {
		name string
		in   ValidateInput
		want domain.Reason
	}{
		{"missing", ValidateInput{UserID: "u1", VoucherID: "nope", Kind: domain.KindOrder, Subtotal: 1}, domain.ReasonNotFound},
		{"below minimum", ValidateInput{UserID: "u1", VoucherID: order.ID, Kind: domain.KindOrder, Subtotal: 199999}, domain.ReasonBelowMinimum},
		{"wrong kind", ValidateInput{UserID: "u1", VoucherID: order.ID, Kind: domain.KindShipping, Subtotal: 300000}, domain.ReasonWrongKind},
		{"not started", ValidateInput{UserID: "u1", VoucherID: future.ID, Kind: domain.KindOrder, Subtotal: 300000}, domain.ReasonNotStarted},
		{"expired", ValidateInput{UserID: "u1", VoucherID: expired.ID, Kind: domain.KindOrder, Subtotal: 300000}, domain.ReasonExpired},
		{"not claimed", ValidateInput{UserID: "u2", VoucherID: order.ID, Kind: domain.KindOrder, Subtotal: 300000}, domain.ReasonNotClaimed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Validate(ctx, tt.in)
			assert.Equal(t, tt.want, reasonOf(t, err))
		})
	}
}

func TestRedeemMarksGrantAndRestoreUndoes(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	v := f.create(t, CreateInput{Code: "SHIP", Kind: domain.KindShipping, DiscountType: domain.DiscountFixed,
		DiscountValue: 15000, Quantity: 1})
	_, err := f.svc.Claim(ctx, "u1", v.ID)
	require.NoError(t, err)

	red, err := f.svc.Redeem(ctx, "u1", v.ID)
	require.NoError(t, err)
	assert.True(t, red.GrantUsed)

	g, err := f.grants.Find(ctx, "u1", v.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GrantUsed, g.Status)

	_, err = f.svc.Validate(ctx, ValidateInput{UserID: "u1", VoucherID: v.ID, Kind: domain.KindShipping, Subtotal: 1})
	assert.Equal(t, domain.ReasonExhausted, reasonOf(t, err))

	require.NoError(t, f.svc.Restore(ctx, red))
	stored, err := f.vouchers.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Quantity)
	g, err = f.grants.Find(ctx, "u1", v.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GrantAvailable, g.Status)
}

func TestRedeemTwiceFailsWithoutLeakingQuantity(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	v := f.create(t, CreateInput{Code: "ONCE", Kind: domain.KindOrder, DiscountType: domain.DiscountFixed,
		DiscountValue: 1000, Quantity: 5})
	_, err := f.svc.Claim(ctx, "u1", v.ID)
	require.NoError(t, err)

	_, err = f.svc.Redeem(ctx, "u1", v.ID)
	require.NoError(t, err)
	_, err = f.svc.Redeem(ctx, "u1", v.ID)
	assert.Equal(t, domain.ReasonAlreadyUsed, reasonOf(t, err))

	stored, err := f.vouchers.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Quantity)
}

func TestAllowUnclaimedRedemption(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	v := f.create(t, CreateInput{Code: "OPEN", Kind: domain.KindOrder, DiscountType: domain.DiscountFixed, DiscountValue: 1000})

	_, err := f.svc.Validate(ctx, ValidateInput{UserID: "walk-in", VoucherID: v.ID, Kind: domain.KindOrder, Subtotal: 5000})
	require.NoError(t, err)
	red, err := f.svc.Redeem(ctx, "walk-in", v.ID)
	require.NoError(t, err)
	assert.False(t, red.GrantUsed)
	require.NoError(t, f.svc.Restore(ctx, red))
}

func TestClaimAndWallet(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	v := f.create(t, CreateInput{Code: "WALLET", Kind: domain.KindOrder, DiscountType: domain.DiscountFixed, DiscountValue: 1000})
	ended := f.create(t, CreateInput{Code: "ENDED", Kind: domain.KindOrder, DiscountType: domain.DiscountFixed, DiscountValue: 1000,
		EndDate: fixedNow.Add(time.Hour)})

	_, err := f.svc.Claim(ctx, "u1", v.ID)
	require.NoError(t, err)
	_, err = f.svc.Claim(ctx, "u1", v.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)
	_, err = f.svc.Claim(ctx, "u1", ended.ID)
	require.NoError(t, err)

	// the second voucher ends while it sits in the wallet
	*f.now = fixedNow.Add(2 * time.Hour)

	wallet, err := f.svc.ListGrants(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, wallet, 2)

	expired, err := f.svc.ListGrants(ctx, "u1", domain.GrantExpired)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "ENDED", expired[0].Voucher.Code)

	available, err := f.svc.ListAvailable(ctx, domain.KindOrder)
	require.NoError(t, err)
	assert.Len(t, available, 1)
}

func TestUseRequiresUsableVoucher(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	v := f.create(t, CreateInput{Code: "USE", Kind: domain.KindOrder, DiscountType: domain.DiscountFixed, DiscountValue: 1000, Quantity: 2})
	_, err := f.svc.Claim(ctx, "u1", v.ID)
	require.NoError(t, err)

	used, err := f.svc.Use(ctx, "u1", v.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, used.Quantity)

	_, err = f.svc.Use(ctx, "u1", v.ID)
	assert.Equal(t, domain.ReasonAlreadyUsed, reasonOf(t, err))

	_, err = f.svc.Use(ctx, "u2", v.ID)
	assert.Equal(t, domain.ReasonNotClaimed, reasonOf(t, err))
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	f := newFixture(t, false)
	f.create(t, CreateInput{Code: "DUP", Kind: domain.KindOrder, DiscountType: domain.DiscountFixed, DiscountValue: 1})
	_, err := f.svc.Create(context.Background(), CreateInput{Code: "dup", Kind: domain.KindOrder, DiscountType: domain.DiscountFixed,
		DiscountValue: 1, StartDate: fixedNow, EndDate: fixedNow.Add(time.Hour), Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrCodeTaken)
}
