package voucher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/voucher"
)

const (
	useCaseCreate = "voucher.create"
	useCaseClaim  = "voucher.claim"
	useCaseUse    = "voucher.use"
)

type ServiceDeps struct {
	Validator *Validator
	IDs       application.IDGenerator
}

// Service exposes the voucher catalogue and per-user wallet on top of the
// Validator.
type Service struct {
	*Validator
	ids application.IDGenerator
}

func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Validator == nil || deps.IDs == nil {
		return nil, errors.New("voucher: validator and id generator are required")
	}
	return &Service{Validator: deps.Validator, ids: deps.IDs}, nil
}

type CreateInput struct {
	Code          string
	Name          string
	Kind          domain.Kind
	DiscountType  domain.DiscountType
	DiscountValue int64
	MinOrderValue int64
	MaxDiscount   int64
	StartDate     time.Time
	EndDate       time.Time
	Quantity      int
}

func (s *Service) Create(ctx context.Context, in CreateInput) (_ *domain.Voucher, err error) {
	ctx, run := s.ins.Start(ctx, useCaseCreate, "CreateVoucher",
		attribute.String("voucher.code", strings.ToUpper(in.Code)),
	)
	defer func() { run.End(err) }()

	v, err := domain.New(domain.NewParams{
		ID:            s.ids.NewID(),
		Code:          in.Code,
		Name:          in.Name,
		Kind:          in.Kind,
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		MinOrderValue: in.MinOrderValue,
		MaxDiscount:   in.MaxDiscount,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Quantity:      in.Quantity,
	})
	if err != nil {
		run.Fail("DOMAIN_CONSTRUCTION_FAILED")
		return nil, err
	}
	if err := s.vouchers.Create(ctx, v); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, fmt.Errorf("voucher: create: %w", err)
	}
	return v, nil
}

// ListAvailable returns the vouchers that can be claimed right now.
func (s *Service) ListAvailable(ctx context.Context, kind domain.Kind) ([]*domain.Voucher, error) {
	if kind != "" && !kind.Valid() {
		return nil, apperr.Validation("unknown voucher kind %q", kind)
	}
	now := s.now()
	return s.vouchers.List(ctx, domain.ListFilter{ActiveAt: &now, Kind: kind})
}

// Claim puts the voucher in the user's wallet. A user holds a voucher at most once.
func (s *Service) Claim(ctx context.Context, userID, voucherID string) (_ *domain.Grant, err error) {
	ctx, run := s.ins.Start(ctx, useCaseClaim, "ClaimVoucher",
		attribute.String("voucher.id", voucherID),
	)
	defer func() { run.End(err) }()

	if userID == "" || voucherID == "" {
		run.Fail("INPUT_INVALID")
		return nil, apperr.Validation("user id and voucher id are required")
	}
	v, err := s.vouchers.Get(ctx, voucherID)
	if err != nil {
		run.Fail("VOUCHER_LOAD_FAILED")
		return nil, fmt.Errorf("voucher: get: %w", err)
	}
	now := s.now()
	if err := v.Usable(now); err != nil {
		run.Fail("VOUCHER_NOT_USABLE")
		return nil, err
	}

	g := &domain.Grant{
		ID:        s.ids.NewID(),
		UserID:    userID,
		VoucherID: voucherID,
		Status:    domain.GrantAvailable,
		CreatedAt: now,
	}
	if err := s.grants.Create(ctx, g); err != nil {
		run.Fail("GRANT_CREATE_FAILED")
		return nil, fmt.Errorf("voucher: claim: %w", err)
	}
	return g, nil
}

// Use redeems a voucher outside of checkout, e.g. at a physical counter.
func (s *Service) Use(ctx context.Context, userID, voucherID string) (_ *domain.Voucher, err error) {
	ctx, run := s.ins.Start(ctx, useCaseUse, "UseVoucher",
		attribute.String("voucher.id", voucherID),
	)
	defer func() { run.End(err) }()

	if userID == "" || voucherID == "" {
		run.Fail("INPUT_INVALID")
		return nil, apperr.Validation("user id and voucher id are required")
	}
	v, err := s.vouchers.Get(ctx, voucherID)
	if err != nil {
		run.Fail("VOUCHER_LOAD_FAILED")
		return nil, fmt.Errorf("voucher: get: %w", err)
	}
	now := s.now()
	if err := v.Usable(now); err != nil {
		run.Fail("VOUCHER_NOT_USABLE")
		return nil, err
	}
	if err := s.checkGrant(ctx, v, userID, now); err != nil {
		run.Fail("GRANT_NOT_USABLE")
		return nil, err
	}
	if _, err := s.Redeem(ctx, userID, voucherID); err != nil {
		run.Fail("REDEEM_FAILED")
		return nil, err
	}
	return s.vouchers.Get(ctx, voucherID)
}

// WalletEntry is one grant with its voucher and the status as of now.
type WalletEntry struct {
	Grant   *domain.Grant
	Voucher *domain.Voucher
	Status  domain.GrantStatus
}

// ListGrants returns the user's wallet, optionally filtered by effective status.
func (s *Service) ListGrants(ctx context.Context, userID string, status domain.GrantStatus) ([]WalletEntry, error) {
	grants, err := s.grants.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("voucher: list grants: %w", err)
	}
	now := s.now()
	out := make([]WalletEntry, 0, len(grants))
	for _, g := range grants {
		v, err := s.vouchers.Get(ctx, g.VoucherID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("voucher: get: %w", err)
		}
		effective := g.EffectiveStatus(v, now)
		if status != "" && effective != status {
			continue
		}
		out = append(out, WalletEntry{Grant: g, Voucher: v, Status: effective})
	}
	return out, nil
}
