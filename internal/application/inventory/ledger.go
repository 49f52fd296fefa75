package inventory

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/inventory"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
)

const (
	ledgerService = "inventory-ledger"

	useCaseReserve  = "inventory.reserve"
	useCaseRelease  = "inventory.release"
	useCaseSetStock = "inventory.set_stock"
)

type LedgerDeps struct {
	Repo  domain.Repository
	Obs   observability.Observability
	Clock application.Clock
}

// Ledger owns every stock mutation. Reservations rely on the repository's
// conditional update, so no lock is held here.
type Ledger struct {
	repo         domain.Repository
	ins          *application.Instruments
	now          application.Clock
	reservations observability.Counter // inventory_reservations_total{outcome}
}

func NewLedger(deps LedgerDeps) (*Ledger, error) {
	if deps.Repo == nil {
		return nil, errors.New("inventory: repository is required")
	}
	obs := observability.OrNop(deps.Obs)
	return &Ledger{
		repo:         deps.Repo,
		ins:          application.NewInstruments(obs, ledgerService),
		now:          deps.Clock.OrSystem(),
		reservations: obs.Metrics().Counter(observability.MStockReservations),
	}, nil
}

func (l *Ledger) Variant(ctx context.Context, variantID string) (*domain.Variant, error) {
	if variantID == "" {
		return nil, apperr.Validation("variant id is required")
	}
	v, err := l.repo.Get(ctx, variantID)
	if err != nil {
		return nil, fmt.Errorf("inventory: get %s: %w", variantID, err)
	}
	return v, nil
}

// CheckAvailability reports whether quantity units could be reserved right now.
// It never mutates stock.
func (l *Ledger) CheckAvailability(ctx context.Context, variantID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	v, err := l.Variant(ctx, variantID)
	if err != nil {
		return err
	}
	if v.Quantity < quantity {
		return &domain.InsufficientStockError{VariantID: v.ID, Available: v.Quantity, Requested: quantity}
	}
	return nil
}

// Reserve takes stock for an order. Either the full quantity is taken or
// nothing is.
func (l *Ledger) Reserve(ctx context.Context, req domain.Request) (_ *domain.Variant, err error) {
	ctx, run := l.ins.Start(ctx, useCaseReserve, "Reserve",
		attribute.String("inventory.variant_id", req.VariantID),
		attribute.String("order.id", req.OrderID),
		attribute.Int("inventory.quantity", req.Quantity),
	)
	defer func() { run.End(err) }()
	run.Annotate(
		observability.F("variant_id", req.VariantID),
		observability.F("order_id", req.OrderID),
		observability.F("quantity", req.Quantity),
	)

	v, err := l.repo.Apply(ctx, req.Movement(domain.MovementReserve, l.now()))
	if err != nil {
		outcome := "error"
		if errors.Is(err, domain.ErrInsufficientStock) {
			outcome = "insufficient"
			run.Fail("INSUFFICIENT_STOCK")
		} else {
			run.Fail("APPLY_FAILED")
		}
		l.reservations.Add(1, observability.L("outcome", outcome))
		return nil, fmt.Errorf("inventory: reserve: %w", err)
	}
	l.reservations.Add(1, observability.L("outcome", "reserved"))

	l.refreshRollup(ctx, run, v.ProductID)
	return v, nil
}

// Release returns stock. Replaying a request with the same key is a no-op.
func (l *Ledger) Release(ctx context.Context, req domain.Request) (_ *domain.Variant, err error) {
	ctx, run := l.ins.Start(ctx, useCaseRelease, "Release",
		attribute.String("inventory.variant_id", req.VariantID),
		attribute.String("order.id", req.OrderID),
		attribute.Int("inventory.quantity", req.Quantity),
	)
	defer func() { run.End(err) }()
	run.Annotate(
		observability.F("variant_id", req.VariantID),
		observability.F("key", req.Key),
		observability.F("quantity", req.Quantity),
	)

	v, err := l.repo.Apply(ctx, req.Movement(domain.MovementRelease, l.now()))
	if err != nil {
		run.Fail("APPLY_FAILED")
		return nil, fmt.Errorf("inventory: release: %w", err)
	}
	l.refreshRollup(ctx, run, v.ProductID)
	return v, nil
}

// SetStock overwrites the stock level of a variant from an admin edit.
func (l *Ledger) SetStock(ctx context.Context, variantID string, quantity int) (_ *domain.Variant, err error) {
	ctx, run := l.ins.Start(ctx, useCaseSetStock, "SetStock",
		attribute.String("inventory.variant_id", variantID),
	)
	defer func() { run.End(err) }()

	if quantity < 0 {
		run.Fail("QUANTITY_INVALID")
		return nil, domain.ErrNegativeStock
	}
	v, err := l.Variant(ctx, variantID)
	if err != nil {
		run.Fail("VARIANT_LOAD_FAILED")
		return nil, err
	}
	if err := v.SetQuantity(quantity); err != nil {
		run.Fail("QUANTITY_INVALID")
		return nil, err
	}
	if err := l.repo.Save(ctx, v); err != nil {
		run.Fail("VARIANT_SAVE_FAILED")
		return nil, fmt.Errorf("inventory: save: %w", err)
	}
	l.refreshRollup(ctx, run, v.ProductID)
	return v, nil
}

func (l *Ledger) ProductStatus(ctx context.Context, productID string) (domain.ProductStatus, error) {
	return l.repo.ProductStatus(ctx, productID)
}

// refreshRollup recomputes the product status from all of its variants. The
// stock change has already committed, so a failure here is only logged.
func (l *Ledger) refreshRollup(ctx context.Context, run *application.Run, productID string) {
	variants, err := l.repo.ListByProduct(ctx, productID)
	if err == nil {
		err = l.repo.SetProductStatus(ctx, productID, domain.RollupStatus(variants))
	}
	if err != nil {
		run.SetStatus("ROLLUP_FAILED")
		run.Logger().Warn("product_rollup_failed",
			observability.F("product_id", productID),
			observability.F("error", err.Error()),
		)
	}
}
