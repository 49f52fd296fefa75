package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	voucherapp "github.com/LoiPham2005/backend-doantotnghiep/internal/application/voucher"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/inventory"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
	domoutbox "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/outbox"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/payment"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/user"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/voucher"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/pkg/money"
)

const (
	orderService    = "order-service"
	useCasePlace    = "order.place"
	publishPeer     = "outbox"
	gatewayPeer     = "payment_gateway"
	publishTimeout  = 300 * time.Millisecond
	maxLinesPerCart = 100
)

type PlaceOrderDeps struct {
	Orders    domain.Repository
	Payments  payment.Repository
	Ledger    Ledger
	Vouchers  Vouchers
	Carts     CartCleaner
	Notifier  Notifier
	Publisher domoutbox.Publisher
	// Gateway is required only for banking orders.
	Gateway payment.Gateway

	// OrderIDs names orders; IDs names lines and payment records.
	OrderIDs    application.IDGenerator
	IDs         application.IDGenerator
	ShippingFee int64
	Obs         observability.Observability
	Clock       application.Clock
}

// PlaceOrderUseCase turns a checkout into a pending order. Every write after
// the order insert registers an undo step, so a failure leaves stock,
// vouchers and payment records exactly as they were.
type PlaceOrderUseCase struct {
	orders      domain.Repository
	payments    payment.Repository
	ledger      Ledger
	vouchers    Vouchers
	carts       CartCleaner
	notifier    Notifier
	publisher   domoutbox.Publisher
	gateway     payment.Gateway
	orderIDs    application.IDGenerator
	ids         application.IDGenerator
	shippingFee int64
	ins         *application.Instruments
	now         application.Clock
}

var _ application.UseCase[PlaceOrderInput, *PlaceOrderResult] = (*PlaceOrderUseCase)(nil)

func NewPlaceOrderUseCase(deps PlaceOrderDeps) (*PlaceOrderUseCase, error) {
	switch {
	case deps.Orders == nil || deps.Payments == nil:
		return nil, errors.New("order: order and payment repositories are required")
	case deps.Ledger == nil:
		return nil, errors.New("order: inventory ledger is required")
	case deps.OrderIDs == nil || deps.IDs == nil:
		return nil, errors.New("order: id generators are required")
	case deps.ShippingFee < 0:
		return nil, errors.New("order: shipping fee must not be negative")
	}
	return &PlaceOrderUseCase{
		orders:      deps.Orders,
		payments:    deps.Payments,
		ledger:      deps.Ledger,
		vouchers:    deps.Vouchers,
		carts:       deps.Carts,
		notifier:    deps.Notifier,
		publisher:   deps.Publisher,
		gateway:     deps.Gateway,
		orderIDs:    deps.OrderIDs,
		ids:         deps.IDs,
		shippingFee: deps.ShippingFee,
		ins:         application.NewInstruments(deps.Obs, orderService),
		now:         deps.Clock.OrSystem(),
	}, nil
}

type LineInput struct {
	VariantID string
	Quantity  int
}

type PlaceOrderInput struct {
	UserID         string
	AddressID      string
	Lines          []LineInput
	PaymentMethod  domain.PaymentMethod
	OrderVoucherID string
	ShipVoucherID  string
	Note           string
}

type PlaceOrderResult struct {
	Order   *domain.Order
	Payment *payment.Record
	PayURL  string
}

// Execute places the order.
func (uc *PlaceOrderUseCase) Execute(ctx context.Context, cmd PlaceOrderInput) (_ *PlaceOrderResult, err error) {
	ctx, run := uc.ins.Start(ctx, useCasePlace, "PlaceOrder",
		attribute.String("order.user_id", cmd.UserID),
		attribute.String("order.payment_method", string(cmd.PaymentMethod)),
		attribute.Int("order.lines", len(cmd.Lines)),
	)
	defer func() { run.End(err) }()
	span := run.Span()

	lines, err := uc.validate(cmd)
	if err != nil {
		run.Fail("INPUT_INVALID")
		return nil, err
	}

	// Nothing is written until every line and voucher checks out.
	priced := make([]domain.Line, 0, len(lines))
	var subtotal int64
	for _, l := range lines {
		if err := uc.ledger.CheckAvailability(ctx, l.VariantID, l.Quantity); err != nil {
			run.Fail("STOCK_UNAVAILABLE")
			return nil, err
		}
		v, err := uc.ledger.Variant(ctx, l.VariantID)
		if err != nil {
			run.Fail("VARIANT_LOAD_FAILED")
			return nil, err
		}
		priced = append(priced, domain.Line{
			ID:        uc.ids.NewID(),
			VariantID: v.ID,
			Quantity:  l.Quantity,
			UnitPrice: v.Price,
		})
		subtotal += v.Price * int64(l.Quantity)
	}

	orderDiscount, err := uc.quote(ctx, cmd.UserID, cmd.OrderVoucherID, voucher.KindOrder, subtotal, subtotal)
	if err != nil {
		run.Fail("ORDER_VOUCHER_INVALID")
		return nil, err
	}
	shipDiscount, err := uc.quote(ctx, cmd.UserID, cmd.ShipVoucherID, voucher.KindShipping, subtotal, uc.shippingFee)
	if err != nil {
		run.Fail("SHIP_VOUCHER_INVALID")
		return nil, err
	}

	entity, err := domain.New(domain.NewParams{
		ID:             uc.orderIDs.NewID(),
		UserID:         cmd.UserID,
		AddressID:      cmd.AddressID,
		Lines:          priced,
		ShippingFee:    uc.shippingFee,
		OrderVoucherID: cmd.OrderVoucherID,
		OrderDiscount:  orderDiscount,
		ShipVoucherID:  cmd.ShipVoucherID,
		ShipDiscount:   shipDiscount,
		PaymentMethod:  cmd.PaymentMethod,
		Note:           strings.TrimSpace(cmd.Note),
	})
	if err != nil {
		run.Fail("DOMAIN_CONSTRUCTION_FAILED")
		return nil, fmt.Errorf("order: construct: %w", err)
	}
	entity.CreatedAt = uc.now()
	entity.UpdatedAt = entity.CreatedAt
	span.SetAttributes(attribute.String("order.id", entity.ID))
	run.Annotate(observability.F("order_id", entity.ID))

	var undo saga
	defer func() {
		if err == nil {
			return
		}
		if failed := undo.rollback(ctx, run.Logger()); failed > 0 {
			run.Annotate(observability.F("compensations_failed", failed))
		}
		span.AddEvent("order.rolled_back")
	}()

	if err := uc.orders.Insert(ctx, entity); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, fmt.Errorf("order: insert: %w", err)
	}
	undo.add("delete_order", func(ctx context.Context) error {
		return uc.orders.Delete(ctx, entity.ID)
	})

	for _, l := range entity.Lines {
		if _, err := uc.ledger.Reserve(ctx, inventory.Request{
			Key:       reserveKey(entity.ID, l.VariantID),
			OrderID:   entity.ID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
		}); err != nil {
			run.Fail("STOCK_RESERVE_FAILED")
			return nil, err
		}
		undo.add("release_"+l.VariantID, func(ctx context.Context) error {
			_, err := uc.ledger.Release(ctx, inventory.Request{
				Key:       rollbackKey(entity.ID, l.VariantID),
				OrderID:   entity.ID,
				VariantID: l.VariantID,
				Quantity:  l.Quantity,
			})
			return err
		})
	}

	for _, voucherID := range []string{entity.OrderVoucherID, entity.ShipVoucherID} {
		if voucherID == "" {
			continue
		}
		red, err := uc.vouchers.Redeem(ctx, entity.UserID, voucherID)
		if err != nil {
			run.Fail("VOUCHER_REDEEM_FAILED")
			return nil, err
		}
		undo.add("restore_voucher_"+voucherID, func(ctx context.Context) error {
			return uc.vouchers.Restore(ctx, red)
		})
	}

	uc.clearCart(ctx, run, entity)

	record := &payment.Record{
		ID:        uc.ids.NewID(),
		OrderID:   entity.ID,
		UserID:    entity.UserID,
		Amount:    entity.FinalTotal,
		Method:    string(entity.PaymentMethod),
		Status:    payment.StatusPending,
		CreatedAt: uc.now(),
	}
	record.UpdatedAt = record.CreatedAt

	if entity.PaymentMethod == domain.PaymentBanking {
		link, err := uc.checkout(ctx, entity)
		if err != nil {
			run.Fail("GATEWAY_FAILED")
			return nil, err
		}
		record.PayURL = link.URL
		record.Reference = link.Reference
		undo.add("expire_checkout", func(ctx context.Context) error {
			return uc.cancelCheckout(ctx, link.Reference)
		})
	}

	if err := uc.payments.Insert(ctx, record); err != nil {
		run.Fail("PAYMENT_INSERT_FAILED")
		return nil, fmt.Errorf("order: insert payment: %w", err)
	}
	undo.add("delete_payment", func(ctx context.Context) error {
		return uc.payments.DeleteByOrder(ctx, entity.ID)
	})

	uc.announce(ctx, run, entity)

	span.SetAttributes(attribute.String("order.status", string(entity.Status)))
	span.AddEvent("order.placed", trace.WithAttributes(
		attribute.String("order.id", entity.ID),
		attribute.Int64("order.final_total", entity.FinalTotal),
	))
	return &PlaceOrderResult{Order: entity, Payment: record, PayURL: record.PayURL}, nil
}

// validate checks the command and merges repeated variants into one line.
func (uc *PlaceOrderUseCase) validate(cmd PlaceOrderInput) ([]LineInput, error) {
	switch {
	case cmd.UserID == "":
		return nil, apperr.Validation("user id is required")
	case cmd.AddressID == "":
		return nil, apperr.Validation("address id is required")
	case len(cmd.Lines) == 0:
		return nil, apperr.Validation("at least one line is required")
	case len(cmd.Lines) > maxLinesPerCart:
		return nil, apperr.Validation("at most %d lines are allowed", maxLinesPerCart)
	case !cmd.PaymentMethod.Valid():
		return nil, apperr.Validation("unknown payment method %q", cmd.PaymentMethod)
	case cmd.PaymentMethod == domain.PaymentBanking && uc.gateway == nil:
		return nil, apperr.Validation("banking payments are not enabled")
	case (cmd.OrderVoucherID != "" || cmd.ShipVoucherID != "") && uc.vouchers == nil:
		return nil, apperr.Validation("vouchers are not enabled")
	}

	merged := make([]LineInput, 0, len(cmd.Lines))
	index := make(map[string]int, len(cmd.Lines))
	for _, l := range cmd.Lines {
		if l.VariantID == "" {
			return nil, apperr.Validation("variant id is required")
		}
		if l.Quantity <= 0 {
			return nil, apperr.Validation("quantity for variant %s must be greater than zero", l.VariantID)
		}
		if i, ok := index[l.VariantID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.VariantID] = len(merged)
		merged = append(merged, l)
	}
	return merged, nil
}

// quote validates an optional voucher and clamps its discount to base.
func (uc *PlaceOrderUseCase) quote(ctx context.Context, userID, voucherID string, kind voucher.Kind, subtotal, base int64) (int64, error) {
	if voucherID == "" {
		return 0, nil
	}
	q, err := uc.vouchers.Validate(ctx, voucherapp.ValidateInput{
		UserID:    userID,
		VoucherID: voucherID,
		Kind:      kind,
		Subtotal:  subtotal,
	})
	if err != nil {
		return 0, err
	}
	return min(q.Discount, base), nil
}

func (uc *PlaceOrderUseCase) checkout(ctx context.Context, o *domain.Order) (payment.Link, error) {
	var link payment.Link
	err := uc.ins.External(ctx, gatewayPeer, "create_payment", func(ctx context.Context) error {
		var err error
		link, err = uc.gateway.CreatePayment(ctx, payment.CheckoutRequest{
			OrderID:     o.ID,
			UserID:      o.UserID,
			Amount:      o.FinalTotal,
			Description: "Đơn hàng #" + o.ShortID(),
		})
		return err
	})
	if err != nil {
		var gwErr *payment.GatewayError
		if errors.As(err, &gwErr) {
			return payment.Link{}, err
		}
		return payment.Link{}, &payment.GatewayError{Op: "create_payment", Err: err}
	}
	return link, nil
}

func (uc *PlaceOrderUseCase) cancelCheckout(ctx context.Context, reference string) error {
	return uc.ins.External(ctx, gatewayPeer, "cancel_payment", func(ctx context.Context) error {
		return uc.gateway.CancelPayment(ctx, reference)
	})
}

// clearCart removes the purchased variants from the cart. The cart is a
// convenience copy, so failures are logged and the order stands.
func (uc *PlaceOrderUseCase) clearCart(ctx context.Context, run *application.Run, o *domain.Order) {
	if uc.carts == nil {
		return
	}
	ids := make([]string, 0, len(o.Lines))
	for _, l := range o.Lines {
		ids = append(ids, l.VariantID)
	}
	if err := uc.carts.DeleteVariants(ctx, o.UserID, ids); err != nil {
		run.Logger().Warn("cart_cleanup_failed",
			observability.F("order_id", o.ID),
			observability.F("error", err.Error()),
		)
	}
}

// announce tells the admins and the event bus about the new order. Both are
// best effort.
func (uc *PlaceOrderUseCase) announce(ctx context.Context, run *application.Run, o *domain.Order) {
	if uc.notifier != nil {
		_, err := uc.notifier.Notify(ctx, notification.Request{
			Recipients: notification.Recipients{Role: string(user.RoleAdmin)},
			Title:      "Đơn hàng mới",
			Content:    fmt.Sprintf("Đơn hàng #%s vừa được đặt, tổng thanh toán %s.", o.ShortID(), money.VND(o.FinalTotal)),
			Kind:       notification.KindOrder,
		})
		if err != nil {
			run.SetStatus("ADMIN_NOTIFY_FAILED")
			run.Logger().Warn("admin_notify_failed",
				observability.F("order_id", o.ID),
				observability.F("error", err.Error()),
			)
		}
	}

	if uc.publisher == nil {
		return
	}
	evt := domain.NewPlacedEvent(o)
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := uc.ins.External(pubCtx, publishPeer, evt.EventName(), func(ctx context.Context) error {
		return uc.publisher.Publish(ctx, evt)
	}); err != nil {
		run.SetStatus("EVENT_PUBLISH_FAILED")
		run.Annotate(observability.F("event_publish_error", err.Error()))
	}
}

func reserveKey(orderID, variantID string) string { return "order:" + orderID + ":" + variantID }
func rollbackKey(orderID, variantID string) string { return "rollback:" + orderID + ":" + variantID }
