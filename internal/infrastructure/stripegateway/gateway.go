// Package stripegateway implements the payment gateway port with Stripe
// Checkout Sessions and signed webhooks.
package stripegateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/payment"
)

const (
	defaultCurrency = "vnd"
	metadataOrderID = "order_id"
	metadataUserID  = "user_id"
)

type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Expire(id string, params *stripe.CheckoutSessionExpireParams) (*stripe.CheckoutSession, error)
}

type Config struct {
	APIKey        string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Currency      string
	Backends      *stripe.Backends

	// Sessions overrides the Stripe client, for tests.
	Sessions sessionAPI
}

type Gateway struct {
	sessions   sessionAPI
	secret     string
	successURL string
	cancelURL  string
	currency   string
}

var _ payment.Gateway = (*Gateway)(nil)

func New(cfg Config) (*Gateway, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Sessions == nil {
		return nil, errors.New("stripegateway: api key is required")
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, errors.New("stripegateway: webhook secret is required")
	}
	if cfg.SuccessURL == "" || cfg.CancelURL == "" {
		return nil, errors.New("stripegateway: success and cancel urls are required")
	}

	sessions := cfg.Sessions
	if sessions == nil {
		sessions = client.New(apiKey, cfg.Backends).CheckoutSessions
	}
	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	return &Gateway{
		sessions:   sessions,
		secret:     cfg.WebhookSecret,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		currency:   currency,
	}, nil
}

// CreatePayment opens a hosted checkout page for the order total. VND is a
// zero-decimal currency, so the amount is sent as is. No retry is attempted.
func (g *Gateway) CreatePayment(ctx context.Context, req payment.CheckoutRequest) (payment.Link, error) {
	if req.OrderID == "" || req.Amount <= 0 {
		return payment.Link{}, &payment.GatewayError{Op: "create_checkout_session", Err: errors.New("order id and a positive amount are required")}
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(expand(g.successURL, req.OrderID)),
		CancelURL:         stripe.String(expand(g.cancelURL, req.OrderID)),
		ClientReferenceID: stripe.String(req.OrderID),
		Metadata: map[string]string{
			metadataOrderID: req.OrderID,
			metadataUserID:  req.UserID,
		},
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.currency),
				UnitAmount: stripe.Int64(req.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
			},
		}},
	}
	params.Context = ctx
	params.SetIdempotencyKey("checkout:" + req.OrderID)

	session, err := g.sessions.New(params)
	if err != nil {
		return payment.Link{}, &payment.GatewayError{Op: "create_checkout_session", Err: err}
	}
	return payment.Link{URL: session.URL, Reference: session.ID}, nil
}

// CancelPayment expires an open checkout session. Stripe answers a session
// that is already expired or complete with an invalid request, which is
// treated as done.
func (g *Gateway) CancelPayment(ctx context.Context, reference string) error {
	if reference == "" {
		return nil
	}
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	params.SetIdempotencyKey("expire:" + reference)

	if _, err := g.sessions.Expire(reference, params); err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeInvalidRequest {
			return nil
		}
		return &payment.GatewayError{Op: "expire_checkout_session", Err: err}
	}
	return nil
}

// VerifyCallback checks the Stripe-Signature header and turns checkout
// session events into a payment outcome. Every other event type yields
// ErrIgnoredEvent.
func (g *Gateway) VerifyCallback(_ context.Context, cb payment.Callback) (payment.CallbackResult, error) {
	evt, err := webhook.ConstructEventWithOptions(cb.Payload, cb.Signature, g.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return payment.CallbackResult{}, fmt.Errorf("%w: %v", payment.ErrInvalidCallback, err)
	}

	var paid bool
	switch string(evt.Type) {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		paid = true
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		paid = false
	default:
		return payment.CallbackResult{}, payment.ErrIgnoredEvent
	}
	if evt.Data == nil {
		return payment.CallbackResult{}, fmt.Errorf("%w: event %s has no data", payment.ErrInvalidCallback, evt.ID)
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
		return payment.CallbackResult{}, fmt.Errorf("%w: decode session: %v", payment.ErrInvalidCallback, err)
	}
	if paid && session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		// Completed but settling asynchronously; the async event decides.
		return payment.CallbackResult{}, payment.ErrIgnoredEvent
	}

	orderID := session.ClientReferenceID
	if orderID == "" {
		orderID = session.Metadata[metadataOrderID]
	}
	if orderID == "" {
		return payment.CallbackResult{}, fmt.Errorf("%w: session %s has no order reference", payment.ErrInvalidCallback, session.ID)
	}

	reference := session.ID
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		reference = session.PaymentIntent.ID
	}
	return payment.CallbackResult{OrderID: orderID, Reference: reference, Paid: paid}, nil
}

func expand(url, orderID string) string {
	return strings.ReplaceAll(url, "{ORDER_ID}", orderID)
}
