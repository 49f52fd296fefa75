package order

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound             = errors.New("order: not found")
	ErrConflict             = errors.New("order: concurrent modification")
	ErrInvalidQuantity      = errors.New("order: quantity must be greater than zero")
	ErrEmptyOrder           = errors.New("order: at least one line is required")
	ErrInvalidPaymentMethod = errors.New("order: unknown payment method")
	ErrInvalidStatus        = errors.New("order: unknown status")
	ErrInvalidTransition    = errors.New("order: invalid status transition")
	ErrInvalidTotals        = errors.New("order: totals do not add up")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipping   Status = "shipping"
	StatusDelivered  Status = "delivered"
	StatusReturned   Status = "returned"
	StatusCancelled  Status = "cancelled"
)

type PaymentMethod string

const (
	PaymentCOD     PaymentMethod = "COD"
	PaymentBanking PaymentMethod = "banking"
)

func (m PaymentMethod) Valid() bool { return m == PaymentCOD || m == PaymentBanking }

// Line is one purchased variant. UnitPrice is the price at purchase time and
// is never re-read from the catalog.
type Line struct {
	ID        string
	OrderID   string
	VariantID string
	Quantity  int
	UnitPrice int64
}

func (l Line) Amount() int64 { return l.UnitPrice * int64(l.Quantity) }

type Order struct {
	ID             string
	UserID         string
	AddressID      string
	Lines          []Line
	Subtotal       int64
	ShippingFee    int64
	OrderVoucherID string
	OrderDiscount  int64
	ShipVoucherID  string
	ShipDiscount   int64
	FinalTotal     int64
	PaymentMethod  PaymentMethod
	Status         Status
	DeliveredAt    *time.Time
	Note           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type NewParams struct {
	ID             string
	UserID         string
	AddressID      string
	Lines          []Line
	ShippingFee    int64
	OrderVoucherID string
	OrderDiscount  int64
	ShipVoucherID  string
	ShipDiscount   int64
	PaymentMethod  PaymentMethod
	Note           string
}

// New builds a pending order and derives its totals from the lines.
func New(p NewParams) (*Order, error) {
	if p.ID == "" || p.UserID == "" {
		return nil, errors.New("order: id and user id are required")
	}
	if len(p.Lines) == 0 {
		return nil, ErrEmptyOrder
	}
	if !p.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	lines := make([]Line, len(p.Lines))
	var subtotal int64
	for i, l := range p.Lines {
		if l.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if l.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: negative unit price", ErrInvalidTotals)
		}
		l.OrderID = p.ID
		lines[i] = l
		subtotal += l.Amount()
	}

	if p.ShippingFee < 0 || p.OrderDiscount < 0 || p.ShipDiscount < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrInvalidTotals)
	}
	if p.OrderDiscount > subtotal || p.ShipDiscount > p.ShippingFee {
		return nil, fmt.Errorf("%w: discount exceeds its base", ErrInvalidTotals)
	}

	now := time.Now().UTC()
	return &Order{
		ID:             p.ID,
		UserID:         p.UserID,
		AddressID:      p.AddressID,
		Lines:          lines,
		Subtotal:       subtotal,
		ShippingFee:    p.ShippingFee,
		OrderVoucherID: p.OrderVoucherID,
		OrderDiscount:  p.OrderDiscount,
		ShipVoucherID:  p.ShipVoucherID,
		ShipDiscount:   p.ShipDiscount,
		FinalTotal:     FinalTotal(subtotal, p.ShippingFee, p.OrderDiscount, p.ShipDiscount),
		PaymentMethod:  p.PaymentMethod,
		Status:         StatusPending,
		Note:           p.Note,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func FinalTotal(subtotal, shippingFee, orderDiscount, shipDiscount int64) int64 {
	return subtotal + shippingFee - orderDiscount - shipDiscount
}

// Line returns the line with the given id.
func (o *Order) Line(id string) (Line, bool) {
	for _, l := range o.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return Line{}, false
}

// ShortID is the human-facing order reference used in notifications.
func (o *Order) ShortID() string {
	if len(o.ID) <= 6 {
		return o.ID
	}
	return o.ID[len(o.ID)-6:]
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Lines = append([]Line(nil), o.Lines...)
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		c.DeliveredAt = &t
	}
	return &c
}

func (o *Order) touch(at time.Time) {
	o.UpdatedAt = at.UTC()
}
