package httppresentation

import (
	"time"

	appcart "github.com/LoiPham2005/backend-doantotnghiep/internal/application/cart"
	appvoucher "github.com/LoiPham2005/backend-doantotnghiep/internal/application/voucher"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/cart"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/inventory"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/payment"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/voucher"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/pkg/money"
)

type orderView struct {
	ID             string              `json:"id"`
	UserID         string              `json:"user_id"`
	AddressID      string              `json:"address_id"`
	Subtotal       int64               `json:"subtotal"`
	ShippingFee    int64               `json:"shipping_fee"`
	OrderVoucherID string              `json:"order_voucher_id,omitempty"`
	OrderDiscount  int64               `json:"order_discount"`
	ShipVoucherID  string              `json:"ship_voucher_id,omitempty"`
	ShipDiscount   int64               `json:"ship_discount"`
	FinalTotal     int64               `json:"final_total"`
	FinalTotalText string              `json:"final_total_text"`
	PaymentMethod  order.PaymentMethod `json:"payment_method"`
	Status         order.Status        `json:"status"`
	DeliveredAt    *time.Time          `json:"delivered_at,omitempty"`
	Note           string              `json:"note,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

type lineView struct {
	ID        string `json:"id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Amount    int64  `json:"amount"`
}

type paymentView struct {
	ID        string         `json:"id"`
	OrderID   string         `json:"order_id"`
	Amount    int64          `json:"amount"`
	Method    string         `json:"method"`
	Status    payment.Status `json:"status"`
	Reference string         `json:"reference,omitempty"`
	PayURL    string         `json:"pay_url,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// orderDetailView is the shape shared by placement and detail responses.
type orderDetailView struct {
	Order        orderView    `json:"order"`
	OrderDetails []lineView   `json:"orderDetails"`
	Payment      *paymentView `json:"payment,omitempty"`
	PayURL       string       `json:"pay_url,omitempty"`
}

type orderPageView struct {
	Orders []orderView `json:"orders"`
	Total  int64       `json:"total"`
	Page   int         `json:"page"`
	Limit  int         `json:"limit"`
}

func toOrderView(o *order.Order) orderView {
	return orderView{
		ID:             o.ID,
		UserID:         o.UserID,
		AddressID:      o.AddressID,
		Subtotal:       o.Subtotal,
		ShippingFee:    o.ShippingFee,
		OrderVoucherID: o.OrderVoucherID,
		OrderDiscount:  o.OrderDiscount,
		ShipVoucherID:  o.ShipVoucherID,
		ShipDiscount:   o.ShipDiscount,
		FinalTotal:     o.FinalTotal,
		FinalTotalText: money.VND(o.FinalTotal),
		PaymentMethod:  o.PaymentMethod,
		Status:         o.Status,
		DeliveredAt:    o.DeliveredAt,
		Note:           o.Note,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func toLineViews(lines []order.Line) []lineView {
	out := make([]lineView, len(lines))
	for i, l := range lines {
		out[i] = lineView{ID: l.ID, VariantID: l.VariantID, Quantity: l.Quantity, UnitPrice: l.UnitPrice, Amount: l.Amount()}
	}
	return out
}

func toPaymentView(r *payment.Record) *paymentView {
	if r == nil {
		return nil
	}
	return &paymentView{
		ID:        r.ID,
		OrderID:   r.OrderID,
		Amount:    r.Amount,
		Method:    r.Method,
		Status:    r.Status,
		Reference: r.Reference,
		PayURL:    r.PayURL,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toOrderDetail(o *order.Order, rec *payment.Record) orderDetailView {
	return orderDetailView{Order: toOrderView(o), OrderDetails: toLineViews(o.Lines), Payment: toPaymentView(rec)}
}

func toOrderPage(p order.Page) orderPageView {
	orders := make([]orderView, len(p.Orders))
	for i, o := range p.Orders {
		orders[i] = toOrderView(o)
	}
	return orderPageView{Orders: orders, Total: p.Total, Page: p.Page, Limit: p.Limit}
}

type cancelRequestView struct {
	ID          string              `json:"id"`
	OrderID     string              `json:"order_id"`
	UserID      string              `json:"user_id"`
	Reason      string              `json:"reason"`
	Status      order.RequestStatus `json:"status"`
	AdminCancel bool                `json:"is_admin_cancel"`
	CreatedAt   time.Time           `json:"created_at"`
}

func toCancelView(c *order.CancelRequest) *cancelRequestView {
	if c == nil {
		return nil
	}
	return &cancelRequestView{
		ID:          c.ID,
		OrderID:     c.OrderID,
		UserID:      c.UserID,
		Reason:      c.Reason,
		Status:      c.Status,
		AdminCancel: c.AdminCancel,
		CreatedAt:   c.CreatedAt,
	}
}

type imageView struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id,omitempty"`
}

type returnRequestView struct {
	ID        string              `json:"id"`
	OrderID   string              `json:"order_id"`
	LineID    string              `json:"line_id"`
	UserID    string              `json:"user_id"`
	Reason    string              `json:"reason"`
	Quantity  int                 `json:"quantity"`
	Images    []imageView         `json:"images"`
	Status    order.RequestStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func toReturnView(r *order.ReturnRequest) returnRequestView {
	images := make([]imageView, len(r.Images))
	for i, img := range r.Images {
		images[i] = imageView{URL: img.URL, PublicID: img.PublicID}
	}
	return returnRequestView{
		ID:        r.ID,
		OrderID:   r.OrderID,
		LineID:    r.LineID,
		UserID:    r.UserID,
		Reason:    r.Reason,
		Quantity:  r.Quantity,
		Images:    images,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type cartItemView struct {
	ID        string    `json:"id"`
	VariantID string    `json:"variant_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice int64     `json:"unit_price,omitempty"`
	Available *int      `json:"available,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCartItemView(it *cart.Item) cartItemView {
	return cartItemView{ID: it.ID, VariantID: it.VariantID, Quantity: it.Quantity, UpdatedAt: it.UpdatedAt}
}

type cartView struct {
	Items    []cartItemView `json:"items"`
	Subtotal int64          `json:"subtotal"`
}

func toCartView(lines []appcart.Line) cartView {
	view := cartView{Items: make([]cartItemView, len(lines))}
	for i, l := range lines {
		item := toCartItemView(l.Item)
		available := l.Available
		item.UnitPrice = l.UnitPrice
		item.Available = &available
		view.Items[i] = item
		view.Subtotal += l.UnitPrice * int64(l.Item.Quantity)
	}
	return view
}

type voucherView struct {
	ID            string               `json:"id"`
	Code          string               `json:"code"`
	Name          string               `json:"name"`
	Kind          voucher.Kind         `json:"voucher_type"`
	DiscountType  voucher.DiscountType `json:"discount_type"`
	DiscountValue int64                `json:"discount_value"`
	MinOrderValue int64                `json:"min_order_value"`
	MaxDiscount   int64                `json:"max_discount,omitempty"`
	StartDate     time.Time            `json:"start_date"`
	EndDate       time.Time            `json:"end_date"`
	Quantity      int                  `json:"quantity"`
	Active        bool                 `json:"is_active"`
}

func toVoucherView(v *voucher.Voucher) voucherView {
	return voucherView{
		ID:            v.ID,
		Code:          v.Code,
		Name:          v.Name,
		Kind:          v.Kind,
		DiscountType:  v.DiscountType,
		DiscountValue: v.DiscountValue,
		MinOrderValue: v.MinOrderValue,
		MaxDiscount:   v.MaxDiscount,
		StartDate:     v.StartDate,
		EndDate:       v.EndDate,
		Quantity:      v.Quantity,
		Active:        v.Active,
	}
}

type grantView struct {
	ID        string              `json:"id"`
	Voucher   voucherView         `json:"voucher"`
	Status    voucher.GrantStatus `json:"status"`
	UsedAt    *time.Time          `json:"used_at,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

func toGrantView(e appvoucher.WalletEntry) grantView {
	return grantView{
		ID:        e.Grant.ID,
		Voucher:   toVoucherView(e.Voucher),
		Status:    e.Status,
		UsedAt:    e.Grant.UsedAt,
		CreatedAt: e.Grant.CreatedAt,
	}
}

type notificationView struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Kind      notification.Kind `json:"type"`
	Read      bool              `json:"is_read"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func toNotificationView(n notification.Notification) notificationView {
	return notificationView{ID: n.ID, Title: n.Title, Content: n.Content, Kind: n.Kind, CreatedAt: n.CreatedAt}
}

func toInboxView(it notification.InboxItem) notificationView {
	v := toNotificationView(it.Notification)
	v.Read = it.Read
	v.ReadAt = it.ReadAt
	return v
}

type variantView struct {
	ID        string                  `json:"id"`
	ProductID string                  `json:"product_id"`
	SKU       string                  `json:"sku,omitempty"`
	Price     int64                   `json:"price"`
	Quantity  int                     `json:"quantity"`
	Status    inventory.VariantStatus `json:"status"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func toVariantView(v *inventory.Variant) variantView {
	return variantView{
		ID:        v.ID,
		ProductID: v.ProductID,
		SKU:       v.SKU,
		Price:     v.Price,
		Quantity:  v.Quantity,
		Status:    v.Status,
		UpdatedAt: v.UpdatedAt,
	}
}
