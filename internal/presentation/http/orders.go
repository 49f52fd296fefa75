package httppresentation

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	apporder "github.com/LoiPham2005/backend-doantotnghiep/internal/application/order"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
)

func caller(r *http.Request) Identity {
	id, _ := identityFrom(r.Context())
	return id
}

// placeOrderItem.Price is what the client saw; the order snapshots the
// variant's current price instead.
type placeOrderItem struct {
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	Price     *int64 `json:"price" validate:"omitempty,gte=0"`
}

type placeOrderRequest struct {
	// UserID is optional and must name the caller when present.
	UserID         string           `json:"user_id"`
	AddressID      string           `json:"address_id" validate:"required"`
	Items          []placeOrderItem `json:"orderDetails" validate:"required,min=1,dive"`
	PaymentMethod  string           `json:"payment_method" validate:"required,oneof=COD banking"`
	OrderVoucherID string           `json:"order_voucher_id"`
	ShipVoucherID  string           `json:"ship_voucher_id"`
	Note           string           `json:"note" validate:"max=500"`
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	userID := caller(r).UserID
	if req.UserID != "" && req.UserID != userID {
		h.writeError(w, r, apperr.Forbidden("user_id does not match the authenticated user"))
		return
	}

	lines := make([]apporder.LineInput, len(req.Items))
	for i, it := range req.Items {
		lines[i] = apporder.LineInput{VariantID: it.VariantID, Quantity: it.Quantity}
	}
	res, err := h.svc.PlaceOrder.Execute(r.Context(), apporder.PlaceOrderInput{
		UserID:         userID,
		AddressID:      req.AddressID,
		Lines:          lines,
		PaymentMethod:  order.PaymentMethod(req.PaymentMethod),
		OrderVoucherID: req.OrderVoucherID,
		ShipVoucherID:  req.ShipVoucherID,
		Note:           sanitize(req.Note),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	view := toOrderDetail(res.Order, res.Payment)
	view.PayURL = res.PayURL
	writeOK(w, http.StatusOK, "Đặt hàng thành công", view)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	detail, err := h.svc.Orders.Get(r.Context(), chi.URLParam(r, "id"), id.UserID, id.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Chi tiết đơn hàng", toOrderDetail(detail.Order, detail.Payment))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q, err := parseOrderQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.svc.Orders.List(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Danh sách đơn hàng", toOrderPage(page))
}

func (h *Handler) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	statuses, err := parseStatuses(values.Get("status"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	pageNo, err := intParam(values, "page")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := intParam(values, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.svc.Orders.History(r.Context(), caller(r).UserID, statuses, pageNo, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Lịch sử đơn hàng", toOrderPage(page))
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

func (h *Handler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	id := caller(r)
	o, err := h.svc.Machine.UpdateStatus(r.Context(), apporder.TransitionCommand{
		OrderID:   chi.URLParam(r, "id"),
		To:        order.Status(strings.TrimSpace(req.Status)),
		ActorID:   id.UserID,
		ActorRole: id.Role,
		Reason:    sanitize(req.Reason),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Cập nhật trạng thái đơn hàng thành công", map[string]any{"order": toOrderView(o)})
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	id := caller(r)
	o, audit, err := h.svc.Machine.Cancel(r.Context(), apporder.CancelCommand{
		OrderID: chi.URLParam(r, "id"),
		UserID:  id.UserID,
		Reason:  sanitize(req.Reason),
		Admin:   id.IsAdmin(),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Hủy đơn hàng thành công", map[string]any{
		"order":          toOrderView(o),
		"cancel_request": toCancelView(audit),
	})
}

type returnImage struct {
	URL      string `json:"url" validate:"required,url"`
	PublicID string `json:"public_id"`
}

type returnRequest struct {
	LineID   string        `json:"line_id" validate:"required"`
	Quantity int           `json:"quantity" validate:"gt=0"`
	Reason   string        `json:"reason" validate:"required,max=1000"`
	Images   []returnImage `json:"images" validate:"max=5,dive"`
}

func (h *Handler) handleRequestReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	images := make([]order.ReturnImage, len(req.Images))
	for i, img := range req.Images {
		images[i] = order.ReturnImage{URL: img.URL, PublicID: img.PublicID}
	}
	rr, err := h.svc.Returns.Request(r.Context(), apporder.ReturnCommand{
		OrderID:  chi.URLParam(r, "id"),
		UserID:   caller(r).UserID,
		LineID:   req.LineID,
		Quantity: req.Quantity,
		Reason:   sanitize(req.Reason),
		Images:   images,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Gửi yêu cầu trả hàng thành công", toReturnView(rr))
}

type reviewReturnRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected completed"`
}

func (h *Handler) handleReviewReturn(w http.ResponseWriter, r *http.Request) {
	var req reviewReturnRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rr, err := h.svc.Returns.Review(r.Context(), chi.URLParam(r, "id"), order.RequestStatus(req.Status))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Cập nhật yêu cầu trả hàng thành công", toReturnView(rr))
}

// ownerFilter scopes listings to the caller unless the caller is staff.
func ownerFilter(id Identity) string {
	if id.IsAdmin() {
		return ""
	}
	return id.UserID
}

func (h *Handler) handleListReturns(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Returns.List(r.Context(), ownerFilter(caller(r)))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]returnRequestView, len(list))
	for i, rr := range list {
		out[i] = toReturnView(rr)
	}
	writeOK(w, http.StatusOK, "Danh sách yêu cầu trả hàng", out)
}

func (h *Handler) handleListCancels(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Returns.ListCancels(r.Context(), ownerFilter(caller(r)))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]*cancelRequestView, len(list))
	for i, c := range list {
		out[i] = toCancelView(c)
	}
	writeOK(w, http.StatusOK, "Danh sách yêu cầu hủy đơn", out)
}

func parseOrderQuery(values url.Values) (order.Query, error) {
	var (
		q   order.Query
		err error
	)
	q.UserID = strings.TrimSpace(values.Get("user_id"))
	if q.Statuses, err = parseStatuses(values.Get("status")); err != nil {
		return q, err
	}
	if m := strings.TrimSpace(values.Get("payment_method")); m != "" {
		q.PaymentMethod = order.PaymentMethod(m)
		if !q.PaymentMethod.Valid() {
			return q, apperr.Validation("unknown payment_method %q", m)
		}
	}
	if q.CreatedFrom, err = timeParam(values, "created_from", false); err != nil {
		return q, err
	}
	if q.CreatedTo, err = timeParam(values, "created_to", true); err != nil {
		return q, err
	}
	if q.MinTotal, err = amountParam(values, "min_total"); err != nil {
		return q, err
	}
	if q.MaxTotal, err = amountParam(values, "max_total"); err != nil {
		return q, err
	}
	if q.Page, err = intParam(values, "page"); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(values, "limit"); err != nil {
		return q, err
	}
	return q, nil
}

// parseStatuses accepts a comma separated list.
func parseStatuses(raw string) ([]order.Status, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []order.Status
	for _, part := range strings.Split(raw, ",") {
		s, err := order.ParseStatus(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func intParam(values url.Values, key string) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation("%s must be a non-negative integer", key)
	}
	return n, nil
}

func amountParam(values url.Values, key string) (*int64, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return nil, apperr.Validation("%s must be a non-negative amount", key)
	}
	return &n, nil
}

// timeParam accepts RFC 3339 or a plain date. A plain date used as an upper
// bound covers the whole day.
func timeParam(values url.Values, key string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperr.Validation("%s must be RFC 3339 or YYYY-MM-DD", key)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
