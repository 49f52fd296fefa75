package httppresentation

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appvoucher "github.com/LoiPham2005/backend-doantotnghiep/internal/application/voucher"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/voucher"
)

type createVoucherRequest struct {
	Code          string    `json:"code" validate:"required,max=50"`
	Name          string    `json:"name" validate:"required,max=200"`
	Kind          string    `json:"voucher_type" validate:"required,oneof=order shipping"`
	DiscountType  string    `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue int64     `json:"discount_value" validate:"gt=0"`
	MinOrderValue int64     `json:"min_order_value" validate:"gte=0"`
	MaxDiscount   int64     `json:"max_discount" validate:"gte=0"`
	StartDate     time.Time `json:"start_date" validate:"required"`
	EndDate       time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	Quantity      int       `json:"quantity" validate:"gt=0"`
}

func (h *Handler) handleCreateVoucher(w http.ResponseWriter, r *http.Request) {
	var req createVoucherRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.svc.Vouchers.Create(r.Context(), appvoucher.CreateInput{
		Code:          req.Code,
		Name:          sanitize(req.Name),
		Kind:          voucher.Kind(req.Kind),
		DiscountType:  voucher.DiscountType(req.DiscountType),
		DiscountValue: req.DiscountValue,
		MinOrderValue: req.MinOrderValue,
		MaxDiscount:   req.MaxDiscount,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Quantity:      req.Quantity,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Tạo voucher thành công", toVoucherView(v))
}

func (h *Handler) handleAvailableVouchers(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Vouchers.ListAvailable(r.Context(), voucher.Kind(r.URL.Query().Get("voucher_type")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]voucherView, len(list))
	for i, v := range list {
		out[i] = toVoucherView(v)
	}
	writeOK(w, http.StatusOK, "Danh sách voucher khả dụng", out)
}

func (h *Handler) handleMyVouchers(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Vouchers.ListGrants(r.Context(), caller(r).UserID, voucher.GrantStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]grantView, len(entries))
	for i, e := range entries {
		out[i] = toGrantView(e)
	}
	writeOK(w, http.StatusOK, "Voucher của bạn", out)
}

func (h *Handler) handleClaimVoucher(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Vouchers.Claim(r.Context(), caller(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Lưu voucher thành công", map[string]any{
		"id":         g.ID,
		"voucher_id": g.VoucherID,
		"status":     g.Status,
		"created_at": g.CreatedAt,
	})
}

type useVoucherRequest struct {
	VoucherID string `json:"voucher_id" validate:"required"`
}

func (h *Handler) handleUseVoucher(w http.ResponseWriter, r *http.Request) {
	var req useVoucherRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.svc.Vouchers.Use(r.Context(), caller(r).UserID, req.VoucherID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Sử dụng voucher thành công", toVoucherView(v))
}
