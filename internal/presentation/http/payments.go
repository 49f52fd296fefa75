package httppresentation

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/payment"
)

const headerStripeSignature = "Stripe-Signature"

// handlePaymentCallback accepts the gateway webhook. The raw body is passed
// through untouched since the signature covers its exact bytes.
func (h *Handler) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, r, apperr.Validation("read callback body: %v", err))
		return
	}
	rec, err := h.svc.Payments.HandleCallback(r.Context(), payment.Callback{
		Payload:   body,
		Signature: r.Header.Get(headerStripeSignature),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if rec == nil {
		writeOK(w, http.StatusOK, "Bỏ qua sự kiện", nil)
		return
	}
	writeOK(w, http.StatusOK, "Cập nhật thanh toán thành công", toPaymentView(rec))
}

type setStockRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

func (h *Handler) handleSetStock(w http.ResponseWriter, r *http.Request) {
	var req setStockRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.svc.Ledger.SetStock(r.Context(), chi.URLParam(r, "id"), *req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Cập nhật tồn kho thành công", toVariantView(v))
}
