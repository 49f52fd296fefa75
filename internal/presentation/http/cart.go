package httppresentation

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type addToCartRequest struct {
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

type updateCartRequest struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

func (h *Handler) handleListCart(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.Cart.List(r.Context(), caller(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Giỏ hàng", toCartView(lines))
}

func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.svc.Cart.Add(r.Context(), caller(r).UserID, req.VariantID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Thêm vào giỏ hàng thành công", toCartItemView(item))
}

func (h *Handler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.svc.Cart.Update(r.Context(), caller(r).UserID, chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Cập nhật giỏ hàng thành công", toCartItemView(item))
}

func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cart.Remove(r.Context(), caller(r).UserID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Xóa sản phẩm khỏi giỏ hàng thành công", nil)
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cart.Clear(r.Context(), caller(r).UserID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Đã xóa toàn bộ giỏ hàng", nil)
}
