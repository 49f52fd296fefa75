package httppresentation

import (
	"net/http"

	apporder "github.com/LoiPham2005/backend-doantotnghiep/internal/application/order"
)

type dailyRevenueView struct {
	Date       string `json:"date"`
	Revenue    int64  `json:"totalRevenue"`
	OrderCount int    `json:"orderCount"`
}

type variantSalesView struct {
	VariantID string `json:"variant_id"`
	Sold      int    `json:"totalSold"`
	Revenue   int64  `json:"totalRevenue"`
}

type paymentPageView struct {
	Payments []*paymentView `json:"payments"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	Limit    int            `json:"limit"`
}

func (h *Handler) handleRevenueByDate(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	from, err := timeParam(values, "from", false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	to, err := timeParam(values, "to", true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rows, err := h.svc.Orders.RevenueByDate(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]dailyRevenueView, len(rows))
	for i, row := range rows {
		out[i] = dailyRevenueView{Date: row.Date, Revenue: row.Revenue, OrderCount: row.Orders}
	}
	writeOK(w, http.StatusOK, "Thống kê doanh thu theo ngày", out)
}

func (h *Handler) handleTopVariants(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	from, err := timeParam(values, "from", false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	to, err := timeParam(values, "to", true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := intParam(values, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rows, err := h.svc.Orders.TopVariants(r.Context(), from, to, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]variantSalesView, len(rows))
	for i, row := range rows {
		out[i] = variantSalesView{VariantID: row.VariantID, Sold: row.Sold, Revenue: row.Revenue}
	}
	writeOK(w, http.StatusOK, "Sản phẩm bán chạy nhất", out)
}

func (h *Handler) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
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
	page, err := h.svc.Orders.PaymentHistory(r.Context(), caller(r).UserID, pageNo, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Lịch sử thanh toán", toPaymentPage(page))
}

func toPaymentPage(p apporder.PaymentPage) paymentPageView {
	out := paymentPageView{Payments: make([]*paymentView, len(p.Payments)), Total: p.Total, Page: p.Page, Limit: p.Limit}
	for i, rec := range p.Payments {
		out.Payments[i] = toPaymentView(rec)
	}
	return out
}
