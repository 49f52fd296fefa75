package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/payment"
)

const (
	defaultTopVariants = 10
	maxTopVariants     = 50
)

// Only delivered orders count as revenue; returned and cancelled ones were
// paid back or never paid.
var revenueStatuses = []domain.Status{domain.StatusDelivered}

type DailyRevenue struct {
	Date    string
	Revenue int64
	Orders  int
}

type VariantSales struct {
	VariantID string
	Sold      int
	Revenue   int64
}

type PaymentPage struct {
	Payments []*payment.Record
	Total    int64
	Page     int
	Limit    int
}

// RevenueByDate groups delivered orders by UTC calendar day of placement,
// oldest day first.
func (q *Queries) RevenueByDate(ctx context.Context, from, to *time.Time) ([]DailyRevenue, error) {
	byDay := map[string]*DailyRevenue{}
	err := q.eachRevenueOrder(ctx, from, to, func(o *domain.Order) {
		day := o.CreatedAt.UTC().Format(time.DateOnly)
		row, ok := byDay[day]
		if !ok {
			row = &DailyRevenue{Date: day}
			byDay[day] = row
		}
		row.Revenue += o.FinalTotal
		row.Orders++
	})
	if err != nil {
		return nil, err
	}

	out := make([]DailyRevenue, 0, len(byDay))
	for _, row := range byDay {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// TopVariants ranks variants by units sold on delivered orders. Revenue uses
// the price snapshotted on each line. Ties go to the higher revenue, then
// the variant id.
func (q *Queries) TopVariants(ctx context.Context, from, to *time.Time, limit int) ([]VariantSales, error) {
	switch {
	case limit <= 0:
		limit = defaultTopVariants
	case limit > maxTopVariants:
		limit = maxTopVariants
	}
	byVariant := map[string]*VariantSales{}
	err := q.eachRevenueOrder(ctx, from, to, func(o *domain.Order) {
		for _, l := range o.Lines {
			row, ok := byVariant[l.VariantID]
			if !ok {
				row = &VariantSales{VariantID: l.VariantID}
				byVariant[l.VariantID] = row
			}
			row.Sold += l.Quantity
			row.Revenue += l.Amount()
		}
	})
	if err != nil {
		return nil, err
	}

	out := make([]VariantSales, 0, len(byVariant))
	for _, row := range byVariant {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sold != out[j].Sold {
			return out[i].Sold > out[j].Sold
		}
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].VariantID < out[j].VariantID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PaymentHistory pages through the user's orders newest first and returns
// their payment records. Orders without a record are skipped, so a page may
// hold fewer payments than limit.
func (q *Queries) PaymentHistory(ctx context.Context, userID string, page, limit int) (PaymentPage, error) {
	if userID == "" {
		return PaymentPage{}, apperr.Validation("user id is required")
	}
	orders, err := q.orders.List(ctx, domain.Query{UserID: userID, Page: page, Limit: limit}.Normalize())
	if err != nil {
		return PaymentPage{}, fmt.Errorf("order: payment history: %w", err)
	}
	out := PaymentPage{Payments: make([]*payment.Record, 0, len(orders.Orders)), Total: orders.Total, Page: orders.Page, Limit: orders.Limit}
	for _, o := range orders.Orders {
		rec, err := q.payments.GetByOrder(ctx, o.ID)
		if errors.Is(err, payment.ErrNotFound) {
			continue
		}
		if err != nil {
			return PaymentPage{}, fmt.Errorf("order: payment history: %w", err)
		}
		out.Payments = append(out.Payments, rec)
	}
	return out, nil
}

func (q *Queries) eachRevenueOrder(ctx context.Context, from, to *time.Time, fn func(o *domain.Order)) error {
	if from != nil && to != nil && from.After(*to) {
		return apperr.Validation("from must not be after to")
	}
	query := domain.Query{Statuses: revenueStatuses, CreatedFrom: from, CreatedTo: to, Limit: domain.MaxPageSize}.Normalize()
	for {
		page, err := q.orders.List(ctx, query)
		if err != nil {
			return fmt.Errorf("order: report: %w", err)
		}
		for _, o := range page.Orders {
			fn(o)
		}
		if len(page.Orders) == 0 || int64(query.Offset()+len(page.Orders)) >= page.Total {
			return nil
		}
		query.Page++
	}
}
