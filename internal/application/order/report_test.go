package order

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
)

func seedAt(t *testing.T, e *env, id string, status domain.Status, at time.Time, lines ...domain.Line) *domain.Order {
	t.Helper()
	for i := range lines {
		lines[i].ID = id + "-" + lines[i].VariantID
	}
	o, err := domain.New(domain.NewParams{
		ID:            id,
		UserID:        "u1",
		AddressID:     "addr-1",
		Lines:         lines,
		ShippingFee:   testShippingFee,
		PaymentMethod: domain.PaymentCOD,
	})
	require.NoError(t, err)
	o.Status = status
	o.CreatedAt = at
	o.UpdatedAt = at
	require.NoError(t, e.orders.Insert(context.Background(), o))
	return o
}

func TestRevenueByDateCountsDeliveredOrdersPerDay(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	day1 := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	a := seedAt(t, e, "o-a", domain.StatusDelivered, day1, domain.Line{VariantID: "v1", Quantity: 1, UnitPrice: 100000})
	b := seedAt(t, e, "o-b", domain.StatusDelivered, day1.Add(3*time.Hour), domain.Line{VariantID: "v2", Quantity: 2, UnitPrice: 50000})
	c := seedAt(t, e, "o-c", domain.StatusDelivered, day2, domain.Line{VariantID: "v1", Quantity: 1, UnitPrice: 100000})
	seedAt(t, e, "o-returned", domain.StatusReturned, day1, domain.Line{VariantID: "v1", Quantity: 9, UnitPrice: 100000})
	seedAt(t, e, "o-pending", domain.StatusPending, day2, domain.Line{VariantID: "v1", Quantity: 9, UnitPrice: 100000})

	rows, err := e.queries.RevenueByDate(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []DailyRevenue{
		{Date: "2024-05-01", Revenue: a.FinalTotal + b.FinalTotal, Orders: 2},
		{Date: "2024-05-02", Revenue: c.FinalTotal, Orders: 1},
	}, rows)

	from := day2.Truncate(24 * time.Hour)
	rows, err = e.queries.RevenueByDate(ctx, &from, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-05-02", rows[0].Date)

	_, err = e.queries.RevenueByDate(ctx, &day2, &day1)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRevenueByDateReadsEveryPage(t *testing.T) {
	e := newEnv(t, nil)
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	n := domain.MaxPageSize + 5
	for i := 0; i < n; i++ {
		seedAt(t, e, fmt.Sprintf("o-%03d", i), domain.StatusDelivered, start.Add(time.Duration(i)*time.Minute),
			domain.Line{VariantID: "v1", Quantity: 1, UnitPrice: 1000})
	}

	rows, err := e.queries.RevenueByDate(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, n, rows[0].Orders)
}

func TestTopVariantsRanksBySoldUnits(t *testing.T) {
	e := newEnv(t, nil)
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	seedAt(t, e, "o-1", domain.StatusDelivered, at,
		domain.Line{VariantID: "v1", Quantity: 1, UnitPrice: 300000},
		domain.Line{VariantID: "v2", Quantity: 3, UnitPrice: 50000},
	)
	seedAt(t, e, "o-2", domain.StatusDelivered, at,
		domain.Line{VariantID: "v3", Quantity: 3, UnitPrice: 90000},
		domain.Line{VariantID: "v1", Quantity: 1, UnitPrice: 280000},
	)
	seedAt(t, e, "o-cancelled", domain.StatusCancelled, at, domain.Line{VariantID: "v4", Quantity: 50, UnitPrice: 1000})

	top, err := e.queries.TopVariants(context.Background(), nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []VariantSales{
		{VariantID: "v3", Sold: 3, Revenue: 270000},
		{VariantID: "v2", Sold: 3, Revenue: 150000},
		{VariantID: "v1", Sold: 2, Revenue: 580000},
	}, top)

	top, err = e.queries.TopVariants(context.Background(), nil, nil, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "v3", top[0].VariantID)
}

func TestPaymentHistoryListsOwnRecords(t *testing.T) {
	e := newEnv(t, map[string]variantSeed{"v1": {price: 10000, stock: 10}})
	ctx := context.Background()
	first := e.placeCOD(t, "u1", LineInput{VariantID: "v1", Quantity: 1})
	second := e.placeCOD(t, "u1", LineInput{VariantID: "v1", Quantity: 2})
	e.placeCOD(t, "u2", LineInput{VariantID: "v1", Quantity: 1})
	seedAt(t, e, "o-no-payment", domain.StatusDelivered, testNow.Add(-time.Hour), domain.Line{VariantID: "v1", Quantity: 1, UnitPrice: 10000})

	page, err := e.queries.PaymentHistory(ctx, "u1", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	require.Len(t, page.Payments, 2)
	orderIDs := []string{page.Payments[0].OrderID, page.Payments[1].OrderID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, orderIDs)
	for _, rec := range page.Payments {
		assert.Equal(t, "u1", rec.UserID)
	}

	_, err = e.queries.PaymentHistory(ctx, "", 1, 10)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
