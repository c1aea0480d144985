package service

import (
	"testing"
	"time"

	"shop_admin/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-18 是周三，本周从 03-15（周日）开始
var reportNow = time.Date(2026, 3, 18, 15, 0, 0, 0, time.UTC)

func seedReportOrders(f *fixture) (*model.User, *model.User) {
	admin := f.user(model.RoleAdmin)
	cust := f.user(model.RoleUser)
	f.reports.now = func() time.Time { return reportNow }

	at := func(m time.Month, d, h int) time.Time { return time.Date(2026, m, d, h, 0, 0, 0, time.UTC) }
	f.rawOrder(cust.ID, model.OrderCompleted, model.PaymentPaid, "100.00", at(3, 18, 10))
	f.rawOrder(cust.ID, model.OrderCompleted, model.PaymentPaid, "50.00", at(3, 16, 9))
	f.rawOrder(cust.ID, model.OrderCompleted, model.PaymentPaid, "25.50", at(3, 2, 9))
	f.rawOrder(cust.ID, model.OrderCompleted, model.PaymentPaid, "10.00", at(2, 10, 9))
	f.rawOrder(cust.ID, model.OrderPending, model.PaymentPending, "999.00", at(3, 18, 11))
	f.rawOrder(admin.ID, model.OrderCompleted, model.PaymentPending, "500.00", at(3, 18, 12))
	f.rawOrder(admin.ID, model.OrderCancelled, model.PaymentRefunded, "70.00", at(3, 18, 13))
	return admin, cust
}

func TestRevenueFor_Periods(t *testing.T) {
	f := newFixture(t)
	admin, _ := seedReportOrders(f)

	cases := []struct {
		period  ReportPeriod
		from    time.Time
		to      time.Time
		revenue string
		orders  int64
	}{
		{PeriodDay, time.Time{}, time.Time{}, "100.00", 4},
		{PeriodWeek, time.Time{}, time.Time{}, "150.00", 5},
		{PeriodMonth, time.Time{}, time.Time{}, "175.50", 6},
		{PeriodCustom, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), "10.00", 1},
	}
	for _, tc := range cases {
		t.Run(string(tc.period), func(t *testing.T) {
			r, err := f.reports.RevenueFor(f.ctx, staff(admin), tc.period, tc.from, tc.to)
			require.NoError(t, err)
			assert.True(t, r.Revenue.Equal(dec(tc.revenue)), "%s: got %s", tc.period, r.Revenue)
			assert.Equal(t, tc.orders, r.Orders)
			assert.True(t, r.From.Before(r.To))
		})
	}

	r, err := f.reports.RevenueFor(f.ctx, staff(admin), PeriodWeek, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, r.From.Weekday())
	assert.Equal(t, 15, r.From.Day())

	_, err = f.reports.RevenueFor(f.ctx, staff(admin), "year", time.Time{}, time.Time{})
	require.ErrorIs(t, err, ErrInvalidReportPeriod)
	_, err = f.reports.RevenueFor(f.ctx, staff(admin), PeriodCustom, reportNow, reportNow)
	require.ErrorIs(t, err, ErrValidation)
}

func TestRevenueFor_EmptyWindowIsZero(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)

	r, err := f.reports.RevenueFor(f.ctx, staff(admin), PeriodMonth, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.True(t, r.Revenue.IsZero())
	assert.Zero(t, r.Orders)

	_, err = f.reports.RevenueFor(f.ctx, Actor{UserID: admin.ID, Role: model.RoleUser}, PeriodMonth, time.Time{}, time.Time{})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestStatusCounts_ZeroFilled(t *testing.T) {
	f := newFixture(t)
	admin, _ := seedReportOrders(f)

	rows, err := f.reports.StatusCounts(f.ctx, staff(admin))
	require.NoError(t, err)
	require.Len(t, rows, len(model.OrderStatuses))

	got := map[model.OrderStatus]int64{}
	for _, r := range rows {
		got[r.Status] = r.Count
	}
	assert.Equal(t, map[model.OrderStatus]int64{
		model.OrderPending:    1,
		model.OrderProcessing: 0,
		model.OrderCompleted:  5,
		model.OrderCancelled:  1,
		model.OrderRefunded:   0,
	}, got)
}

func TestMonthlyRevenue_GroupedAscending(t *testing.T) {
	f := newFixture(t)
	admin, cust := seedReportOrders(f)
	f.rawOrder(cust.ID, model.OrderCompleted, model.PaymentPaid, "7.25", time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC))
	f.rawOrder(cust.ID, model.OrderCompleted, model.PaymentPaid, "2.75", time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC))
	// 窗口外
	f.rawOrder(cust.ID, model.OrderCompleted, model.PaymentPaid, "88.00", time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC))

	rows, err := f.reports.MonthlyRevenue(f.ctx, staff(admin), 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2026-01", rows[0].Month)
	assert.True(t, rows[0].Total.Equal(dec("10.00")), rows[0].Total.String())
	assert.Equal(t, "2026-02", rows[1].Month)
	assert.True(t, rows[1].Total.Equal(dec("10.00")))
	assert.Equal(t, "2026-03", rows[2].Month)
	assert.True(t, rows[2].Total.Equal(dec("175.50")))

	rows, err = f.reports.MonthlyRevenue(f.ctx, staff(admin), 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2026-02", rows[0].Month)

	rows, err = f.reports.MonthlyRevenue(f.ctx, staff(admin), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = f.reports.MonthlyRevenue(f.ctx, staff(admin), 0)
	require.ErrorIs(t, err, ErrValidation)
}

func TestLowStock_ActiveOnlyOrderedByQuantity(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	p10 := f.product(10, "1.00")
	p0 := f.product(0, "1.00")
	f.product(11, "1.00")
	p5 := f.product(5, "1.00")
	inactive := f.product(1, "1.00")
	inactive.Status = model.ProductInactive
	require.NoError(t, f.repo.Products.UpdateDetails(f.ctx, inactive))

	list, err := f.reports.LowStock(f.ctx, staff(admin), 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uint{p0.ID, p5.ID, p10.ID}, []uint{list[0].ID, list[1].ID, list[2].ID})
	require.NotNil(t, list[0].Category)

	list, err = f.reports.LowStock(f.ctx, staff(admin), 10, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = f.reports.LowStock(f.ctx, Actor{UserID: admin.ID, Role: model.RoleUser}, 10, 0)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestTopProducts_RankedBySold(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	a := f.product(50, "10.00")
	b := f.product(50, "10.00")
	f.product(50, "10.00") // 未售出，不出现

	place := func(items ...PlaceOrderItem) {
		_, err := f.orders.PlaceOrder(f.ctx, staff(admin), validInput(admin.ID, items...))
		require.NoError(t, err)
	}
	place(PlaceOrderItem{ProductID: a.ID, Quantity: 2}, PlaceOrderItem{ProductID: b.ID, Quantity: 1})
	place(PlaceOrderItem{ProductID: b.ID, Quantity: 5})

	rows, err := f.reports.TopProducts(f.ctx, staff(admin), 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, b.ID, rows[0].ProductID)
	assert.EqualValues(t, 6, rows[0].TotalSold)
	assert.Equal(t, a.ID, rows[1].ProductID)
	assert.EqualValues(t, 2, rows[1].TotalSold)

	_, err = f.reports.TopProducts(f.ctx, staff(admin), 0)
	require.ErrorIs(t, err, ErrValidation)
}

func TestDashboard_RoleShaped(t *testing.T) {
	f := newFixture(t)
	admin, cust := seedReportOrders(f)

	d, err := f.reports.Dashboard(f.ctx, staff(admin))
	require.NoError(t, err)
	assert.Equal(t, "business", d.View)
	require.NotNil(t, d.Business)
	assert.Nil(t, d.Personal)
	assert.EqualValues(t, 7, d.Business.TotalOrders)
	assert.True(t, d.Business.TotalRevenue.Equal(dec("185.50")))
	// 185.50 / 7
	assert.True(t, d.Business.AvgOrderValue.Equal(dec("26.50")), d.Business.AvgOrderValue.String())
	assert.Len(t, d.Business.RecentOrders, 5)
	assert.Len(t, d.Business.MonthlySales, 2)

	d, err = f.reports.Dashboard(f.ctx, staff(cust))
	require.NoError(t, err)
	assert.Equal(t, "personal", d.View)
	require.NotNil(t, d.Personal)
	assert.EqualValues(t, 5, d.Personal.TotalOrders)
	// 只看支付状态：100 + 50 + 25.50 + 10
	assert.True(t, d.Personal.TotalSpent.Equal(dec("185.50")), d.Personal.TotalSpent.String())
	for _, o := range d.Personal.RecentOrders {
		assert.Equal(t, cust.ID, o.CustomerID)
	}
}

func TestStats_Windows(t *testing.T) {
	f := newFixture(t)
	admin, _ := seedReportOrders(f)
	f.product(3, "1.00")
	f.product(30, "1.00")

	st, err := f.reports.Stats(f.ctx, staff(admin))
	require.NoError(t, err)
	assert.EqualValues(t, 4, st.Today.Orders)
	assert.True(t, st.Today.Revenue.Equal(dec("100.00")))
	assert.EqualValues(t, 5, st.Week.Orders)
	assert.EqualValues(t, 6, st.Month.Orders)
	assert.True(t, st.Month.Revenue.Equal(dec("175.50")))
	assert.EqualValues(t, 2, st.ActiveUsers)
	assert.EqualValues(t, 1, st.LowStockCount)
}
