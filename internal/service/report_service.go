package service

import (
	"context"
	"time"

	"shop_admin/internal/model"
	"shop_admin/internal/repository"

	"github.com/shopspring/decimal"
)

type ReportPeriod string

const (
	PeriodDay    ReportPeriod = "day"
	PeriodWeek   ReportPeriod = "week"
	PeriodMonth  ReportPeriod = "month"
	PeriodCustom ReportPeriod = "custom"
)

type RevenueReport struct {
	Period  ReportPeriod    `json:"period"`
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int64           `json:"orders"`
}

type PeriodStats struct {
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type Stats struct {
	Today         PeriodStats `json:"today"`
	Week          PeriodStats `json:"week"`
	Month         PeriodStats `json:"month"`
	ActiveUsers   int64       `json:"active_users"`
	LowStockCount int64       `json:"low_stock_count"`
}

type BusinessDashboard struct {
	TotalUsers    int64                       `json:"total_users"`
	TotalProducts int64                       `json:"total_products"`
	TotalOrders   int64                       `json:"total_orders"`
	TotalRevenue  decimal.Decimal             `json:"total_revenue"`
	AvgOrderValue decimal.Decimal             `json:"avg_order_value"`
	RecentOrders  []model.Order               `json:"recent_orders"`
	LowStock      []model.Product             `json:"low_stock"`
	RecentUsers   []model.User                `json:"recent_users"`
	MonthlySales  []repository.MonthlyRevenue `json:"monthly_sales"`
	TopProducts   []repository.TopProduct     `json:"top_products"`
}

type PersonalDashboard struct {
	TotalOrders  int64           `json:"total_orders"`
	TotalSpent   decimal.Decimal `json:"total_spent"`
	RecentOrders []model.Order   `json:"recent_orders"`
}

// Dashboard 按角色只填充其中一个视图。
type Dashboard struct {
	View     string             `json:"view"`
	Business *BusinessDashboard `json:"business,omitempty"`
	Personal *PersonalDashboard `json:"personal,omitempty"`
}

const (
	dashboardListSize   = 5
	dashboardMonths     = 6
	maxReportMonths     = 36
	maxTopProductsLimit = 100
)

type ReportService struct {
	repo      *repository.Repository
	threshold int
	now       func() time.Time
}

func NewReportService(repo *repository.Repository, lowStockThreshold int) *ReportService {
	return &ReportService{
		repo:      repo,
		threshold: lowStockThreshold,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *ReportService) LowStockThreshold() int { return s.threshold }

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek 周日为一周第一天。
func startOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// Window 把报表周期解析成 [from, to)。custom 必须给出 from < to。
func (s *ReportService) Window(period ReportPeriod, from, to time.Time) (time.Time, time.Time, error) {
	now := s.now()
	switch period {
	case PeriodDay:
		f := startOfDay(now)
		return f, f.AddDate(0, 0, 1), nil
	case PeriodWeek:
		f := startOfWeek(now)
		return f, f.AddDate(0, 0, 7), nil
	case PeriodMonth:
		f := startOfMonth(now)
		return f, f.AddDate(0, 1, 0), nil
	case PeriodCustom:
		if from.IsZero() || to.IsZero() || !from.Before(to) {
			return time.Time{}, time.Time{}, validation("custom period needs from < to")
		}
		return from, to, nil
	}
	return time.Time{}, time.Time{}, ErrInvalidReportPeriod
}

func (s *ReportService) RevenueFor(ctx context.Context, actor Actor, period ReportPeriod, from, to time.Time) (*RevenueReport, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	f, t, err := s.Window(period, from, to)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Reports.Revenue(ctx, f, t)
	if err != nil {
		return nil, classify(err)
	}
	n, err := s.repo.Reports.CountOrders(ctx, f, t)
	if err != nil {
		return nil, classify(err)
	}
	return &RevenueReport{Period: period, From: f, To: t, Revenue: total, Orders: n}, nil
}

// StatusCounts 返回全部状态，没有订单的状态计 0。
func (s *ReportService) StatusCounts(ctx context.Context, actor Actor) ([]repository.StatusCount, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	rows, err := s.repo.Reports.StatusCounts(ctx)
	if err != nil {
		return nil, classify(err)
	}
	got := make(map[model.OrderStatus]int64, len(rows))
	for _, r := range rows {
		got[r.Status] = r.Count
	}
	out := make([]repository.StatusCount, 0, len(model.OrderStatuses))
	for _, st := range model.OrderStatuses {
		out = append(out, repository.StatusCount{Status: st, Count: got[st]})
	}
	return out, nil
}

// MonthlyRevenue 最近 months 个自然月（含当月）的已完成已支付收入。
func (s *ReportService) MonthlyRevenue(ctx context.Context, actor Actor, months int) ([]repository.MonthlyRevenue, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return s.monthly(ctx, months)
}

func (s *ReportService) monthly(ctx context.Context, months int) ([]repository.MonthlyRevenue, error) {
	if months < 1 || months > maxReportMonths {
		return nil, validation("months must be between 1 and %d", maxReportMonths)
	}
	since := startOfMonth(s.now()).AddDate(0, -(months - 1), 0)
	rows, err := s.repo.Reports.MonthlyRevenue(ctx, since)
	if err != nil {
		return nil, classify(err)
	}
	if rows == nil {
		rows = []repository.MonthlyRevenue{}
	}
	return rows, nil
}

func (s *ReportService) LowStock(ctx context.Context, actor Actor, threshold, limit int) ([]model.Product, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if threshold < 0 {
		return nil, validation("threshold must be >= 0")
	}
	list, err := s.repo.Reports.LowStock(ctx, threshold, limit)
	return list, classify(err)
}

func (s *ReportService) TopProducts(ctx context.Context, actor Actor, limit int) ([]repository.TopProduct, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return s.topProducts(ctx, limit)
}

func (s *ReportService) topProducts(ctx context.Context, limit int) ([]repository.TopProduct, error) {
	if limit < 1 || limit > maxTopProductsLimit {
		return nil, validation("limit must be between 1 and %d", maxTopProductsLimit)
	}
	rows, err := s.repo.Reports.TopProducts(ctx, limit)
	if err != nil {
		return nil, classify(err)
	}
	if rows == nil {
		rows = []repository.TopProduct{}
	}
	return rows, nil
}

// Dashboard admin/manager 看业务全局，user 只看个人数据。
func (s *ReportService) Dashboard(ctx context.Context, actor Actor) (*Dashboard, error) {
	if actor.Staff() {
		b, err := s.business(ctx)
		if err != nil {
			return nil, err
		}
		return &Dashboard{View: "business", Business: b}, nil
	}
	p, err := s.personal(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{View: "personal", Personal: p}, nil
}

func (s *ReportService) business(ctx context.Context) (*BusinessDashboard, error) {
	var (
		d   BusinessDashboard
		err error
	)
	r := s.repo.Reports
	if d.TotalUsers, err = r.CountUsers(ctx, ""); err != nil {
		return nil, classify(err)
	}
	if d.TotalProducts, err = r.CountProducts(ctx); err != nil {
		return nil, classify(err)
	}
	if d.TotalOrders, err = r.CountOrders(ctx, time.Time{}, time.Time{}); err != nil {
		return nil, classify(err)
	}
	if d.TotalRevenue, err = r.Revenue(ctx, time.Time{}, time.Time{}); err != nil {
		return nil, classify(err)
	}
	d.AvgOrderValue = decimal.Zero
	if d.TotalOrders > 0 {
		d.AvgOrderValue = d.TotalRevenue.Div(decimal.NewFromInt(d.TotalOrders)).Round(2)
	}
	if d.RecentOrders, err = r.RecentOrders(ctx, 0, dashboardListSize); err != nil {
		return nil, classify(err)
	}
	if d.LowStock, err = r.LowStock(ctx, s.threshold, dashboardListSize); err != nil {
		return nil, classify(err)
	}
	if d.RecentUsers, err = r.RecentUsers(ctx, dashboardListSize); err != nil {
		return nil, classify(err)
	}
	if d.MonthlySales, err = s.monthly(ctx, dashboardMonths); err != nil {
		return nil, err
	}
	if d.TopProducts, err = s.topProducts(ctx, dashboardListSize); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *ReportService) personal(ctx context.Context, customerID uint) (*PersonalDashboard, error) {
	var (
		d   PersonalDashboard
		err error
	)
	r := s.repo.Reports
	if d.TotalOrders, err = r.CustomerOrderCount(ctx, customerID); err != nil {
		return nil, classify(err)
	}
	if d.TotalSpent, err = r.CustomerPaidTotal(ctx, customerID); err != nil {
		return nil, classify(err)
	}
	if d.RecentOrders, err = r.RecentOrders(ctx, customerID, dashboardListSize); err != nil {
		return nil, classify(err)
	}
	return &d, nil
}

// Stats 今日/本周/本月订单数与收入，外加活跃用户和低库存数量。
func (s *ReportService) Stats(ctx context.Context, actor Actor) (*Stats, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	now := s.now()
	var st Stats
	for _, w := range []struct {
		dst  *PeriodStats
		from time.Time
	}{
		{&st.Today, startOfDay(now)},
		{&st.Week, startOfWeek(now)},
		{&st.Month, startOfMonth(now)},
	} {
		n, err := s.repo.Reports.CountOrders(ctx, w.from, time.Time{})
		if err != nil {
			return nil, classify(err)
		}
		rev, err := s.repo.Reports.Revenue(ctx, w.from, time.Time{})
		if err != nil {
			return nil, classify(err)
		}
		*w.dst = PeriodStats{Orders: n, Revenue: rev}
	}

	var err error
	if st.ActiveUsers, err = s.repo.Reports.CountUsers(ctx, model.UserActive); err != nil {
		return nil, classify(err)
	}
	if st.LowStockCount, err = s.repo.Reports.CountLowStock(ctx, s.threshold); err != nil {
		return nil, classify(err)
	}
	return &st, nil
}
