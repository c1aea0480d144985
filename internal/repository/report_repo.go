package repository

import (
	"context"
	"time"

	"shop_admin/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatusCount struct {
	Status model.OrderStatus `json:"status"`
	Count  int64             `json:"count"`
}

type MonthlyRevenue struct {
	Month string          `json:"month"` // YYYY-MM
	Total decimal.Decimal `json:"total"`
}

type TopProduct struct {
	ProductID uint            `gorm:"column:product_id" json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `gorm:"column:sku" json:"sku"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	TotalSold int64           `gorm:"column:total_sold" json:"total_sold"`
}

// ReportRepo 只读聚合查询，不参与事务。
type ReportRepo interface {
	// Revenue 汇总 completed + paid 订单的 grand_total，时间窗 [from, to)，零值表示不限。
	Revenue(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	CountOrders(ctx context.Context, from, to time.Time) (int64, error)
	StatusCounts(ctx context.Context) ([]StatusCount, error)
	MonthlyRevenue(ctx context.Context, since time.Time) ([]MonthlyRevenue, error)
	LowStock(ctx context.Context, threshold, limit int) ([]model.Product, error)
	CountLowStock(ctx context.Context, threshold int) (int64, error)
	TopProducts(ctx context.Context, limit int) ([]TopProduct, error)
	RecentOrders(ctx context.Context, customerID uint, limit int) ([]model.Order, error)
	RecentUsers(ctx context.Context, limit int) ([]model.User, error)

	CountUsers(ctx context.Context, status model.UserStatus) (int64, error)
	CountProducts(ctx context.Context) (int64, error)
	CustomerOrderCount(ctx context.Context, customerID uint) (int64, error)
	CustomerPaidTotal(ctx context.Context, customerID uint) (decimal.Decimal, error)
}

type reportRepo struct{ db *gorm.DB }

func NewReportRepo(db *gorm.DB) ReportRepo { return &reportRepo{db: db} }

func (r *reportRepo) completedPaid(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("status = ? AND payment_status = ?", model.OrderCompleted, model.PaymentPaid)
}

func withWindow(q *gorm.DB, from, to time.Time) *gorm.DB {
	if !from.IsZero() {
		q = q.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("created_at < ?", to)
	}
	return q
}

func sumGrandTotal(q *gorm.DB) (decimal.Decimal, error) {
	var res struct {
		Total decimal.Decimal
	}
	if err := q.Select("COALESCE(SUM(grand_total), 0) AS total").Scan(&res).Error; err != nil {
		return decimal.Zero, err
	}
	return res.Total.Round(2), nil
}

func (r *reportRepo) Revenue(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	return sumGrandTotal(withWindow(r.completedPaid(ctx), from, to))
}

func (r *reportRepo) CountOrders(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := withWindow(r.db.WithContext(ctx).Model(&model.Order{}), from, to).Count(&n).Error
	return n, err
}

func (r *reportRepo) StatusCounts(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

// monthExpr 按方言把 created_at 格式化为 YYYY-MM。
func monthExpr(db *gorm.DB) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "to_char(created_at, 'YYYY-MM')"
	case "mysql":
		return "DATE_FORMAT(created_at, '%Y-%m')"
	default:
		return "strftime('%Y-%m', created_at)"
	}
}

func (r *reportRepo) MonthlyRevenue(ctx context.Context, since time.Time) ([]MonthlyRevenue, error) {
	expr := monthExpr(r.db)
	var rows []MonthlyRevenue
	err := withWindow(r.completedPaid(ctx), since, time.Time{}).
		Select(expr + " AS month, COALESCE(SUM(grand_total), 0) AS total").
		Group(expr).
		Order("month ASC").
		Scan(&rows).Error
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(2)
	}
	return rows, err
}

func (r *reportRepo) lowStock(ctx context.Context, threshold int) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Product{}).
		Where("status = ? AND quantity <= ?", model.ProductActive, threshold)
}

func (r *reportRepo) LowStock(ctx context.Context, threshold, limit int) ([]model.Product, error) {
	q := r.lowStock(ctx, threshold).
		Preload("Category").
		Order("quantity ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var list []model.Product
	err := q.Find(&list).Error
	return list, err
}

func (r *reportRepo) CountLowStock(ctx context.Context, threshold int) (int64, error) {
	var n int64
	err := r.lowStock(ctx, threshold).Count(&n).Error
	return n, err
}

func (r *reportRepo) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	var rows []TopProduct
	err := r.db.WithContext(ctx).
		Table("products AS p").
		Select("p.id AS product_id, p.name, p.sku, p.price, p.quantity, SUM(oi.quantity) AS total_sold").
		Joins("JOIN order_items AS oi ON oi.product_id = p.id").
		Group("p.id, p.name, p.sku, p.price, p.quantity").
		Order("total_sold DESC, p.id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *reportRepo) RecentOrders(ctx context.Context, customerID uint, limit int) ([]model.Order, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{})
	if customerID != 0 {
		q = q.Where("customer_id = ?", customerID)
	} else {
		q = q.Preload("Customer", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "full_name", "email")
		})
	}
	var list []model.Order
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *reportRepo) RecentUsers(ctx context.Context, limit int) ([]model.User, error) {
	var list []model.User
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *reportRepo) CountUsers(ctx context.Context, status model.UserStatus) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func (r *reportRepo) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Count(&n).Error
	return n, err
}

func (r *reportRepo) CustomerOrderCount(ctx context.Context, customerID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).Where("customer_id = ?", customerID).Count(&n).Error
	return n, err
}

// CustomerPaidTotal 个人累计消费：只看支付状态，与订单状态无关。
func (r *reportRepo) CustomerPaidTotal(ctx context.Context, customerID uint) (decimal.Decimal, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("customer_id = ? AND payment_status = ?", customerID, model.PaymentPaid)
	return sumGrandTotal(q)
}
