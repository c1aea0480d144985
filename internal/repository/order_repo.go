package repository

import (
	"context"
	"errors"
	"time"

	"shop_admin/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderFilter struct {
	CustomerID    uint // 0 表示不限
	Status        model.OrderStatus
	PaymentStatus model.PaymentStatus
	Search        string // 订单号 / 客户姓名 / 邮箱模糊匹配
	From          time.Time
	To            time.Time // 不含
	Limit         int
	Offset        int
}

type OrderRepo interface {
	Create(ctx context.Context, o *model.Order) error
	CreateItems(ctx context.Context, items []model.OrderItem) error
	GetByID(ctx context.Context, id uint) (*model.Order, error)
	GetDetail(ctx context.Context, id uint) (*model.Order, error)
	// MarkCancelled 仅当订单尚未取消时生效，返回是否命中。
	MarkCancelled(ctx context.Context, id uint, payment model.PaymentStatus) (bool, error)
	UpdateStatus(ctx context.Context, id uint, status model.OrderStatus, payment model.PaymentStatus) error
	List(ctx context.Context, f OrderFilter) ([]model.Order, int64, error)
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) OrderRepo { return &orderRepo{db: db} }

func (r *orderRepo) Create(ctx context.Context, o *model.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(o).Error
}

func (r *orderRepo) CreateItems(ctx context.Context, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&items).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id uint) (*model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") }).
		First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &o, err
}

// GetDetail 额外带出客户与明细商品，供详情页使用。
func (r *orderRepo) GetDetail(ctx context.Context, id uint) (*model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") }).
		Preload("Items.Product").
		First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &o, err
}

func (r *orderRepo) MarkCancelled(ctx context.Context, id uint, payment model.PaymentStatus) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status <> ?", id, model.OrderCancelled).
		Updates(map[string]any{
			"status":         model.OrderCancelled,
			"payment_status": payment,
		})
	return tx.RowsAffected > 0, tx.Error
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uint, status model.OrderStatus, payment model.PaymentStatus) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":         status,
			"payment_status": payment,
		}).Error
}

func (r *orderRepo) List(ctx context.Context, f OrderFilter) ([]model.Order, int64, error) {
	build := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Order{})
		if f.Search != "" {
			like := "%" + f.Search + "%"
			q = q.Joins("LEFT JOIN users ON users.id = orders.customer_id").
				Where("orders.order_number LIKE ? OR users.full_name LIKE ? OR users.email LIKE ?", like, like, like)
		}
		if f.CustomerID != 0 {
			q = q.Where("orders.customer_id = ?", f.CustomerID)
		}
		if f.Status != "" {
			q = q.Where("orders.status = ?", f.Status)
		}
		if f.PaymentStatus != "" {
			q = q.Where("orders.payment_status = ?", f.PaymentStatus)
		}
		if !f.From.IsZero() {
			q = q.Where("orders.created_at >= ?", f.From)
		}
		if !f.To.IsZero() {
			q = q.Where("orders.created_at < ?", f.To)
		}
		return q
	}

	var total int64
	if err := build().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	var list []model.Order
	err := build().
		Select("orders.*").
		Preload("Customer", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "full_name", "email", "phone", "role", "status")
		}).
		Order("orders.created_at DESC, orders.id DESC").
		Limit(limit).
		Offset(f.Offset).
		Find(&list).Error
	return list, total, err
}
