package repository

import (
	"context"
	"errors"
	"time"

	"shop_admin/internal/model"

	"gorm.io/gorm"
)

type ProductRepo interface {
	Create(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id uint) (*model.Product, error)
	BatchGetByIDs(ctx context.Context, ids []uint) ([]model.Product, error)
	UpdateDetails(ctx context.Context, p *model.Product) error
	// Delete 返回是否命中行；被订单明细引用时外键拒绝删除。
	Delete(ctx context.Context, id uint) (bool, error)

	// 库存原子操作，返回是否命中行：
	// Decrement: if quantity >= qty then quantity -= qty
	Decrement(ctx context.Context, id uint, qty int) (bool, error)
	// Increment: quantity += qty
	Increment(ctx context.Context, id uint, qty int) (bool, error)
	// SetQuantity: quantity = qty (qty >= 0)
	SetQuantity(ctx context.Context, id uint, qty int) (bool, error)
}

type productRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) ProductRepo { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Omit("Category").Create(p).Error
}

func (r *productRepo) GetByID(ctx context.Context, id uint) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Preload("Category").First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

func (r *productRepo) BatchGetByIDs(ctx context.Context, ids []uint) ([]model.Product, error) {
	var list []model.Product
	if len(ids) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error
	return list, err
}

// UpdateDetails 更新除库存外的商品信息；库存只能走台账。
func (r *productRepo) UpdateDetails(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Model(&model.Product{ID: p.ID}).
		Select("name", "description", "price", "cost_price", "category_id", "status", "featured", "updated_at").
		Updates(p).Error
}

func (r *productRepo) Delete(ctx context.Context, id uint) (bool, error) {
	tx := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	return tx.RowsAffected > 0, tx.Error
}

func (r *productRepo) Decrement(ctx context.Context, id uint, qty int) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE products
SET quantity = quantity - @q,
    updated_at = @now
WHERE id = @pid
  AND quantity >= @q
`, map[string]any{
		"pid": id,
		"q":   qty,
		"now": time.Now().UTC(),
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *productRepo) Increment(ctx context.Context, id uint, qty int) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE products
SET quantity = quantity + @q,
    updated_at = @now
WHERE id = @pid
`, map[string]any{
		"pid": id,
		"q":   qty,
		"now": time.Now().UTC(),
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *productRepo) SetQuantity(ctx context.Context, id uint, qty int) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE products
SET quantity = @q,
    updated_at = @now
WHERE id = @pid
`, map[string]any{
		"pid": id,
		"q":   qty,
		"now": time.Now().UTC(),
	})
	return tx.RowsAffected > 0, tx.Error
}
