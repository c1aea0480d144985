package service

import (
	"context"

	"shop_admin/internal/repository"
)

// InventoryLedger 库存台账。
// 所有方法都在调用方的事务仓储上执行，自己不开事务。
type InventoryLedger struct{}

func NewInventoryLedger() *InventoryLedger { return &InventoryLedger{} }

// Reserve 条件扣减：库存不足时不命中任何行。
func (l *InventoryLedger) Reserve(ctx context.Context, tx *repository.Repository, productID uint, qty int) error {
	if qty < 1 {
		return ErrQuantityInvalid
	}
	ok, err := tx.Products.Decrement(ctx, productID, qty)
	if err != nil {
		return classify(err)
	}
	if ok {
		return nil
	}
	// 区分商品不存在与库存不足
	p, err := tx.Products.GetByID(ctx, productID)
	if err != nil {
		return classify(err)
	}
	if p == nil {
		return ErrProductNotFound
	}
	return ErrInsufficientStock
}

func (l *InventoryLedger) Release(ctx context.Context, tx *repository.Repository, productID uint, qty int) error {
	if qty < 1 {
		return ErrQuantityInvalid
	}
	ok, err := tx.Products.Increment(ctx, productID, qty)
	if err != nil {
		return classify(err)
	}
	if !ok {
		return ErrProductNotFound
	}
	return nil
}

// Set 盘点修正为绝对值。
func (l *InventoryLedger) Set(ctx context.Context, tx *repository.Repository, productID uint, qty int) error {
	if qty < 0 {
		return validation("quantity must be >= 0")
	}
	ok, err := tx.Products.SetQuantity(ctx, productID, qty)
	if err != nil {
		return classify(err)
	}
	if !ok {
		return ErrProductNotFound
	}
	return nil
}
