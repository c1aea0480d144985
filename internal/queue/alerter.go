package queue

import (
	"context"

	"shop_admin/internal/model"
	"shop_admin/internal/repository"

	"go.uber.org/zap"
)

// StockAlerter 收到 order.created 后检查涉及商品的库存，低于阈值时告警。
type StockAlerter struct {
	products  repository.ProductRepo
	threshold int
	log       *zap.Logger
}

func NewStockAlerter(products repository.ProductRepo, threshold int, log *zap.Logger) *StockAlerter {
	return &StockAlerter{products: products, threshold: threshold, log: log}
}

func (a *StockAlerter) Handle(ctx context.Context, msg OrderMessage) error {
	if msg.Type != model.EventOrderCreated || len(msg.Items) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(msg.Items))
	for _, it := range msg.Items {
		ids = append(ids, it.ProductID)
	}
	list, err := a.products.BatchGetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, p := range list {
		if p.Status != model.ProductActive || p.Quantity > a.threshold {
			continue
		}
		a.log.Warn("low stock",
			zap.Uint("product_id", p.ID),
			zap.String("sku", p.SKU),
			zap.Int("quantity", p.Quantity),
			zap.Int("threshold", a.threshold),
			zap.String("order_number", msg.OrderNumber),
		)
	}
	return nil
}
