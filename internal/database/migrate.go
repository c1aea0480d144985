package database

import (
	"context"
	"fmt"

	"shop_admin/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateReportIndexes bool // 报表查询用的组合索引
	CreateOutboxIndexes bool // outbox 轮询索引
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateReportIndexes: true,
		CreateOutboxIndexes: true,
	}
}

// Migrate 建表（含 CHECK 约束与外键）并补充索引。
func Migrate(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("starting schema migration", zap.String("dialect", db.Dialector.Name()))
	db = db.WithContext(ctx)

	if err := db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderEvent{},
	); err != nil {
		log.Error("auto migrate failed", zap.Error(err))
		return err
	}
	log.Info("tables migrated")

	if opt.CreateReportIndexes {
		if err := createIndexes(db, log, []index{
			{"orders", "idx_orders_revenue", "status, payment_status, created_at"},
			{"order_items", "idx_order_items_product_qty", "product_id, quantity"},
			{"products", "idx_products_low_stock", "status, quantity"},
		}); err != nil {
			return err
		}
	}

	if opt.CreateOutboxIndexes {
		if err := createIndexes(db, log, []index{
			{"order_events", "idx_order_events_pending", "status, id"},
		}); err != nil {
			return err
		}
	}

	log.Info("schema migration finished")
	return nil
}

type index struct {
	table   string
	name    string
	columns string
}

// createIndexes 逐条建索引；已存在的跳过（MySQL 不支持 CREATE INDEX IF NOT EXISTS）。
func createIndexes(db *gorm.DB, log *zap.Logger, idx []index) error {
	for _, ix := range idx {
		if db.Migrator().HasIndex(ix.table, ix.name) {
			continue
		}
		stmt := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", ix.name, ix.table, ix.columns)
		if err := db.Exec(stmt).Error; err != nil {
			log.Error("create index failed", zap.String("index", ix.name), zap.Error(err))
			return err
		}
		log.Info("index created", zap.String("index", ix.name))
	}
	return nil
}
