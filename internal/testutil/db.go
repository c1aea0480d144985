package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"shop_admin/internal/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// SetupTestSQLite 为每个测试创建独立的内存库并完成迁移。
func SetupTestSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=on", name, dbSeq.Add(1))

	dialector, err := database.Dialector("sqlite", dsn)
	if err != nil {
		t.Fatalf("dialector: %v", err)
	}
	cfg := database.GormConfig("test")
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(context.Background(), db, zap.NewNop(), database.DefaultMigrateOptions()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
