package seed

import (
	"context"
	"testing"

	"shop_admin/internal/auth"
	"shop_admin/internal/model"
	"shop_admin/internal/repository"
	"shop_admin/internal/service"
	"shop_admin/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSeeder(t *testing.T) (*Seeder, *repository.Repository) {
	t.Helper()
	repo := repository.New(testutil.SetupTestSQLite(t))
	log := zap.NewNop()
	ledger := service.NewInventoryLedger()
	return New(repo,
		service.NewUserService(repo.Users, auth.NewBcrypt(4), log),
		service.NewCatalogService(repo, ledger, log),
		service.NewOrderService(repo, ledger, log),
		service.NewReportService(repo, 10),
		log,
	), repo
}

func TestRun_SeedsConsistentData(t *testing.T) {
	ctx := context.Background()
	s, repo := newSeeder(t)

	res, err := s.Run(ctx, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Users)
	assert.Equal(t, 5, res.Categories)
	assert.Equal(t, 7, res.Products)
	assert.Equal(t, 20, res.Orders+res.Skipped)
	assert.Positive(t, res.Orders)

	// 每个订单都带 outbox 事件
	var orders, events int64
	require.NoError(t, repo.DB.Model(&model.Order{}).Count(&orders).Error)
	require.NoError(t, repo.DB.Model(&model.OrderEvent{}).Where("type = ?", model.EventOrderCreated).Count(&events).Error)
	assert.EqualValues(t, res.Orders, orders)
	assert.Equal(t, orders, events)

	// 库存守恒：初始库存 = 当前库存 + 未取消订单占用
	initial := map[string]int{}
	for _, dp := range demoProducts {
		initial[dp.in.SKU] = dp.in.Quantity
	}
	var held []struct {
		SKU string
		Qty int
	}
	require.NoError(t, repo.DB.Table("order_items").
		Select("products.sku AS sku, SUM(order_items.quantity) AS qty").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("orders.status <> ?", model.OrderCancelled).
		Group("products.sku").
		Scan(&held).Error)
	heldBySKU := map[string]int{}
	for _, h := range held {
		heldBySKU[h.SKU] = h.Qty
	}
	var products []model.Product
	require.NoError(t, repo.DB.Find(&products).Error)
	for _, p := range products {
		assert.Equal(t, initial[p.SKU], p.Quantity+heldBySKU[p.SKU], p.SKU)
	}

	// 停用账号同样写入
	bob, err := repo.Users.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	require.NotNil(t, bob)
	assert.Equal(t, model.UserInactive, bob.Status)
}

func TestRun_RefusesTwiceUnlessReset(t *testing.T) {
	ctx := context.Background()
	s, repo := newSeeder(t)
	opts := DefaultOptions()
	opts.Orders = 3

	_, err := s.Run(ctx, opts)
	require.NoError(t, err)

	_, err = s.Run(ctx, opts)
	require.ErrorIs(t, err, ErrAlreadySeeded)

	opts.Reset = true
	res, err := s.Run(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Users)

	n, err := repo.Reports.CountUsers(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}
