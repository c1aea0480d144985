package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"shop_admin/internal/model"
	"shop_admin/internal/repository"
	"shop_admin/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeHasher 明文前缀，避免测试里跑 bcrypt。
type fakeHasher struct{}

func (fakeHasher) Hash(pw string) (string, error) { return "hashed:" + pw, nil }
func (fakeHasher) Compare(hash, pw string) bool   { return hash == "hashed:"+pw }

type fixture struct {
	t       *testing.T
	ctx     context.Context
	repo    *repository.Repository
	ledger  *InventoryLedger
	orders  *OrderService
	reports *ReportService
	catalog *CatalogService
	users   *UserService
	seq     atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestSQLite(t)
	repo := repository.New(db)
	ledger := NewInventoryLedger()
	log := zap.NewNop()
	return &fixture{
		t:       t,
		ctx:     context.Background(),
		repo:    repo,
		ledger:  ledger,
		orders:  NewOrderService(repo, ledger, log),
		reports: NewReportService(repo, 10),
		catalog: NewCatalogService(repo, ledger, log),
		users:   NewUserService(repo.Users, fakeHasher{}, log),
	}
}

func (f *fixture) next() int64 { return f.seq.Add(1) }

func (f *fixture) user(role model.Role) *model.User {
	f.t.Helper()
	n := f.next()
	u := &model.User{
		Username:     fmt.Sprintf("%s_%d", role, n),
		Email:        fmt.Sprintf("%s%d@example.com", role, n),
		PasswordHash: "hashed:password1",
		FullName:     fmt.Sprintf("%s %d", strings.ToUpper(string(role)), n),
		Role:         role,
		Status:       model.UserActive,
	}
	require.NoError(f.t, f.repo.Users.Create(f.ctx, u))
	return u
}

func (f *fixture) category() *model.Category {
	f.t.Helper()
	c := &model.Category{Name: fmt.Sprintf("Category %d", f.next()), Status: model.CategoryActive}
	require.NoError(f.t, f.repo.Categories.Create(f.ctx, c))
	return c
}

func (f *fixture) product(qty int, price string) *model.Product {
	f.t.Helper()
	n := f.next()
	p := &model.Product{
		Name:       fmt.Sprintf("Product %d", n),
		SKU:        fmt.Sprintf("SKU-%d", n),
		Price:      decimal.RequireFromString(price),
		CostPrice:  decimal.RequireFromString("1.00"),
		Quantity:   qty,
		CategoryID: f.category().ID,
		Status:     model.ProductActive,
	}
	require.NoError(f.t, f.repo.Products.Create(f.ctx, p))
	return p
}

func (f *fixture) stock(id uint) int {
	f.t.Helper()
	p, err := f.repo.Products.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	require.NotNil(f.t, p)
	return p.Quantity
}

// rawOrder 直接落库一张订单头，用于报表测试控制时间与状态。
func (f *fixture) rawOrder(customer uint, status model.OrderStatus, pay model.PaymentStatus, total string, at time.Time) *model.Order {
	f.t.Helper()
	amt := decimal.RequireFromString(total)
	o := &model.Order{
		OrderNumber:     fmt.Sprintf("ORD-RAW-%d", f.next()),
		CustomerID:      customer,
		TotalAmount:     amt,
		GrandTotal:      amt,
		Status:          status,
		PaymentStatus:   pay,
		PaymentMethod:   model.PaymentCard,
		ShippingAddress: "42 Market Road, Nairobi",
		CreatedAt:       at,
	}
	require.NoError(f.t, f.repo.Orders.Create(f.ctx, o))
	return o
}

func staff(u *model.User) Actor { return Actor{UserID: u.ID, Role: u.Role} }

func validInput(customer uint, items ...PlaceOrderItem) PlaceOrderInput {
	return PlaceOrderInput{
		CustomerID:      customer,
		Items:           items,
		PaymentMethod:   model.PaymentMpesa,
		ShippingAddress: "12 Kenyatta Avenue, Nairobi",
	}
}
