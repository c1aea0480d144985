package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"shop_admin/internal/model"
	"shop_admin/internal/repository"
	"shop_admin/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DemoPassword 演示账号的统一密码（bob_wilson 除外）。
const DemoPassword = "password123"

var ErrAlreadySeeded = errors.New("database already contains users, rerun with reset")

type Options struct {
	Orders int
	Days   int
	Rand   uint64
	// Reset 先清空业务表
	Reset bool
}

func DefaultOptions() Options {
	return Options{Orders: 20, Days: 30, Rand: 42}
}

type Result struct {
	Users      int
	Categories int
	Products   int
	Orders     int
	Skipped    int
	LowStock   int
}

type Seeder struct {
	repo    *repository.Repository
	users   *service.UserService
	catalog *service.CatalogService
	orders  *service.OrderService
	reports *service.ReportService
	log     *zap.Logger
	now     func() time.Time
}

func New(repo *repository.Repository, users *service.UserService, catalog *service.CatalogService,
	orders *service.OrderService, reports *service.ReportService, log *zap.Logger) *Seeder {
	return &Seeder{
		repo:    repo,
		users:   users,
		catalog: catalog,
		orders:  orders,
		reports: reports,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var demoUsers = []service.CreateUserInput{
	{Username: "admin", Email: "admin@crud.com", Password: DemoPassword, FullName: "System Administrator", Phone: "+254 700 000 000", Role: model.RoleAdmin},
	{Username: "manager", Email: "manager@crud.com", Password: DemoPassword, FullName: "Sales Manager", Phone: "+254 711 111 111", Role: model.RoleManager},
	{Username: "john_doe", Email: "john@example.com", Password: DemoPassword, FullName: "John Doe", Phone: "+254 722 222 222", Role: model.RoleUser},
	{Username: "jane_smith", Email: "jane@example.com", Password: DemoPassword, FullName: "Jane Smith", Phone: "+254 733 333 333", Role: model.RoleUser},
	{Username: "bob_wilson", Email: "bob@example.com", Password: "User@123", FullName: "Bob Wilson", Phone: "+254 744 444 444", Role: model.RoleUser, Status: model.UserInactive},
}

var demoCategories = []service.CreateCategoryInput{
	{Name: "Electronics", Description: "Electronic devices and gadgets", Icon: "fa-laptop"},
	{Name: "Clothing", Description: "Fashion and apparel", Icon: "fa-tshirt"},
	{Name: "Books", Description: "Books and publications", Icon: "fa-book"},
	{Name: "Home & Garden", Description: "Home improvement and gardening", Icon: "fa-home"},
	{Name: "Sports", Description: "Sports equipment and gear", Icon: "fa-futbol"},
}

type demoProduct struct {
	in       service.ProductInput
	category int
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var demoProducts = []demoProduct{
	{service.ProductInput{Name: "Wireless Bluetooth Headphones", SKU: "ELEC-001", Description: "High-quality wireless headphones with noise cancellation", Price: money("89.99"), CostPrice: money("45.00"), Quantity: 50, Featured: true}, 0},
	{service.ProductInput{Name: "Smartphone X", SKU: "ELEC-002", Description: "Latest smartphone with 128GB storage", Price: money("699.99"), CostPrice: money("450.00"), Quantity: 25, Featured: true}, 0},
	{service.ProductInput{Name: "Cotton T-Shirt", SKU: "CLOTH-001", Description: "100% cotton premium t-shirt", Price: money("19.99"), CostPrice: money("8.50"), Quantity: 100}, 1},
	{service.ProductInput{Name: "Programming Book", SKU: "BOOK-001", Description: "Complete guide to programming", Price: money("39.99"), CostPrice: money("15.00"), Quantity: 75, Featured: true}, 2},
	{service.ProductInput{Name: "Garden Tool Set", SKU: "HOME-001", Description: "Complete gardening tool set", Price: money("49.99"), CostPrice: money("25.00"), Quantity: 30}, 3},
	{service.ProductInput{Name: "Running Shoes", SKU: "SPORT-001", Description: "Professional running shoes", Price: money("79.99"), CostPrice: money("35.00"), Quantity: 40, Featured: true}, 4},
	{service.ProductInput{Name: "Out of Stock Item", SKU: "TEST-001", Description: "Test item with zero quantity", Price: money("29.99"), CostPrice: money("12.00"), Quantity: 0, Status: model.ProductOutOfStock}, 0},
}

var paymentMethods = []model.PaymentMethod{model.PaymentCash, model.PaymentCard, model.PaymentMpesa, model.PaymentBankTransfer}

// Run 通过服务层写入演示数据，订单走真实下单流程，库存与 outbox 事件保持一致。
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Reset {
		if err := s.reset(ctx); err != nil {
			return nil, fmt.Errorf("reset: %w", err)
		}
	} else {
		n, err := s.repo.Reports.CountUsers(ctx, "")
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, ErrAlreadySeeded
		}
	}

	res := &Result{}
	users := make([]*model.User, 0, len(demoUsers))
	for _, in := range demoUsers {
		u, err := s.users.Register(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", in.Username, err)
		}
		users = append(users, u)
	}
	res.Users = len(users)
	admin := service.Actor{UserID: users[0].ID, Role: model.RoleAdmin}
	manager := service.Actor{UserID: users[1].ID, Role: model.RoleManager}

	cats := make([]*model.Category, 0, len(demoCategories))
	for _, in := range demoCategories {
		c, err := s.catalog.CreateCategory(ctx, admin, in)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", in.Name, err)
		}
		cats = append(cats, c)
	}
	res.Categories = len(cats)

	products := make([]*model.Product, 0, len(demoProducts))
	for _, dp := range demoProducts {
		in := dp.in
		in.CategoryID = cats[dp.category].ID
		p, err := s.catalog.CreateProduct(ctx, admin, in)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", in.SKU, err)
		}
		products = append(products, p)
	}
	res.Products = len(products)

	customers := make([]*model.User, 0, len(users))
	for _, u := range users {
		if u.Status == model.UserActive {
			customers = append(customers, u)
		}
	}

	rng := rand.New(rand.NewPCG(opts.Rand, opts.Rand^0x9e3779b97f4a7c15))
	now := s.now()
	for i := 0; i < opts.Orders; i++ {
		at := now.AddDate(0, 0, -rng.IntN(max(opts.Days, 1)))
		placed, err := s.placeRandomOrder(ctx, manager, rng, customers, products, at, i+1)
		if errors.Is(err, service.ErrInsufficientStock) {
			res.Skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", i+1, err)
		}
		if err := s.backdate(ctx, placed.ID, at); err != nil {
			return nil, err
		}
		res.Orders++
	}

	low, err := s.repo.Reports.CountLowStock(ctx, s.reports.LowStockThreshold())
	if err != nil {
		return nil, err
	}
	res.LowStock = int(low)

	s.log.Info("seed completed",
		zap.Int("users", res.Users),
		zap.Int("categories", res.Categories),
		zap.Int("products", res.Products),
		zap.Int("orders", res.Orders),
		zap.Int("skipped", res.Skipped),
		zap.Int("low_stock", res.LowStock),
	)
	return res, nil
}

func (s *Seeder) placeRandomOrder(ctx context.Context, actor service.Actor, rng *rand.Rand,
	customers []*model.User, products []*model.Product, at time.Time, seq int) (*model.Order, error) {
	customer := customers[rng.IntN(len(customers))]
	// 只从有库存的商品里挑
	var stocked []*model.Product
	for _, p := range products {
		if p.Quantity > 0 {
			stocked = append(stocked, p)
		}
	}

	n := rng.IntN(3) + 1
	items := make([]service.PlaceOrderItem, 0, n)
	for j := 0; j < n; j++ {
		p := stocked[rng.IntN(len(stocked))]
		items = append(items, service.PlaceOrderItem{ProductID: p.ID, Quantity: rng.IntN(3) + 1})
	}

	in := service.PlaceOrderInput{
		CustomerID:      customer.ID,
		Items:           items,
		Discount:        decimal.NewFromInt(int64(rng.IntN(1000))).Shift(-2),
		Tax:             decimal.NewFromInt(int64(rng.IntN(500))).Shift(-2),
		PaymentMethod:   paymentMethods[rng.IntN(len(paymentMethods))],
		ShippingAddress: "123 Main St, Nairobi, Kenya",
		OrderNumber:     fmt.Sprintf("ORD-%s-%03d", at.Format("20060102"), seq),
	}
	if seq%3 == 1 {
		in.Notes = "Handle with care"
	}
	o, err := s.orders.PlaceOrder(ctx, actor, in)
	if err != nil {
		return nil, err
	}

	switch rng.IntN(4) {
	case 1:
		return s.orders.UpdateStatus(ctx, actor, o.ID, service.UpdateStatusInput{Status: model.OrderProcessing})
	case 2:
		return s.orders.UpdateStatus(ctx, actor, o.ID, service.UpdateStatusInput{Status: model.OrderCompleted, PaymentStatus: model.PaymentPaid})
	case 3:
		return s.orders.CancelOrder(ctx, actor, o.ID)
	}
	return o, nil
}

// backdate 把订单时间分散到过去若干天，便于报表演示。
func (s *Seeder) backdate(ctx context.Context, orderID uint, at time.Time) error {
	return s.repo.DB.WithContext(ctx).Model(&model.Order{}).Where("id = ?", orderID).
		UpdateColumns(map[string]any{"created_at": at, "updated_at": at}).Error
}

func (s *Seeder) reset(ctx context.Context) error {
	return s.repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&model.OrderEvent{}, &model.OrderItem{}, &model.Order{}, &model.Product{}, &model.Category{}, &model.User{}} {
			if err := tx.Where("1 = 1").Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
