package service

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"shop_admin/internal/model"
	"shop_admin/internal/queue"
	"shop_admin/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPlaceOrder_Success(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	customer := f.user(model.RoleUser)
	a := f.product(10, "100.00")
	b := f.product(5, "50.00")

	in := validInput(customer.ID,
		PlaceOrderItem{ProductID: a.ID, Quantity: 2},
		PlaceOrderItem{ProductID: b.ID, Quantity: 1},
	)
	in.Discount = dec("10.00")
	in.Tax = dec("5.00")

	o, err := f.orders.PlaceOrder(f.ctx, staff(admin), in)
	require.NoError(t, err)

	assert.True(t, o.TotalAmount.Equal(dec("250.00")), o.TotalAmount.String())
	assert.True(t, o.GrandTotal.Equal(dec("245.00")), o.GrandTotal.String())
	assert.Equal(t, model.OrderPending, o.Status)
	assert.Equal(t, model.PaymentPending, o.PaymentStatus)
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{8}$`, o.OrderNumber)
	require.Len(t, o.Items, 2)
	sum := decimal.Zero
	for _, it := range o.Items {
		assert.True(t, it.Subtotal.Equal(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))))
		sum = sum.Add(it.Subtotal)
	}
	assert.True(t, sum.Equal(o.TotalAmount))
	require.NotNil(t, o.Customer)
	assert.Equal(t, customer.ID, o.Customer.ID)

	assert.Equal(t, 8, f.stock(a.ID))
	assert.Equal(t, 4, f.stock(b.ID))

	events, err := f.repo.Events.FetchPending(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventOrderCreated, events[0].Type)
	var msg queue.OrderMessage
	require.NoError(t, json.Unmarshal([]byte(events[0].Payload), &msg))
	assert.NoError(t, msg.Validate())
	assert.Equal(t, o.ID, msg.OrderID)
	assert.Len(t, msg.Items, 2)
}

func TestPlaceOrder_UnitPriceIsSnapshot(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	p := f.product(10, "20.00")

	o, err := f.orders.PlaceOrder(f.ctx, staff(admin), validInput(admin.ID, PlaceOrderItem{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	p.Price = dec("99.00")
	require.NoError(t, f.repo.Products.UpdateDetails(f.ctx, p))

	got, err := f.orders.GetOrder(f.ctx, staff(admin), o.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].UnitPrice.Equal(dec("20.00")))
}

func TestPlaceOrder_ValidationFailsBeforeTransaction(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	p := f.product(10, "10.00")
	item := PlaceOrderItem{ProductID: p.ID, Quantity: 1}

	cases := []struct {
		name   string
		mutate func(*PlaceOrderInput)
		want   error
	}{
		{"empty items", func(in *PlaceOrderInput) { in.Items = nil }, ErrEmptyItems},
		{"zero quantity", func(in *PlaceOrderInput) { in.Items = []PlaceOrderItem{{ProductID: p.ID, Quantity: 0}} }, ErrQuantityInvalid},
		{"negative discount", func(in *PlaceOrderInput) { in.Discount = dec("-1") }, ErrAmountNegative},
		{"negative tax", func(in *PlaceOrderInput) { in.Tax = dec("-0.01") }, ErrAmountNegative},
		{"bad payment method", func(in *PlaceOrderInput) { in.PaymentMethod = "bitcoin" }, ErrPaymentMethod},
		{"short address", func(in *PlaceOrderInput) { in.ShippingAddress = "   short   " }, ErrShippingAddress},
		{"short order number", func(in *PlaceOrderInput) { in.OrderNumber = "ORD" }, ErrOrderNumber},
		{"missing customer", func(in *PlaceOrderInput) { in.CustomerID = 0 }, ErrCustomerRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput(admin.ID, item)
			tc.mutate(&in)
			_, err := f.orders.PlaceOrder(f.ctx, staff(admin), in)
			require.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Equal(t, 10, f.stock(p.ID))
}

func TestPlaceOrder_NegativeGrandTotal(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	p := f.product(10, "10.00")

	in := validInput(admin.ID, PlaceOrderItem{ProductID: p.ID, Quantity: 1})
	in.Discount = dec("15.00")
	_, err := f.orders.PlaceOrder(f.ctx, staff(admin), in)
	require.ErrorIs(t, err, ErrGrandTotalNegative)
	assert.Equal(t, 10, f.stock(p.ID))
}

func TestPlaceOrder_MissingProductRollsBack(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	p := f.product(10, "10.00")

	_, err := f.orders.PlaceOrder(f.ctx, staff(admin), validInput(admin.ID,
		PlaceOrderItem{ProductID: p.ID, Quantity: 1},
		PlaceOrderItem{ProductID: 9999, Quantity: 1},
	))
	require.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 10, f.stock(p.ID))

	_, total, err := f.repo.Orders.List(f.ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestPlaceOrder_InsufficientStockAggregatesLines(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	p := f.product(3, "10.00")

	// 单行都不超，合计超
	_, err := f.orders.PlaceOrder(f.ctx, staff(admin), validInput(admin.ID,
		PlaceOrderItem{ProductID: p.ID, Quantity: 2},
		PlaceOrderItem{ProductID: p.ID, Quantity: 2},
	))
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 3, f.stock(p.ID))

	n, err := f.repo.Events.CountByStatus(f.ctx, model.OrderEventPending)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPlaceOrder_ExactStockDrainsToZero(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	p := f.product(2, "10.00")

	_, err := f.orders.PlaceOrder(f.ctx, staff(admin), validInput(admin.ID, PlaceOrderItem{ProductID: p.ID, Quantity: 2}))
	require.NoError(t, err)
	assert.Equal(t, 0, f.stock(p.ID))
}

func TestPlaceOrder_UnknownCustomer(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	p := f.product(2, "10.00")

	_, err := f.orders.PlaceOrder(f.ctx, staff(admin), validInput(4242, PlaceOrderItem{ProductID: p.ID, Quantity: 1}))
	require.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, 2, f.stock(p.ID))
}

func TestPlaceOrder_UserRoleForcesOwnCustomer(t *testing.T) {
	f := newFixture(t)
	me := f.user(model.RoleUser)
	other := f.user(model.RoleUser)
	p := f.product(5, "10.00")

	o, err := f.orders.PlaceOrder(f.ctx, staff(me), validInput(other.ID, PlaceOrderItem{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, me.ID, o.CustomerID)
}

func TestPlaceOrder_DuplicateOrderNumberConflicts(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	p := f.product(5, "10.00")

	in := validInput(admin.ID, PlaceOrderItem{ProductID: p.ID, Quantity: 1})
	in.OrderNumber = "ORD-FIXED-1"
	_, err := f.orders.PlaceOrder(f.ctx, staff(admin), in)
	require.NoError(t, err)

	_, err = f.orders.PlaceOrder(f.ctx, staff(admin), in)
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 4, f.stock(p.ID))
}

func TestPlaceOrder_ConcurrentLastUnit(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	p := f.product(1, "10.00")

	const n = 2
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orders.PlaceOrder(f.ctx, staff(admin), validInput(admin.ID, PlaceOrderItem{ProductID: p.ID, Quantity: 1}))
		}(i)
	}
	wg.Wait()

	ok, short := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientStock):
			short++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)
	assert.Equal(t, 0, f.stock(p.ID))
}

// 明细写入之后、扣库存之前库存被清空：条件扣减失败，订单头与明细一并回滚。
func TestPlaceOrder_ReserveFailureAfterInsertRollsBack(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	p := f.product(3, "10.00")

	err := f.repo.DB.Callback().Create().After("gorm:create").Register("test:drain_stock", func(db *gorm.DB) {
		if db.Error != nil || db.Statement.Table != "order_items" {
			return
		}
		// NewDB 会话沿用当前事务连接
		db.Session(&gorm.Session{NewDB: true}).Exec("UPDATE products SET quantity = 0 WHERE id = ?", p.ID)
	})
	require.NoError(t, err)

	_, err = f.orders.PlaceOrder(f.ctx, staff(admin), validInput(admin.ID, PlaceOrderItem{ProductID: p.ID, Quantity: 2}))
	require.ErrorIs(t, err, ErrInsufficientStock)

	var orders, items int64
	require.NoError(t, f.repo.DB.Model(&model.Order{}).Count(&orders).Error)
	require.NoError(t, f.repo.DB.Model(&model.OrderItem{}).Count(&items).Error)
	assert.Zero(t, orders)
	assert.Zero(t, items)
	events, err := f.repo.Events.FetchPending(f.ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
	// 清空库存的语句同在事务内，一起回滚
	assert.Equal(t, 3, f.stock(p.ID))
}

func TestCancelOrder_RestoresStock(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	p := f.product(5, "10.00")

	o, err := f.orders.PlaceOrder(f.ctx, staff(admin), validInput(admin.ID, PlaceOrderItem{ProductID: p.ID, Quantity: 3}))
	require.NoError(t, err)
	require.Equal(t, 2, f.stock(p.ID))

	got, err := f.orders.CancelOrder(f.ctx, staff(admin), o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, got.Status)
	assert.Equal(t, model.PaymentFailed, got.PaymentStatus)
	assert.Equal(t, 5, f.stock(p.ID))

	_, err = f.orders.CancelOrder(f.ctx, staff(admin), o.ID)
	require.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.Equal(t, 5, f.stock(p.ID))

	events, err := f.repo.Events.FetchPending(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.EventOrderCancelled, events[1].Type)
}

func TestCancelOrder_PaidBecomesRefunded(t *testing.T) {
	f := newFixture(t)
	manager := f.user(model.RoleManager)
	p := f.product(5, "10.00")

	o, err := f.orders.PlaceOrder(f.ctx, staff(manager), validInput(manager.ID, PlaceOrderItem{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(f.ctx, staff(manager), o.ID, UpdateStatusInput{PaymentStatus: model.PaymentPaid})
	require.NoError(t, err)

	got, err := f.orders.CancelOrder(f.ctx, staff(manager), o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRefunded, got.PaymentStatus)
}

func TestCancelOrder_Guards(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	user := f.user(model.RoleUser)
	p := f.product(5, "10.00")

	o, err := f.orders.PlaceOrder(f.ctx, staff(user), validInput(user.ID, PlaceOrderItem{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = f.orders.CancelOrder(f.ctx, staff(user), o.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.orders.CancelOrder(f.ctx, staff(admin), 9999)
	require.ErrorIs(t, err, ErrOrderNotFound)
	assert.Equal(t, 4, f.stock(p.ID))
}

func TestUpdateStatus_Transitions(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	p := f.product(5, "10.00")
	o, err := f.orders.PlaceOrder(f.ctx, staff(admin), validInput(admin.ID, PlaceOrderItem{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = f.orders.UpdateStatus(f.ctx, staff(admin), o.ID, UpdateStatusInput{Status: model.OrderRefunded})
	require.ErrorIs(t, err, ErrIllegalTransition)

	_, err = f.orders.UpdateStatus(f.ctx, staff(admin), o.ID, UpdateStatusInput{Status: model.OrderCancelled})
	require.ErrorIs(t, err, ErrCancelViaStatus)

	got, err := f.orders.UpdateStatus(f.ctx, staff(admin), o.ID, UpdateStatusInput{Status: model.OrderProcessing})
	require.NoError(t, err)
	assert.Equal(t, model.OrderProcessing, got.Status)

	got, err = f.orders.UpdateStatus(f.ctx, staff(admin), o.ID, UpdateStatusInput{Status: model.OrderCompleted, PaymentStatus: model.PaymentPaid})
	require.NoError(t, err)
	assert.Equal(t, model.OrderCompleted, got.Status)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)

	_, err = f.orders.UpdateStatus(f.ctx, staff(admin), o.ID, UpdateStatusInput{Status: model.OrderPending})
	require.ErrorIs(t, err, ErrIllegalTransition)

	_, err = f.orders.UpdateStatus(f.ctx, staff(admin), o.ID, UpdateStatusInput{Status: "shipped"})
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.orders.UpdateStatus(f.ctx, Actor{UserID: admin.ID, Role: model.RoleUser}, o.ID, UpdateStatusInput{Status: model.OrderRefunded})
	require.ErrorIs(t, err, ErrForbidden)

	// 状态更新不动库存
	assert.Equal(t, 4, f.stock(p.ID))
}

func TestGetAndListOrders_UserSeesOnlyOwn(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	alice := f.user(model.RoleUser)
	bob := f.user(model.RoleUser)
	p := f.product(10, "10.00")

	ao, err := f.orders.PlaceOrder(f.ctx, staff(alice), validInput(alice.ID, PlaceOrderItem{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)
	_, err = f.orders.PlaceOrder(f.ctx, staff(bob), validInput(bob.ID, PlaceOrderItem{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = f.orders.GetOrder(f.ctx, staff(bob), ao.ID)
	require.ErrorIs(t, err, ErrOrderNotFound)

	got, err := f.orders.GetOrder(f.ctx, staff(alice), ao.ID)
	require.NoError(t, err)
	assert.Equal(t, ao.OrderNumber, got.OrderNumber)

	list, total, err := f.orders.ListOrders(f.ctx, staff(bob), repository.OrderFilter{CustomerID: alice.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, bob.ID, list[0].CustomerID)

	_, total, err = f.orders.ListOrders(f.ctx, staff(admin), repository.OrderFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}
