package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"shop_admin/internal/metrics"
	"shop_admin/internal/model"
	"shop_admin/internal/queue"
	"shop_admin/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PlaceOrderItem struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type PlaceOrderInput struct {
	CustomerID      uint                `json:"customer_id"`
	Items           []PlaceOrderItem    `json:"items"`
	Discount        decimal.Decimal     `json:"discount"`
	Tax             decimal.Decimal     `json:"tax"`
	PaymentMethod   model.PaymentMethod `json:"payment_method"`
	ShippingAddress string              `json:"shipping_address"`
	Notes           string              `json:"notes"`
	// 为空时自动生成 ORD-YYYYMMDD-XXXXXXXX
	OrderNumber string `json:"order_number"`
}

func (in *PlaceOrderInput) normalize() {
	in.ShippingAddress = strings.TrimSpace(in.ShippingAddress)
	in.OrderNumber = strings.TrimSpace(in.OrderNumber)
	in.Notes = strings.TrimSpace(in.Notes)
	in.Discount = in.Discount.Round(2)
	in.Tax = in.Tax.Round(2)
}

func (in PlaceOrderInput) validate() error {
	if len(in.Items) == 0 {
		return ErrEmptyItems
	}
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return fmt.Errorf("%w (product %d)", ErrQuantityInvalid, it.ProductID)
		}
		if it.ProductID == 0 {
			return validation("product_id is required")
		}
	}
	if in.Discount.IsNegative() || in.Tax.IsNegative() {
		return ErrAmountNegative
	}
	if !in.PaymentMethod.Valid() {
		return ErrPaymentMethod
	}
	if n := utf8.RuneCountInString(in.ShippingAddress); n < 10 || n > 500 {
		return ErrShippingAddress
	}
	if in.OrderNumber != "" {
		if n := utf8.RuneCountInString(in.OrderNumber); n < 5 || n > 50 {
			return ErrOrderNumber
		}
	}
	if in.CustomerID == 0 {
		return ErrCustomerRequired
	}
	return nil
}

type UpdateStatusInput struct {
	Status        model.OrderStatus   `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
}

type OrderService struct {
	repo   *repository.Repository
	ledger *InventoryLedger
	log    *zap.Logger
	now    func() time.Time
}

func NewOrderService(repo *repository.Repository, ledger *InventoryLedger, log *zap.Logger) *OrderService {
	return &OrderService{
		repo:   repo,
		ledger: ledger,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder 校验 -> 事务内（客户、商品、金额、订单、明细、扣库存、outbox）-> 提交。
// 任一步失败整体回滚。
func (s *OrderService) PlaceOrder(ctx context.Context, actor Actor, in PlaceOrderInput) (order *model.Order, err error) {
	defer func() { metrics.RecordOrderOperation("place", err == nil) }()

	if actor.Role == model.RoleUser {
		in.CustomerID = actor.UserID
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	// 同一商品多行时按合计数量校验库存
	need := make(map[uint]int, len(in.Items))
	ids := make([]uint, 0, len(in.Items))
	for _, it := range in.Items {
		if _, ok := need[it.ProductID]; !ok {
			ids = append(ids, it.ProductID)
		}
		need[it.ProductID] += it.Quantity
	}

	var orderID uint
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		customer, err := tx.Users.GetByID(ctx, in.CustomerID)
		if err != nil {
			return classify(err)
		}
		if customer == nil {
			return ErrUserNotFound
		}

		products, err := tx.Products.BatchGetByIDs(ctx, ids)
		if err != nil {
			return classify(err)
		}
		byID := make(map[uint]model.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}
		for _, id := range ids {
			p, ok := byID[id]
			if !ok {
				return fmt.Errorf("%w: id=%d", ErrProductNotFound, id)
			}
			if p.Quantity < need[id] {
				return fmt.Errorf("%w: %s available %d, requested %d", ErrInsufficientStock, p.Name, p.Quantity, need[id])
			}
		}

		subtotal := decimal.Zero
		items := make([]model.OrderItem, 0, len(in.Items))
		for _, it := range in.Items {
			price := byID[it.ProductID].Price
			line := price.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
			subtotal = subtotal.Add(line)
			items = append(items, model.OrderItem{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitPrice: price,
				Subtotal:  line,
			})
		}
		grand := subtotal.Sub(in.Discount).Add(in.Tax)
		if grand.IsNegative() {
			return ErrGrandTotalNegative
		}

		number := in.OrderNumber
		if number == "" {
			number = generateOrderNumber(s.now())
		}
		o := &model.Order{
			OrderNumber:     number,
			CustomerID:      in.CustomerID,
			TotalAmount:     subtotal,
			Discount:        in.Discount,
			Tax:             in.Tax,
			GrandTotal:      grand,
			Status:          model.OrderPending,
			PaymentStatus:   model.PaymentPending,
			PaymentMethod:   in.PaymentMethod,
			ShippingAddress: in.ShippingAddress,
			Notes:           in.Notes,
		}
		if err := tx.Orders.Create(ctx, o); err != nil {
			return classify(err)
		}
		for i := range items {
			items[i].OrderID = o.ID
		}
		if err := tx.Orders.CreateItems(ctx, items); err != nil {
			return classify(err)
		}
		for _, it := range items {
			if err := s.ledger.Reserve(ctx, tx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}

		o.Items = items
		if err := s.appendEvent(ctx, tx, model.EventOrderCreated, o); err != nil {
			return err
		}
		orderID = o.ID
		return nil
	})
	if err != nil {
		s.log.Warn("place order failed", zap.Uint("customer_id", in.CustomerID), zap.Error(err))
		return nil, err
	}

	s.log.Info("order placed", zap.Uint("order_id", orderID), zap.Uint("customer_id", in.CustomerID))
	return s.reload(ctx, orderID)
}

// CancelOrder 取消订单并回补库存，仅 admin/manager 可用。
func (s *OrderService) CancelOrder(ctx context.Context, actor Actor, orderID uint) (order *model.Order, err error) {
	defer func() { metrics.RecordOrderOperation("cancel", err == nil) }()

	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		o, err := tx.Orders.GetByID(ctx, orderID)
		if err != nil {
			return classify(err)
		}
		if o == nil {
			return ErrOrderNotFound
		}
		if o.Status == model.OrderCancelled {
			return ErrAlreadyCancelled
		}

		payment := model.PaymentFailed
		if o.PaymentStatus == model.PaymentPaid {
			payment = model.PaymentRefunded
		}
		ok, err := tx.Orders.MarkCancelled(ctx, o.ID, payment)
		if err != nil {
			return classify(err)
		}
		if !ok {
			return ErrAlreadyCancelled
		}

		for _, it := range o.Items {
			if err := s.ledger.Release(ctx, tx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}

		o.Status = model.OrderCancelled
		o.PaymentStatus = payment
		return s.appendEvent(ctx, tx, model.EventOrderCancelled, o)
	})
	if err != nil {
		s.log.Warn("cancel order failed", zap.Uint("order_id", orderID), zap.Error(err))
		return nil, err
	}

	s.log.Info("order cancelled", zap.Uint("order_id", orderID), zap.Uint("actor_id", actor.UserID))
	return s.reload(ctx, orderID)
}

// UpdateStatus 按状态机推进订单状态，可同时更新支付状态。
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, orderID uint, in UpdateStatusInput) (order *model.Order, err error) {
	defer func() { metrics.RecordOrderOperation("update_status", err == nil) }()

	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if in.Status == "" && in.PaymentStatus == "" {
		return nil, validation("status or payment_status is required")
	}
	if in.Status == model.OrderCancelled {
		return nil, ErrCancelViaStatus
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if in.PaymentStatus != "" && !in.PaymentStatus.Valid() {
		return nil, fmt.Errorf("%w: payment_status %q", ErrInvalidStatus, in.PaymentStatus)
	}

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		o, err := tx.Orders.GetByID(ctx, orderID)
		if err != nil {
			return classify(err)
		}
		if o == nil {
			return ErrOrderNotFound
		}

		next := in.Status
		if next == "" {
			next = o.Status
		}
		if !model.CanTransition(o.Status, next) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, next)
		}
		payment := in.PaymentStatus
		if payment == "" {
			payment = o.PaymentStatus
		}

		if err := tx.Orders.UpdateStatus(ctx, o.ID, next, payment); err != nil {
			return classify(err)
		}
		o.Status = next
		o.PaymentStatus = payment
		return s.appendEvent(ctx, tx, model.EventOrderStatusChanged, o)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order status updated", zap.Uint("order_id", orderID),
		zap.String("status", string(in.Status)), zap.String("payment_status", string(in.PaymentStatus)))
	return s.reload(ctx, orderID)
}

// GetOrder 普通用户只能看到自己的订单，其余一律按不存在处理。
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, orderID uint) (*model.Order, error) {
	o, err := s.repo.Orders.GetDetail(ctx, orderID)
	if err != nil {
		return nil, classify(err)
	}
	if o == nil || (!actor.Staff() && o.CustomerID != actor.UserID) {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

const maxPageSize = 100

func (s *OrderService) ListOrders(ctx context.Context, actor Actor, f repository.OrderFilter) ([]model.Order, int64, error) {
	if !actor.Staff() {
		f.CustomerID = actor.UserID
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	if f.PaymentStatus != "" && !f.PaymentStatus.Valid() {
		return nil, 0, fmt.Errorf("%w: payment_status %q", ErrInvalidStatus, f.PaymentStatus)
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	list, total, err := s.repo.Orders.List(ctx, f)
	if err != nil {
		return nil, 0, classify(err)
	}
	return list, total, nil
}

func (s *OrderService) reload(ctx context.Context, id uint) (*model.Order, error) {
	o, err := s.repo.Orders.GetDetail(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// appendEvent 在当前事务里写 outbox，由 relay 异步投递。
func (s *OrderService) appendEvent(ctx context.Context, tx *repository.Repository, eventType string, o *model.Order) error {
	eventID := uuid.NewString()
	msg := queue.NewOrderMessage(eventID, eventType, o, s.now())
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: encode event: %v", ErrPersistence, err)
	}
	return classify(tx.Events.Append(ctx, &model.OrderEvent{
		EventID: eventID,
		Type:    eventType,
		OrderID: o.ID,
		Payload: string(b),
		Status:  model.OrderEventPending,
	}))
}

func generateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
