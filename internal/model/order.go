package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
)

// OrderStatuses 全部订单状态，按生命周期排序。
var OrderStatuses = []OrderStatus{OrderPending, OrderProcessing, OrderCompleted, OrderCancelled, OrderRefunded}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCard         PaymentMethod = "card"
	PaymentMpesa        PaymentMethod = "mpesa"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentMpesa, PaymentBankTransfer:
		return true
	}
	return false
}

// Order 订单头。金额单位为货币元，两位小数。
// GrandTotal = TotalAmount - Discount + Tax，TotalAmount 为明细小计之和。
type Order struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrderNumber     string          `gorm:"size:50;uniqueIndex;not null" json:"order_number"`
	CustomerID      uint            `gorm:"not null;index" json:"customer_id"`
	Customer        *User           `gorm:"foreignKey:CustomerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"customer,omitempty"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_orders_total_amount,total_amount >= 0" json:"total_amount"`
	Discount        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;check:chk_orders_discount,discount >= 0" json:"discount"`
	Tax             decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;check:chk_orders_tax,tax >= 0" json:"tax"`
	GrandTotal      decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_orders_grand_total,grand_total >= 0" json:"grand_total"`
	Status          OrderStatus     `gorm:"size:16;not null;default:pending;index:idx_orders_status_payment,priority:1;check:chk_orders_status,status IN ('pending','processing','completed','cancelled','refunded')" json:"status"`
	PaymentStatus   PaymentStatus   `gorm:"size:16;not null;default:pending;index:idx_orders_status_payment,priority:2;check:chk_orders_payment_status,payment_status IN ('pending','paid','failed','refunded')" json:"payment_status"`
	PaymentMethod   PaymentMethod   `gorm:"size:16;not null;check:chk_orders_payment_method,payment_method IN ('cash','card','mpesa','bank_transfer')" json:"payment_method"`
	ShippingAddress string          `gorm:"type:text;not null" json:"shipping_address"`
	Notes           string          `gorm:"type:text" json:"notes"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Order) TableName() string { return "orders" }

// OrderItem 订单明细，UnitPrice 为下单时的价格快照。
type OrderItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"product,omitempty"`
	Quantity  int             `gorm:"not null;check:chk_order_items_quantity,quantity >= 1" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_order_items_unit_price,unit_price >= 0" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_order_items_subtotal,subtotal >= 0" json:"subtotal"`
}

func (OrderItem) TableName() string { return "order_items" }

// validTransitions 订单状态机；cancelled 只能通过取消流程进入。
var validTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCompleted},
	OrderProcessing: {OrderCompleted},
	OrderCompleted:  {OrderRefunded},
	OrderCancelled:  {},
	OrderRefunded:   {},
}

// CanTransition 判断 current -> next 是否合法。同状态视为合法（仅更新支付状态）。
func CanTransition(current, next OrderStatus) bool {
	if current == next {
		return current != OrderCancelled && current != OrderRefunded
	}
	for _, s := range validTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}
