package queue

import (
	"fmt"
	"time"

	"shop_admin/internal/model"

	"github.com/shopspring/decimal"
)

// ItemLine 事件里携带的明细摘要。
type ItemLine struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// OrderMessage 是写入 outbox 并投递到消息系统的订单事件。
type OrderMessage struct {
	EventID       string              `json:"event_id"`
	Type          string              `json:"type"`
	OrderID       uint                `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerID    uint                `json:"customer_id"`
	Status        model.OrderStatus   `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	GrandTotal    decimal.Decimal     `json:"grand_total"`
	Items         []ItemLine          `json:"items,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// NewOrderMessage 从订单快照构造事件。
func NewOrderMessage(eventID, eventType string, o *model.Order, at time.Time) OrderMessage {
	msg := OrderMessage{
		EventID:       eventID,
		Type:          eventType,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		GrandTotal:    o.GrandTotal,
		OccurredAt:    at,
	}
	for _, it := range o.Items {
		msg.Items = append(msg.Items, ItemLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return msg
}

// Validate 做最小字段校验，防止消费者处理脏消息。
func (m OrderMessage) Validate() error {
	if m.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	switch m.Type {
	case model.EventOrderCreated, model.EventOrderCancelled, model.EventOrderStatusChanged:
	default:
		return fmt.Errorf("unknown event type %q", m.Type)
	}
	if m.OrderID == 0 {
		return fmt.Errorf("order_id is required")
	}
	if m.CustomerID == 0 {
		return fmt.Errorf("customer_id is required")
	}
	for _, it := range m.Items {
		if it.ProductID == 0 || it.Quantity <= 0 {
			return fmt.Errorf("invalid item %+v", it)
		}
	}
	return nil
}
