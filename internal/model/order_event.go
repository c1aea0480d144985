package model

import "time"

// OrderEventStatus 描述 outbox 事件的投递状态机。
type OrderEventStatus int

const (
	OrderEventPending   OrderEventStatus = iota // 已随订单事务落库，待投递
	OrderEventPublished                         // 已投递到消息系统
	OrderEventDead                              // 无法解析，不再重试
)

const (
	EventOrderCreated       = "order.created"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is an outbox row written in the same transaction as the order change.
type OrderEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EventID string `gorm:"size:64;uniqueIndex;not null" json:"event_id"`
	Type    string `gorm:"size:32;not null" json:"type"`
	OrderID uint   `gorm:"not null;index" json:"order_id"`
	Payload string `gorm:"type:text;not null" json:"payload"`
	// Status + Attempts + LastError 支撑投递可观测与失败排查。
	Status      OrderEventStatus `gorm:"not null;default:0;index" json:"status"`
	Attempts    int              `gorm:"not null;default:0" json:"attempts"`
	LastError   string           `gorm:"size:255" json:"last_error"`
	PublishedAt *time.Time       `json:"published_at,omitempty"`
}

func (OrderEvent) TableName() string { return "order_events" }
