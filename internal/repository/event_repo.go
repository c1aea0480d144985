package repository

import (
	"context"
	"time"

	"shop_admin/internal/model"

	"gorm.io/gorm"
)

// EventRepo 订单事件 outbox。
type EventRepo interface {
	Append(ctx context.Context, ev *model.OrderEvent) error
	FetchPending(ctx context.Context, limit int) ([]model.OrderEvent, error)
	MarkPublished(ctx context.Context, id uint, at time.Time) error
	MarkFailed(ctx context.Context, id uint, reason string) error
	MarkDead(ctx context.Context, id uint, reason string) error
	CountByStatus(ctx context.Context, status model.OrderEventStatus) (int64, error)
}

type eventRepo struct{ db *gorm.DB }

func NewEventRepo(db *gorm.DB) EventRepo { return &eventRepo{db: db} }

func (r *eventRepo) Append(ctx context.Context, ev *model.OrderEvent) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

func (r *eventRepo) FetchPending(ctx context.Context, limit int) ([]model.OrderEvent, error) {
	var list []model.OrderEvent
	err := r.db.WithContext(ctx).
		Where("status = ?", model.OrderEventPending).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *eventRepo) MarkPublished(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.OrderEvent{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":       model.OrderEventPublished,
			"published_at": at,
			"attempts":     gorm.Expr("attempts + 1"),
		}).Error
}

func (r *eventRepo) MarkFailed(ctx context.Context, id uint, reason string) error {
	return r.db.WithContext(ctx).Model(&model.OrderEvent{}).Where("id = ?", id).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": truncate(reason, 255),
		}).Error
}

func (r *eventRepo) MarkDead(ctx context.Context, id uint, reason string) error {
	return r.db.WithContext(ctx).Model(&model.OrderEvent{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":     model.OrderEventDead,
			"last_error": truncate(reason, 255),
		}).Error
}

func (r *eventRepo) CountByStatus(ctx context.Context, status model.OrderEventStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.OrderEvent{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
