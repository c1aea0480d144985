package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shop_admin/internal/metrics"
	"shop_admin/internal/model"
	"shop_admin/internal/repository"

	"go.uber.org/zap"
)

var errNacked = errors.New("broker nacked message")

// Relay 将 outbox 中的订单事件异步转发到消息系统。
// 语义：发布成功后才标记 published，失败则保留待下一轮重试，保证至少一次投递。
type Relay struct {
	events    repository.EventRepo
	publisher Publisher
	log       *zap.Logger

	interval time.Duration
	batch    int
	now      func() time.Time
}

func NewRelay(events repository.EventRepo, publisher Publisher, interval time.Duration, batch int, log *zap.Logger) *Relay {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if batch <= 0 {
		batch = 16
	}
	return &Relay{
		events:    events,
		publisher: publisher,
		log:       log,
		interval:  interval,
		batch:     batch,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.Drain(ctx); err != nil && ctx.Err() == nil {
			r.log.Warn("relay drain", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Drain 处理一批待投递事件，返回成功投递条数。
// 遇到发布失败立即停止本批，保持同一订单事件的先后顺序。
func (r *Relay) Drain(ctx context.Context) (int, error) {
	pending, err := r.events.FetchPending(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, ev := range pending {
		if err := r.processOne(ctx, ev); err != nil {
			return sent, fmt.Errorf("event id=%d: %w", ev.ID, err)
		}
		sent++
	}
	return sent, nil
}

func (r *Relay) processOne(ctx context.Context, ev model.OrderEvent) error {
	msg, err := parseOrderEvent(ev)
	if err != nil {
		// 脏消息标记 dead，避免阻塞队列
		r.log.Error("relay drop undecodable event", zap.Uint("id", ev.ID), zap.Error(err))
		return r.events.MarkDead(ctx, ev.ID, err.Error())
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.publisher.Publish(pubCtx, msg); err != nil {
		metrics.RecordEventPublish(ev.Type, false)
		if markErr := r.events.MarkFailed(ctx, ev.ID, err.Error()); markErr != nil {
			return fmt.Errorf("publish failed: %v, mark failed: %w", err, markErr)
		}
		return err
	}
	metrics.RecordEventPublish(ev.Type, true)
	return r.events.MarkPublished(ctx, ev.ID, r.now())
}

func parseOrderEvent(ev model.OrderEvent) (OrderMessage, error) {
	var msg OrderMessage
	if err := json.Unmarshal([]byte(ev.Payload), &msg); err != nil {
		return OrderMessage{}, fmt.Errorf("decode payload: %w", err)
	}
	if msg.EventID != ev.EventID {
		return OrderMessage{}, fmt.Errorf("event_id mismatch %q != %q", msg.EventID, ev.EventID)
	}
	if err := msg.Validate(); err != nil {
		return OrderMessage{}, err
	}
	return msg, nil
}
