package queue

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler 处理一条已解码的订单事件。
type Handler interface {
	Handle(ctx context.Context, msg OrderMessage) error
}

type HandlerFunc func(ctx context.Context, msg OrderMessage) error

func (f HandlerFunc) Handle(ctx context.Context, msg OrderMessage) error { return f(ctx, msg) }

// Consumer 从 Kafka 读取订单事件并交给 Handler。
type Consumer struct {
	r       *kafka.Reader
	handler Handler
	log     *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, handler Handler, log *zap.Logger) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		handler: handler,
		log:     log,
	}
}

func (c *Consumer) Close() error { return c.r.Close() }

// Run 阻塞消费，ctx 取消后返回。
// 使用 FetchMessage + CommitMessages：处理完成后才提交 offset。
func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				c.log.Warn("consumer fetch", zap.Error(err))
			}
			return
		}

		if err := c.dispatch(ctx, m.Value); err != nil {
			c.log.Warn("consumer handle", zap.Int64("offset", m.Offset), zap.Error(err))
		}
		if err := c.r.CommitMessages(ctx, m); err != nil {
			c.log.Warn("consumer commit", zap.Error(err))
		}
	}
}

// dispatch 解码并校验；脏消息记录后跳过，不阻塞分区。
func (c *Consumer) dispatch(ctx context.Context, value []byte) error {
	var msg OrderMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.handler.Handle(ctx, msg)
}
