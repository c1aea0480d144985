package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shop_admin/internal/config"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher 把订单事件投递到外部消息系统。
type Publisher interface {
	Publish(ctx context.Context, msg OrderMessage) error
	Close() error
}

// NewPublisher 按 EVENT_BROKER 选择投递端。
func NewPublisher(cfg config.AppConfig, log *zap.Logger) (Publisher, error) {
	switch cfg.EventBroker {
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case "amqp":
		p, err := NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("amqp: %w", err)
		}
		return p, nil
	case "log", "":
		return NewLogPublisher(log), nil
	}
	return nil, fmt.Errorf("unsupported event broker %q", cfg.EventBroker)
}

// KafkaPublisher 封装 Kafka 写入器。
type KafkaPublisher struct {
	w *kafka.Writer
}

// NewKafkaPublisher 创建生产者并配置可靠性参数：
// - Hash + Key: 同一订单的事件落到同一分区，保证单订单内有序。
// - RequireAll: 等待 ISR 副本确认。
// - MaxAttempts/Timeout: 控制重试与超时边界。
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  5,
			WriteTimeout: 5 * time.Second,
			ReadTimeout:  5 * time.Second,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// Publish 同步写入一条事件，key 为订单号，header 带事件类型与 event_id 供消费端去重。
func (p *KafkaPublisher) Publish(ctx context.Context, msg OrderMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.OrderNumber),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(msg.Type)},
			{Key: "event_id", Value: []byte(msg.EventID)},
		},
	})
}

// LogPublisher 未配置消息系统时使用，只打日志。
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher { return &LogPublisher{log: log} }

func (p *LogPublisher) Publish(_ context.Context, msg OrderMessage) error {
	p.log.Info("order event",
		zap.String("event_id", msg.EventID),
		zap.String("type", msg.Type),
		zap.Uint("order_id", msg.OrderID),
		zap.String("status", string(msg.Status)),
		zap.String("grand_total", msg.GrandTotal.StringFixed(2)),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
