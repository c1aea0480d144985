package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"shop_admin/internal/config"
	"shop_admin/internal/database"
	"shop_admin/internal/logger"
	"shop_admin/internal/queue"
	"shop_admin/internal/repository"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// worker 消费 Kafka 上的订单事件，对下单涉及的低库存商品告警。
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg, log)
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	defer database.Close(db, log)

	repo := repository.New(db)
	alerter := queue.NewStockAlerter(repo.Products, cfg.LowStockThreshold, log)
	consumer := queue.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, alerter, log)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("worker started",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", cfg.KafkaGroupID),
	)
	consumer.Run(ctx)
	log.Info("worker stopped")
}
