package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"shop_admin/internal/auth"
	"shop_admin/internal/config"
	"shop_admin/internal/database"
	"shop_admin/internal/logger"
	"shop_admin/internal/queue"
	"shop_admin/internal/repository"
	"shop_admin/internal/router"
	"shop_admin/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

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

	// 1. 数据库 + 迁移
	db, err := database.Open(cfg, log)
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	defer database.Close(db, log)
	if err := database.Migrate(context.Background(), db, log, database.DefaultMigrateOptions()); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	// 2. Redis 可选：限流 + token 吊销
	var (
		rdb     *rd.Client
		revoked service.Revocations
	)
	if cfg.RedisEnabled() {
		rdb = rd.NewClient(&rd.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, limiter fails open", zap.Error(err))
		}
		cancel()
		defer rdb.Close()
		revoked = auth.NewRedisRevocations(rdb)
		log.Info("redis enabled", zap.String("addr", cfg.RedisAddr))
	} else {
		log.Info("redis disabled")
	}

	// 3. 事件投递端
	publisher, err := queue.NewPublisher(cfg, log)
	if err != nil {
		log.Fatal("event publisher", zap.Error(err))
	}
	defer publisher.Close()

	repo := repository.New(db)
	ledger := service.NewInventoryLedger()
	hasher := auth.NewBcrypt(cfg.BcryptCost)

	deps := router.Deps{
		DB:      db,
		Redis:   rdb,
		Auth:    service.NewAuthService(repo.Users, hasher, auth.NewHSProvider(cfg.JWTSecret, cfg.JWTTTL), revoked, log),
		Users:   service.NewUserService(repo.Users, hasher, log),
		Catalog: service.NewCatalogService(repo, ledger, log),
		Orders:  service.NewOrderService(repo, ledger, log),
		Reports: service.NewReportService(repo, cfg.LowStockThreshold),
		Config:  cfg,
		Log:     log,
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	router.Setup(r, deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. outbox relay
	var wg sync.WaitGroup
	relay := queue.NewRelay(repo.Events, publisher, cfg.OutboxPollInterval, cfg.OutboxBatchSize, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		relay.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr), zap.String("broker", cfg.EventBroker))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	wg.Wait()
}
