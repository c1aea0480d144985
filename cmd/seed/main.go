package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"shop_admin/internal/auth"
	"shop_admin/internal/config"
	"shop_admin/internal/database"
	"shop_admin/internal/logger"
	"shop_admin/internal/repository"
	"shop_admin/internal/seed"
	"shop_admin/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	opts := seed.DefaultOptions()
	flag.IntVar(&opts.Orders, "orders", opts.Orders, "number of demo orders")
	flag.IntVar(&opts.Days, "days", opts.Days, "spread orders over the last N days")
	flag.Uint64Var(&opts.Rand, "rand", opts.Rand, "random seed")
	flag.BoolVar(&opts.Reset, "reset", false, "wipe business tables first")
	flag.Parse()

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

	ctx := context.Background()
	if err := database.Migrate(ctx, db, log, database.DefaultMigrateOptions()); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	repo := repository.New(db)
	ledger := service.NewInventoryLedger()
	seeder := seed.New(repo,
		service.NewUserService(repo.Users, auth.NewBcrypt(cfg.BcryptCost), log),
		service.NewCatalogService(repo, ledger, log),
		service.NewOrderService(repo, ledger, log),
		service.NewReportService(repo, cfg.LowStockThreshold),
		log,
	)

	res, err := seeder.Run(ctx, opts)
	if errors.Is(err, seed.ErrAlreadySeeded) {
		log.Warn("skip seeding", zap.Error(err))
		return
	}
	if err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
	fmt.Printf("seeded %d users, %d categories, %d products, %d orders (%d skipped), %d low stock\n",
		res.Users, res.Categories, res.Products, res.Orders, res.Skipped, res.LowStock)
	fmt.Printf("login: admin@crud.com / %s\n", seed.DemoPassword)
}
