package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/ec-cart/internal/catalogsync"
	"github.com/example/ec-cart/internal/config"
	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/example/ec-cart/internal/infrastructure/cache"
	"github.com/example/ec-cart/internal/infrastructure/kafka"
	"github.com/example/ec-cart/internal/infrastructure/store"
	"github.com/example/ec-cart/internal/logger"
)

// catalog-sync consumes catalog change events and reprices or prunes the
// carts that hold the affected product.
func main() {
	cfg, err := config.Load()
	if err != nil {
		boot, _ := logger.New("prod")
		boot.Fatal("failed to load configuration", "error", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()
	log = log.Component("CatalogSync")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting catalog sync",
		"kafka_brokers", cfg.KafkaBrokers,
		"topic", cfg.CatalogTopic,
		"group", cfg.ConsumerGroup,
	)

	db, dialect, err := store.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	defer db.Close()

	cartEvents := kafka.NewProducer(cfg.KafkaBrokers, cfg.CartTopic, log)
	defer cartEvents.Close()

	cartOpts := []cart.Option{
		cart.WithPublisher(cartEvents),
		cart.WithLogger(log),
		cart.WithReconcileTries(cfg.ReconcileTries),
	}
	// Repriced carts must not be served stale by the API's cache.
	if redisClient, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword); err != nil {
		log.Warn("redis unavailable, cart cache entries will expire on their own", "error", err)
	} else {
		defer redisClient.Close()
		cartOpts = append(cartOpts, cart.WithCache(cache.NewRedisCartCache(redisClient)))
	}

	cartSvc := cart.NewService(store.NewSQLCartStore(db, dialect), store.NewSQLCatalog(db, dialect), cartOpts...)
	syncer := catalogsync.NewSyncer(cartSvc, log)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.CatalogTopic, cfg.ConsumerGroup, cfg.ReconcileTries, log)
	defer consumer.Close()

	log.Info("listening for catalog events")
	if err := consumer.Consume(ctx, syncer.HandleEvent); err != nil && ctx.Err() == nil {
		log.Error("consumer stopped", "error", err)
		return
	}
	log.Info("shutting down")
}
