package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/ec-cart/internal/api"
	"github.com/example/ec-cart/internal/auth"
	"github.com/example/ec-cart/internal/command"
	"github.com/example/ec-cart/internal/config"
	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/example/ec-cart/internal/domain/category"
	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/infrastructure/cache"
	"github.com/example/ec-cart/internal/infrastructure/kafka"
	"github.com/example/ec-cart/internal/infrastructure/store"
	"github.com/example/ec-cart/internal/logger"
	"github.com/example/ec-cart/internal/query"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is configured from cfg, so fall back to a default one.
		boot, _ := logger.New("prod")
		boot.Fatal("failed to load configuration", "error", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()
	log = log.Component("API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting cart service",
		"http_addr", cfg.HTTPAddr,
		"db_driver", cfg.DBDriver,
		"kafka_brokers", cfg.KafkaBrokers,
		"cart_topic", cfg.CartTopic,
		"catalog_topic", cfg.CatalogTopic,
	)

	db, dialect, err := store.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	defer db.Close()
	log.Info("database ready", "dialect", dialect)

	cartEvents := kafka.NewProducer(cfg.KafkaBrokers, cfg.CartTopic, log)
	defer cartEvents.Close()
	catalogEvents := kafka.NewProducer(cfg.KafkaBrokers, cfg.CatalogTopic, log)
	defer catalogEvents.Close()

	cartOpts := []cart.Option{
		cart.WithPublisher(cartEvents),
		cart.WithLogger(log),
		cart.WithReconcileTries(cfg.ReconcileTries),
	}
	// The cache is optional; carts are always served from the database
	// when Redis is unreachable.
	if redisClient, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword); err != nil {
		log.Warn("redis unavailable, running without cart cache", "addr", cfg.RedisAddr, "error", err)
	} else {
		defer redisClient.Close()
		cartOpts = append(cartOpts, cart.WithCache(cache.NewRedisCartCache(redisClient)))
	}

	catalog := store.NewSQLCatalog(db, dialect)
	cartSvc := cart.NewService(store.NewSQLCartStore(db, dialect), catalog, cartOpts...)
	productSvc := product.NewService(catalog, cartSvc, catalogEvents, log)

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL)
	authSvc := auth.NewService(store.NewSQLUserStore(db, dialect), tokens, auth.PasswordHasher{}, log)

	categorySvc := category.NewService(catalog, log)

	handlers := api.NewHandlers(
		command.NewHandler(cartSvc, productSvc, categorySvc),
		query.NewHandler(cartSvc, productSvc, categorySvc),
		log,
	)
	router := api.NewRouter(handlers, api.NewAuthHandlers(authSvc, log), tokens, api.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
	}, log)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.RequestTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		return
	}
	log.Info("server stopped")
}
