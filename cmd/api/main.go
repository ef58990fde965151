package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-warehouse-orders/internal/auth"
	"github.com/ariefcatur/go-warehouse-orders/internal/catalog"
	"github.com/ariefcatur/go-warehouse-orders/internal/config"
	"github.com/ariefcatur/go-warehouse-orders/internal/httpx"
	"github.com/ariefcatur/go-warehouse-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-warehouse-orders/internal/kafka"
	"github.com/ariefcatur/go-warehouse-orders/internal/logging"
	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/ariefcatur/go-warehouse-orders/internal/postgres"
	"github.com/ariefcatur/go-warehouse-orders/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	var store orders.Store
	switch cfg.Store {
	case "memory":
		store = orders.NewMemoryStore()
		logger.Info("using in-memory store")
	default:
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		store = &orders.PgStore{DB: db}
	}

	// Redis (opsional)
	rdb := redisx.New(cfg.RedisAddr)
	var revoked auth.Revoker = auth.NewMemoryRevocations()
	if rdb != nil {
		defer rdb.Close()
		revoked = &redisx.RevocationList{RDB: rdb}
	}

	// Kafka producers (opsional)
	engine := &inventory.Service{
		Store:        store,
		ExpiryWindow: cfg.OrderExpiry,
		ServiceName:  cfg.ServiceName,
		Log:          logger.Named("engine"),
	}
	var producers []*kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		po := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrders, 1024, logger)
		ps := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStock, 1024, logger)
		po.Start(ctx)
		ps.Start(ctx)
		engine.OrderEvents, engine.StockEvents = po, ps
		producers = append(producers, po, ps)
	}

	authSvc := &auth.Service{
		Users:      store,
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		Revoked:    revoked,
		Log:        logger.Named("auth"),
	}
	catalogSvc := &catalog.Service{Store: store, Expire: engine, Log: logger.Named("catalog")}

	if cfg.AdminPassword != "" {
		u, created, err := auth.EnsureUser(ctx, store, orders.User{
			Name: "Administrator", Username: "admin", Email: cfg.AdminEmail, Role: orders.RoleAdmin,
		}, cfg.AdminPassword)
		if err != nil {
			logger.Fatal("seed admin", zap.Error(err))
		}
		if created {
			logger.Info("admin user created", zap.String("email", u.Email))
		}
	} else {
		logger.Warn("ADMIN_PASSWORD not set, no admin account seeded")
	}
	if cfg.SeedDemo {
		if err := catalogSvc.SeedDemo(ctx); err != nil {
			logger.Fatal("seed demo data", zap.Error(err))
		}
	}

	router := httpx.NewServer(httpx.Deps{
		Auth:    authSvc,
		Catalog: catalogSvc,
		Engine:  engine,
		Store:   store,
		Redis:   rdb,
		Log:     logger.Named("http"),
	})

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range producers {
		p.Close() // tutup inbox -> flush & close writer
	}
	for _, p := range producers {
		p.WaitClosed()
	}
	cancel()
}
