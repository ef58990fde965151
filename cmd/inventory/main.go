package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-warehouse-orders/internal/config"
	"github.com/ariefcatur/go-warehouse-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-warehouse-orders/internal/kafka"
	"github.com/ariefcatur/go-warehouse-orders/internal/logging"
	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/ariefcatur/go-warehouse-orders/internal/postgres"
	"github.com/ariefcatur/go-warehouse-orders/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
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

	// DB
	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	defer db.Close()

	service := cfg.ServiceName + "-inventory"
	engine := &inventory.Service{
		Store:        &orders.PgStore{DB: db},
		ExpiryWindow: cfg.OrderExpiry,
		ServiceName:  service,
		Log:          logger.Named("engine"),
	}

	// Producers: order & stock events hasil sweep
	var producers []*kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		po := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrders, 1024, logger)
		ps := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStock, 1024, logger)
		po.Start(ctx)
		ps.Start(ctx)
		engine.OrderEvents, engine.StockEvents = po, ps
		producers = append(producers, po, ps)
	}

	// Expiry sweep
	c := cron.New()
	if _, err := inventory.ScheduleExpirySweep(ctx, c, cfg.ExpirySweepSchedule, engine); err != nil {
		logger.Fatal("cron", zap.Error(err))
	}
	c.Start()
	logger.Info("expiry sweep scheduled", zap.String("schedule", cfg.ExpirySweepSchedule))

	// Consumer: proyeksi status order ke Redis
	rdb := redisx.New(cfg.RedisAddr)
	if rdb != nil && len(cfg.KafkaBrokers) > 0 {
		defer rdb.Close()
		proj := &inventory.StatusProjector{Redis: rdb, ServiceName: service, Log: logger.Named("projector")}
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.InventoryGroup, orders.TopicOrders, cfg.InventoryWorkers, logger)
		go func() {
			logger.Info("status projector started",
				zap.String("group", cfg.InventoryGroup),
				zap.String("topic", orders.TopicOrders),
				zap.Int("workers", cfg.InventoryWorkers))
			if err := cons.Start(ctx, proj.Handle); err != nil {
				logger.Error("consumer exit", zap.Error(err))
				cancel()
			}
		}()
	} else {
		logger.Warn("status projector disabled: REDIS_ADDR and KAFKA_BROKERS are both required")
	}

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down worker...")
	stopped := c.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("expiry sweep still running at shutdown")
	}
	cancel()
	for _, p := range producers {
		p.Close()
	}
	for _, p := range producers {
		p.WaitClosed()
	}
}
