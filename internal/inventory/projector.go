package inventory

import (
	"context"

	kafkax "github.com/ariefcatur/go-warehouse-orders/internal/kafka"
	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/ariefcatur/go-warehouse-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// StatusProjector keeps order_status:{id} in Redis in step with the order
// events, so status polls are served without touching the database.
type StatusProjector struct {
	Redis       *redis.Client
	ServiceName string
	Log         *zap.Logger
}

// Handle dipasang sebagai handler consumer topic wms.orders.
func (p *StatusProjector) Handle(ctx context.Context, m kafkago.Message) error {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	// 1) decode envelope
	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		log.Warn("skipping undecodable event", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil // poison message: commit and move on
	}

	var next redisx.StatusEntry
	switch env.EventType {
	case orders.EventOrderCreated:
		pl, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		next = redisx.StatusEntry{Status: string(orders.StatusPendingPayment), UpdatedAt: env.OccurredAt, ExpiresAt: pl.ExpiresAt}
	case orders.EventOrderStatusChanged:
		pl, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		next = redisx.StatusEntry{Status: string(pl.To), UpdatedAt: pl.ChangedAt, ExpiresAt: pl.ExpiresAt}
	default:
		return nil // ignore
	}

	// 2) dedup via Redis (pakai event_id)
	first, err := redisx.FirstSeen(ctx, p.Redis, p.ServiceName, env.EventID)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	if err := p.project(ctx, env.CorrelationID, next); err != nil {
		// gagal tulis: lepas tanda dedup supaya redelivery diproses lagi
		if ferr := redisx.ForgetSeen(ctx, p.Redis, p.ServiceName, env.EventID); ferr != nil {
			log.Warn("releasing dedup mark", zap.String("event_id", env.EventID), zap.Error(ferr))
		}
		return err
	}
	log.Debug("order status projected", zap.String("order_id", env.CorrelationID), zap.String("status", next.Status))
	return nil
}

// project writes next unless the cache already holds a newer status; workers
// may see one order's events out of order.
func (p *StatusProjector) project(ctx context.Context, orderID string, next redisx.StatusEntry) error {
	cur, hit, err := redisx.CachedOrderStatus(ctx, p.Redis, orderID)
	if err != nil {
		return err
	}
	if hit && cur.UpdatedAt.After(next.UpdatedAt) {
		return nil
	}
	return redisx.CacheOrderStatus(ctx, p.Redis, orderID, next)
}
