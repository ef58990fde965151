package inventory

import (
	"context"

	kafkax "github.com/ariefcatur/go-warehouse-orders/internal/kafka"
	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

func (s *Service) envelope(ctx context.Context, eventType, correlationID string, payload any) []byte {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    s.now(),
		Producer:      s.ServiceName,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	return kafkax.MustMarshal(ev)
}

func headers(eventType string) []kafkago.Header {
	return []kafkago.Header{
		{Key: "x-event-type", Value: []byte(eventType)},
		{Key: "x-event-version", Value: []byte("1")},
	}
}

func (s *Service) publishOrderCreated(ctx context.Context, o orders.Order) {
	if s.OrderEvents == nil {
		return
	}
	items := make([]orders.ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orders.ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}
	b := s.envelope(ctx, orders.EventOrderCreated, o.ID, orders.OrderCreatedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		WarehouseID: o.WarehouseID,
		Items:       items,
		TotalAmount: o.TotalAmount,
		ExpiresAt:   o.ExpiresAt,
	})
	s.OrderEvents.Publish(orders.PartitionKey(o.ID), b, headers(orders.EventOrderCreated)...)
}

func (s *Service) publishStatusChanged(ctx context.Context, o orders.Order, from orders.Status) {
	if s.OrderEvents == nil {
		return
	}
	b := s.envelope(ctx, orders.EventOrderStatusChanged, o.ID, orders.OrderStatusChangedPayload{
		OrderID: o.ID, From: from, To: o.Status, ChangedAt: o.UpdatedAt, ExpiresAt: o.ExpiresAt,
	})
	s.OrderEvents.Publish(orders.PartitionKey(o.ID), b, headers(orders.EventOrderStatusChanged)...)
}

func stockEventType(t orders.TransactionType) string {
	switch t {
	case orders.TxCheckout:
		return orders.EventStockReserved
	case orders.TxRelease:
		return orders.EventStockReleased
	}
	return orders.EventStockMoved
}

func (s *Service) publishMoves(ctx context.Context, trail []moved) {
	if s.StockEvents == nil {
		return
	}
	for _, mv := range trail {
		et := stockEventType(mv.entry.Type)
		b := s.envelope(ctx, et, mv.product.ID, orders.StockMovedPayload{
			TransactionID:   mv.entry.ID,
			Type:            mv.entry.Type,
			ProductID:       mv.product.ID,
			Quantity:        mv.entry.Quantity,
			WarehouseID:     mv.product.WarehouseID,
			ToWarehouseID:   mv.entry.ToWarehouseID,
			ReferenceNumber: mv.entry.ReferenceNumber,
			Stock:           mv.product.Stock,
			ReservedStock:   mv.product.ReservedStock,
		})
		s.StockEvents.Publish(orders.PartitionKey(mv.product.ID), b, headers(et)...)
	}
}
