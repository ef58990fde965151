package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventStockReserved      = "StockReserved"
	EventStockReleased      = "StockReleased"
	EventStockMoved         = "StockMoved"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "wms-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id atau product_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	WarehouseID string    `json:"warehouse_id"`
	Items       []ItemQty `json:"items"`
	TotalAmount int64     `json:"total_amount"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type OrderStatusChangedPayload struct {
	OrderID   string    `json:"order_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ChangedAt time.Time `json:"changed_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type StockRejectedDetail struct {
	ProductID string `json:"product_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

// StockMovedPayload describes one transaction-log entry after commit.
type StockMovedPayload struct {
	TransactionID   string          `json:"transaction_id"`
	Type            TransactionType `json:"type"`
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	WarehouseID     string          `json:"warehouse_id"`
	ToWarehouseID   string          `json:"to_warehouse_id,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Stock           int             `json:"stock"`
	ReservedStock   int             `json:"reserved_stock"`
}
