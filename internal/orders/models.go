package orders

import "time"

// Product is a stock-keeping record owned by exactly one warehouse. The same
// SKU held by two warehouses is two independent Product rows.
type Product struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	SKU            string    `json:"sku"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category,omitempty"`
	Price          int64     `json:"price"`
	Stock          int       `json:"stock"`
	ReservedStock  int       `json:"reservedStock"`
	AvailableStock int       `json:"availableStock"`
	WarehouseID    string    `json:"warehouseId"`
	WarehouseName  string    `json:"warehouseName,omitempty"`
	MinStock       int       `json:"minStock"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Consistent reports whether the stock counters satisfy the ledger invariants.
func (p Product) Consistent() bool {
	return p.Stock >= 0 && p.ReservedStock >= 0 &&
		p.ReservedStock <= p.Stock &&
		p.AvailableStock == p.Stock-p.ReservedStock
}

type Warehouse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Code               string    `json:"code,omitempty"`
	Address            string    `json:"address,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	Email              string    `json:"email,omitempty"`
	Manager            string    `json:"manager,omitempty"`
	IsActive           bool      `json:"isActive"`
	Capacity           int       `json:"capacity"`
	CurrentUtilization int       `json:"currentUtilization"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type Order struct {
	ID           string      `json:"id"`
	OrderNumber  string      `json:"order_number"`
	CustomerID   string      `json:"customer_id"`
	CustomerName string      `json:"customer_name"`
	WarehouseID  string      `json:"warehouse_id"`
	Status       Status      `json:"status"` // lihat status.go
	Items        []OrderItem `json:"items"`
	TotalAmount  int64       `json:"total_amount"`
	Notes        string      `json:"notes,omitempty"`
	CreatedBy    string      `json:"created_by,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	ExpiresAt    time.Time   `json:"expires_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Overdue reports whether a pending order has passed its payment deadline.
func (o Order) Overdue(now time.Time) bool {
	return o.Status == StatusPendingPayment && now.After(o.ExpiresAt)
}

type OrderItem struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	SKU         string `json:"sku,omitempty"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	TotalPrice  int64  `json:"total_price"`
}

// Transaction is one append-only entry of the stock audit log.
type Transaction struct {
	ID              string          `json:"id"`
	Seq             int64           `json:"-"`
	Type            TransactionType `json:"type"`
	ProductID       string          `json:"product_id"`
	ProductName     string          `json:"product_name,omitempty"`
	SKU             string          `json:"sku,omitempty"`
	Quantity        int             `json:"quantity"`
	WarehouseID     string          `json:"warehouse_id"`
	ToWarehouseID   string          `json:"to_warehouse_id,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Counterparty    string          `json:"counterparty,omitempty"`
	DestinationType string          `json:"destination_type,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

type TransactionType string

const (
	TxInbound  TransactionType = "inbound"
	TxOutbound TransactionType = "outbound"
	TxTransfer TransactionType = "transfer"
	TxCheckout TransactionType = "checkout"
	TxRelease  TransactionType = "release"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxInbound, TxOutbound, TxTransfer, TxCheckout, TxRelease:
		return true
	}
	return false
}

// Outbound destination types accepted by the server.
const (
	DestinationCustomer = "customer"
	DestinationReturn   = "return"
	DestinationTransfer = "transfer"
	DestinationDisposal = "disposal"
)

func ValidDestination(d string) bool {
	switch d {
	case DestinationCustomer, DestinationReturn, DestinationTransfer, DestinationDisposal:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	WarehouseID  string    `json:"warehouseId,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Counts backs the dashboard summary.
type Counts struct {
	TotalProducts     int `json:"totalProducts"`
	TotalWarehouses   int `json:"totalWarehouses"`
	ActiveWarehouses  int `json:"activeWarehouses"`
	TotalOrders       int `json:"totalOrders"`
	PendingOrders     int `json:"pendingOrders"`
	TotalTransactions int `json:"totalTransactions"`
}
