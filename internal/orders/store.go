package orders

import (
	"context"
	"time"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

type Page struct {
	Page  int
	Limit int
}

// Normalize applies the default page (1) and limit (10) and caps the limit.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

type PageMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPageMeta(p Page, total int) PageMeta {
	p = p.Normalize()
	pages := (total + p.Limit - 1) / p.Limit
	return PageMeta{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}

type ProductFilter struct {
	Search      string
	WarehouseID string
	Category    string
	Page
}

type OrderFilter struct {
	WarehouseID string
	Status      Status
	Page
}

// TransactionFilter bounds are inclusive; zero values disable a bound.
type TransactionFilter struct {
	Type        TransactionType
	WarehouseID string
	DateFrom    time.Time
	DateTo      time.Time
	Page
}

type Reader interface {
	GetProduct(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]Product, int, error)
	GetWarehouse(ctx context.Context, id string) (Warehouse, error)
	ListWarehouses(ctx context.Context) ([]Warehouse, error)
	GetOrder(ctx context.Context, id string) (Order, error)
	GetOrderByNumber(ctx context.Context, number string) (Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]Order, int, error)
	// ListExpirable returns ids of pending orders whose deadline is before now,
	// oldest deadline first.
	ListExpirable(ctx context.Context, now time.Time, limit int) ([]string, error)
	// ListTransactions returns newest first; ties keep reverse insertion order.
	ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, int, error)
	Counts(ctx context.Context) (Counts, error)
	LowStock(ctx context.Context, limit int) ([]Product, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// Tx is a unit of work. Rows returned by the Lock* methods stay locked until
// the surrounding InTx call returns.
type Tx interface {
	// GetProduct reads without taking a row lock.
	GetProduct(ctx context.Context, id string) (Product, error)
	LockProduct(ctx context.Context, id string) (Product, error)
	FindProductBySKU(ctx context.Context, warehouseID, sku string) (Product, error)
	InsertProduct(ctx context.Context, p Product) error
	UpdateProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, id string) error

	GetWarehouse(ctx context.Context, id string) (Warehouse, error)
	InsertWarehouse(ctx context.Context, w Warehouse) error
	UpdateWarehouse(ctx context.Context, w Warehouse) error
	DeleteWarehouse(ctx context.Context, id string) error
	CountProductsInWarehouse(ctx context.Context, id string) (int, error)

	LockOrder(ctx context.Context, id string) (Order, error)
	GetOrderByNumber(ctx context.Context, number string) (Order, error)
	InsertOrder(ctx context.Context, o Order) error
	UpdateOrderStatus(ctx context.Context, id string, s Status, at time.Time) error

	AppendTransaction(ctx context.Context, t Transaction) error

	InsertUser(ctx context.Context, u User) error
}

// Store is implemented by PgStore and MemoryStore. InTx commits only when fn
// returns nil. fn must use the Tx it is given, never the Store's Reader.
type Store interface {
	Reader
	InTx(ctx context.Context, fn func(Tx) error) error
}
