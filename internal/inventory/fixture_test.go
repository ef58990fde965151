package inventory

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-warehouse-orders/internal/catalog"
	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type published struct {
	key     string
	env     orders.Envelope
	headers []kafkago.Header
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (f *fakePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	var env orders.Envelope
	_ = json.Unmarshal(value, &env)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{key: string(key), env: env, headers: headers})
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.env.EventType)
	}
	return out
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	ctx      context.Context
	store    *orders.MemoryStore
	svc      *Service
	cat      *catalog.Service
	clk      *clock
	orderEvs *fakePublisher
	stockEvs *fakePublisher
	wh       orders.Warehouse
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &clock{t: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	store := orders.NewMemoryStore()
	f := &fixture{
		ctx:      context.Background(),
		store:    store,
		clk:      clk,
		orderEvs: &fakePublisher{},
		stockEvs: &fakePublisher{},
		cat:      &catalog.Service{Store: store, Now: clk.Now},
	}
	f.svc = &Service{
		Store:       store,
		OrderEvents: f.orderEvs,
		StockEvents: f.stockEvs,
		Now:         clk.Now,
		ServiceName: "wms-test",
	}
	f.wh = f.warehouse(t, "Jakarta", true)
	return f
}

func (f *fixture) warehouse(t *testing.T, name string, active bool) orders.Warehouse {
	t.Helper()
	w, err := f.cat.CreateWarehouse(f.ctx, catalog.WarehouseInput{Name: name, IsActive: &active, Capacity: 1000})
	require.NoError(t, err)
	return w
}

func (f *fixture) productIn(t *testing.T, warehouseID, sku string, price int64, stock int) orders.Product {
	t.Helper()
	p, err := f.cat.CreateProduct(f.ctx, catalog.ProductInput{
		Name: "Product " + sku, SKU: sku, Price: price, Stock: &stock, WarehouseID: warehouseID,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) product(t *testing.T, sku string, price int64, stock int) orders.Product {
	return f.productIn(t, f.wh.ID, sku, price, stock)
}

// counters returns {stock, reserved, available} and checks the invariant.
func (f *fixture) counters(t *testing.T, id string) [3]int {
	t.Helper()
	p, err := f.store.GetProduct(f.ctx, id)
	require.NoError(t, err)
	require.True(t, p.Consistent(), "product %s inconsistent: %+v", id, p)
	return [3]int{p.Stock, p.ReservedStock, p.AvailableStock}
}

func (f *fixture) order(t *testing.T, lines ...OrderLine) orders.Order {
	t.Helper()
	o, existed, err := f.svc.CreateOrder(f.ctx, CreateOrderInput{
		CustomerName: "Andi", WarehouseID: f.wh.ID, Items: lines, CreatedBy: "staff@wms.local",
	})
	require.NoError(t, err)
	require.False(t, existed)
	return o
}

func (f *fixture) txOfType(t *testing.T, typ orders.TransactionType) []orders.Transaction {
	t.Helper()
	list, _, err := f.store.ListTransactions(f.ctx, orders.TransactionFilter{Type: typ, Page: orders.Page{Limit: 100}})
	require.NoError(t, err)
	return list
}
