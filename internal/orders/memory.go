package orders

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps everything in process. A single mutex serializes every
// unit of work, which gives the same per-product ordering as row locks.
type MemoryStore struct {
	mu sync.Mutex
	st memState
}

type memState struct {
	products   map[string]Product
	warehouses map[string]Warehouse
	orders     map[string]Order
	users      map[string]User
	txlog      []Transaction
	seq        int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: memState{
		products:   map[string]Product{},
		warehouses: map[string]Warehouse{},
		orders:     map[string]Order{},
		users:      map[string]User{},
	}}
}

func (s memState) clone() memState {
	return memState{
		products:   maps.Clone(s.products),
		warehouses: maps.Clone(s.warehouses),
		orders:     maps.Clone(s.orders),
		users:      maps.Clone(s.users),
		// full slice expression: append on the copy never writes into the original
		txlog: s.txlog[:len(s.txlog):len(s.txlog)],
		seq:   s.seq,
	}
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	work := &memTx{st: m.st.clone()}
	if err := fn(work); err != nil {
		return err
	}
	m.st = work.st
	return nil
}

// ---- Reader ----

func (m *MemoryStore) GetProduct(_ context.Context, id string) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.st.products[id]
	if !ok {
		return Product{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return m.st.withWarehouseName(p), nil
}

func (m *MemoryStore) ListProducts(_ context.Context, f ProductFilter) ([]Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(f.Search))
	var out []Product
	for _, p := range m.st.products {
		if f.WarehouseID != "" && p.WarehouseID != f.WarehouseID {
			continue
		}
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.SKU), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		out = append(out, m.st.withWarehouseName(p))
	}
	slices.SortFunc(out, func(a, b Product) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return paginate(out, f.Page), len(out), nil
}

func (m *MemoryStore) GetWarehouse(_ context.Context, id string) (Warehouse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.warehouse(id)
}

func (m *MemoryStore) ListWarehouses(_ context.Context) ([]Warehouse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Warehouse, 0, len(m.st.warehouses))
	for id := range m.st.warehouses {
		w, _ := m.st.warehouse(id)
		out = append(out, w)
	}
	slices.SortFunc(out, func(a, b Warehouse) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (m *MemoryStore) GetOrder(_ context.Context, id string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.st.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return o, nil
}

func (m *MemoryStore) GetOrderByNumber(_ context.Context, number string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.orderByNumber(number)
}

func (m *MemoryStore) ListOrders(_ context.Context, f OrderFilter) ([]Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.st.orders {
		if f.WarehouseID != "" && o.WarehouseID != f.WarehouseID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b Order) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.OrderNumber, a.OrderNumber))
	})
	return paginate(out, f.Page), len(out), nil
}

func (m *MemoryStore) ListExpirable(_ context.Context, now time.Time, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []Order
	for _, o := range m.st.orders {
		if o.Overdue(now) {
			due = append(due, o)
		}
	}
	slices.SortFunc(due, func(a, b Order) int {
		return cmp.Or(a.ExpiresAt.Compare(b.ExpiresAt), cmp.Compare(a.ID, b.ID))
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	ids := make([]string, 0, len(due))
	for _, o := range due {
		ids = append(ids, o.ID)
	}
	return ids, nil
}

func (m *MemoryStore) ListTransactions(_ context.Context, f TransactionFilter) ([]Transaction, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Transaction
	for _, t := range m.st.txlog {
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.WarehouseID != "" && t.WarehouseID != f.WarehouseID && t.ToWarehouseID != f.WarehouseID {
			continue
		}
		if !f.DateFrom.IsZero() && t.CreatedAt.Before(f.DateFrom) {
			continue
		}
		if !f.DateTo.IsZero() && t.CreatedAt.After(f.DateTo) {
			continue
		}
		out = append(out, t)
	}
	slices.SortStableFunc(out, func(a, b Transaction) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.Seq, a.Seq))
	})
	return paginate(out, f.Page), len(out), nil
}

func (m *MemoryStore) Counts(_ context.Context) (Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := Counts{
		TotalProducts:     len(m.st.products),
		TotalWarehouses:   len(m.st.warehouses),
		TotalOrders:       len(m.st.orders),
		TotalTransactions: len(m.st.txlog),
	}
	for _, w := range m.st.warehouses {
		if w.IsActive {
			c.ActiveWarehouses++
		}
	}
	for _, o := range m.st.orders {
		if o.Status == StatusPendingPayment {
			c.PendingOrders++
		}
	}
	return c, nil
}

func (m *MemoryStore) LowStock(_ context.Context, limit int) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Product
	for _, p := range m.st.products {
		if p.Stock <= p.MinStock {
			out = append(out, m.st.withWarehouseName(p))
		}
	}
	slices.SortFunc(out, func(a, b Product) int {
		return cmp.Or(cmp.Compare(a.Stock, b.Stock), cmp.Compare(a.Name, b.Name))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.st.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return u, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.st.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("user %s: %w", email, ErrNotFound)
}

// ---- helpers on state ----

func (s memState) warehouse(id string) (Warehouse, error) {
	w, ok := s.warehouses[id]
	if !ok {
		return Warehouse{}, fmt.Errorf("warehouse %s: %w", id, ErrNotFound)
	}
	w.CurrentUtilization = 0
	for _, p := range s.products {
		if p.WarehouseID == id {
			w.CurrentUtilization += p.Stock
		}
	}
	return w, nil
}

func (s memState) withWarehouseName(p Product) Product {
	if w, ok := s.warehouses[p.WarehouseID]; ok {
		p.WarehouseName = w.Name
	}
	return p
}

func (s memState) orderByNumber(number string) (Order, error) {
	for _, o := range s.orders {
		if o.OrderNumber == number {
			return o, nil
		}
	}
	return Order{}, fmt.Errorf("order %s: %w", number, ErrNotFound)
}

func paginate[T any](items []T, p Page) []T {
	p = p.Normalize()
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := min(start+p.Limit, len(items))
	return items[start:end]
}

// ---- Tx ----

type memTx struct{ st memState }

func (t *memTx) GetProduct(ctx context.Context, id string) (Product, error) {
	return t.LockProduct(ctx, id)
}

func (t *memTx) LockProduct(_ context.Context, id string) (Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return Product{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return p, nil
}

func (t *memTx) FindProductBySKU(_ context.Context, warehouseID, sku string) (Product, error) {
	for _, p := range t.st.products {
		if p.WarehouseID == warehouseID && strings.EqualFold(p.SKU, sku) {
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("product %s in %s: %w", sku, warehouseID, ErrNotFound)
}

func (t *memTx) InsertProduct(ctx context.Context, p Product) error {
	if _, ok := t.st.products[p.ID]; ok {
		return fmt.Errorf("product %s: %w", p.ID, ErrConflict)
	}
	if _, err := t.FindProductBySKU(ctx, p.WarehouseID, p.SKU); err == nil {
		return fmt.Errorf("sku %s already exists in warehouse: %w", p.SKU, ErrConflict)
	}
	t.st.products[p.ID] = p
	return nil
}

func (t *memTx) UpdateProduct(_ context.Context, p Product) error {
	if _, ok := t.st.products[p.ID]; !ok {
		return fmt.Errorf("product %s: %w", p.ID, ErrNotFound)
	}
	for _, other := range t.st.products {
		if other.ID != p.ID && other.WarehouseID == p.WarehouseID && strings.EqualFold(other.SKU, p.SKU) {
			return fmt.Errorf("sku %s already exists in warehouse: %w", p.SKU, ErrConflict)
		}
	}
	p.WarehouseName = ""
	t.st.products[p.ID] = p
	return nil
}

func (t *memTx) DeleteProduct(_ context.Context, id string) error {
	if _, ok := t.st.products[id]; !ok {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	delete(t.st.products, id)
	return nil
}

func (t *memTx) GetWarehouse(_ context.Context, id string) (Warehouse, error) {
	return t.st.warehouse(id)
}

func (t *memTx) InsertWarehouse(_ context.Context, w Warehouse) error {
	if _, ok := t.st.warehouses[w.ID]; ok {
		return fmt.Errorf("warehouse %s: %w", w.ID, ErrConflict)
	}
	t.st.warehouses[w.ID] = w
	return nil
}

func (t *memTx) UpdateWarehouse(_ context.Context, w Warehouse) error {
	if _, ok := t.st.warehouses[w.ID]; !ok {
		return fmt.Errorf("warehouse %s: %w", w.ID, ErrNotFound)
	}
	w.CurrentUtilization = 0
	t.st.warehouses[w.ID] = w
	return nil
}

func (t *memTx) DeleteWarehouse(_ context.Context, id string) error {
	if _, ok := t.st.warehouses[id]; !ok {
		return fmt.Errorf("warehouse %s: %w", id, ErrNotFound)
	}
	delete(t.st.warehouses, id)
	return nil
}

func (t *memTx) CountProductsInWarehouse(_ context.Context, id string) (int, error) {
	n := 0
	for _, p := range t.st.products {
		if p.WarehouseID == id {
			n++
		}
	}
	return n, nil
}

func (t *memTx) LockOrder(_ context.Context, id string) (Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return o, nil
}

func (t *memTx) GetOrderByNumber(_ context.Context, number string) (Order, error) {
	return t.st.orderByNumber(number)
}

func (t *memTx) InsertOrder(_ context.Context, o Order) error {
	if _, ok := t.st.orders[o.ID]; ok {
		return fmt.Errorf("order %s: %w", o.ID, ErrConflict)
	}
	if _, err := t.st.orderByNumber(o.OrderNumber); err == nil {
		return fmt.Errorf("order number %s: %w", o.OrderNumber, ErrConflict)
	}
	o.Items = slices.Clone(o.Items)
	t.st.orders[o.ID] = o
	return nil
}

func (t *memTx) UpdateOrderStatus(_ context.Context, id string, s Status, at time.Time) error {
	o, ok := t.st.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	o.Status = s
	o.UpdatedAt = at
	t.st.orders[id] = o
	return nil
}

func (t *memTx) AppendTransaction(_ context.Context, tr Transaction) error {
	t.st.seq++
	tr.Seq = t.st.seq
	t.st.txlog = append(t.st.txlog, tr)
	return nil
}

func (t *memTx) InsertUser(_ context.Context, u User) error {
	for _, other := range t.st.users {
		if other.ID == u.ID || strings.EqualFold(other.Email, u.Email) {
			return fmt.Errorf("user %s: %w", u.Email, ErrConflict)
		}
	}
	t.st.users[u.ID] = u
	return nil
}
