package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is the Postgres implementation of Store.
type PgStore struct{ DB *pgxpool.Pool }

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *PgStore) InTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{q: tx}); err != nil {
		return err // rollback via defer
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// mapErr translates driver errors into the package sentinels.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// ---- products ----

const productCols = `p.id, p.name, p.sku, p.description, p.category, p.price, p.stock, p.reserved_stock,
	p.warehouse_id, COALESCE(w.name, ''), p.min_stock, p.created_at, p.updated_at`

const productFrom = ` FROM products p LEFT JOIN warehouses w ON w.id = p.warehouse_id`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Description, &p.Category, &p.Price, &p.Stock, &p.ReservedStock,
		&p.WarehouseID, &p.WarehouseName, &p.MinStock, &p.CreatedAt, &p.UpdatedAt)
	p.AvailableStock = p.Stock - p.ReservedStock
	return p, err
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()
	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PgStore) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productCols+productFrom+` WHERE p.id=$1`, id))
	return p, mapErr(err, "get product "+id)
}

func (r *PgStore) ListProducts(ctx context.Context, f ProductFilter) ([]Product, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.WarehouseID != "" {
		args = append(args, f.WarehouseID)
		conds = append(conds, fmt.Sprintf("p.warehouse_id = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("LOWER(p.category) = LOWER($%d)", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+strings.ToLower(s)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(LOWER(p.name) LIKE $%d OR LOWER(p.sku) LIKE $%d OR LOWER(p.description) LIKE $%d)", n, n, n))
	}
	where := whereClause(conds)

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	pg := f.Page.Normalize()
	args = append(args, pg.Limit, pg.Offset())
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+productFrom+where+
		fmt.Sprintf(` ORDER BY p.name, p.id LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	ps, err := collectProducts(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return ps, total, nil
}

func (r *PgStore) LowStock(ctx context.Context, limit int) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+productFrom+
		` WHERE p.stock <= p.min_stock ORDER BY p.stock, p.name LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("low stock: %w", err)
	}
	return collectProducts(rows)
}

// ---- warehouses ----

const warehouseCols = `w.id, w.name, w.code, w.address, w.phone, w.email, w.manager, w.is_active, w.capacity,
	COALESCE((SELECT SUM(p.stock) FROM products p WHERE p.warehouse_id = w.id), 0), w.created_at, w.updated_at`

func scanWarehouse(row pgx.Row) (Warehouse, error) {
	var w Warehouse
	err := row.Scan(&w.ID, &w.Name, &w.Code, &w.Address, &w.Phone, &w.Email, &w.Manager, &w.IsActive, &w.Capacity,
		&w.CurrentUtilization, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func getWarehouse(ctx context.Context, q querier, id string) (Warehouse, error) {
	w, err := scanWarehouse(q.QueryRow(ctx, `SELECT `+warehouseCols+` FROM warehouses w WHERE w.id=$1`, id))
	return w, mapErr(err, "get warehouse "+id)
}

func (r *PgStore) GetWarehouse(ctx context.Context, id string) (Warehouse, error) {
	return getWarehouse(ctx, r.DB, id)
}

func (r *PgStore) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+warehouseCols+` FROM warehouses w ORDER BY w.name, w.id`)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	defer rows.Close()
	out := []Warehouse{}
	for rows.Next() {
		w, err := scanWarehouse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ---- orders ----

const orderCols = `id, order_number, customer_id, customer_name, warehouse_id, status, total_amount, notes,
	created_by, created_at, expires_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var s string
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &o.WarehouseID, &s, &o.TotalAmount,
		&o.Notes, &o.CreatedBy, &o.CreatedAt, &o.ExpiresAt, &o.UpdatedAt)
	o.Status = Status(s)
	return o, err
}

func loadItems(ctx context.Context, q querier, list []Order) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	idx := make(map[string]int, len(list))
	for i, o := range list {
		ids[i] = o.ID
		idx[o.ID] = i
		list[i].Items = []OrderItem{}
	}
	rows, err := q.Query(ctx, `SELECT order_id, id, product_id, product_name, sku, unit_price, quantity, total_price
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`, ids)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var orderID string
		var it OrderItem
		if err := rows.Scan(&orderID, &it.ID, &it.ProductID, &it.ProductName, &it.SKU, &it.UnitPrice, &it.Quantity, &it.TotalPrice); err != nil {
			return err
		}
		i := idx[orderID]
		list[i].Items = append(list[i].Items, it)
	}
	return rows.Err()
}

func getOrder(ctx context.Context, q querier, where string, arg any, what string) (Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE `+where, arg))
	if err != nil {
		return Order{}, mapErr(err, what)
	}
	one := []Order{o}
	if err := loadItems(ctx, q, one); err != nil {
		return Order{}, err
	}
	return one[0], nil
}

func (r *PgStore) GetOrder(ctx context.Context, id string) (Order, error) {
	return getOrder(ctx, r.DB, "id=$1", id, "get order "+id)
}

func (r *PgStore) GetOrderByNumber(ctx context.Context, number string) (Order, error) {
	return getOrder(ctx, r.DB, "order_number=$1", number, "get order "+number)
}

func (r *PgStore) ListOrders(ctx context.Context, f OrderFilter) ([]Order, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.WarehouseID != "" {
		args = append(args, f.WarehouseID)
		conds = append(conds, fmt.Sprintf("warehouse_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	where := whereClause(conds)

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	pg := f.Page.Normalize()
	args = append(args, pg.Limit, pg.Offset())
	rows, err := r.DB.Query(ctx, `SELECT `+orderCols+` FROM orders`+where+
		fmt.Sprintf(` ORDER BY created_at DESC, order_number DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := loadItems(ctx, r.DB, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *PgStore) ListExpirable(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := r.DB.Query(ctx, `SELECT id FROM orders WHERE status=$1 AND expires_at < $2
		ORDER BY expires_at, id LIMIT $3`, string(StatusPendingPayment), now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expirable: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ---- transactions ----

func (r *PgStore) ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.Type != "" {
		args = append(args, string(f.Type))
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.WarehouseID != "" {
		args = append(args, f.WarehouseID)
		conds = append(conds, fmt.Sprintf("(warehouse_id = $%d OR to_warehouse_id = $%d)", len(args), len(args)))
	}
	if !f.DateFrom.IsZero() {
		args = append(args, f.DateFrom)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !f.DateTo.IsZero() {
		args = append(args, f.DateTo)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	where := whereClause(conds)

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}
	pg := f.Page.Normalize()
	args = append(args, pg.Limit, pg.Offset())
	rows, err := r.DB.Query(ctx, `SELECT seq, id, type, product_id, product_name, sku, quantity, warehouse_id,
		to_warehouse_id, reference_number, counterparty, destination_type, notes, created_by, created_at
		FROM transactions`+where+
		fmt.Sprintf(` ORDER BY created_at DESC, seq DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	out := []Transaction{}
	for rows.Next() {
		var t Transaction
		var typ string
		if err := rows.Scan(&t.Seq, &t.ID, &typ, &t.ProductID, &t.ProductName, &t.SKU, &t.Quantity, &t.WarehouseID,
			&t.ToWarehouseID, &t.ReferenceNumber, &t.Counterparty, &t.DestinationType, &t.Notes, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		t.Type = TransactionType(typ)
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func (r *PgStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.DB.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM products),
		(SELECT COUNT(*) FROM warehouses),
		(SELECT COUNT(*) FROM warehouses WHERE is_active),
		(SELECT COUNT(*) FROM orders),
		(SELECT COUNT(*) FROM orders WHERE status = $1),
		(SELECT COUNT(*) FROM transactions)`, string(StatusPendingPayment)).
		Scan(&c.TotalProducts, &c.TotalWarehouses, &c.ActiveWarehouses, &c.TotalOrders, &c.PendingOrders, &c.TotalTransactions)
	if err != nil {
		return Counts{}, fmt.Errorf("dashboard counts: %w", err)
	}
	return c, nil
}

// ---- users ----

const userCols = `id, name, username, email, password_hash, role, warehouse_id, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.WarehouseID, &u.IsActive,
		&u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *PgStore) GetUser(ctx context.Context, id string) (User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	return u, mapErr(err, "get user "+id)
}

func (r *PgStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE LOWER(email)=LOWER($1)`, email))
	return u, mapErr(err, "get user "+email)
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
