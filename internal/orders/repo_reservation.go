package orders

import (
	"context"
	"fmt"
	"time"
)

// pgTx implements Tx on a single pgx transaction. Row locks taken with
// FOR UPDATE are held until commit or rollback.
type pgTx struct{ q querier }

func (t *pgTx) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(t.q.QueryRow(ctx, `SELECT `+productCols+productFrom+` WHERE p.id=$1`, id))
	return p, mapErr(err, "get product "+id)
}

func (t *pgTx) LockProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(t.q.QueryRow(ctx, `SELECT `+productCols+productFrom+` WHERE p.id=$1 FOR UPDATE OF p`, id))
	return p, mapErr(err, "lock product "+id)
}

func (t *pgTx) FindProductBySKU(ctx context.Context, warehouseID, sku string) (Product, error) {
	p, err := scanProduct(t.q.QueryRow(ctx, `SELECT `+productCols+productFrom+`
		WHERE p.warehouse_id=$1 AND LOWER(p.sku)=LOWER($2) FOR UPDATE OF p`, warehouseID, sku))
	return p, mapErr(err, fmt.Sprintf("product %s in %s", sku, warehouseID))
}

func (t *pgTx) InsertProduct(ctx context.Context, p Product) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO products(id, name, sku, description, category, price, stock, reserved_stock,
		                     warehouse_id, min_stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.Name, p.SKU, p.Description, p.Category, p.Price, p.Stock, p.ReservedStock,
		p.WarehouseID, p.MinStock, p.CreatedAt, p.UpdatedAt)
	return mapErr(err, "insert product "+p.SKU)
}

func (t *pgTx) UpdateProduct(ctx context.Context, p Product) error {
	ct, err := t.q.Exec(ctx, `
		UPDATE products SET name=$2, sku=$3, description=$4, category=$5, price=$6, stock=$7,
		       reserved_stock=$8, min_stock=$9, updated_at=$10
		WHERE id=$1`,
		p.ID, p.Name, p.SKU, p.Description, p.Category, p.Price, p.Stock, p.ReservedStock, p.MinStock, p.UpdatedAt)
	if err != nil {
		return mapErr(err, "update product "+p.ID)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("update product %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

func (t *pgTx) DeleteProduct(ctx context.Context, id string) error {
	ct, err := t.q.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return mapErr(err, "delete product "+id)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("delete product %s: %w", id, ErrNotFound)
	}
	return nil
}

func (t *pgTx) GetWarehouse(ctx context.Context, id string) (Warehouse, error) {
	return getWarehouse(ctx, t.q, id)
}

func (t *pgTx) InsertWarehouse(ctx context.Context, w Warehouse) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO warehouses(id, name, code, address, phone, email, manager, is_active, capacity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		w.ID, w.Name, w.Code, w.Address, w.Phone, w.Email, w.Manager, w.IsActive, w.Capacity, w.CreatedAt, w.UpdatedAt)
	return mapErr(err, "insert warehouse "+w.Name)
}

func (t *pgTx) UpdateWarehouse(ctx context.Context, w Warehouse) error {
	ct, err := t.q.Exec(ctx, `
		UPDATE warehouses SET name=$2, code=$3, address=$4, phone=$5, email=$6, manager=$7,
		       is_active=$8, capacity=$9, updated_at=$10
		WHERE id=$1`,
		w.ID, w.Name, w.Code, w.Address, w.Phone, w.Email, w.Manager, w.IsActive, w.Capacity, w.UpdatedAt)
	if err != nil {
		return mapErr(err, "update warehouse "+w.ID)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("update warehouse %s: %w", w.ID, ErrNotFound)
	}
	return nil
}

func (t *pgTx) DeleteWarehouse(ctx context.Context, id string) error {
	ct, err := t.q.Exec(ctx, `DELETE FROM warehouses WHERE id=$1`, id)
	if err != nil {
		return mapErr(err, "delete warehouse "+id)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("delete warehouse %s: %w", id, ErrNotFound)
	}
	return nil
}

func (t *pgTx) CountProductsInWarehouse(ctx context.Context, id string) (int, error) {
	var n int
	err := t.q.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE warehouse_id=$1`, id).Scan(&n)
	return n, mapErr(err, "count products in "+id)
}

func (t *pgTx) LockOrder(ctx context.Context, id string) (Order, error) {
	return getOrder(ctx, t.q, "id=$1 FOR UPDATE", id, "lock order "+id)
}

func (t *pgTx) GetOrderByNumber(ctx context.Context, number string) (Order, error) {
	return getOrder(ctx, t.q, "order_number=$1", number, "get order "+number)
}

func (t *pgTx) InsertOrder(ctx context.Context, o Order) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO orders(id, order_number, customer_id, customer_name, warehouse_id, status, total_amount,
		                   notes, created_by, created_at, expires_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		o.ID, o.OrderNumber, o.CustomerID, o.CustomerName, o.WarehouseID, string(o.Status), o.TotalAmount,
		o.Notes, o.CreatedBy, o.CreatedAt, o.ExpiresAt, o.UpdatedAt)
	if err != nil {
		return mapErr(err, "insert order "+o.OrderNumber)
	}

	// insert items
	for i, it := range o.Items {
		if _, err := t.q.Exec(ctx, `
			INSERT INTO order_items(id, order_id, position, product_id, product_name, sku, unit_price, quantity, total_price)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			it.ID, o.ID, i, it.ProductID, it.ProductName, it.SKU, it.UnitPrice, it.Quantity, it.TotalPrice); err != nil {
			return mapErr(err, "insert order item")
		}
	}
	return nil
}

func (t *pgTx) UpdateOrderStatus(ctx context.Context, id string, s Status, at time.Time) error {
	ct, err := t.q.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`, id, string(s), at)
	if err != nil {
		return mapErr(err, "update order "+id)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("update order %s: %w", id, ErrNotFound)
	}
	return nil
}

func (t *pgTx) AppendTransaction(ctx context.Context, tr Transaction) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO transactions(id, type, product_id, product_name, sku, quantity, warehouse_id, to_warehouse_id,
		                         reference_number, counterparty, destination_type, notes, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		tr.ID, string(tr.Type), tr.ProductID, tr.ProductName, tr.SKU, tr.Quantity, tr.WarehouseID, tr.ToWarehouseID,
		tr.ReferenceNumber, tr.Counterparty, tr.DestinationType, tr.Notes, tr.CreatedBy, tr.CreatedAt)
	return mapErr(err, "append transaction")
}

func (t *pgTx) InsertUser(ctx context.Context, u User) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO users(id, name, username, email, password_hash, role, warehouse_id, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		u.ID, u.Name, u.Username, u.Email, u.PasswordHash, u.Role, u.WarehouseID, u.IsActive, u.CreatedAt, u.UpdatedAt)
	return mapErr(err, "insert user "+u.Email)
}
