package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *Service {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	return &Service{Store: orders.NewMemoryStore(), Now: func() time.Time { return now }}
}

func intp(n int) *int { return &n }

func mustWarehouse(t *testing.T, s *Service, name string) orders.Warehouse {
	t.Helper()
	w, err := s.CreateWarehouse(context.Background(), WarehouseInput{Name: name, Capacity: 100})
	require.NoError(t, err)
	return w
}

func TestCreateProduct_LogsInitialStock(t *testing.T) {
	s := newService()
	ctx := context.Background()
	w := mustWarehouse(t, s, "Jakarta")

	p, err := s.CreateProduct(ctx, ProductInput{
		Name: " Laptop ", SKU: "LPT-1", Price: 15000, Stock: intp(12), WarehouseID: w.ID, MinStock: 3, CreatedBy: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, "Laptop", p.Name)
	assert.Equal(t, 12, p.AvailableStock)

	log, total, err := s.Store.ListTransactions(ctx, orders.TransactionFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, orders.TxInbound, log[0].Type)
	assert.Equal(t, "INIT-LPT-1", log[0].ReferenceNumber)
	assert.Equal(t, 12, log[0].Quantity)
	assert.Equal(t, "admin", log[0].CreatedBy)

	// no stock, no entry
	_, err = s.CreateProduct(ctx, ProductInput{Name: "Mouse", SKU: "MSE-1", WarehouseID: w.ID})
	require.NoError(t, err)
	_, total, err = s.Store.ListTransactions(ctx, orders.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestCreateProduct_Rejects(t *testing.T) {
	s := newService()
	ctx := context.Background()
	w := mustWarehouse(t, s, "Jakarta")
	closed := false
	inactive, err := s.CreateWarehouse(ctx, WarehouseInput{Name: "Lama", IsActive: &closed})
	require.NoError(t, err)
	_, err = s.CreateProduct(ctx, ProductInput{Name: "Laptop", SKU: "LPT-1", WarehouseID: w.ID})
	require.NoError(t, err)

	tests := []struct {
		name  string
		in    ProductInput
		field string
		is    error
	}{
		{"missing name", ProductInput{SKU: "X", WarehouseID: w.ID}, "name", nil},
		{"missing sku", ProductInput{Name: "X", WarehouseID: w.ID}, "sku", nil},
		{"negative price", ProductInput{Name: "X", SKU: "X", Price: -1, WarehouseID: w.ID}, "price", nil},
		{"negative stock", ProductInput{Name: "X", SKU: "X", Stock: intp(-2), WarehouseID: w.ID}, "stock", nil},
		{"missing warehouse", ProductInput{Name: "X", SKU: "X"}, "warehouseId", nil},
		{"unknown warehouse", ProductInput{Name: "X", SKU: "X", WarehouseID: "nope"}, "", orders.ErrNotFound},
		{"inactive warehouse", ProductInput{Name: "X", SKU: "X", WarehouseID: inactive.ID}, "", orders.ErrWarehouseInactive},
		{"duplicate sku", ProductInput{Name: "Laptop 2", SKU: "lpt-1", WarehouseID: w.ID}, "", orders.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateProduct(ctx, tt.in)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
				return
			}
			var ve *orders.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestUpdateProduct(t *testing.T) {
	s := newService()
	ctx := context.Background()
	w := mustWarehouse(t, s, "Jakarta")
	other := mustWarehouse(t, s, "Bandung")
	p, err := s.CreateProduct(ctx, ProductInput{Name: "Laptop", SKU: "LPT-1", Price: 100, Stock: intp(5), WarehouseID: w.ID})
	require.NoError(t, err)

	got, err := s.UpdateProduct(ctx, p.ID, ProductInput{Name: "Laptop Pro", SKU: "LPT-1", Price: 150, Stock: intp(5), MinStock: 2})
	require.NoError(t, err)
	assert.Equal(t, "Laptop Pro", got.Name)
	assert.EqualValues(t, 150, got.Price)
	assert.Equal(t, 5, got.Stock)

	_, err = s.UpdateProduct(ctx, p.ID, ProductInput{Name: "Laptop", SKU: "LPT-1", Stock: intp(50)})
	var ve *orders.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "stock", ve.Field)

	_, err = s.UpdateProduct(ctx, p.ID, ProductInput{Name: "Laptop", SKU: "LPT-1", WarehouseID: other.ID})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "warehouseId", ve.Field)

	_, err = s.UpdateProduct(ctx, "missing", ProductInput{Name: "Laptop", SKU: "LPT-1"})
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

func TestDeleteProduct_RefusesReservedStock(t *testing.T) {
	s := newService()
	ctx := context.Background()
	w := mustWarehouse(t, s, "Jakarta")
	p, err := s.CreateProduct(ctx, ProductInput{Name: "Laptop", SKU: "LPT-1", Stock: intp(5), WarehouseID: w.ID})
	require.NoError(t, err)

	require.NoError(t, s.Store.InTx(ctx, func(tx orders.Tx) error {
		locked, err := tx.LockProduct(ctx, p.ID)
		if err != nil {
			return err
		}
		locked.ReservedStock, locked.AvailableStock = 2, 3
		return tx.UpdateProduct(ctx, locked)
	}))

	err = s.DeleteProduct(ctx, p.ID)
	var ve *orders.ValidationError
	require.True(t, errors.As(err, &ve))
	_, err = s.GetProduct(ctx, p.ID)
	require.NoError(t, err)

	q, err := s.CreateProduct(ctx, ProductInput{Name: "Mouse", SKU: "MSE-1", Stock: intp(5), WarehouseID: w.ID})
	require.NoError(t, err)
	require.NoError(t, s.DeleteProduct(ctx, q.ID))
	_, err = s.GetProduct(ctx, q.ID)
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

func TestWarehouses(t *testing.T) {
	s := newService()
	ctx := context.Background()

	w, err := s.CreateWarehouse(ctx, WarehouseInput{Name: "Jakarta", Email: "jkt@wms.local", Capacity: 500})
	require.NoError(t, err)
	assert.True(t, w.IsActive, "new warehouses are active unless stated otherwise")

	_, err = s.CreateWarehouse(ctx, WarehouseInput{Name: "Bad", Email: "not-an-email"})
	var ve *orders.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "email", ve.Field)

	_, err = s.CreateWarehouse(ctx, WarehouseInput{Name: "Neg", Capacity: -1})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "capacity", ve.Field)

	off := false
	w, err = s.UpdateWarehouse(ctx, w.ID, WarehouseInput{Name: "Jakarta Utara", IsActive: &off, Capacity: 500})
	require.NoError(t, err)
	assert.False(t, w.IsActive)
	assert.Equal(t, "Jakarta Utara", w.Name)

	_, err = s.UpdateWarehouse(ctx, w.ID, WarehouseInput{})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "name", ve.Field)
}

func TestDeleteWarehouse_ConflictWhileStocked(t *testing.T) {
	s := newService()
	ctx := context.Background()
	w := mustWarehouse(t, s, "Jakarta")
	p, err := s.CreateProduct(ctx, ProductInput{Name: "Laptop", SKU: "LPT-1", WarehouseID: w.ID})
	require.NoError(t, err)

	require.ErrorIs(t, s.DeleteWarehouse(ctx, w.ID), orders.ErrConflict)

	require.NoError(t, s.DeleteProduct(ctx, p.ID))
	require.NoError(t, s.DeleteWarehouse(ctx, w.ID))
	_, err = s.GetWarehouse(ctx, w.ID)
	assert.ErrorIs(t, err, orders.ErrNotFound)
	assert.ErrorIs(t, s.DeleteWarehouse(ctx, w.ID), orders.ErrNotFound)
}

func TestSeedDemoAndStats(t *testing.T) {
	s := newService()
	ctx := context.Background()

	empty, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty.TransactionHistories)
	assert.NotNil(t, empty.LowStockProducts)
	assert.Zero(t, empty.TotalProducts)

	require.NoError(t, s.SeedDemo(ctx))
	require.NoError(t, s.SeedDemo(ctx), "seeding twice is a no-op")

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, st.TotalProducts)
	assert.Equal(t, 2, st.TotalWarehouses)
	assert.Equal(t, 2, st.ActiveWarehouses)
	assert.Equal(t, 5, st.TotalTransactions)
	assert.Len(t, st.TransactionHistories, 5)

	require.Len(t, st.LowStockProducts, 2)
	assert.Equal(t, "DSK-004", st.LowStockProducts[0].SKU)
	assert.Equal(t, "CHR-003", st.LowStockProducts[1].SKU)
}
