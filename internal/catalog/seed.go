package catalog

import (
	"context"
	"fmt"
)

// SeedDemo fills an empty store with two warehouses and a handful of products.
// It does nothing when warehouses already exist.
func (s *Service) SeedDemo(ctx context.Context) error {
	existing, err := s.Store.ListWarehouses(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	active := true
	jkt, err := s.CreateWarehouse(ctx, WarehouseInput{
		Name: "Gudang Jakarta", Code: "JKT-01", Address: "Jl. Gatot Subroto 12, Jakarta",
		Manager: "Budi Santoso", IsActive: &active, Capacity: 10000,
	})
	if err != nil {
		return fmt.Errorf("seeding warehouse: %w", err)
	}
	sby, err := s.CreateWarehouse(ctx, WarehouseInput{
		Name: "Gudang Surabaya", Code: "SBY-01", Address: "Jl. Rungkut Industri 5, Surabaya",
		Manager: "Siti Rahma", IsActive: &active, Capacity: 6000,
	})
	if err != nil {
		return fmt.Errorf("seeding warehouse: %w", err)
	}

	qty := func(n int) *int { return &n }
	products := []ProductInput{
		{Name: "Laptop Pro 14", SKU: "LPT-001", Category: "electronics", Price: 15000000, Stock: qty(40), WarehouseID: jkt.ID, MinStock: 5},
		{Name: "Wireless Mouse", SKU: "MOU-002", Category: "electronics", Price: 150000, Stock: qty(200), WarehouseID: jkt.ID, MinStock: 20},
		{Name: "Office Chair", SKU: "CHR-003", Category: "furniture", Price: 1250000, Stock: qty(8), WarehouseID: jkt.ID, MinStock: 10},
		{Name: "Wireless Mouse", SKU: "MOU-002", Category: "electronics", Price: 150000, Stock: qty(60), WarehouseID: sby.ID, MinStock: 20},
		{Name: "Standing Desk", SKU: "DSK-004", Category: "furniture", Price: 3500000, Stock: qty(3), WarehouseID: sby.ID, MinStock: 5},
	}
	for _, in := range products {
		in.CreatedBy = "seed"
		if _, err := s.CreateProduct(ctx, in); err != nil {
			return fmt.Errorf("seeding product %s: %w", in.SKU, err)
		}
	}
	return nil
}
