package catalog

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service owns product and warehouse master data. Stock counters are only
// written here when a product is created; afterwards the reservation engine
// is their sole writer.
type Service struct {
	Store orders.Store
	// Expire settles overdue orders before Stats counts them. Optional.
	Expire Expirer
	Now    func() time.Time
	Log    *zap.Logger
}

// Expirer is implemented by the reservation engine.
type Expirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

type ProductInput struct {
	Name        string `json:"name"`
	SKU         string `json:"sku"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       int64  `json:"price"`
	Stock       *int   `json:"stock,omitempty"`
	WarehouseID string `json:"warehouseId"`
	MinStock    int    `json:"minStock"`
	CreatedBy   string `json:"-"`
}

type WarehouseInput struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Manager  string `json:"manager"`
	IsActive *bool  `json:"isActive,omitempty"`
	Capacity int    `json:"capacity"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (in *ProductInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	switch {
	case in.Name == "":
		return orders.Invalid("name", "is required")
	case in.SKU == "":
		return orders.Invalid("sku", "is required")
	case in.Price < 0:
		return orders.Invalid("price", "must not be negative")
	case in.MinStock < 0:
		return orders.Invalid("minStock", "must not be negative")
	case in.Stock != nil && *in.Stock < 0:
		return orders.Invalid("stock", "must not be negative")
	case in.WarehouseID == "":
		return orders.Invalid("warehouseId", "is required")
	}
	return nil
}

// ---- products ----

func (s *Service) GetProduct(ctx context.Context, id string) (orders.Product, error) {
	return s.Store.GetProduct(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, f orders.ProductFilter) ([]orders.Product, int, error) {
	return s.Store.ListProducts(ctx, f)
}

// CreateProduct stores a product; any initial stock is logged as one inbound
// entry referencing INIT-<sku>.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (orders.Product, error) {
	if err := in.normalize(); err != nil {
		return orders.Product{}, err
	}
	now := s.now()
	p := orders.Product{
		ID:          uuid.NewString(),
		Name:        in.Name,
		SKU:         in.SKU,
		Description: in.Description,
		Category:    in.Category,
		Price:       in.Price,
		WarehouseID: in.WarehouseID,
		MinStock:    in.MinStock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	p.AvailableStock = p.Stock

	err := s.Store.InTx(ctx, func(tx orders.Tx) error {
		w, err := tx.GetWarehouse(ctx, in.WarehouseID)
		if err != nil {
			return err
		}
		if !w.IsActive {
			return fmt.Errorf("warehouse %s: %w", w.Name, orders.ErrWarehouseInactive)
		}
		if err := tx.InsertProduct(ctx, p); err != nil {
			return err
		}
		if p.Stock == 0 {
			return nil
		}
		by := in.CreatedBy
		if by == "" {
			by = "system"
		}
		return tx.AppendTransaction(ctx, orders.Transaction{
			ID:              uuid.NewString(),
			Type:            orders.TxInbound,
			ProductID:       p.ID,
			ProductName:     p.Name,
			SKU:             p.SKU,
			Quantity:        p.Stock,
			WarehouseID:     p.WarehouseID,
			ReferenceNumber: "INIT-" + p.SKU,
			Notes:           "initial stock",
			CreatedBy:       by,
			CreatedAt:       now,
		})
	})
	if err != nil {
		return orders.Product{}, err
	}
	s.log().Info("product created", zap.String("product_id", p.ID), zap.String("sku", p.SKU), zap.Int("stock", p.Stock))
	return p, nil
}

// UpdateProduct edits descriptive fields, price and minStock. Stock and
// warehouse are rejected when they differ from the stored values.
func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (orders.Product, error) {
	var out orders.Product
	err := s.Store.InTx(ctx, func(tx orders.Tx) error {
		p, err := tx.LockProduct(ctx, id)
		if err != nil {
			return err
		}
		if in.WarehouseID == "" {
			in.WarehouseID = p.WarehouseID
		}
		if err := in.normalize(); err != nil {
			return err
		}
		if in.WarehouseID != p.WarehouseID {
			return orders.Invalid("warehouseId", "use a transfer to move stock between warehouses")
		}
		if in.Stock != nil && *in.Stock != p.Stock {
			return orders.Invalid("stock", "stock changes go through inbound, outbound or transfer")
		}
		p.Name = in.Name
		p.SKU = in.SKU
		p.Description = in.Description
		p.Category = in.Category
		p.Price = in.Price
		p.MinStock = in.MinStock
		p.UpdatedAt = s.now()
		out = p
		return tx.UpdateProduct(ctx, p)
	})
	if err != nil {
		return orders.Product{}, err
	}
	s.log().Info("product updated", zap.String("product_id", id))
	return out, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	err := s.Store.InTx(ctx, func(tx orders.Tx) error {
		p, err := tx.LockProduct(ctx, id)
		if err != nil {
			return err
		}
		if p.ReservedStock > 0 {
			return orders.Invalid("id", fmt.Sprintf("product has %d units reserved by open orders", p.ReservedStock))
		}
		return tx.DeleteProduct(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log().Info("product deleted", zap.String("product_id", id))
	return nil
}

// ---- warehouses ----

func (in *WarehouseInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return orders.Invalid("name", "is required")
	}
	if in.Capacity < 0 {
		return orders.Invalid("capacity", "must not be negative")
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return &orders.ValidationError{Field: "email", Message: "is not a valid address", Err: err}
		}
	}
	return nil
}

func (s *Service) GetWarehouse(ctx context.Context, id string) (orders.Warehouse, error) {
	return s.Store.GetWarehouse(ctx, id)
}

func (s *Service) ListWarehouses(ctx context.Context) ([]orders.Warehouse, error) {
	return s.Store.ListWarehouses(ctx)
}

func (s *Service) CreateWarehouse(ctx context.Context, in WarehouseInput) (orders.Warehouse, error) {
	if err := in.normalize(); err != nil {
		return orders.Warehouse{}, err
	}
	now := s.now()
	w := orders.Warehouse{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Code:      in.Code,
		Address:   in.Address,
		Phone:     in.Phone,
		Email:     in.Email,
		Manager:   in.Manager,
		IsActive:  in.IsActive == nil || *in.IsActive,
		Capacity:  in.Capacity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.InTx(ctx, func(tx orders.Tx) error { return tx.InsertWarehouse(ctx, w) }); err != nil {
		return orders.Warehouse{}, err
	}
	s.log().Info("warehouse created", zap.String("warehouse_id", w.ID), zap.String("name", w.Name))
	return w, nil
}

func (s *Service) UpdateWarehouse(ctx context.Context, id string, in WarehouseInput) (orders.Warehouse, error) {
	if err := in.normalize(); err != nil {
		return orders.Warehouse{}, err
	}
	var out orders.Warehouse
	err := s.Store.InTx(ctx, func(tx orders.Tx) error {
		w, err := tx.GetWarehouse(ctx, id)
		if err != nil {
			return err
		}
		w.Name = in.Name
		w.Code = in.Code
		w.Address = in.Address
		w.Phone = in.Phone
		w.Email = in.Email
		w.Manager = in.Manager
		if in.IsActive != nil {
			w.IsActive = *in.IsActive
		}
		w.Capacity = in.Capacity
		w.UpdatedAt = s.now()
		out = w
		return tx.UpdateWarehouse(ctx, w)
	})
	if err != nil {
		return orders.Warehouse{}, err
	}
	s.log().Info("warehouse updated", zap.String("warehouse_id", id), zap.Bool("active", out.IsActive))
	return out, nil
}

func (s *Service) DeleteWarehouse(ctx context.Context, id string) error {
	err := s.Store.InTx(ctx, func(tx orders.Tx) error {
		n, err := tx.CountProductsInWarehouse(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("warehouse still holds %d products: %w", n, orders.ErrConflict)
		}
		return tx.DeleteWarehouse(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log().Info("warehouse deleted", zap.String("warehouse_id", id))
	return nil
}
