package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateTransaction dispatches a posted transaction by type. Checkout and
// release entries only come from the order lifecycle.
func (s *Service) CreateTransaction(ctx context.Context, m Movement) (orders.Transaction, error) {
	switch m.Type {
	case orders.TxInbound:
		return s.ReceiveInbound(ctx, m)
	case orders.TxOutbound:
		return s.ShipOutbound(ctx, m)
	case orders.TxTransfer:
		return s.Transfer(ctx, m)
	case orders.TxCheckout, orders.TxRelease:
		return orders.Transaction{}, orders.Invalid("type", "checkout and release are recorded by the order lifecycle")
	}
	return orders.Transaction{}, orders.Invalid("type", fmt.Sprintf("unknown transaction type %q", m.Type))
}

func validateMovement(m Movement) error {
	if m.ProductID == "" {
		return orders.Invalid("product_id", "is required")
	}
	if m.Quantity <= 0 {
		return orders.Invalid("quantity", "must be greater than zero")
	}
	return nil
}

// lockOwned locks the product and checks it belongs to an active warehouse
// matching warehouseID when one is given.
func lockOwned(ctx context.Context, tx orders.Tx, productID, warehouseID string) (orders.Product, error) {
	p, err := tx.LockProduct(ctx, productID)
	if err != nil {
		return orders.Product{}, err
	}
	if warehouseID != "" && p.WarehouseID != warehouseID {
		return orders.Product{}, orders.Invalid("warehouse_id", fmt.Sprintf("product %s belongs to another warehouse", p.ID))
	}
	if err := requireActive(ctx, tx, p.WarehouseID); err != nil {
		return orders.Product{}, err
	}
	return p, nil
}

func (s *Service) ReceiveInbound(ctx context.Context, m Movement) (orders.Transaction, error) {
	if err := validateMovement(m); err != nil {
		return orders.Transaction{}, err
	}
	now := s.now()
	var mv moved
	err := s.Store.InTx(ctx, func(tx orders.Tx) error {
		p, err := lockOwned(ctx, tx, m.ProductID, m.WarehouseID)
		if err != nil {
			return err
		}
		if err := ReceiveIn(&p, m.Quantity); err != nil {
			return err
		}
		p.UpdatedAt = now
		if err := tx.UpdateProduct(ctx, p); err != nil {
			return err
		}
		entry := newEntry(orders.TxInbound, p, m.Quantity, now, m.CreatedBy)
		entry.ReferenceNumber = m.ReferenceNumber
		entry.Counterparty = m.Counterparty
		entry.Notes = m.Notes
		mv = moved{entry: entry, product: p}
		return tx.AppendTransaction(ctx, entry)
	})
	if err != nil {
		return orders.Transaction{}, err
	}
	s.logMove(mv)
	s.publishMoves(ctx, []moved{mv})
	return mv.entry, nil
}

// ShipOutbound removes unreserved stock in one step (reserve then ship out)
// and records a single outbound entry.
func (s *Service) ShipOutbound(ctx context.Context, m Movement) (orders.Transaction, error) {
	if err := validateMovement(m); err != nil {
		return orders.Transaction{}, err
	}
	if m.DestinationType == "" {
		m.DestinationType = orders.DestinationCustomer
	}
	if !orders.ValidDestination(m.DestinationType) {
		return orders.Transaction{}, orders.Invalid("destination_type", "must be one of customer, return, transfer, disposal")
	}
	now := s.now()
	var mv moved
	err := s.Store.InTx(ctx, func(tx orders.Tx) error {
		p, err := lockOwned(ctx, tx, m.ProductID, m.WarehouseID)
		if err != nil {
			return err
		}
		if err := Reserve(&p, m.Quantity); err != nil {
			return err
		}
		if err := ShipOut(&p, m.Quantity); err != nil {
			return err
		}
		p.UpdatedAt = now
		if err := tx.UpdateProduct(ctx, p); err != nil {
			return err
		}
		entry := newEntry(orders.TxOutbound, p, m.Quantity, now, m.CreatedBy)
		entry.ReferenceNumber = m.ReferenceNumber
		entry.Counterparty = m.Counterparty
		entry.DestinationType = m.DestinationType
		entry.Notes = m.Notes
		mv = moved{entry: entry, product: p}
		return tx.AppendTransaction(ctx, entry)
	})
	if err != nil {
		return orders.Transaction{}, err
	}
	s.logMove(mv)
	s.publishMoves(ctx, []moved{mv})
	return mv.entry, nil
}

// Transfer moves unreserved stock to the product with the same SKU in the
// destination warehouse, creating that product when it does not exist.
func (s *Service) Transfer(ctx context.Context, m Movement) (orders.Transaction, error) {
	if err := validateMovement(m); err != nil {
		return orders.Transaction{}, err
	}
	if m.WarehouseID == "" {
		return orders.Transaction{}, orders.Invalid("warehouse_id", "is required")
	}
	if m.ToWarehouseID == "" {
		return orders.Transaction{}, orders.Invalid("to_warehouse_id", "is required")
	}
	if m.ToWarehouseID == m.WarehouseID {
		return orders.Transaction{}, orders.Invalid("to_warehouse_id", "must differ from warehouse_id")
	}
	now := s.now()
	var trail []moved
	err := s.Store.InTx(ctx, func(tx orders.Tx) error {
		trail = nil
		if err := requireActive(ctx, tx, m.ToWarehouseID); err != nil {
			return err
		}

		var (
			src, dst orders.Product
			isNew    bool
			err      error
		)
		lockSrc := func() error {
			src, err = lockOwned(ctx, tx, m.ProductID, m.WarehouseID)
			return err
		}
		lockDst := func(sku string) error {
			dst, err = tx.FindProductBySKU(ctx, m.ToWarehouseID, sku)
			if errors.Is(err, orders.ErrNotFound) {
				isNew, err = true, nil
			}
			return err
		}
		// SKU dibaca tanpa lock, lalu row dikunci urut id warehouse terkecil
		// dulu; transfer dua arah tidak saling menunggu
		peek, err := tx.GetProduct(ctx, m.ProductID)
		if err != nil {
			return err
		}
		if lockOrder(m.WarehouseID, m.ToWarehouseID) {
			if err := lockSrc(); err != nil {
				return err
			}
			if err := lockDst(peek.SKU); err != nil {
				return err
			}
		} else {
			if err := lockDst(peek.SKU); err != nil {
				return err
			}
			if err := lockSrc(); err != nil {
				return err
			}
		}
		if !strings.EqualFold(src.SKU, peek.SKU) {
			return fmt.Errorf("product %s changed sku during transfer: %w", src.ID, orders.ErrConflict)
		}
		if isNew {
			dst = orders.Product{
				ID:          uuid.NewString(),
				Name:        src.Name,
				SKU:         src.SKU,
				Description: src.Description,
				Category:    src.Category,
				Price:       src.Price,
				WarehouseID: m.ToWarehouseID,
				MinStock:    src.MinStock,
				CreatedAt:   now,
			}
		}

		if err := TransferOut(&src, m.Quantity); err != nil {
			return err
		}
		if err := TransferIn(&dst, m.Quantity); err != nil {
			return err
		}
		src.UpdatedAt, dst.UpdatedAt = now, now
		if err := tx.UpdateProduct(ctx, src); err != nil {
			return err
		}
		if isNew {
			err = tx.InsertProduct(ctx, dst)
		} else {
			err = tx.UpdateProduct(ctx, dst)
		}
		if err != nil {
			return err
		}

		entry := newEntry(orders.TxTransfer, src, m.Quantity, now, m.CreatedBy)
		entry.ToWarehouseID = m.ToWarehouseID
		entry.ReferenceNumber = m.ReferenceNumber
		entry.Notes = m.Notes
		if err := tx.AppendTransaction(ctx, entry); err != nil {
			return err
		}
		trail = []moved{{entry: entry, product: src}, {entry: entry, product: dst}}
		return nil
	})
	if err != nil {
		return orders.Transaction{}, err
	}
	s.logMove(trail[0])
	s.publishMoves(ctx, trail)
	return trail[0].entry, nil
}

// lockOrder reports whether the source side is locked before the destination.
func lockOrder(from, to string) bool { return from < to }

func (s *Service) logMove(mv moved) {
	s.log().Info("stock moved",
		zap.String("type", string(mv.entry.Type)),
		zap.String("product_id", mv.entry.ProductID),
		zap.Int("quantity", mv.entry.Quantity),
		zap.String("reference", mv.entry.ReferenceNumber))
}
