package inventory

import (
	"fmt"

	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
)

// The ledger functions mutate one product's counters in place. Callers hold the
// product's row lock; on error the product is left untouched.

func checkQty(qty int) error {
	if qty <= 0 {
		return orders.Invalid("quantity", "must be greater than zero")
	}
	return nil
}

func settle(p *orders.Product) error {
	p.AvailableStock = p.Stock - p.ReservedStock
	if !p.Consistent() {
		return fmt.Errorf("product %s stock=%d reserved=%d: %w", p.ID, p.Stock, p.ReservedStock, orders.ErrInvalidState)
	}
	return nil
}

func shortage(p *orders.Product, qty int) error {
	return &orders.StockError{Details: []orders.StockRejectedDetail{{
		ProductID: p.ID, Required: qty, Available: p.Stock - p.ReservedStock,
	}}}
}

// Reserve holds qty units against a pending order.
func Reserve(p *orders.Product, qty int) error {
	if err := checkQty(qty); err != nil {
		return err
	}
	if qty > p.Stock-p.ReservedStock {
		return shortage(p, qty)
	}
	p.ReservedStock += qty
	return settle(p)
}

// Release returns a reservation to available stock.
func Release(p *orders.Product, qty int) error {
	if err := checkQty(qty); err != nil {
		return err
	}
	if qty > p.ReservedStock {
		return fmt.Errorf("release %d of product %s with %d reserved: %w", qty, p.ID, p.ReservedStock, orders.ErrInvalidState)
	}
	p.ReservedStock -= qty
	return settle(p)
}

// ShipOut turns a reservation into a physical decrement.
func ShipOut(p *orders.Product, qty int) error {
	if err := checkQty(qty); err != nil {
		return err
	}
	if qty > p.ReservedStock {
		return fmt.Errorf("ship %d of product %s with %d reserved: %w", qty, p.ID, p.ReservedStock, orders.ErrInvalidState)
	}
	p.ReservedStock -= qty
	p.Stock -= qty
	return settle(p)
}

func ReceiveIn(p *orders.Product, qty int) error {
	if err := checkQty(qty); err != nil {
		return err
	}
	p.Stock += qty
	return settle(p)
}

// TransferOut removes unreserved stock from the source product.
func TransferOut(p *orders.Product, qty int) error {
	if err := checkQty(qty); err != nil {
		return err
	}
	if qty > p.Stock-p.ReservedStock {
		return shortage(p, qty)
	}
	p.Stock -= qty
	return settle(p)
}

func TransferIn(p *orders.Product, qty int) error {
	return ReceiveIn(p, qty)
}
