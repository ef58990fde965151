package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

const (
	DefaultExpiryWindow = time.Hour
	defaultSweepLimit   = 500
	maxNumberAttempts   = 100
)

// Service is the reservation engine: every stock mutation and every order
// status change goes through it.
type Service struct {
	Store        orders.Store
	OrderEvents  Publisher // optional
	StockEvents  Publisher // optional
	Now          func() time.Time
	ExpiryWindow time.Duration
	SweepBatch   int // orders expired per query, default 500
	ServiceName  string
	Log          *zap.Logger
}

type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderInput struct {
	OrderNumber  string      `json:"order_number"`
	CustomerID   string      `json:"customer_id"`
	CustomerName string      `json:"customer_name"`
	WarehouseID  string      `json:"warehouse_id"`
	Items        []OrderLine `json:"items"`
	Notes        string      `json:"notes"`
	CreatedBy    string      `json:"-"`
}

// Movement is a direct stock operation (inbound, outbound or transfer).
type Movement struct {
	Type            orders.TransactionType `json:"type"`
	ProductID       string                 `json:"product_id"`
	Quantity        int                    `json:"quantity"`
	WarehouseID     string                 `json:"warehouse_id"`
	ToWarehouseID   string                 `json:"to_warehouse_id,omitempty"`
	ReferenceNumber string                 `json:"reference"`
	Counterparty    string                 `json:"counterparty,omitempty"`
	DestinationType string                 `json:"destination_type,omitempty"`
	Notes           string                 `json:"notes,omitempty"`
	CreatedBy       string                 `json:"created_by,omitempty"`
}

// moved pairs a log entry with the product state it produced.
type moved struct {
	entry   orders.Transaction
	product orders.Product
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

func (s *Service) expiry() time.Duration {
	if s.ExpiryWindow <= 0 {
		return DefaultExpiryWindow
	}
	return s.ExpiryWindow
}

// ---- order creation ----

func validateCreate(in CreateOrderInput) error {
	if strings.TrimSpace(in.CustomerName) == "" {
		return orders.Invalid("customer_name", "is required")
	}
	if in.WarehouseID == "" {
		return orders.Invalid("warehouse_id", "is required")
	}
	if len(in.Items) == 0 {
		return orders.Invalid("items", "at least one item is required")
	}
	seen := make(map[string]bool, len(in.Items))
	for i, it := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		if it.ProductID == "" {
			return orders.Invalid(field+".product_id", "is required")
		}
		if it.Quantity <= 0 {
			return orders.Invalid(field+".quantity", "must be greater than zero")
		}
		if seen[it.ProductID] {
			return orders.Invalid(field+".product_id", "duplicate product line")
		}
		seen[it.ProductID] = true
	}
	return nil
}

// CreateOrder reserves every line or nothing. When OrderNumber is supplied and
// already exists, the existing order is returned with existed=true.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (o orders.Order, existed bool, err error) {
	if err := validateCreate(in); err != nil {
		return orders.Order{}, false, err
	}
	now := s.now()
	var trail []moved

	err = s.Store.InTx(ctx, func(tx orders.Tx) error {
		trail = nil
		if in.OrderNumber != "" {
			prev, err := tx.GetOrderByNumber(ctx, in.OrderNumber)
			if err == nil {
				o, existed = prev, true
				return nil
			}
			if !errors.Is(err, orders.ErrNotFound) {
				return err
			}
		}

		if err := requireActive(ctx, tx, in.WarehouseID); err != nil {
			return err
		}

		// lock produk urut id supaya dua order tidak saling deadlock
		lines := slices.Clone(in.Items)
		slices.SortFunc(lines, func(a, b OrderLine) int { return strings.Compare(a.ProductID, b.ProductID) })
		locked := make(map[string]orders.Product, len(lines))
		var rejects []orders.StockRejectedDetail
		for _, ln := range lines {
			p, err := tx.LockProduct(ctx, ln.ProductID)
			if err != nil {
				return err
			}
			if p.WarehouseID != in.WarehouseID {
				return orders.Invalid("items", fmt.Sprintf("product %s is not stocked in warehouse %s", p.ID, in.WarehouseID))
			}
			if err := Reserve(&p, ln.Quantity); err != nil {
				var se *orders.StockError
				if errors.As(err, &se) {
					rejects = append(rejects, se.Details...)
					continue
				}
				return err
			}
			locked[p.ID] = p
		}
		if len(rejects) > 0 {
			return &orders.StockError{Details: rejects} // rollback via defer
		}

		number := in.OrderNumber
		if number == "" {
			generated, err := nextOrderNumber(ctx, tx, now)
			if err != nil {
				return err
			}
			number = generated
		}

		o = orders.Order{
			ID:           uuid.NewString(),
			OrderNumber:  number,
			CustomerID:   in.CustomerID,
			CustomerName: strings.TrimSpace(in.CustomerName),
			WarehouseID:  in.WarehouseID,
			Status:       orders.StatusPendingPayment,
			Notes:        in.Notes,
			CreatedBy:    in.CreatedBy,
			CreatedAt:    now,
			ExpiresAt:    now.Add(s.expiry()),
			UpdatedAt:    now,
		}
		for _, ln := range in.Items {
			p := locked[ln.ProductID]
			line := int64(ln.Quantity) * p.Price
			o.Items = append(o.Items, orders.OrderItem{
				ID:          uuid.NewString(),
				ProductID:   p.ID,
				ProductName: p.Name,
				SKU:         p.SKU,
				UnitPrice:   p.Price,
				Quantity:    ln.Quantity,
				TotalPrice:  line,
			})
			o.TotalAmount += line
		}

		for _, ln := range lines {
			p := locked[ln.ProductID]
			p.UpdatedAt = now
			if err := tx.UpdateProduct(ctx, p); err != nil {
				return err
			}
			entry := newEntry(orders.TxCheckout, p, ln.Quantity, now, in.CreatedBy)
			entry.ReferenceNumber = o.OrderNumber
			if err := tx.AppendTransaction(ctx, entry); err != nil {
				return err
			}
			trail = append(trail, moved{entry: entry, product: p})
		}
		return tx.InsertOrder(ctx, o)
	})
	if errors.Is(err, orders.ErrConflict) && in.OrderNumber != "" {
		// lost a race against a concurrent create with the same number
		prev, gerr := s.Store.GetOrderByNumber(ctx, in.OrderNumber)
		if gerr == nil {
			return prev, true, nil
		}
	}
	if err != nil {
		return orders.Order{}, false, err
	}
	if existed {
		return o, true, nil
	}

	s.log().Info("order created",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.Int("lines", len(o.Items)),
		zap.Int64("total_amount", o.TotalAmount))
	s.publishOrderCreated(ctx, o)
	s.publishMoves(ctx, trail)
	return o, false, nil
}

func nextOrderNumber(ctx context.Context, tx orders.Tx, now time.Time) (string, error) {
	for n := 1; n <= maxNumberAttempts; n++ {
		candidate := orders.OrderNumberAttempt(now, n)
		_, err := tx.GetOrderByNumber(ctx, candidate)
		if errors.Is(err, orders.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("order number for %s: %w", now.Format(time.RFC3339), orders.ErrConflict)
}

func requireActive(ctx context.Context, tx orders.Tx, warehouseID string) error {
	w, err := tx.GetWarehouse(ctx, warehouseID)
	if err != nil {
		return err
	}
	if !w.IsActive {
		return fmt.Errorf("warehouse %s: %w", w.Name, orders.ErrWarehouseInactive)
	}
	return nil
}

func newEntry(typ orders.TransactionType, p orders.Product, qty int, at time.Time, by string) orders.Transaction {
	if by == "" {
		by = "system"
	}
	return orders.Transaction{
		ID:          uuid.NewString(),
		Type:        typ,
		ProductID:   p.ID,
		ProductName: p.Name,
		SKU:         p.SKU,
		Quantity:    qty,
		WarehouseID: p.WarehouseID,
		CreatedBy:   by,
		CreatedAt:   at,
	}
}

// ---- lifecycle ----

// TransitionOrder moves an order along the status table. An overdue pending
// order is expired first, and that expiry is kept even when the requested
// transition is then rejected.
func (s *Service) TransitionOrder(ctx context.Context, id string, to orders.Status, actor string) (orders.Order, error) {
	if !to.Valid() {
		return orders.Order{}, orders.Invalid("status", fmt.Sprintf("unknown status %q", to))
	}
	now := s.now()
	var (
		o         orders.Order
		from      orders.Status
		trail     []moved
		expiredBy bool
		rejected  error
	)
	err := s.Store.InTx(ctx, func(tx orders.Tx) error {
		trail, expiredBy, rejected = nil, false, nil
		var err error
		if o, err = tx.LockOrder(ctx, id); err != nil {
			return err
		}
		from = o.Status

		if o.Overdue(now) {
			if trail, err = s.applyTransition(ctx, tx, &o, orders.StatusExpired, "system", now); err != nil {
				return err
			}
			expiredBy = true
			if to != orders.StatusExpired {
				rejected = &orders.TransitionError{From: orders.StatusExpired, To: to}
			}
			return nil
		}

		if to == orders.StatusExpired || !orders.CanTransition(o.Status, to) {
			return &orders.TransitionError{From: o.Status, To: to}
		}
		trail, err = s.applyTransition(ctx, tx, &o, to, actor, now)
		return err
	})
	if err != nil {
		return orders.Order{}, err
	}

	s.log().Info("order status changed",
		zap.String("order_id", o.ID),
		zap.String("from", string(from)),
		zap.String("to", string(o.Status)),
		zap.Bool("expired_on_read", expiredBy))
	s.publishStatusChanged(ctx, o, from)
	s.publishMoves(ctx, trail)
	if rejected != nil {
		return o, rejected
	}
	return o, nil
}

// applyTransition runs the ledger effect for every line and stores the new
// status. The caller holds the order lock.
func (s *Service) applyTransition(ctx context.Context, tx orders.Tx, o *orders.Order, to orders.Status, actor string, now time.Time) ([]moved, error) {
	effect := orders.TransitionEffect(to)
	var trail []moved
	if effect != orders.EffectNone {
		lines := slices.Clone(o.Items)
		slices.SortFunc(lines, func(a, b orders.OrderItem) int { return strings.Compare(a.ProductID, b.ProductID) })
		for _, it := range lines {
			p, err := tx.LockProduct(ctx, it.ProductID)
			if err != nil {
				return nil, err
			}
			var entry orders.Transaction
			switch effect {
			case orders.EffectRelease:
				err = Release(&p, it.Quantity)
				entry = newEntry(orders.TxRelease, p, it.Quantity, now, actor)
				entry.Notes = "order " + string(to)
			case orders.EffectShip:
				err = ShipOut(&p, it.Quantity)
				entry = newEntry(orders.TxOutbound, p, it.Quantity, now, actor)
				entry.DestinationType = orders.DestinationCustomer
				entry.Counterparty = o.CustomerName
			}
			if err != nil {
				return nil, fmt.Errorf("order %s line %s: %w", o.OrderNumber, it.ProductID, err)
			}
			entry.ReferenceNumber = o.OrderNumber
			p.UpdatedAt = now
			if err := tx.UpdateProduct(ctx, p); err != nil {
				return nil, err
			}
			if err := tx.AppendTransaction(ctx, entry); err != nil {
				return nil, err
			}
			trail = append(trail, moved{entry: entry, product: p})
		}
	}
	if err := tx.UpdateOrderStatus(ctx, o.ID, to, now); err != nil {
		return nil, err
	}
	o.Status = to
	o.UpdatedAt = now
	return trail, nil
}

// expireOrder releases an overdue order at most once; the status is checked
// again under the order lock.
func (s *Service) expireOrder(ctx context.Context, id string) (orders.Order, bool, error) {
	now := s.now()
	var (
		o     orders.Order
		trail []moved
		done  bool
	)
	err := s.Store.InTx(ctx, func(tx orders.Tx) error {
		trail, done = nil, false
		var err error
		if o, err = tx.LockOrder(ctx, id); err != nil {
			return err
		}
		if !o.Overdue(now) {
			return nil
		}
		trail, err = s.applyTransition(ctx, tx, &o, orders.StatusExpired, "system", now)
		done = err == nil
		return err
	})
	if err != nil {
		return orders.Order{}, false, err
	}
	if done {
		s.log().Info("order expired", zap.String("order_id", o.ID), zap.String("order_number", o.OrderNumber))
		s.publishStatusChanged(ctx, o, orders.StatusPendingPayment)
		s.publishMoves(ctx, trail)
	}
	return o, done, nil
}

// GetOrder applies lazy expiry before returning the order.
func (s *Service) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	o, err := s.Store.GetOrder(ctx, id)
	if err != nil {
		return orders.Order{}, err
	}
	if !o.Overdue(s.now()) {
		return o, nil
	}
	o, _, err = s.expireOrder(ctx, id)
	return o, err
}

// ListOrders expires every overdue order before listing so status filters see
// the settled state. An order on the page that is still overdue because the
// sweep failed is expired on its own; if that fails too the list fails.
func (s *Service) ListOrders(ctx context.Context, f orders.OrderFilter) ([]orders.Order, int, error) {
	if _, err := s.ExpireDue(ctx); err != nil {
		s.log().Warn("lazy expiry before list failed", zap.Error(err))
	}
	list, total, err := s.Store.ListOrders(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for i, o := range list {
		if !o.Overdue(now) {
			continue
		}
		if list[i], _, err = s.expireOrder(ctx, o.ID); err != nil {
			return nil, 0, fmt.Errorf("expire %s: %w", o.ID, err)
		}
	}
	return list, total, nil
}

func (s *Service) sweepBatch() int {
	if s.SweepBatch > 0 {
		return s.SweepBatch
	}
	return defaultSweepLimit
}

// ExpireDue expires every overdue pending order, one batch at a time, and
// returns how many changed. It stops at the first batch with a failure.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	var n int
	for {
		ids, err := s.Store.ListExpirable(ctx, s.now(), s.sweepBatch())
		if err != nil {
			return n, err
		}
		var errs []error
		for _, id := range ids {
			_, done, err := s.expireOrder(ctx, id)
			if err != nil {
				errs = append(errs, fmt.Errorf("expire %s: %w", id, err))
				continue
			}
			if done {
				n++
			}
		}
		if len(errs) > 0 {
			return n, errors.Join(errs...)
		}
		if len(ids) < s.sweepBatch() {
			return n, nil
		}
	}
}
