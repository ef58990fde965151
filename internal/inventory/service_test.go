package inventory

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-warehouse-orders/internal/catalog"
	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder_ReservesEveryLine(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "LPT-1", 10000, 100)

	o := f.order(t, OrderLine{ProductID: p.ID, Quantity: 30})

	assert.Equal(t, orders.StatusPendingPayment, o.Status)
	assert.Equal(t, "ORD20250101100000", o.OrderNumber)
	assert.Equal(t, f.clk.Now().Add(time.Hour), o.ExpiresAt)
	assert.Equal(t, [3]int{100, 30, 70}, f.counters(t, p.ID))

	checkouts := f.txOfType(t, orders.TxCheckout)
	require.Len(t, checkouts, 1)
	assert.Equal(t, 30, checkouts[0].Quantity)
	assert.Equal(t, o.OrderNumber, checkouts[0].ReferenceNumber)
	assert.Equal(t, "staff@wms.local", checkouts[0].CreatedBy)

	assert.Equal(t, []string{orders.EventOrderCreated}, f.orderEvs.types())
	assert.Equal(t, []string{orders.EventStockReserved}, f.stockEvs.types())
	assert.Equal(t, o.ID, f.orderEvs.msgs[0].key)
	assert.Equal(t, p.ID, f.stockEvs.msgs[0].key)
}

func TestCreateOrder_TotalAmount(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", 10000, 10)
	b := f.product(t, "B", 5000, 10)

	o := f.order(t, OrderLine{ProductID: a.ID, Quantity: 2}, OrderLine{ProductID: b.ID, Quantity: 3})

	assert.EqualValues(t, 35000, o.TotalAmount)
	require.Len(t, o.Items, 2)
	assert.EqualValues(t, 20000, o.Items[0].TotalPrice)
	assert.EqualValues(t, 15000, o.Items[1].TotalPrice)
	assert.Equal(t, "A", o.Items[0].SKU)
}

func TestCreateOrder_InsufficientStockIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", 100, 100)
	b := f.product(t, "B", 100, 10)

	_, _, err := f.svc.CreateOrder(f.ctx, CreateOrderInput{
		CustomerName: "Andi", WarehouseID: f.wh.ID,
		Items: []OrderLine{{ProductID: a.ID, Quantity: 20}, {ProductID: b.ID, Quantity: 50}},
	})

	require.ErrorIs(t, err, orders.ErrInsufficientStock)
	var se *orders.StockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []orders.StockRejectedDetail{{ProductID: b.ID, Required: 50, Available: 10}}, se.Details)

	assert.Equal(t, [3]int{100, 0, 100}, f.counters(t, a.ID))
	assert.Equal(t, [3]int{10, 0, 10}, f.counters(t, b.ID))
	assert.Empty(t, f.txOfType(t, orders.TxCheckout))
	assert.Empty(t, f.orderEvs.types())
}

func TestCreateOrder_Validation(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", 100, 10)
	base := func() CreateOrderInput {
		return CreateOrderInput{CustomerName: "Andi", WarehouseID: f.wh.ID, Items: []OrderLine{{ProductID: p.ID, Quantity: 1}}}
	}

	tests := []struct {
		name  string
		edit  func(*CreateOrderInput)
		field string
	}{
		{"missing customer", func(in *CreateOrderInput) { in.CustomerName = "  " }, "customer_name"},
		{"missing warehouse", func(in *CreateOrderInput) { in.WarehouseID = "" }, "warehouse_id"},
		{"no items", func(in *CreateOrderInput) { in.Items = nil }, "items"},
		{"zero quantity", func(in *CreateOrderInput) { in.Items[0].Quantity = 0 }, "items[0].quantity"},
		{"duplicate line", func(in *CreateOrderInput) { in.Items = append(in.Items, OrderLine{ProductID: p.ID, Quantity: 2}) }, "items[1].product_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.edit(&in)
			_, _, err := f.svc.CreateOrder(f.ctx, in)
			var ve *orders.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
	assert.Equal(t, [3]int{10, 0, 10}, f.counters(t, p.ID))
}

func TestCreateOrder_RejectsInactiveWarehouse(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", 100, 10)
	inactive := false
	_, err := f.cat.UpdateWarehouse(f.ctx, f.wh.ID, catalog.WarehouseInput{Name: f.wh.Name, IsActive: &inactive})
	require.NoError(t, err)

	_, _, err = f.svc.CreateOrder(f.ctx, CreateOrderInput{
		CustomerName: "Andi", WarehouseID: f.wh.ID, Items: []OrderLine{{ProductID: p.ID, Quantity: 1}},
	})
	require.ErrorIs(t, err, orders.ErrWarehouseInactive)
	assert.Equal(t, [3]int{10, 0, 10}, f.counters(t, p.ID))
}

func TestCreateOrder_RejectsProductFromAnotherWarehouse(t *testing.T) {
	f := newFixture(t)
	other := f.warehouse(t, "Surabaya", true)
	p := f.productIn(t, other.ID, "A", 100, 10)

	_, _, err := f.svc.CreateOrder(f.ctx, CreateOrderInput{
		CustomerName: "Andi", WarehouseID: f.wh.ID, Items: []OrderLine{{ProductID: p.ID, Quantity: 1}},
	})
	var ve *orders.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, [3]int{10, 0, 10}, f.counters(t, p.ID))
}

func TestCreateOrder_IdempotentOnOrderNumber(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", 100, 10)
	in := CreateOrderInput{
		OrderNumber: "ORD-CLIENT-1", CustomerName: "Andi", WarehouseID: f.wh.ID,
		Items: []OrderLine{{ProductID: p.ID, Quantity: 4}},
	}

	first, existed, err := f.svc.CreateOrder(f.ctx, in)
	require.NoError(t, err)
	assert.False(t, existed)

	again, existed, err := f.svc.CreateOrder(f.ctx, in)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, first.ID, again.ID)

	assert.Equal(t, [3]int{10, 4, 6}, f.counters(t, p.ID))
	assert.Len(t, f.txOfType(t, orders.TxCheckout), 1)
	assert.Len(t, f.orderEvs.types(), 1)
}

func TestCreateOrder_GeneratedNumbersDoNotCollide(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", 100, 10)

	a := f.order(t, OrderLine{ProductID: p.ID, Quantity: 1})
	b := f.order(t, OrderLine{ProductID: p.ID, Quantity: 1})

	assert.Equal(t, "ORD20250101100000", a.OrderNumber)
	assert.Equal(t, "ORD20250101100000-2", b.OrderNumber)
}

func TestTransitionOrder_CancelReleases(t *testing.T) {
	for _, via := range [][]orders.Status{
		{orders.StatusCancelled},
		{orders.StatusConfirmed, orders.StatusCancelled},
	} {
		f := newFixture(t)
		p := f.product(t, "A", 100, 100)
		o := f.order(t, OrderLine{ProductID: p.ID, Quantity: 30})

		for _, st := range via {
			var err error
			o, err = f.svc.TransitionOrder(f.ctx, o.ID, st, "staff@wms.local")
			require.NoError(t, err)
		}
		assert.Equal(t, orders.StatusCancelled, o.Status)
		assert.Equal(t, [3]int{100, 0, 100}, f.counters(t, p.ID))

		releases := f.txOfType(t, orders.TxRelease)
		require.Len(t, releases, 1)
		assert.Equal(t, 30, releases[0].Quantity)
		assert.Equal(t, "order cancelled", releases[0].Notes)
	}
}

func TestTransitionOrder_ShipFlow(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", 100, 100)
	o := f.order(t, OrderLine{ProductID: p.ID, Quantity: 30})

	for _, st := range []orders.Status{orders.StatusConfirmed, orders.StatusProcessing} {
		var err error
		o, err = f.svc.TransitionOrder(f.ctx, o.ID, st, "staff")
		require.NoError(t, err)
		assert.Equal(t, [3]int{100, 30, 70}, f.counters(t, p.ID), "after %s", st)
	}

	o, err := f.svc.TransitionOrder(f.ctx, o.ID, orders.StatusShipped, "staff")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusShipped, o.Status)
	assert.Equal(t, [3]int{70, 0, 70}, f.counters(t, p.ID))

	out := f.txOfType(t, orders.TxOutbound)
	require.Len(t, out, 1)
	assert.Equal(t, orders.DestinationCustomer, out[0].DestinationType)
	assert.Equal(t, "Andi", out[0].Counterparty)
	assert.Equal(t, o.OrderNumber, out[0].ReferenceNumber)

	o, err = f.svc.TransitionOrder(f.ctx, o.ID, orders.StatusDelivered, "staff")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusDelivered, o.Status)
	assert.Equal(t, [3]int{70, 0, 70}, f.counters(t, p.ID))

	// delivered is terminal
	_, err = f.svc.TransitionOrder(f.ctx, o.ID, orders.StatusCancelled, "staff")
	require.ErrorIs(t, err, orders.ErrInvalidTransition)
	assert.Equal(t, [3]int{70, 0, 70}, f.counters(t, p.ID))
}

func TestTransitionOrder_RejectsMovesOutsideTable(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", 100, 100)
	o := f.order(t, OrderLine{ProductID: p.ID, Quantity: 10})

	for _, to := range []orders.Status{orders.StatusProcessing, orders.StatusShipped, orders.StatusDelivered, orders.StatusExpired, orders.StatusPendingPayment} {
		_, err := f.svc.TransitionOrder(f.ctx, o.ID, to, "staff")
		var te *orders.TransitionError
		require.True(t, errors.As(err, &te), "to %s: %v", to, err)
		assert.Equal(t, orders.StatusPendingPayment, te.From)
	}
	_, err := f.svc.TransitionOrder(f.ctx, o.ID, "paid", "staff")
	var ve *orders.ValidationError
	require.True(t, errors.As(err, &ve))

	got, err := f.svc.GetOrder(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPendingPayment, got.Status)
	assert.Equal(t, [3]int{100, 10, 90}, f.counters(t, p.ID))
}

func TestGetOrder_LazyExpiryIsIdempotent(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", 100, 100)
	o := f.order(t, OrderLine{ProductID: p.ID, Quantity: 30})

	f.clk.Advance(time.Hour)
	got, err := f.svc.GetOrder(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPendingPayment, got.Status, "deadline itself is not past")

	f.clk.Advance(time.Second)
	got, err = f.svc.GetOrder(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusExpired, got.Status)
	assert.Equal(t, [3]int{100, 0, 100}, f.counters(t, p.ID))

	for i := 0; i < 3; i++ {
		got, err = f.svc.GetOrder(f.ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, orders.StatusExpired, got.Status)
	}
	n, err := f.svc.ExpireDue(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, [3]int{100, 0, 100}, f.counters(t, p.ID))
	assert.Len(t, f.txOfType(t, orders.TxRelease), 1)
	assert.Equal(t, []string{orders.EventOrderCreated, orders.EventOrderStatusChanged}, f.orderEvs.types())
}

func TestTransitionOrder_OverdueKeepsExpiry(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", 100, 100)
	o := f.order(t, OrderLine{ProductID: p.ID, Quantity: 30})
	f.clk.Advance(2 * time.Hour)

	got, err := f.svc.TransitionOrder(f.ctx, o.ID, orders.StatusConfirmed, "staff")
	require.ErrorIs(t, err, orders.ErrInvalidTransition)
	assert.Equal(t, orders.StatusExpired, got.Status)

	stored, err := f.store.GetOrder(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusExpired, stored.Status)
	assert.Equal(t, [3]int{100, 0, 100}, f.counters(t, p.ID))
}

func TestTransitionOrder_ExpireAfterDeadline(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", 100, 100)
	o := f.order(t, OrderLine{ProductID: p.ID, Quantity: 30})
	f.clk.Advance(2 * time.Hour)

	got, err := f.svc.TransitionOrder(f.ctx, o.ID, orders.StatusExpired, "staff")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusExpired, got.Status)
	assert.Equal(t, [3]int{100, 0, 100}, f.counters(t, p.ID))
}

func TestExpireDue_SweepsOverdueOrders(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", 100, 100)
	a := f.order(t, OrderLine{ProductID: p.ID, Quantity: 10})
	f.clk.Advance(30 * time.Minute)
	b := f.order(t, OrderLine{ProductID: p.ID, Quantity: 20})
	confirmed := f.order(t, OrderLine{ProductID: p.ID, Quantity: 5})
	_, err := f.svc.TransitionOrder(f.ctx, confirmed.ID, orders.StatusConfirmed, "staff")
	require.NoError(t, err)

	f.clk.Advance(45 * time.Minute) // a is overdue, b is not
	n, err := f.svc.ExpireDue(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, [3]int{100, 25, 75}, f.counters(t, p.ID))

	f.clk.Advance(time.Hour)
	list, total, err := f.svc.ListOrders(f.ctx, orders.OrderFilter{Status: orders.StatusExpired})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
	assert.Equal(t, [3]int{100, 5, 95}, f.counters(t, p.ID))
}

func TestTransitionOrder_UnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.TransitionOrder(f.ctx, "missing", orders.StatusConfirmed, "staff")
	require.ErrorIs(t, err, orders.ErrNotFound)
}

func TestExpireDue_WorksThroughEveryBatch(t *testing.T) {
	f := newFixture(t)
	f.svc.SweepBatch = 2
	p := f.product(t, "A", 100, 10)
	for range 5 {
		f.order(t, OrderLine{ProductID: p.ID, Quantity: 1})
	}
	f.clk.Advance(time.Hour + time.Second)

	n, err := f.svc.ExpireDue(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, [3]int{10, 0, 10}, f.counters(t, p.ID))

	n, err = f.svc.ExpireDue(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListOrders_NeverShowsOverdueAsPending(t *testing.T) {
	f := newFixture(t)
	f.svc.SweepBatch = 2
	p := f.product(t, "A", 100, 10)
	for range 5 {
		f.order(t, OrderLine{ProductID: p.ID, Quantity: 1})
	}
	f.clk.Advance(time.Hour + time.Second)

	_, total, err := f.svc.ListOrders(f.ctx, orders.OrderFilter{Status: orders.StatusPendingPayment})
	require.NoError(t, err)
	assert.Zero(t, total)

	list, total, err := f.svc.ListOrders(f.ctx, orders.OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	for _, o := range list {
		assert.Equal(t, orders.StatusExpired, o.Status)
	}
	assert.Len(t, f.txOfType(t, orders.TxRelease), 5)
}

func TestStats_CountsOverdueOrdersAsExpired(t *testing.T) {
	f := newFixture(t)
	f.cat.Expire = f.svc
	p := f.product(t, "A", 100, 10)
	f.order(t, OrderLine{ProductID: p.ID, Quantity: 4})

	st, err := f.cat.Stats(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.PendingOrders)

	f.clk.Advance(time.Hour + time.Second)
	st, err = f.cat.Stats(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, st.PendingOrders)
	assert.Equal(t, 1, st.TotalOrders)
	assert.Equal(t, [3]int{10, 0, 10}, f.counters(t, p.ID))
}

func TestCreateOrder_ConcurrentOrdersNeverOverReserve(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "LPT-1", 10000, 100)

	const buyers = 50
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  []string
		rejected int
	)
	for i := range buyers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o, _, err := f.svc.CreateOrder(f.ctx, CreateOrderInput{
				CustomerName: fmt.Sprintf("Buyer %d", i), WarehouseID: f.wh.ID,
				Items: []OrderLine{{ProductID: p.ID, Quantity: 7}},
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, orders.ErrInsufficientStock)
				rejected++
				return
			}
			created = append(created, o.ID)
		}(i)
	}
	wg.Wait()

	require.Len(t, created, 14)
	assert.Equal(t, buyers-14, rejected)
	assert.Equal(t, [3]int{100, 98, 2}, f.counters(t, p.ID))
	assert.Len(t, f.txOfType(t, orders.TxCheckout), 14)

	// every reader races to expire the same overdue orders
	f.clk.Advance(time.Hour + time.Second)
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _, err := f.svc.ListOrders(f.ctx, orders.OrderFilter{Page: orders.Page{Limit: 100}})
				assert.NoError(t, err)
				return
			}
			for _, id := range created {
				o, err := f.svc.GetOrder(f.ctx, id)
				if assert.NoError(t, err) {
					assert.Equal(t, orders.StatusExpired, o.Status)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, [3]int{100, 0, 100}, f.counters(t, p.ID))
	assert.Len(t, f.txOfType(t, orders.TxRelease), 14)
}
