package inventory

import (
	"errors"
	"testing"

	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prod(stock, reserved int) orders.Product {
	return orders.Product{ID: "p", Stock: stock, ReservedStock: reserved, AvailableStock: stock - reserved}
}

func triple(p orders.Product) [3]int { return [3]int{p.Stock, p.ReservedStock, p.AvailableStock} }

func TestLedgerOperations(t *testing.T) {
	tests := []struct {
		name    string
		start   orders.Product
		op      func(*orders.Product, int) error
		qty     int
		want    [3]int
		wantErr error
	}{
		{"reserve", prod(100, 0), Reserve, 30, [3]int{100, 30, 70}, nil},
		{"reserve all available", prod(100, 40), Reserve, 60, [3]int{100, 100, 0}, nil},
		{"reserve over available", prod(100, 0), Reserve, 150, [3]int{100, 0, 100}, orders.ErrInsufficientStock},
		{"release", prod(100, 30), Release, 30, [3]int{100, 0, 100}, nil},
		{"release more than reserved", prod(100, 10), Release, 11, [3]int{100, 10, 90}, orders.ErrInvalidState},
		{"ship out", prod(100, 30), ShipOut, 30, [3]int{70, 0, 70}, nil},
		{"ship unreserved", prod(100, 0), ShipOut, 1, [3]int{100, 0, 100}, orders.ErrInvalidState},
		{"receive", prod(10, 5), ReceiveIn, 15, [3]int{25, 5, 20}, nil},
		{"transfer out", prod(50, 20), TransferOut, 30, [3]int{20, 20, 0}, nil},
		{"transfer out reserved stock", prod(50, 20), TransferOut, 31, [3]int{50, 20, 30}, orders.ErrInsufficientStock},
		{"transfer in", prod(0, 0), TransferIn, 7, [3]int{7, 0, 7}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.start
			err := tt.op(&p, tt.qty)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, triple(p))
			assert.True(t, p.Consistent())
		})
	}
}

func TestLedgerRejectsNonPositiveQuantity(t *testing.T) {
	for _, op := range []func(*orders.Product, int) error{Reserve, Release, ShipOut, ReceiveIn, TransferOut, TransferIn} {
		for _, qty := range []int{0, -5} {
			p := prod(10, 5)
			err := op(&p, qty)
			var ve *orders.ValidationError
			require.True(t, errors.As(err, &ve), "qty %d: %v", qty, err)
			assert.Equal(t, "quantity", ve.Field)
			assert.Equal(t, [3]int{10, 5, 5}, triple(p))
		}
	}
}

func TestReserveShortageDetail(t *testing.T) {
	p := prod(100, 0)
	err := Reserve(&p, 150)
	var se *orders.StockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []orders.StockRejectedDetail{{ProductID: "p", Required: 150, Available: 100}}, se.Details)
}
