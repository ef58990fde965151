package catalog

import (
	"context"

	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const dashboardListSize = 5

type Stats struct {
	orders.Counts
	TransactionHistories []orders.Transaction `json:"transactionHistories"`
	LowStockProducts     []orders.Product     `json:"lowStockProducts"`
}

// Stats returns the dashboard summary: counters, the five newest transactions
// and up to five products at or below their minimum stock, lowest stock first.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s.Expire != nil {
		if _, err := s.Expire.ExpireDue(ctx); err != nil {
			s.log().Warn("expiring overdue orders before stats", zap.Error(err))
		}
	}
	var (
		st     Stats
		recent []orders.Transaction
		low    []orders.Product
	)
	// tiga query independen, jalan paralel
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		c, err := s.Store.Counts(gctx)
		st.Counts = c
		return err
	})
	eg.Go(func() error {
		var err error
		recent, _, err = s.Store.ListTransactions(gctx, orders.TransactionFilter{Page: orders.Page{Page: 1, Limit: dashboardListSize}})
		return err
	})
	eg.Go(func() error {
		var err error
		low, err = s.Store.LowStock(gctx, dashboardListSize)
		return err
	})
	if err := eg.Wait(); err != nil {
		return Stats{}, err
	}
	if recent == nil {
		recent = []orders.Transaction{}
	}
	if low == nil {
		low = []orders.Product{}
	}
	st.TransactionHistories, st.LowStockProducts = recent, low
	return st, nil
}
