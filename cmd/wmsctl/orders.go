package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-warehouse-orders/internal/client"
	"github.com/ariefcatur/go-warehouse-orders/internal/inventory"
	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/spf13/cobra"
)

var (
	orderQuery  client.OrderQuery
	orderStatus string
	orderIn     inventory.CreateOrderInput
	orderItems  []string
	watchEvery  time.Duration
	watchTimes  int
)

var ordersCmd = &cobra.Command{
	Use:     "orders",
	Aliases: []string{"order"},
	Short:   "List, create and move orders through their lifecycle",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List orders (overdue pending orders are expired on read)",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := orderQuery
		q.Status = orders.Status(orderStatus)
		if watchEvery > 0 {
			return watchOrders(cmd, q)
		}
		pg, err := api.ListOrders(cmd.Context(), q)
		if err != nil {
			return err
		}
		return printOrders(cmd, pg)
	},
}

func printOrders(cmd *cobra.Command, pg client.Page[orders.Order]) error {
	if err := table(cmd, pg.Items, "ID\tNUMBER\tCUSTOMER\tSTATUS\tTOTAL\tEXPIRES", func(w io.Writer) {
		for _, o := range pg.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				o.ID, o.OrderNumber, o.CustomerName, o.Status, o.TotalAmount, o.ExpiresAt.Local().Format(time.DateTime))
		}
	}); err != nil {
		return err
	}
	pageFooter(cmd, pg.Meta.Page, pg.Meta.TotalPages, pg.Meta.Total)
	return nil
}

// watchOrders reloads the list every watchEvery. A reload still running when
// the next one starts is superseded and its result dropped.
func watchOrders(cmd *cobra.Command, q client.OrderQuery) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	type result struct {
		pg  client.Page[orders.Order]
		err error
	}
	var latest client.Latest
	results := make(chan result)
	reload := func() {
		go func() {
			pg, err := client.Fetch(ctx, &latest, func(ctx context.Context) (client.Page[orders.Order], error) {
				return api.ListOrders(ctx, q)
			})
			if errors.Is(err, client.ErrSuperseded) {
				return
			}
			select {
			case results <- result{pg, err}:
			case <-ctx.Done():
			}
		}()
	}

	tick := time.NewTicker(watchEvery)
	defer tick.Stop()
	reload()
	for shown := 0; watchTimes <= 0 || shown < watchTimes; {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			reload()
		case r := <-results:
			if r.err != nil {
				return r.err
			}
			if shown > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			if err := printOrders(cmd, r.pg); err != nil {
				return err
			}
			shown++
		}
	}
	return nil
}

var ordersGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one order with its lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := api.GetOrder(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), o)
	},
}

// parseItems reads PRODUCT_ID:QTY pairs.
func parseItems(raw []string) ([]inventory.OrderLine, error) {
	lines := make([]inventory.OrderLine, 0, len(raw))
	for _, it := range raw {
		id, qty, ok := strings.Cut(it, ":")
		if !ok || id == "" {
			return nil, fmt.Errorf("item %q: expected PRODUCT_ID:QTY", it)
		}
		n, err := strconv.Atoi(qty)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", it, err)
		}
		lines = append(lines, inventory.OrderLine{ProductID: id, Quantity: n})
	}
	return lines, nil
}

var ordersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an order and reserve its stock",
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := parseItems(orderItems)
		if err != nil {
			return err
		}
		in := orderIn
		in.Items = lines
		o, err := api.CreateOrder(cmd.Context(), in)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), o)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "order %s (%s) %s, total %d, pay before %s\n",
			o.OrderNumber, o.ID, o.Status, o.TotalAmount, o.ExpiresAt.Local().Format(time.DateTime))
		return nil
	},
}

var ordersStatusCmd = &cobra.Command{
	Use:   "status ID [NEW_STATUS]",
	Short: "Show an order's status, or change it",
	Long: "With one argument prints the current status. With two, requests the transition:\n" +
		"  pending_payment -> confirmed | cancelled\n" +
		"  confirmed -> processing | cancelled\n" +
		"  processing -> shipped\n" +
		"  shipped -> delivered",
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			e, err := api.OrderStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), e)
			}
			fmt.Fprintln(cmd.OutOrStdout(), e.Status)
			return nil
		}
		to := orders.Status(args[1])
		if !to.Valid() {
			return fmt.Errorf("unknown status %q", args[1])
		}
		o, err := api.UpdateOrderStatus(cmd.Context(), args[0], to)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "order %s is now %s\n", o.OrderNumber, o.Status)
		return nil
	},
}

func init() {
	lf := ordersListCmd.Flags()
	lf.StringVarP(&orderQuery.WarehouseID, "warehouse", "w", "", "warehouse id")
	lf.StringVar(&orderStatus, "status", "", "status filter")
	lf.IntVar(&orderQuery.Page, "page", 1, "page")
	lf.IntVar(&orderQuery.Limit, "limit", 10, "page size")
	lf.DurationVar(&watchEvery, "watch", 0, "reload the list at this interval until interrupted")
	lf.IntVar(&watchTimes, "times", 0, "with --watch, stop after this many reloads")

	cf := ordersCreateCmd.Flags()
	cf.StringVar(&orderIn.OrderNumber, "number", "", "order number (makes the request idempotent)")
	cf.StringVar(&orderIn.CustomerID, "customer-id", "", "customer id")
	cf.StringVar(&orderIn.CustomerName, "customer", "", "customer name")
	cf.StringVarP(&orderIn.WarehouseID, "warehouse", "w", "", "warehouse id")
	cf.StringVar(&orderIn.Notes, "notes", "", "notes")
	cf.StringArrayVarP(&orderItems, "item", "i", nil, "PRODUCT_ID:QTY, repeatable")
	_ = ordersCreateCmd.MarkFlagRequired("customer")
	_ = ordersCreateCmd.MarkFlagRequired("warehouse")
	_ = ordersCreateCmd.MarkFlagRequired("item")

	ordersCmd.AddCommand(ordersListCmd, ordersGetCmd, ordersCreateCmd, ordersStatusCmd)
	rootCmd.AddCommand(ordersCmd)
}
