package main

import (
	"fmt"
	"io"
	"time"

	"github.com/ariefcatur/go-warehouse-orders/internal/client"
	"github.com/ariefcatur/go-warehouse-orders/internal/httpx"
	"github.com/ariefcatur/go-warehouse-orders/internal/inventory"
	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/spf13/cobra"
)

var (
	txQuery    client.TransactionQuery
	txType     string
	movement   inventory.Movement
	inboundIn  httpx.InboundReq
	outboundIn httpx.OutboundReq
)

var transactionsCmd = &cobra.Command{
	Use:     "transactions",
	Aliases: []string{"tx"},
	Short:   "Browse the transaction log and record stock movements",
}

var transactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := txQuery
		q.Type = orders.TransactionType(txType)
		pg, err := api.ListTransactions(cmd.Context(), q)
		if err != nil {
			return err
		}
		if err := table(cmd, pg.Items, "WHEN\tTYPE\tSKU\tQTY\tWAREHOUSE\tTO\tREFERENCE\tBY", func(w io.Writer) {
			for _, t := range pg.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
					t.CreatedAt.Local().Format(time.DateTime), t.Type, t.SKU, t.Quantity,
					t.WarehouseID, t.ToWarehouseID, t.ReferenceNumber, t.CreatedBy)
			}
		}); err != nil {
			return err
		}
		pageFooter(cmd, pg.Meta.Page, pg.Meta.TotalPages, pg.Meta.Total)
		return nil
	},
}

var transactionsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Record an inbound, outbound or transfer movement",
	RunE: func(cmd *cobra.Command, args []string) error {
		m := movement
		m.Type = orders.TransactionType(txType)
		t, err := api.CreateTransaction(cmd.Context(), m)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "recorded %s %s x%d\n", t.Type, t.SKU, t.Quantity)
		return nil
	},
}

var inboundCmd = &cobra.Command{
	Use:   "inbound",
	Short: "Receive goods from a supplier",
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := api.CreateInbound(cmd.Context(), inboundIn)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "received %d of %s from %s\n", rec.Quantity, rec.ProductSKU, rec.SupplierName)
		return nil
	},
}

var outboundCmd = &cobra.Command{
	Use:   "outbound",
	Short: "Ship goods out of a warehouse",
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := api.CreateOutbound(cmd.Context(), outboundIn)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "shipped %d of %s to %s (%s)\n", rec.Quantity, rec.ProductSKU, rec.DestinationName, rec.DestinationType)
		return nil
	},
}

func init() {
	lf := transactionsListCmd.Flags()
	lf.StringVarP(&txType, "type", "t", "", "inbound|outbound|transfer|checkout|release")
	lf.StringVarP(&txQuery.WarehouseID, "warehouse", "w", "", "warehouse id")
	lf.StringVar(&txQuery.DateFrom, "from", "", "from date (YYYY-MM-DD)")
	lf.StringVar(&txQuery.DateTo, "to", "", "to date, inclusive (YYYY-MM-DD)")
	lf.IntVar(&txQuery.Page, "page", 1, "page")
	lf.IntVar(&txQuery.Limit, "limit", 10, "page size")

	cf := transactionsCreateCmd.Flags()
	cf.StringVarP(&txType, "type", "t", "", "inbound|outbound|transfer")
	cf.StringVar(&movement.ProductID, "product", "", "product id")
	cf.IntVarP(&movement.Quantity, "qty", "q", 0, "quantity")
	cf.StringVarP(&movement.WarehouseID, "warehouse", "w", "", "warehouse id")
	cf.StringVar(&movement.ToWarehouseID, "to-warehouse", "", "destination warehouse (transfer)")
	cf.StringVar(&movement.ReferenceNumber, "reference", "", "reference number")
	cf.StringVar(&movement.Notes, "notes", "", "notes")
	_ = transactionsCreateCmd.MarkFlagRequired("type")

	inf := inboundCmd.Flags()
	inf.StringVar(&inboundIn.ProductID, "product", "", "product id")
	inf.IntVarP(&inboundIn.Quantity, "qty", "q", 0, "quantity")
	inf.StringVarP(&inboundIn.WarehouseID, "warehouse", "w", "", "warehouse id")
	inf.StringVar(&inboundIn.SupplierName, "supplier", "", "supplier name")
	inf.StringVar(&inboundIn.ReferenceNumber, "reference", "", "reference number")
	inf.StringVar(&inboundIn.Notes, "notes", "", "notes")

	outf := outboundCmd.Flags()
	outf.StringVar(&outboundIn.ProductID, "product", "", "product id")
	outf.IntVarP(&outboundIn.Quantity, "qty", "q", 0, "quantity")
	outf.StringVarP(&outboundIn.WarehouseID, "warehouse", "w", "", "warehouse id")
	outf.StringVar(&outboundIn.DestinationType, "destination-type", orders.DestinationCustomer, "customer|return|transfer|disposal")
	outf.StringVar(&outboundIn.DestinationName, "destination", "", "destination name")
	outf.StringVar(&outboundIn.ReferenceNumber, "reference", "", "reference number")
	outf.StringVar(&outboundIn.Notes, "notes", "", "notes")

	transactionsCmd.AddCommand(transactionsListCmd, transactionsCreateCmd, inboundCmd, outboundCmd)
	rootCmd.AddCommand(transactionsCmd)
}
