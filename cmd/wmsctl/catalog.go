package main

import (
	"fmt"
	"io"

	"github.com/ariefcatur/go-warehouse-orders/internal/catalog"
	"github.com/ariefcatur/go-warehouse-orders/internal/client"
	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/spf13/cobra"
)

var (
	productQuery client.ProductQuery
	productIn    catalog.ProductInput
	productStock int
	onlyActive   bool
)

var productsCmd = &cobra.Command{
	Use:     "products",
	Aliases: []string{"product"},
	Short:   "List and manage products",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	RunE: func(cmd *cobra.Command, args []string) error {
		pg, err := api.ListProducts(cmd.Context(), productQuery)
		if err != nil {
			return err
		}
		if err := table(cmd, pg.Items, "ID\tSKU\tNAME\tWAREHOUSE\tSTOCK\tRESERVED\tAVAILABLE\tPRICE", func(w io.Writer) {
			for _, p := range pg.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
					p.ID, p.SKU, p.Name, firstNonEmpty(p.WarehouseName, p.WarehouseID),
					p.Stock, p.ReservedStock, p.AvailableStock, p.Price)
			}
		}); err != nil {
			return err
		}
		pageFooter(cmd, pg.Meta.Page, pg.Meta.TotalPages, pg.Meta.Total)
		return nil
	},
}

var productsGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := api.GetProduct(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

var productsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a product with optional initial stock",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := productIn
		if cmd.Flags().Changed("stock") {
			in.Stock = &productStock
		}
		p, err := api.CreateProduct(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created product %s (%s)\n", p.ID, p.SKU)
		return nil
	},
}

var productsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a product (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.DeleteProduct(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted product %s\n", args[0])
		return nil
	},
}

var warehousesCmd = &cobra.Command{
	Use:     "warehouses",
	Aliases: []string{"warehouse"},
	Short:   "List warehouses",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			ws  []orders.Warehouse
			err error
		)
		if onlyActive {
			ws, err = api.ActiveWarehouses(cmd.Context())
		} else {
			ws, err = api.ListWarehouses(cmd.Context())
		}
		if err != nil {
			return err
		}
		return table(cmd, ws, "ID\tCODE\tNAME\tACTIVE\tUTILIZATION", func(w io.Writer) {
			for _, wh := range ws {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d/%d\n", wh.ID, wh.Code, wh.Name, wh.IsActive, wh.CurrentUtilization, wh.Capacity)
			}
		})
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show dashboard statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := api.DashboardStats(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), st)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "products      %d\n", st.TotalProducts)
		fmt.Fprintf(out, "warehouses    %d (%d active)\n", st.TotalWarehouses, st.ActiveWarehouses)
		fmt.Fprintf(out, "orders        %d (%d pending)\n", st.TotalOrders, st.PendingOrders)
		fmt.Fprintf(out, "transactions  %d\n", st.TotalTransactions)
		if len(st.LowStockProducts) > 0 {
			fmt.Fprintln(out, "\nlow stock:")
			for _, p := range st.LowStockProducts {
				fmt.Fprintf(out, "  %s %s stock=%d min=%d\n", p.SKU, p.Name, p.Stock, p.MinStock)
			}
		}
		return nil
	},
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	lf := productsListCmd.Flags()
	lf.StringVarP(&productQuery.Search, "search", "s", "", "match name, sku or description")
	lf.StringVarP(&productQuery.WarehouseID, "warehouse", "w", "", "warehouse id")
	lf.StringVar(&productQuery.Category, "category", "", "category")
	lf.IntVar(&productQuery.Page, "page", 1, "page")
	lf.IntVar(&productQuery.Limit, "limit", 10, "page size")

	cf := productsCreateCmd.Flags()
	cf.StringVar(&productIn.Name, "name", "", "product name")
	cf.StringVar(&productIn.SKU, "sku", "", "stock keeping unit")
	cf.StringVar(&productIn.Description, "description", "", "description")
	cf.StringVar(&productIn.Category, "category", "", "category")
	cf.Int64Var(&productIn.Price, "price", 0, "unit price")
	cf.IntVar(&productStock, "stock", 0, "initial stock")
	cf.StringVarP(&productIn.WarehouseID, "warehouse", "w", "", "warehouse id")
	cf.IntVar(&productIn.MinStock, "min-stock", 0, "reorder threshold")
	_ = productsCreateCmd.MarkFlagRequired("name")
	_ = productsCreateCmd.MarkFlagRequired("sku")
	_ = productsCreateCmd.MarkFlagRequired("warehouse")

	productsCmd.AddCommand(productsListCmd, productsGetCmd, productsCreateCmd, productsDeleteCmd)

	warehousesCmd.Flags().BoolVar(&onlyActive, "active", false, "only active warehouses")

	rootCmd.AddCommand(productsCmd, warehousesCmd, dashboardCmd)
}
