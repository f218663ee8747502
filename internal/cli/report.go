package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"restaurant-system/internal/common/logger"
	"restaurant-system/internal/common/retry"
	"restaurant-system/internal/connections/database"
	analytics "restaurant-system/internal/microservices/analytics/service"
	"restaurant-system/internal/microservices/order/repository"
	"restaurant-system/internal/store"
)

type reportOptions struct {
	Tab    string
	Format string
}

func NewReportCommand(root *RootOptions) *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the daily sales report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tab, err := analytics.ParseTab(opts.Tab)
			if err != nil {
				return err
			}
			if opts.Format != "text" && opts.Format != "json" {
				return fmt.Errorf("invalid format %q: must be text or json", opts.Format)
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			lg := logger.New("report")
			pool, err := database.Connect(cmd.Context(), cfg.Store, lg)
			if err != nil {
				return err
			}
			defer pool.Close()

			policy := retry.Policy{Attempts: cfg.Retry.Attempts, Base: cfg.Retry.BaseDelay, Log: lg}
			orders, err := repository.NewOrderRepository(store.NewClient(pool), policy).List(cmd.Context())
			if err != nil {
				return err
			}
			r := analytics.Daily(orders, tab, cfg.Restaurant.Location())
			return renderReport(cmd.OutOrStdout(), r, opts.Format)
		},
	}
	cmd.Flags().StringVar(&opts.Tab, "tab", "all", "all | cancelled")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	return cmd
}

func renderReport(w io.Writer, r analytics.Report, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tORDERS\tITEMS\tREVENUE")
	for _, d := range r.Days {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", d.Date, d.TotalOrders, d.ItemsSold, d.Revenue)
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%s\n", r.Summary.TotalOrders, r.Summary.ItemsSold, r.Summary.Revenue)
	return tw.Flush()
}
