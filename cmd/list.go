// =============================================================================
// Photo Sale Ledger - List Command
// =============================================================================
//
// COMMAND USAGE:
//   photosale list [--filter all|unpaid|validated|paid|to_retrieve] [--json]
//
// =============================================================================

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/photo-sale-ledger/internal/order"
	"github.com/ginjaninja78/photo-sale-ledger/internal/orderslist"
	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

var (
	listFilter string
	listJSON   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the orders of the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		orders, err := loadOrders()
		if err != nil {
			return err
		}
		if listJSON {
			return printJSON(cmd, orders)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "REFERENCE\tCUSTOMER\tCREATED\tPHOTOS\tTOTAL\tSTATUS\tEXPORTED")
		for _, data := range orders {
			exported := ""
			if data.Exported {
				exported = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
				data.Reference,
				data.Customer.FullName(),
				data.CreatedAt,
				data.TotalPhotos,
				record.FormatAmount(data.TotalPrice),
				data.Status,
				exported,
			)
		}
		return w.Flush()
	},
}

func init() {
	addFilterFlags(listCmd)
	rootCmd.AddCommand(listCmd)
}

// addFilterFlags registers the --filter and --json flags shared by the query
// commands.
func addFilterFlags(c *cobra.Command) {
	filterNames := make([]string, 0, len(orderslist.Filters))
	for _, filter := range orderslist.Filters {
		filterNames = append(filterNames, string(filter))
	}
	usage := "Order filter (" + strings.Join(filterNames, ", ") + ")"

	c.Flags().StringVar(&listFilter, "filter", string(orderslist.FilterAll), usage)
	c.Flags().BoolVar(&listJSON, "json", false, "Print JSON")
}

func loadOrders() ([]order.Data, error) {
	filter, err := orderslist.ParseFilter(listFilter)
	if err != nil {
		return nil, err
	}
	return orderslist.New(current.store).LoadOrdersData(filter)
}

func printJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
