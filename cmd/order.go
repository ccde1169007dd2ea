// =============================================================================
// Photo Sale Ledger - Order Commands
// =============================================================================
//
// COMMAND USAGE:
//   photosale order add [flags]
//   photosale order show REF [--json]
//
// EXAMPLES:
//   photosale order add --lastname Martin --firstname Alex \
//       --email alex@example.org --item Gala:IMG_001.jpg:2 --item USB:Cle:1
//   photosale order add --ref CMD001 --lastname Martin --item Gala:IMG_002.jpg
//   photosale order show CMD001 --json
//
// =============================================================================

package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/photo-sale-ledger/internal/order"
	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	orderRef       string
	orderLastname  string
	orderFirstname string
	orderEmail     string
	orderPhone     string
	orderItems     []string
	orderShowJSON  bool
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Create and inspect orders",
}

var orderAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Validate an order and store it in the ledger",
	Long: `Validate an order and store it in the ledger with status "validated".

Each --item is ACTIVITY:PHOTO[:QUANTITY]. The unit price comes from the
pricing table. When --ref names an existing order its rows are replaced.`,
	Args: cobra.NoArgs,
	RunE: runOrderAdd,
}

var orderShowCmd = &cobra.Command{
	Use:   "show REF",
	Short: "Show one order",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrderShow,
}

func init() {
	orderAddCmd.Flags().StringVar(&orderRef, "ref", "", "Order reference (generated when empty)")
	orderAddCmd.Flags().StringVar(&orderLastname, "lastname", "", "Customer last name")
	orderAddCmd.Flags().StringVar(&orderFirstname, "firstname", "", "Customer first name")
	orderAddCmd.Flags().StringVar(&orderEmail, "email", "", "Customer email")
	orderAddCmd.Flags().StringVar(&orderPhone, "phone", "", "Customer phone")
	orderAddCmd.Flags().StringArrayVar(&orderItems, "item", nil, "Line item ACTIVITY:PHOTO[:QUANTITY] (repeatable)")
	orderAddCmd.MarkFlagRequired("item")

	orderShowCmd.Flags().BoolVar(&orderShowJSON, "json", false, "Print the order as JSON")

	orderCmd.AddCommand(orderAddCmd, orderShowCmd)
	rootCmd.AddCommand(orderCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func runOrderAdd(cmd *cobra.Command, args []string) error {
	items := make([]order.ItemRequest, 0, len(orderItems))
	for _, value := range orderItems {
		item, err := parseItem(value)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	result := current.service().ValidateOrder(order.Submission{
		Reference: orderRef,
		Customer: order.Customer{
			Lastname:  orderLastname,
			Firstname: orderFirstname,
			Email:     orderEmail,
			Phone:     orderPhone,
		},
		Items: items,
	})
	if err := printResult(cmd, result.Result); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Reference: %s\n", result.Data.Reference)
	fmt.Fprintf(out, "Total:     %s EUR (%d photos)\n", record.FormatAmount(result.Data.TotalPrice), result.Data.TotalPhotos)
	if result.IsUpdate {
		fmt.Fprintln(out, "The previous version of the order was replaced.")
	}
	return nil
}

func runOrderShow(cmd *cobra.Command, args []string) error {
	data, err := current.service().GetOrderDataByReference(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if orderShowJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	}

	fmt.Fprintf(out, "Reference: %s\n", data.Reference)
	fmt.Fprintf(out, "Customer:  %s <%s> %s\n", data.Customer.FullName(), data.Customer.Email, data.Customer.Phone)
	fmt.Fprintf(out, "Created:   %s\n", data.CreatedAt)
	fmt.Fprintf(out, "Status:    %s\n", data.Status)
	if data.PaymentDate != "" {
		fmt.Fprintf(out, "Paid:      %s (%s)\n", data.PaymentDate, data.PaymentMode)
	}
	if data.RetrievalDate != "" {
		fmt.Fprintf(out, "Retrieved: %s\n", data.RetrievalDate)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACTIVITY\tPHOTO\tQTY\tAMOUNT")
	for _, item := range data.Items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", item.Activity, item.Photo, item.Quantity, record.FormatAmount(item.Subtotal))
	}
	fmt.Fprintf(w, "\t\t%d\t%s\n", data.TotalPhotos, record.FormatAmount(data.TotalPrice))
	return w.Flush()
}

// parseItem parses ACTIVITY:PHOTO[:QUANTITY]. The photo name may itself hold
// colons; only a numeric last part is read as the quantity.
func parseItem(value string) (order.ItemRequest, error) {
	activity, rest, ok := strings.Cut(value, ":")
	if !ok || strings.TrimSpace(activity) == "" || strings.TrimSpace(rest) == "" {
		return order.ItemRequest{}, fmt.Errorf("invalid item %q: expected ACTIVITY:PHOTO[:QUANTITY]", value)
	}

	item := order.ItemRequest{Activity: strings.TrimSpace(activity), Photo: strings.TrimSpace(rest), Quantity: 1}
	if i := strings.LastIndex(rest, ":"); i >= 0 {
		if qty, err := strconv.Atoi(strings.TrimSpace(rest[i+1:])); err == nil {
			item.Photo = strings.TrimSpace(rest[:i])
			item.Quantity = qty
		}
	}
	if item.Photo == "" {
		return order.ItemRequest{}, fmt.Errorf("invalid item %q: missing photo", value)
	}
	return item, nil
}
