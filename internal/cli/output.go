package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/reelcraft/reelcraft/internal/cartsync"
	"github.com/reelcraft/reelcraft/internal/cartsync/transport"
)

const pendingLineLabel = "(pending)"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printCart(w io.Writer, state cartsync.State) {
	if state.Cart == nil {
		fmt.Fprintln(w, "Cart not loaded.")
		return
	}
	if state.Cart.Len() == 0 {
		fmt.Fprintln(w, "Your cart is empty.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "LINE\tPRODUCT\tTITLE\tARTISAN\tQTY\tPRICE\tSUBTOTAL")
	for _, line := range state.Cart.Lines {
		id := line.ID()
		if line.IsProvisional() {
			id = pendingLineLabel
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			id, line.ProductID(), line.Product.Title, line.Product.ArtisanName,
			line.Quantity, line.Product.Price.StringFixed(2), line.Subtotal().StringFixed(2))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "Items: %d  Total: %s\n", state.CartCount, state.Cart.Total().StringFixed(2))
}

func printFeed(w io.Writer, page transport.FeedPage) {
	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No products found.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tARTISAN\tPRICE\tVIDEO")
	for _, item := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			item.ID, item.Title, item.Artisan.User.Name, item.Price.StringFixed(2), item.VideoURL)
	}
	_ = tw.Flush()
	p := page.Pagination
	fmt.Fprintf(w, "Page %d/%d (%d products)\n", p.Page, p.TotalPage, p.Total)
}

func printOrder(w io.Writer, order transport.Order) {
	fmt.Fprintf(w, "Order %s placed (%s)\n", order.OrderNo, order.Status)
	tw := newTable(w)
	fmt.Fprintln(tw, "PRODUCT\tTITLE\tARTISAN\tQTY\tUNIT\tTOTAL")
	for _, item := range order.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			item.ProductID, item.Title, item.ArtisanName, item.Quantity,
			item.UnitPrice.StringFixed(2), item.TotalPrice.StringFixed(2))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "Total: %s\n", order.TotalAmount.StringFixed(2))
}
