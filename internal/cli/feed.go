package cli

import (
	"github.com/spf13/cobra"
)

// feedOptions 商品流参数
type feedOptions struct {
	Page     int
	PageSize int
	Search   string
}

func newFeedCommand(rt *runtime) *cobra.Command {
	opts := &feedOptions{}
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "List products from the video feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := rt.api.Feed(cmd.Context(), opts.Page, opts.PageSize, opts.Search)
			if err != nil {
				return err
			}
			printFeed(rt.out, page)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 20, "items per page")
	cmd.Flags().StringVar(&opts.Search, "search", "", "filter by title")
	return cmd
}
