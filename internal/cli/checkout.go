package cli

import (
	"errors"
	"fmt"

	"github.com/reelcraft/reelcraft/internal/cartsync/transport"

	"github.com/spf13/cobra"
)

func newCheckoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for everything in the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !rt.sessions.Active() {
				return errSignInRequired
			}
			engine, err := rt.newEngine(ctx, nil)
			if err != nil {
				return err
			}
			defer engine.Close()

			order, err := rt.api.Checkout(ctx)
			if err != nil {
				var apiErr *transport.APIError
				if errors.As(err, &apiErr) {
					return fmt.Errorf("checkout failed: %s", apiErr.Message)
				}
				return fmt.Errorf("checkout failed: %w", friendlyError(err))
			}
			rt.log.Infow("checkout_completed", "order_no", order.OrderNo)
			engine.ClearCartCache(ctx)
			engine.Close()
			printOrder(rt.out, order)
			return nil
		},
	}
}
