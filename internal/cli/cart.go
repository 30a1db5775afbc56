package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/reelcraft/reelcraft/internal/cartsync"

	"github.com/spf13/cobra"
)

func newCartCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change the cart",
	}
	cmd.AddCommand(newCartShowCommand(rt))
	cmd.AddCommand(newCartAddCommand(rt))
	cmd.AddCommand(newCartUpdateCommand(rt))
	cmd.AddCommand(newCartRemoveCommand(rt))
	return cmd
}

func newCartShowCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Fetch the cart from the server (falls back to the local snapshot)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := rt.newEngine(ctx, nil)
			if err != nil {
				return err
			}
			refreshErr := engine.Refresh(ctx)
			engine.Close()
			if errors.Is(refreshErr, cartsync.ErrUnauthenticated) {
				return errSignInRequired
			}
			if refreshErr != nil {
				fmt.Fprintf(rt.out, "warning: server unavailable, showing local snapshot (%v)\n", refreshErr)
			}
			printCart(rt.out, engine.State())
			return nil
		},
	}
}

func newCartAddCommand(rt *runtime) *cobra.Command {
	var quantity int
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			productID := strings.TrimSpace(args[0])
			catalog := cartsync.NewCatalog()
			if rt.sessions.Active() {
				item, err := rt.api.Product(ctx, productID)
				if err != nil {
					rt.log.Warnw("cart_add_product_lookup_failed", "product_id", productID, "error", err)
				} else {
					catalog.Put(item.Product)
				}
			}
			engine, err := rt.newEngine(ctx, catalog)
			if err != nil {
				return err
			}
			return rt.settle(engine, func() (*cartsync.Mutation, error) {
				return engine.AddToCart(ctx, productID, quantity)
			})
		},
	}
	cmd.Flags().IntVarP(&quantity, "qty", "q", 1, "quantity to add")
	return cmd
}

func newCartUpdateCommand(rt *runtime) *cobra.Command {
	var by, set int
	cmd := &cobra.Command{
		Use:   "update <product-id>",
		Short: "Change the quantity of a product already in the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			productID := strings.TrimSpace(args[0])
			byChanged, setChanged := cmd.Flags().Changed("by"), cmd.Flags().Changed("set")
			if byChanged == setChanged {
				return errors.New("exactly one of --by or --set is required")
			}
			if setChanged && set < 0 {
				return errors.New("--set must not be negative")
			}
			engine, err := rt.loadedEngine(ctx)
			if err != nil {
				return err
			}
			return rt.settle(engine, func() (*cartsync.Mutation, error) {
				delta := by
				if setChanged {
					line, ok := lineByProduct(engine, productID)
					if !ok {
						return nil, fmt.Errorf("%w: product %s", cartsync.ErrLineNotFound, productID)
					}
					delta = set - line.Quantity
				}
				return engine.UpdateQuantity(ctx, productID, delta)
			})
		},
	}
	cmd.Flags().IntVar(&by, "by", 0, "relative change, may be negative")
	cmd.Flags().IntVar(&set, "set", 0, "absolute quantity, 0 removes the line")
	return cmd
}

func newCartRemoveCommand(rt *runtime) *cobra.Command {
	var productID string
	cmd := &cobra.Command{
		Use:   "remove [line-id]",
		Short: "Remove a line from the cart",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			productID = strings.TrimSpace(productID)
			if (len(args) == 1) == (productID != "") {
				return errors.New("pass either a line id or --product")
			}
			engine, err := rt.loadedEngine(ctx)
			if err != nil {
				return err
			}
			return rt.settle(engine, func() (*cartsync.Mutation, error) {
				lineID := ""
				if len(args) == 1 {
					lineID = strings.TrimSpace(args[0])
				} else {
					line, ok := lineByProduct(engine, productID)
					if !ok {
						return nil, fmt.Errorf("%w: product %s", cartsync.ErrLineNotFound, productID)
					}
					lineID = line.ID()
				}
				return engine.RemoveItem(ctx, lineID)
			})
		},
	}
	cmd.Flags().StringVar(&productID, "product", "", "remove the line holding this product")
	return cmd
}

// loadedEngine 先拉取一次服务端购物车，保证行 ID 与数量是最新的
func (rt *runtime) loadedEngine(ctx context.Context) (*cartsync.Engine, error) {
	if !rt.sessions.Active() {
		return nil, errSignInRequired
	}
	engine, err := rt.newEngine(ctx, nil)
	if err != nil {
		return nil, err
	}
	if err := engine.Refresh(ctx); err != nil && engine.State().Cart == nil {
		engine.Close()
		return nil, fmt.Errorf("load cart failed: %w", err)
	}
	return engine, nil
}

// settle 执行变更，等待所有后台请求结算后输出购物车
func (rt *runtime) settle(engine *cartsync.Engine, op func() (*cartsync.Mutation, error)) error {
	m, err := op()
	engine.Close()
	if err != nil {
		return friendlyError(err)
	}
	rt.log.Debugw("cart_mutation_settled", "mutation_id", m.ID, "kind", m.Kind.String(), "state", m.State().String())
	printCart(rt.out, engine.State())
	if m.State() == cartsync.StateRolledBack {
		return fmt.Errorf("%s rolled back: %w", m.Kind, m.Err())
	}
	return nil
}

func lineByProduct(engine *cartsync.Engine, productID string) (cartsync.Line, bool) {
	state := engine.State()
	if state.Cart == nil {
		return cartsync.Line{}, false
	}
	return state.Cart.LineByProduct(productID)
}
