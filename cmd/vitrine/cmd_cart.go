package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"vitrine/internal/cart"
	"vitrine/internal/money"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errActionFailed is returned after the failure has been shown to the user.
var errActionFailed = errors.New("cart action failed")

// addCmd adds a product to the cart
var addCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Add a product to the cart",
	Long: `Adds a product to the cart and shows the cart contents.

Options are given as name=value, e.g. --option Color=Black --option Size=M.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

// updateCmd changes a line's quantity
var updateCmd = &cobra.Command{
	Use:   "update <item-id> <quantity>",
	Short: "Change the quantity of a cart item",
	Args:  cobra.ExactArgs(2),
	RunE:  runUpdate,
}

// removeCmd removes a line
var removeCmd = &cobra.Command{
	Use:   "remove <item-id>",
	Short: "Remove an item from the cart",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

// couponCmd applies a discount code
var couponCmd = &cobra.Command{
	Use:   "coupon <code>",
	Short: "Apply a coupon code",
	Args:  cobra.ExactArgs(1),
	RunE:  runCoupon,
}

// parseOptions turns name=value flags into an options map.
func parseOptions(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	opts := make(map[string]string, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid option %q: want name=value", kv)
		}
		opts[name] = strings.TrimSpace(value)
	}
	return opts, nil
}

// withController runs fn against a controller printing to cmd's output.
func withController(cmd *cobra.Command, fn func(ctx context.Context, a *app, ctrl *cart.Controller, view *textView) error) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	view := newTextView(cmd.OutOrStdout(), a.styles())
	ctrl := a.controller(view)

	ctx, cancel := commandContext()
	defer cancel()
	return fn(ctx, a, ctrl, view)
}

func runAdd(cmd *cobra.Command, args []string) error {
	qty, _ := cmd.Flags().GetInt("qty")
	rawOpts, _ := cmd.Flags().GetStringArray("option")
	opts, err := parseOptions(rawOpts)
	if err != nil {
		return err
	}
	if qty < 1 {
		return fmt.Errorf("quantity must be at least 1, got %d", qty)
	}

	logger.Info("Adding to cart", zap.String("product", args[0]), zap.Int("qty", qty))
	return withController(cmd, func(ctx context.Context, a *app, ctrl *cart.Controller, view *textView) error {
		if !ctrl.AddItem(ctx, args[0], qty, opts) {
			return errActionFailed
		}
		printCart(cmd.OutOrStdout(), a, ctrl, view)
		return nil
	})
}

func runUpdate(cmd *cobra.Command, args []string) error {
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity %q", args[1])
	}
	if qty < 1 {
		return fmt.Errorf("quantity must be at least 1, got %d (use remove to delete the item)", qty)
	}

	logger.Info("Updating cart item", zap.String("item", args[0]), zap.Int("qty", qty))
	return withController(cmd, func(ctx context.Context, a *app, ctrl *cart.Controller, view *textView) error {
		if !ctrl.UpdateItem(ctx, args[0], qty) {
			return errActionFailed
		}
		printCart(cmd.OutOrStdout(), a, ctrl, view)
		return nil
	})
}

func runRemove(cmd *cobra.Command, args []string) error {
	logger.Info("Removing cart item", zap.String("item", args[0]))
	return withController(cmd, func(ctx context.Context, a *app, ctrl *cart.Controller, view *textView) error {
		if !ctrl.RemoveItem(ctx, args[0]) {
			return errActionFailed
		}
		printCart(cmd.OutOrStdout(), a, ctrl, view)
		return nil
	})
}

func runCoupon(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(args[0]) == "" {
		return errors.New("coupon code is empty")
	}

	logger.Info("Applying coupon")
	return withController(cmd, func(ctx context.Context, a *app, ctrl *cart.Controller, view *textView) error {
		if !ctrl.ApplyCoupon(ctx, args[0]) {
			return errActionFailed
		}
		if view.Reloaded() {
			printSummary(ctx, cmd.OutOrStdout(), a, view)
		}
		return nil
	})
}

// printCart shows the counter and, when the drawer would be open, its lines.
func printCart(out io.Writer, a *app, ctrl *cart.Controller, view *textView) {
	s, cur := view.styles, a.cfg.Storefront.Currency
	fmt.Fprintln(out, s.Badge.Render(fmt.Sprintf("Cart %d", ctrl.Count())))

	view.mu.Lock()
	open := view.open
	view.mu.Unlock()
	if !open {
		return
	}
	snap, ok := ctrl.LastSnapshot()
	if !ok {
		return
	}
	items, err := snap.DecodeItems()
	if err != nil {
		logger.Debug("cart items partially decoded", zap.Error(err))
	}
	for _, it := range items {
		name := it.Product.Name
		if name == "" {
			name = "Item " + string(it.ID)
		}
		fmt.Fprintf(out, "  %s  x%d  %s\n", name, it.Quantity, money.Format(it.LineTotal(), cur))
	}
	if total := snap.Totals().Total; !total.IsZero() {
		fmt.Fprintln(out, s.Bold.Render("Total  "+money.Format(total, cur)))
	}
}

// printSummary re-reads the cart page, the one-shot form of a page reload.
// It uses the command's session so the same cart is read.
func printSummary(ctx context.Context, out io.Writer, a *app, view *textView) {
	sum, err := a.session.FetchSummary(ctx, a.cfg.Storefront.CartPath)
	if err != nil {
		logger.Debug("cart summary unavailable", zap.Error(err))
		return
	}
	s, cur := view.styles, a.cfg.Storefront.Currency
	if sum.HasCount {
		fmt.Fprintln(out, s.Badge.Render(fmt.Sprintf("Cart %d", sum.Count)))
	}
	if d := sum.Discount.Abs(); d.IsPositive() {
		fmt.Fprintln(out, s.Muted.Render("Discount ")+money.Format(d.Neg(), cur))
	}
	fmt.Fprintln(out, s.Bold.Render("Total  "+money.Format(sum.Total, cur)))
}
