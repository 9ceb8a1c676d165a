package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MarcGrol/storefront/lib/mylog"
	"github.com/MarcGrol/storefront/services/users"
)

// withApp runs fn with a fully wired app and closes it afterwards.
func withApp(loadConfig configLoader, fn func(c context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c := context.Background()
	a, err := newApp(c, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	return fn(c, a)
}

func newProductsCmd(loadConfig configLoader) *cobra.Command {
	productsCmd := &cobra.Command{
		Use:   "products",
		Short: "Inspect the product catalog",
	}

	productsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Fetch and list all products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(loadConfig, func(c context.Context, a *app) error {
				err := a.catalog.Refresh(c)
				if err != nil {
					return err
				}
				for _, p := range a.catalog.Products() {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%d in stock\n", p.ID, p.Title, p.Price.Format(), p.Stock)
				}
				return nil
			})
		},
	})

	productsCmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Fetch the products and report the outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(loadConfig, func(c context.Context, a *app) error {
				err := a.catalog.Refresh(c)
				status := a.catalog.Status()
				if err != nil {
					return fmt.Errorf("refresh %s: %s", status.Status, status.ErrorMessage)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "refresh %s: %d products\n", status.Status, status.ProductCount)
				return nil
			})
		},
	})

	return productsCmd
}

func newCartCmd(loadConfig configLoader) *cobra.Command {
	cartCmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and modify the shopping cart",
	}

	cartCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the cart contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(loadConfig, func(c context.Context, a *app) error {
				refreshForCart(c, a)
				printCart(cmd, a)
				return nil
			})
		},
	})

	cartCmd.AddCommand(&cobra.Command{
		Use:   "add <productID> [qty]",
		Short: "Add a product to the cart",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseArg("productID", args[0])
			if err != nil {
				return err
			}
			qty := 1
			if len(args) > 1 {
				qty, err = parseArg("qty", args[1])
				if err != nil {
					return err
				}
			}
			if qty < 1 {
				return fmt.Errorf("qty must be at least 1, got %d", qty)
			}

			return withApp(loadConfig, func(c context.Context, a *app) error {
				refreshForCart(c, a)
				accepted := a.store.AddToCart(c, productID, qty)
				return report(cmd, a, accepted)
			})
		},
	})

	cartCmd.AddCommand(&cobra.Command{
		Use:   "update <productID> <qty>",
		Short: "Set the quantity of a product, 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseArg("productID", args[0])
			if err != nil {
				return err
			}
			qty, err := parseArg("qty", args[1])
			if err != nil {
				return err
			}

			return withApp(loadConfig, func(c context.Context, a *app) error {
				refreshForCart(c, a)
				accepted := a.store.UpdateCartItem(c, productID, qty)
				return report(cmd, a, accepted)
			})
		},
	})

	cartCmd.AddCommand(&cobra.Command{
		Use:   "remove <productID>",
		Short: "Remove a product from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseArg("productID", args[0])
			if err != nil {
				return err
			}

			return withApp(loadConfig, func(c context.Context, a *app) error {
				a.store.RemoveFromCart(c, productID)
				fmt.Fprintf(cmd.OutOrStdout(), "%d item(s) in cart\n", a.store.Count())
				return nil
			})
		},
	})

	cartCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(loadConfig, func(c context.Context, a *app) error {
				a.store.Clear(c)
				fmt.Fprintf(cmd.OutOrStdout(), "%d item(s) in cart\n", a.store.Count())
				return nil
			})
		},
	})

	return cartCmd
}

func newRegisterCmd(loadConfig configLoader) *cobra.Command {
	registration := users.Registration{}

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register a user at the remote shop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(loadConfig, func(c context.Context, a *app) error {
				user, err := users.NewClient(a.cfg.BackendURL, a.sender, mylog.New("users")).Register(c, registration)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %s registered\n", user.Username)
				return nil
			})
		},
	}
	registerCmd.Flags().StringVar(&registration.Username, "username", "", "Username (required)")
	registerCmd.Flags().StringVar(&registration.Password, "password", "", "Password (required)")
	registerCmd.Flags().StringVar(&registration.Email, "email", "", "Email address")
	registerCmd.MarkFlagRequired("username")
	registerCmd.MarkFlagRequired("password")

	return registerCmd
}

// refreshForCart loads the catalog so stock and prices are known. Without it every product counts as sold out.
func refreshForCart(c context.Context, a *app) {
	err := a.catalog.Refresh(c)
	if err != nil {
		a.logger.Log(c, "", mylog.SeverityWarn, "Continuing without products: %s", err)
	}
}

func report(cmd *cobra.Command, a *app, accepted bool) error {
	notification := a.store.Notifications().Current()
	if !accepted {
		if notification != nil {
			return errors.New(notification.Text)
		}
		return errors.New("rejected")
	}
	if notification != nil {
		fmt.Fprintln(cmd.OutOrStdout(), notification.Text)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d item(s) in cart\n", a.store.Count())
	return nil
}

func printCart(cmd *cobra.Command, a *app) {
	summary := a.store.Summary()
	if len(summary.Lines) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Your cart is empty")
		return
	}
	for _, line := range summary.Lines {
		title := line.Title
		if !line.Known {
			title = fmt.Sprintf("unknown product %d", line.ProductID)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%d x $%.2f\t$%.2f\n", line.ProductID, title, line.Quantity, line.UnitPrice, line.LineTotal)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d item(s), total $%.2f\n", summary.Count, summary.Total)
}

func parseArg(name string, raw string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return value, nil
}
