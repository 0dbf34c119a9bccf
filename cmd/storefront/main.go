// Command storefront is a terminal front end for the veilmart shop: browse
// the catalog, manage the locally persisted cart, and check out against the
// remote API. One-shot subcommands hydrate the cart, apply one operation,
// and persist; the shop subcommand runs an interactive session.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appkg "github.com/veilmart/storefront/internal/app"
	"github.com/veilmart/storefront/internal/domain/cart"
	"github.com/veilmart/storefront/internal/pricing"
)

const usage = `Usage: storefront [-v] <command> [options]

Commands:
  products              list the catalog
  show <product-id>     show one product
  add <product-id>      add to cart (-qty, -size)
  set <product-id>      set cart quantity (-qty, -size)
  remove <product-id>   remove from cart (-size)
  cart                  show the cart with totals
  sync                  refresh cart prices and stock from the catalog
  clear                 empty the cart
  checkout              place the order (-code for a promo code)
  shop                  interactive session

Configuration comes from SHOP_* environment variables or storefront.yaml.`

func main() {
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	lg := newLogger(*verbose)
	defer func() { _ = lg.Sync() }()
	ctx = zctx.Base(ctx, lg)

	if err := run(ctx, lg, flag.Arg(0), flag.Args()[1:]); err != nil {
		slog.Error("storefront failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger builds the session logger. Logs go to stderr so command output
// on stdout stays parseable.
func newLogger(verbose bool) *zap.Logger {
	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	lg, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return lg
}

func run(ctx context.Context, lg *zap.Logger, command string, args []string) error {
	cfg, err := appkg.LoadConfig()
	if err != nil {
		return err
	}

	a, err := appkg.New(cfg, lg)
	if err != nil {
		return err
	}
	defer a.Close()

	switch command {
	case "products":
		return cmdProducts(ctx, a)
	case "show":
		return cmdShow(ctx, a, args)
	case "add":
		return cmdAdd(ctx, a, args)
	case "set":
		return cmdSet(a, args)
	case "remove":
		return cmdRemove(a, args)
	case "cart":
		return cmdCart(a)
	case "sync":
		return cmdSync(ctx, a)
	case "clear":
		a.Cart.Clear()
		fmt.Println("cart cleared")
		return nil
	case "checkout":
		return cmdCheckout(ctx, a, args)
	case "shop":
		return runShop(ctx, a)
	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func cmdProducts(ctx context.Context, a *appkg.App) error {
	products, err := a.API.List(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		fmt.Printf("%-12s %-28s $%-9s stock %d\n", p.ID, p.Name, p.Price, p.Stock)
	}
	return nil
}

func cmdShow(ctx context.Context, a *appkg.App, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("show: exactly one product id required")
	}

	p, err := a.API.GetByID(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Printf("%s\n  %s\n  price $%s, stock %d, category %s\n", p.ID, p.Name, p.Price, p.Stock, p.Category)
	if p.Image.Desktop != "" {
		fmt.Printf("  image %s\n", p.Image.Desktop)
	}
	return nil
}

func cmdAdd(ctx context.Context, a *appkg.App, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	qty := fs.Int("qty", 1, "quantity to add")
	size := fs.String("size", "", "size variant")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("add: exactly one product id required")
	}

	p, err := a.API.GetByID(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	a.Cart.Add(*p, *qty, *size)
	got := a.Cart.Quantity(p.ID, *size)
	if got < *qty {
		fmt.Printf("added %s (only %d in stock)\n", p.Name, p.Stock)
	} else {
		fmt.Printf("added %s x%d\n", p.Name, got)
	}
	return nil
}

func cmdSet(a *appkg.App, args []string) error {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	qty := fs.Int("qty", 1, "new quantity (0 removes)")
	size := fs.String("size", "", "size variant")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("set: exactly one product id required")
	}

	a.Cart.SetQuantity(fs.Arg(0), *size, *qty)
	return cmdCart(a)
}

func cmdRemove(a *appkg.App, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	size := fs.String("size", "", "size variant")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("remove: exactly one product id required")
	}

	a.Cart.Remove(fs.Arg(0), *size)
	return cmdCart(a)
}

func cmdCart(a *appkg.App) error {
	items := a.Cart.Items()
	if len(items) == 0 {
		fmt.Println("cart is empty")
		return nil
	}
	printCart(items, a.Pricing)
	return nil
}

func cmdSync(ctx context.Context, a *appkg.App) error {
	if err := a.Cart.Reconcile(ctx, a.API); err != nil {
		return err
	}
	fmt.Println("cart synced with catalog")
	return cmdCart(a)
}

func cmdCheckout(ctx context.Context, a *appkg.App, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	code := fs.String("code", "", "promo code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	order, err := a.Checkout.Checkout(ctx, *code)
	if err != nil {
		return err
	}

	fmt.Printf("order %s placed\n", order.ID)
	fmt.Printf("  subtotal $%s, shipping $%s, discount $%s\n", order.Subtotal, order.Shipping, order.Discount)
	fmt.Printf("  total    $%s\n", order.Total)
	return nil
}

// printCart renders the line items and the derived totals. Totals are always
// recomputed from the snapshot, never cached.
func printCart(items []cart.LineItem, policy pricing.Policy) {
	for _, item := range items {
		name := item.Product.Name
		if item.Size != "" {
			name += " (" + item.Size + ")"
		}
		line := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		fmt.Printf("%-12s %-32s x%-3d $%s\n", item.Product.ID, name, item.Quantity, line)
	}

	q := policy.QuoteFor(items)
	fmt.Printf("%49s $%s\n", "subtotal", q.Subtotal)
	fmt.Printf("%49s $%s\n", "shipping", q.Shipping)
	if q.Discount.IsPositive() {
		fmt.Printf("%49s -$%s\n", "discount", q.Discount)
	}
	fmt.Printf("%49s $%s\n", "total", q.Total)
}
