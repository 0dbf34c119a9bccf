package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	appkg "github.com/veilmart/storefront/internal/app"
	"github.com/veilmart/storefront/internal/domain/cart"
)

// runShop is the interactive session: a small prompt loop over the same
// operations as the one-shot commands, with the availability monitor running
// in the background and gating checkout.
func runShop(ctx context.Context, a *appkg.App) error {
	a.StartMonitor(ctx)

	// The badge tracks the cart through the subscription stream, the same
	// way a web UI would, rather than re-querying the store.
	badge := 0
	unsubscribe := a.Cart.Subscribe(func(items []cart.LineItem) {
		badge = 0
		for _, item := range items {
			badge += item.Quantity
		}
	})
	defer unsubscribe()

	fmt.Println("veilmart shop — type 'help' for commands, 'quit' to leave")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("[cart:%d]> ", badge)
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		var err error
		switch cmd {
		case "help":
			fmt.Println("commands: products, show <id>, add <id> [qty] [size], set <id> <qty> [size],")
			fmt.Println("          remove <id> [size], cart, sync, clear, checkout [promo-code], status, quit")
		case "quit", "exit":
			return nil
		case "products":
			err = cmdProducts(ctx, a)
		case "show":
			err = cmdShow(ctx, a, args)
		case "add":
			err = shopAdd(ctx, a, args)
		case "set":
			err = shopSet(a, args)
		case "remove":
			err = shopRemove(a, args)
		case "cart":
			err = cmdCart(a)
		case "sync":
			err = cmdSync(ctx, a)
		case "clear":
			a.Cart.Clear()
			fmt.Println("cart cleared")
		case "checkout":
			err = shopCheckout(ctx, a, args)
		case "status":
			for _, st := range a.Monitor.StatusAll() {
				state := "up"
				if !st.Available {
					state = "down"
				}
				fmt.Printf("%s: %s\n", st.Name, state)
			}
		default:
			fmt.Printf("unknown command %q, try 'help'\n", cmd)
		}
		if err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func shopAdd(ctx context.Context, a *appkg.App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("add: product id required")
	}
	qty := 1
	size := ""
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("add: quantity must be a number, got %q", args[1])
		}
		qty = n
	}
	if len(args) > 2 {
		size = args[2]
	}

	p, err := a.API.GetByID(ctx, args[0])
	if err != nil {
		return err
	}
	a.Cart.Add(*p, qty, size)
	return nil
}

func shopSet(a *appkg.App, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("set: product id and quantity required")
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("set: quantity must be a number, got %q", args[1])
	}
	size := ""
	if len(args) > 2 {
		size = args[2]
	}
	a.Cart.SetQuantity(args[0], size, qty)
	return nil
}

func shopRemove(a *appkg.App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("remove: product id required")
	}
	size := ""
	if len(args) > 1 {
		size = args[1]
	}
	a.Cart.Remove(args[0], size)
	return nil
}

func shopCheckout(ctx context.Context, a *appkg.App, args []string) error {
	if !a.Monitor.Available() {
		return fmt.Errorf("backend is unreachable, try again later")
	}

	code := ""
	if len(args) > 0 {
		code = args[0]
	}

	order, err := a.Checkout.Checkout(ctx, code)
	if err != nil {
		return err
	}
	fmt.Printf("order %s placed, total $%s\n", order.ID, order.Total)
	return nil
}
