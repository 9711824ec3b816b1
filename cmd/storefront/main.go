package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Pranav418/micro-merch/internal/api"
	"github.com/Pranav418/micro-merch/internal/cart"
	"github.com/Pranav418/micro-merch/internal/controller"
	"github.com/Pranav418/micro-merch/internal/devserver"
	"github.com/Pranav418/micro-merch/internal/notify"
)

type Config struct {
	GatewayURL     string // empty means run the embedded dev gateway
	RequestTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		GatewayURL:     getEnv("GATEWAY_URL", ""),
		RequestTimeout: 30 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	gatewayURL := cfg.GatewayURL
	if gatewayURL == "" {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			log.Fatalf("failed to start embedded gateway: %v", err)
		}
		srv := &http.Server{Handler: devserver.New(devserver.NewStore())}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("embedded gateway error: %v", err)
			}
		}()
		gatewayURL = "http://" + ln.Addr().String()
		log.Printf("embedded gateway listening on %s", gatewayURL)
	}

	client := api.NewClient(gatewayURL, cfg.RequestTimeout)
	toasts := notify.NewCenter(notify.DefaultTTL)
	cartMgr := cart.NewManager(client, toasts)
	ctrl := controller.New(client, cartMgr, toasts)

	toasts.Subscribe(func() {
		if n := toasts.Current(); n != nil {
			fmt.Printf("  [%s] %s\n", n.Severity, n.Message)
		}
	})

	ctx := context.Background()
	if err := ctrl.LoadInitialData(ctx); err != nil {
		log.Printf("initial load failed: %v", err)
	}

	fmt.Println("micro-merch storefront. Type 'help' for commands.")
	render(ctrl)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "products":
			ctrl.ShowProducts()
		case "orders":
			if err := ctrl.ShowOrders(ctx); err != nil {
				log.Printf("orders: %v", err)
			}
		case "cart":
			ctrl.ShowCart()
		case "add":
			if id, ok := parseID(fields, 1); ok {
				if err := ctrl.AddToCart(id); err != nil {
					log.Printf("add: %v", err)
				}
			}
		case "qty":
			if len(fields) == 3 {
				id, err1 := strconv.ParseInt(fields[1], 10, 64)
				qty, err2 := strconv.Atoi(fields[2])
				if err1 == nil && err2 == nil {
					if err := ctrl.UpdateQuantity(id, qty); err != nil {
						log.Printf("qty: %v", err)
					}
				}
			}
		case "rm":
			if id, ok := parseID(fields, 1); ok {
				ctrl.RemoveItem(id)
			}
		case "user":
			if id, ok := parseID(fields, 1); ok {
				ctrl.SelectUser(id)
			}
		case "checkout":
			if _, err := ctrl.Checkout(ctx); err != nil {
				log.Printf("checkout: %v", err)
			}
		case "seed":
			if err := ctrl.SeedRemote(ctx); err != nil {
				log.Printf("seed: %v", err)
			}
		case "help":
			fmt.Println("commands: products | orders | cart | add <id> | qty <id> <n> | rm <id> | user <id> | checkout | seed | quit")
			continue
		case "quit", "exit":
			return
		default:
			fmt.Println("unknown command, try 'help'")
			continue
		}
		render(ctrl)
	}
}

func parseID(fields []string, idx int) (int64, bool) {
	if len(fields) <= idx {
		return 0, false
	}
	id, err := strconv.ParseInt(fields[idx], 10, 64)
	return id, err == nil
}

func render(ctrl *controller.Controller) {
	if msg := ctrl.LastError(); msg != "" {
		fmt.Printf("!! %s\n", msg)
	}
	if ctrl.Loading() {
		fmt.Println("Loading...")
		return
	}

	switch ctrl.ActiveView() {
	case controller.ViewProducts:
		fmt.Printf("-- Products (ordering as %s, cart: %d) --\n", ctrl.SelectedUserName(), ctrl.CartCount())
		for _, p := range ctrl.Products() {
			stock := fmt.Sprintf("%d in stock", p.Inventory)
			if p.OutOfStock() {
				stock = "Out of stock"
			}
			badge := ""
			if q := ctrl.CartQuantityOf(p.ID); q > 0 {
				badge = fmt.Sprintf("  [%d in cart]", q)
			}
			fmt.Printf("  %d  %-22s %8s  %s%s\n", p.ID, p.Name, p.Price.StringFixed(2), stock, badge)
		}
	case controller.ViewOrders:
		fmt.Printf("-- Orders for %s --\n", ctrl.SelectedUserName())
		orders := ctrl.Orders()
		if len(orders) == 0 {
			fmt.Println("  No orders found for this user.")
		}
		for _, o := range orders {
			fmt.Printf("  Order #%d\n", o.OrderID)
			for _, item := range o.Items {
				fmt.Printf("    %dx %s\n", item.Quantity, item.Product.Name)
			}
			fmt.Printf("    Total: %s\n", o.Total().StringFixed(2))
		}
	case controller.ViewCart:
		fmt.Println("-- Your Cart --")
		items := ctrl.CartItems()
		if len(items) == 0 {
			fmt.Println("  Your cart is empty.")
			return
		}
		for _, item := range items {
			fmt.Printf("  %d  %-22s %d x %s = %s\n", item.ProductID, item.Name, item.Quantity, item.Price.StringFixed(2), item.Subtotal().StringFixed(2))
		}
		fmt.Printf("  Total: %s\n", ctrl.CartTotal().StringFixed(2))
	}
}
