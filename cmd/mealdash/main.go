package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/mealdash/appcore/internal/api"
	"github.com/mealdash/appcore/internal/chat"
	"github.com/mealdash/appcore/internal/checkout"
	"github.com/mealdash/appcore/internal/config"
	"github.com/mealdash/appcore/internal/socket"
	"github.com/mealdash/appcore/internal/storage"
	"github.com/mealdash/appcore/pkg/logger"
)

const historyPageSize = 50

func main() {
	if err := run(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Debug {
		logger.SetLevel(logger.LevelDebug)
	}

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		return nil
	}

	client := api.NewClient(cfg.ServerURL, cfg.Token)
	defer client.Close()

	switch args[0] {
	case "checkout":
		return checkoutCommand(cfg, client, args[1:])
	case "chat":
		return chatCommand(cfg, client, args[1:])
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: mealdash <checkout|chat> [flags]")
}

// checkoutCommand groups the persisted cart by restaurant, resolves any lines
// missing a restaurant id, and submits the whole batch in one call.
func checkoutCommand(cfg *config.Config, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	address := fs.String("address", "", "shipping address")
	payment := fs.String("payment", "cash", "payment method")
	if err := fs.Parse(args); err != nil {
		return err
	}

	lines, err := storage.LoadCart(cfg.CartFile)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("cart is empty")
	}

	groups := checkout.GroupByRestaurant(lines)
	groups, err = checkout.ResolveMissing(context.Background(), groups, func(ctx context.Context, foodID string) (string, error) {
		food, err := client.GetFood(ctx, foodID)
		if err != nil {
			return "", err
		}
		return food.ResolvedRestaurantID(), nil
	})
	if err != nil {
		return err
	}

	submitter := checkout.NewSubmitter(client)
	orders, err := submitter.Submit(context.Background(), groups, *payment, *address)
	if err != nil {
		return err
	}

	for _, o := range orders {
		fmt.Printf("order %s created (restaurant %s, total %.2f)\n", o.ID, o.RestaurantID, o.TotalAmount)
		printTrackingQR(cfg.ServerURL, o.ID)
	}

	// Submission succeeded for the whole batch; the selection is done.
	if err := storage.ClearCart(cfg.CartFile); err != nil {
		logger.Warnf("failed to clear cart: %v", err)
	}
	return nil
}

// chatCommand opens the conversation for one order and relays stdin lines.
func chatCommand(cfg *config.Config, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	orderID := fs.String("order", "", "order id")
	receiverID := fs.String("receiver", "", "receiver user id")
	senderID := fs.String("sender", "", "sender user id")
	senderName := fs.String("name", "", "sender display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *orderID == "" {
		return fmt.Errorf("-order is required")
	}

	manager := socket.NewManager()
	manager.Init(cfg.SocketURL, cfg.Token)
	defer manager.Disconnect()

	store := chat.NewStore(*orderID)
	if err := store.LoadHistory(context.Background(), client, historyPageSize, 0); err != nil {
		return err
	}

	channel, err := chat.OpenChannel(manager, client, store)
	if err != nil {
		return err
	}
	defer channel.Close()

	for _, m := range store.Messages() {
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("15:04"), m.SenderName, m.Content)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if _, err := channel.Send(context.Background(), *senderID, *senderName, *receiverID, text, "text"); err != nil {
			logger.Warnf("send failed (kept in transcript): %v", err)
		}
	}
	return scanner.Err()
}

// printTrackingQR renders the order tracking link as an ASCII QR code, with a
// plain URL fallback when rendering fails.
func printTrackingQR(serverURL, orderID string) {
	link := fmt.Sprintf("%s/orders/%s/track", strings.TrimRight(serverURL, "/"), orderID)
	qr, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		logger.Warnf("failed to generate QR code: %v", err)
		fmt.Printf("track: %s\n", link)
		return
	}
	fmt.Println(qr.ToSmallString(false))
	fmt.Printf("track: %s\n", link)
}
