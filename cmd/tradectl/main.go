// Command tradectl drives a papertrade server from the shell.
//
//	tradectl [-api URL] create <playerId>
//	tradectl [-api URL] trade <playerId> <buy|sell> <symbol> <quantity> [T]
//	tradectl [-api URL] portfolio <playerId> [T]
//	tradectl [-api URL] orders <playerId>
//	tradectl [-api URL] prices [T]
//	tradectl [-api URL] securities
//	tradectl [-api URL] time
//
// T defaults to the server's current simulation step.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/uhyunpark/papertrade/pkg/client"
	"github.com/uhyunpark/papertrade/pkg/ledger"
)

func main() {
	apiURL := flag.String("api", envOr("PAPERTRADE_API", client.DefaultBaseURL), "papertrade server URL")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*apiURL, nil)
	if err := run(ctx, c, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, cmd string, args []string) error {
	switch cmd {
	case "create":
		if len(args) != 1 {
			return fmt.Errorf("usage: create <playerId>")
		}
		if err := c.CreatePlayer(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Player created: %s\n", args[0])
		return nil

	case "trade":
		if len(args) < 4 || len(args) > 5 {
			return fmt.Errorf("usage: trade <playerId> <buy|sell> <symbol> <quantity> [T]")
		}
		side, err := ledger.ParseSide(args[1])
		if err != nil {
			return err
		}
		qty, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		t, err := stepArg(ctx, c, args[4:])
		if err != nil {
			return err
		}
		trade := client.Trade{Symbol: args[2], Side: side, Quantity: qty, T: t}
		if err := c.Trade(ctx, args[0], trade); err != nil {
			return err
		}
		fmt.Printf("Trade recorded: %s %s %d %s at T=%d\n", args[0], side, qty, args[2], t)
		return nil

	case "portfolio":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("usage: portfolio <playerId> [T]")
		}
		t, err := stepArg(ctx, c, args[1:])
		if err != nil {
			return err
		}
		snaps, err := c.Portfolio(ctx, args[0], t)
		if err != nil {
			return err
		}
		return printJSON(snaps)

	case "orders":
		if len(args) != 1 {
			return fmt.Errorf("usage: orders <playerId>")
		}
		entries, err := c.Orders(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(entries)

	case "prices":
		t, err := stepArg(ctx, c, args)
		if err != nil {
			return err
		}
		points, err := c.PriceHistory(ctx, t)
		if err != nil {
			return err
		}
		return printJSON(points)

	case "securities":
		securities, err := c.Securities(ctx)
		if err != nil {
			return err
		}
		return printJSON(securities)

	case "time":
		clock, err := c.Time(ctx)
		if err != nil {
			return err
		}
		return printJSON(clock)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// stepArg parses an optional T argument, asking the server when absent.
func stepArg(ctx context.Context, c *client.Client, args []string) (int64, error) {
	if len(args) > 0 {
		t, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("T: %w", err)
		}
		return t, nil
	}
	clock, err := c.Time(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch current step: %w", err)
	}
	return clock.T, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: tradectl [flags] <command> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Commands: create, trade, portfolio, orders, prices, securities, time\n\n")
	flag.PrintDefaults()
}
