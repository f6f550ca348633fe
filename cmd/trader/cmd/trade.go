package cmd

import (
	"context"
	"fmt"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/market"
	"github.com/spf13/cobra"
)

var buyCmd = &cobra.Command{
	Use:   "buy <user> <instrument> <quantity>",
	Short: "Buy shares at the current price",
	Long: `Buy whole shares of an instrument at its live simulated price. The user may
be an ID or a username, the instrument an ID or a symbol.

Example:
  trader buy alice AAPL 10`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrade(cmd, args, broker.SideBuy)
	},
}

var sellCmd = &cobra.Command{
	Use:   "sell <user> <instrument> <quantity>",
	Short: "Sell shares at the current price",
	Long: `Sell whole shares of an instrument at its live simulated price. The realized
P/L against the position's average cost is reported.

Example:
  trader sell alice AAPL 5`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrade(cmd, args, broker.SideSell)
	},
}

func init() {
	rootCmd.AddCommand(buyCmd)
	rootCmd.AddCommand(sellCmd)
}

func runTrade(cmd *cobra.Command, args []string, side broker.Side) error {
	qty, err := market.ParseQuantity(args[2])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	acct, err := a.resolveUser(ctx, args[0])
	if err != nil {
		return explain(err)
	}
	inst, err := a.resolveInstrument(ctx, args[1])
	if err != nil {
		return explain(err)
	}

	var trade func(context.Context, int64, int64, int64) (broker.Fill, error)
	var b broker.Broker = a.ledger
	if side == broker.SideBuy {
		trade = b.Buy
	} else {
		trade = b.Sell
	}

	fill, err := trade(ctx, acct.UserID, inst.ID, qty)
	if err != nil {
		return explain(err)
	}

	fmt.Printf("✓ %s %d %s @ %s = %s\n", fill.Side, fill.Quantity, fill.Symbol, a.money(fill.Price), a.money(fill.Amount))
	if side == broker.SideSell {
		fmt.Printf("  Realized P/L: %s\n", a.money(fill.RealizedPL))
	}
	fmt.Printf("  Balance: %s\n", a.money(fill.NewBalance))
	fmt.Printf("  Trade: %s\n", fill.TradeID)
	return nil
}
