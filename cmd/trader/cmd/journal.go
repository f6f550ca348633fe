package cmd

import (
	"fmt"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and export the executed trades of an account.

Subcommands:
  trades - List a user's trades, as org-mode entries or CSV

Examples:
  trader journal trades alice
  trader journal trades alice --csv trades.csv`,
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades <user>",
	Short: "List a user's trades in execution order",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrades,
}

var (
	journalCSVPath string
	journalOrg     bool
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradesCmd)

	journalTradesCmd.Flags().StringVar(&journalCSVPath, "csv", "", "write trades to this CSV file")
	journalTradesCmd.Flags().BoolVar(&journalOrg, "org", false, "print org-mode entries")
}

func runJournalTrades(cmd *cobra.Command, args []string) error {
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
	trades, err := a.ledger.Trades(ctx, acct.UserID)
	if err != nil {
		return explain(err)
	}

	if journalCSVPath != "" {
		j, err := journal.NewCSV(journalCSVPath, "")
		if err != nil {
			return fmt.Errorf("create csv: %w", err)
		}
		for _, t := range trades {
			if err := j.RecordTrade(t); err != nil {
				j.Close()
				return fmt.Errorf("write trade %s: %w", t.TradeID, err)
			}
		}
		if err := j.Close(); err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %d trades to %s\n", len(trades), journalCSVPath)
		return nil
	}

	if len(trades) == 0 {
		fmt.Println("No trades")
		return nil
	}

	if journalOrg {
		fmt.Print(journal.FormatTradesOrg(trades))
		return nil
	}

	for _, t := range trades {
		line := fmt.Sprintf("%s  %-4s %6d %-6s @ %s = %s",
			t.Time.Local().Format("2006-01-02 15:04:05"), t.Side, t.Quantity, t.Symbol,
			a.money(t.Price), a.money(t.Amount))
		if t.Side == broker.SideSell {
			line += fmt.Sprintf("  P/L %s", a.money(t.RealizedPL))
		}
		fmt.Println(line)
	}
	return nil
}
