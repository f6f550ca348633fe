package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio <user>",
	Short: "Show holdings valued at current prices",
	Long: `List every holding with its average cost, current price, market value and
unrealized P/L, followed by account totals.

Example:
  trader portfolio alice`,
	Args: cobra.ExactArgs(1),
	RunE: runPortfolio,
}

func init() {
	rootCmd.AddCommand(portfolioCmd)
}

func runPortfolio(cmd *cobra.Command, args []string) error {
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
	v, err := a.ledger.Valuation(ctx, acct.UserID)
	if err != nil {
		return explain(err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Portfolio for %s (id %d)\n\n", acct.Username, acct.UserID)

	if len(v.Holdings) == 0 {
		fmt.Fprintln(out, "  no holdings")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "SYMBOL\tQTY\tAVG COST\tPRICE\tVALUE\tP/L\t")
		for _, h := range v.Holdings {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t\n",
				h.Symbol, h.Quantity,
				a.money(h.AverageCost), a.money(h.CurrentPrice),
				a.money(h.MarketValue), a.money(h.ProfitLoss))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Cash:       %s\n", a.money(v.Balance))
	fmt.Fprintf(out, "  Holdings:   %s\n", a.money(v.PortfolioValue))
	fmt.Fprintf(out, "  Cost basis: %s\n", a.money(v.CostBasis))
	fmt.Fprintf(out, "  P/L:        %s\n", a.money(v.ProfitLoss))
	fmt.Fprintf(out, "  Equity:     %s\n", a.money(v.Equity()))
	return nil
}
