package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/rustyeddy/papertrader/market"
	"github.com/spf13/cobra"
)

var instrumentsCmd = &cobra.Command{
	Use:     "instruments",
	Aliases: []string{"quotes"},
	Short:   "List instruments and their current prices",
	Args:    cobra.NoArgs,
	RunE:    runInstruments,
}

var instrumentsAddCmd = &cobra.Command{
	Use:   "add <symbol> <price>",
	Short: "List a new instrument",
	Long: `Add an instrument to the catalog. Its price is driven by the simulator from
the next tick on.

Example:
  trader instruments add IBM 150 --volatility 0.01`,
	Args: cobra.ExactArgs(2),
	RunE: runInstrumentsAdd,
}

var instrumentVolatility float64

func init() {
	rootCmd.AddCommand(instrumentsCmd)
	instrumentsCmd.AddCommand(instrumentsAddCmd)

	instrumentsAddCmd.Flags().Float64VarP(&instrumentVolatility, "volatility", "v", 0.01, "per-tick volatility")
}

func runInstruments(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	return printInstruments(cmd, a)
}

func printInstruments(cmd *cobra.Command, a *app) error {
	list, err := a.ledger.Instruments(cmd.Context())
	if err != nil {
		return explain(err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "ID\tSYMBOL\tPRICE\tVOLATILITY\tUPDATED\t")
	for _, in := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.4f\t%s\t\n",
			in.ID, in.Symbol, a.money(in.Price), in.Volatility, in.LastUpdated.Local().Format("15:04:05"))
	}
	return w.Flush()
}

func runInstrumentsAdd(cmd *cobra.Command, args []string) error {
	price, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("price %q is not a number", args[1])
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	in, err := a.ledger.AddInstrument(cmd.Context(), market.InstrumentSeed{
		Symbol:     args[0],
		Price:      price,
		Volatility: instrumentVolatility,
	})
	if err != nil {
		return explain(err)
	}

	fmt.Printf("✓ Listed %s (id %d) at %s\n", in.Symbol, in.ID, a.money(in.Price))
	return nil
}
